// Package list provides a doubly-linked circular intrusive list.
//
// A list never allocates or owns its elements: node state lives embedded
// in the element via Node, and the list threads elements together by
// their node's prev/next pointers. Callers supply the Node to link and
// get element pointers back out.
package list

// Decision tells Iterate whether to keep visiting elements.
type Decision int

const (
	// Continue visits the next element.
	Continue Decision = iota
	// Break stops iteration after the current element.
	Break
)

// Node is the embeddable link state for an element of type T.
// Zero value is an unlinked node.
type Node[T any] struct {
	prev, next *Node[T]
	elem       T
}

// Elem returns the element this node belongs to.
func (n *Node[T]) Elem() T { return n.elem }

// List is a handle to a circular doubly-linked list: a pointer to the
// current head node, or nil for an empty list.
type List[T any] struct {
	head *Node[T]
}

// Empty reports whether the list has no elements.
func (l *List[T]) Empty() bool { return l == nil || l.head == nil }

// Append inserts elem (via node) immediately before the head, making it
// the new tail. Returns the (possibly newly-populated) list. Fails
// silently — returning the list unchanged — if node is nil.
func (l *List[T]) Append(elem T, node *Node[T]) *List[T] {
	if l == nil || node == nil {
		return l
	}
	node.elem = elem
	if l.head == nil {
		node.next = node
		node.prev = node
		l.head = node
		return l
	}
	tail := l.head.prev
	node.next = l.head
	node.prev = tail
	tail.next = node
	l.head.prev = node
	return l
}

// Prepend inserts elem (via node) before the head and returns node as the
// new head.
func (l *List[T]) Prepend(elem T, node *Node[T]) *List[T] {
	if l == nil || node == nil {
		return l
	}
	l.Append(elem, node)
	l.head = node
	return l
}

// Iterate visits elements head-to-tail, calling f on each. Stops early
// when f returns Break, or after every element has been visited once.
// Returns the element of the last node visited, or the zero value on an
// empty list.
func (l *List[T]) Iterate(f func(T) Decision) T {
	var last T
	if l == nil || l.head == nil {
		return last
	}
	n := l.head
	for {
		last = n.elem
		if f(n.elem) == Break {
			return last
		}
		n = n.next
		if n == l.head {
			return last
		}
	}
}

// Remove detaches node from the list. If node was the head, the new head
// is its successor; if node was the only entry, the list becomes empty
// (represented by a nil head).
func (l *List[T]) Remove(node *Node[T]) *List[T] {
	if l == nil || node == nil || l.head == nil {
		return l
	}
	if node.next == node {
		// Only entry.
		l.head = nil
		node.next = nil
		node.prev = nil
		return l
	}
	node.prev.next = node.next
	node.next.prev = node.prev
	if l.head == node {
		l.head = node.next
	}
	node.next = nil
	node.prev = nil
	return l
}

// Head returns the head element without mutating the list.
func (l *List[T]) Head() (T, bool) {
	var zero T
	if l == nil || l.head == nil {
		return zero, false
	}
	return l.head.elem, true
}

// Tail returns the tail element without mutating the list.
func (l *List[T]) Tail() (T, bool) {
	var zero T
	if l == nil || l.head == nil {
		return zero, false
	}
	return l.head.prev.elem, true
}

// HeadNode returns the head node itself, for callers that need to Remove
// the element they just read from Head.
func (l *List[T]) HeadNode() *Node[T] {
	if l == nil {
		return nil
	}
	return l.head
}

// Len walks the list counting elements. O(n); intended for tests and
// invariant checks, not hot paths.
func (l *List[T]) Len() int {
	if l == nil || l.head == nil {
		return 0
	}
	n := 1
	for cur := l.head.next; cur != l.head; cur = cur.next {
		n++
	}
	return n
}
