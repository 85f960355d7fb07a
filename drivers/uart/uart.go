// Package uart provides a host-backed UART driver: an os.Pipe pair
// wrapped in buffered readers/writers, standing in for a real USART
// peripheral's TX/RX FIFOs. Used by the demo's producer/consumer
// scenario to prove a semaphore handshake drives real I/O, not just an
// in-memory counter.
package uart

import (
	"bufio"
	"io"
	"os"
)

// UART is one end of a host-simulated serial line.
type UART struct {
	r *bufio.Reader
	w *bufio.Writer
	c io.Closer
}

// Pair creates two UARTs wired to each other's pipe, as if a loopback
// cable connected two halves of a UART peripheral: writing to one's TX
// is readable from the other's RX.
func Pair() (a, b *UART, err error) {
	arPipeR, arPipeW, err := os.Pipe()
	if err != nil {
		return nil, nil, err
	}
	braPipeR, braPipeW, err := os.Pipe()
	if err != nil {
		return nil, nil, err
	}
	a = &UART{r: bufio.NewReader(arPipeR), w: bufio.NewWriter(braPipeW), c: arPipeR}
	b = &UART{r: bufio.NewReader(braPipeR), w: bufio.NewWriter(arPipeW), c: braPipeR}
	return a, b, nil
}

// WriteString transmits s and flushes immediately, matching a UART's
// write-then-wait-for-TXE behavior rather than buffering indefinitely.
func (u *UART) WriteString(s string) error {
	if _, err := u.w.WriteString(s); err != nil {
		return err
	}
	return u.w.Flush()
}

// ReadLine blocks until a newline-terminated line is available on RX.
func (u *UART) ReadLine() (string, error) {
	line, err := u.r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return line, nil
}

// Close closes the pipe end this UART reads from. The pipe end it writes
// to is not closed.
func (u *UART) Close() error {
	return u.c.Close()
}
