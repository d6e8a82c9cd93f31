// Package dispatch implements the outbound command queue for the serial
// device. It enforces a minimum interval between consecutive sends and
// preserves strict FIFO order, and includes the startup command-file
// loader that pre-populates the queue.
package dispatch
