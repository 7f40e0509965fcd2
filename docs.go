/*
Package cyphercell provides a hardened container for a single secret (password, token, key material) that keeps the
exposure window of the secret in process memory as small as possible.

A Cell copies the secret into a dedicated region mapped outside the Go heap, asks the operating system to keep that
region out of swap, and overwrites it with zeros on every exit path: an explicit Wipe, the end of a Scope, a TTL
expiry detected on read, the first read of a volatile cell, Close, and finally the garbage collector as a last
resort. Every textual form of a Cell is a fixed redacted literal.

	package main

	import (
		"fmt"
		"time"

		"github.com/godaddy/asherah/go/cyphercell"
	)

	func main() {
		cell := cyphercell.New(getTokenFromStore(), cyphercell.WithTTL(time.Minute))
		defer cell.Close()

		err := cell.Scope(func(c *cyphercell.Cell) error {
			token, err := c.Reveal()
			if err != nil {
				return err
			}

			return callService(token)
		})
		if err != nil {
			panic("unexpected error!")
		}

		fmt.Println(cell) // <Cell: [REDACTED]>
	}

Pinning is best effort. When the process-wide locked-memory limit is exhausted a cell keeps working without swap
protection; the degraded state is visible through Cell.Pinned, PinFailureCounter and the debug log (see package
log).

A Cell performs no internal synchronization. Callers sharing a cell between goroutines must serialize access.
*/
package cyphercell
