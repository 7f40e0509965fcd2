package cyphercell

import (
	"github.com/rcrowley/go-metrics"
)

var (
	// AllocCounter is used to track cumulative cell allocations.
	//
	// AllocCounter increases as cells are created, but unlike
	// InUseCounter, it does not decrease as cells are closed.
	AllocCounter = metrics.GetOrRegisterCounter("cell.allocated", nil)

	// InUseCounter is used to track the number of cells currently holding memory.
	//
	// InUseCounter increases as cells are created and decreases
	// as cells are closed or finalized.
	InUseCounter = metrics.GetOrRegisterCounter("cell.inuse", nil)

	// PinFailureCounter counts cells whose buffer could not be pinned and which
	// therefore run without swap protection.
	PinFailureCounter = metrics.GetOrRegisterCounter("cell.pin.failed", nil)

	// HeapFallbackCounter counts cells whose buffer had to be placed on the Go heap
	// because a dedicated region could not be mapped.
	HeapFallbackCounter = metrics.GetOrRegisterCounter("cell.heap.fallback", nil)

	// WipeCounter counts wipe invocations, including redundant ones.
	WipeCounter = metrics.GetOrRegisterCounter("cell.wiped", nil)

	// ExpiredCounter counts reads rejected because the cell outlived its TTL.
	ExpiredCounter = metrics.GetOrRegisterCounter("cell.ttl.expired", nil)

	// AllocTimer is used to record the time taken to create a cell.
	AllocTimer = metrics.GetOrRegisterTimer("cell.alloctimer", nil)
)

type cellError string

func (e cellError) Error() string {
	return string(e)
}

const (
	// ErrTTLExpired is returned when a cell with a TTL is read after its deadline.
	// The cell has been wiped by the time the error is returned.
	ErrTTLExpired cellError = "cell has expired"

	// ErrEmptyCell is returned when every byte of the buffer is zero, either because
	// the cell was wiped or because the secret itself was empty or all-zero.
	ErrEmptyCell cellError = "cell is empty/wiped"

	// ErrPinBudgetExhausted is returned by a Budget when pinning would exceed its limit.
	ErrPinBudgetExhausted cellError = "pinned-memory budget exhausted"
)
