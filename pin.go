package cyphercell

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/godaddy/asherah/go/cyphercell/internal/memcall"
)

// Pinner keeps memory regions resident so they are never written to swap.
//
// The amount of memory a process may pin is a shared, OS-enforced budget. Pin failures are tolerated by cells, so
// implementations should report exhaustion as an error rather than blocking.
type Pinner interface {
	// Pin asks that b stay resident.
	Pin(b []byte) error

	// Unpin releases a previous Pin of b.
	Unpin(b []byte) error
}

// memcallPinner implements Pinner with mlock/munlock.
type memcallPinner struct {
	mc memcall.Interface
}

func (p *memcallPinner) Pin(b []byte) error {
	return p.mc.Lock(b)
}

func (p *memcallPinner) Unpin(b []byte) error {
	return p.mc.Unlock(b)
}

// DefaultPinner returns the Pinner cells use when none is configured. It locks pages with mlock (VirtualLock on
// Windows) and is subject to the process limit on locked memory.
func DefaultPinner() Pinner {
	return &memcallPinner{mc: memcall.Default}
}

// Budget is a Pinner that caps the number of bytes pinned through it and delegates the actual pinning to another
// Pinner. A Budget is safe for concurrent use and is meant to be shared by every cell drawing from the same pool.
type Budget struct {
	next  Pinner
	mu    sync.Mutex
	limit int
	inUse int
}

// NewBudget returns a Budget allowing at most limit bytes to be pinned at once. If next is nil the pins are only
// accounted for, which is useful to simulate an exhausted host deterministically.
func NewBudget(limit int, next Pinner) *Budget {
	return &Budget{
		next:  next,
		limit: limit,
	}
}

// Pin reserves len(b) bytes from the budget and pins b. It returns ErrPinBudgetExhausted if the reservation does
// not fit.
func (p *Budget) Pin(b []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.inUse+len(b) > p.limit {
		return errors.WithStack(ErrPinBudgetExhausted)
	}

	if p.next != nil {
		if err := p.next.Pin(b); err != nil {
			return err
		}
	}

	p.inUse += len(b)

	return nil
}

// Unpin unpins b and returns its bytes to the budget. Unpinning more bytes than are currently reserved leaves the
// accounting untouched and returns an error; b is still passed on to the underlying Pinner.
func (p *Budget) Unpin(b []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	if len(b) > p.inUse {
		err = errors.Errorf("unpin of %d bytes exceeds %d bytes pinned", len(b), p.inUse)
	} else {
		p.inUse -= len(b)
	}

	if p.next != nil {
		if err2 := p.next.Unpin(b); err2 != nil {
			if err == nil {
				return err2
			}

			return errors.WithMessage(err, err2.Error())
		}
	}

	return err
}

// InUse returns the number of bytes currently pinned through p.
func (p *Budget) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.inUse
}

// Limit returns the maximum number of bytes p allows to be pinned.
func (p *Budget) Limit() int {
	return p.limit
}
