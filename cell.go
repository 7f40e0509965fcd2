package cyphercell

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	// NOTE: If we ever remove the import of core, we'll need to add an init func that calls memcall.DisableCoreDumps
	"github.com/awnumar/memguard/core"
	"github.com/pkg/errors"

	"github.com/godaddy/asherah/go/cyphercell/internal/memcall"
	"github.com/godaddy/asherah/go/cyphercell/internal/secrets"
	"github.com/godaddy/asherah/go/cyphercell/log"
)

const (
	redacted = "<Cell: [REDACTED]>"
	maskChar = "*"
)

// Cell holds a single secret. The secret is readable until the cell is wiped, after which every byte of the buffer
// is zero and nothing can bring the content back.
//
// Always call Close (or use With) once the cell is no longer needed. The garbage collector will eventually wipe
// a forgotten cell, but when that happens is unspecified.
type Cell struct {
	*cellInternal
	// dummy is used for attaching a finalizer since attaching one to the cell itself results in it always having a reference.
	dummy *bool
}

// cellInternal is an abstraction needed to allow us to wipe the cell without referencing it directly in a finalizer.
type cellInternal struct {
	buf    []byte
	size   int
	mc     memcall.Interface
	pinner Pinner

	// mapped is set when buf was obtained from mc and has to be handed back on close.
	mapped bool
	pinned bool
	wiped  bool
	closed atomic.Bool

	volatile bool
	birth    time.Time
	ttl      time.Duration
	hasTTL   bool
	now      func() time.Time

	// stack contains a formatted stack trace collected when the cell was created, only set if DebugEnabled.
	stack        []byte
	externalAddr string
}

// New copies data into a new cell and returns it in the active state. Empty data is accepted, but such a cell is
// indistinguishable from a wiped one.
//
// Creation never fails. If the buffer cannot be mapped outside the Go heap, or cannot be pinned, the cell operates
// without that protection and the condition is reported through the debug log and the package counters.
func New(data []byte, opts ...Option) *Cell {
	defer AllocTimer.UpdateSince(time.Now())

	cfg := newConfig(opts)

	internal := &cellInternal{
		size:     len(data),
		mc:       cfg.mc,
		pinner:   cfg.pinner,
		volatile: cfg.volatile,
		ttl:      cfg.ttl,
		hasTTL:   cfg.hasTTL,
		now:      cfg.now,
	}

	internal.buf = internal.alloc(len(data))

	// pin before the secret is copied in so it never sits in swappable memory
	internal.pin()

	copy(internal.buf, data)

	if cfg.wipeSource {
		core.Wipe(data)
	}

	internal.birth = cfg.now()

	cell := &Cell{
		cellInternal: internal,
		dummy:        new(bool),
	}

	if log.DebugEnabled() {
		internal.externalAddr = fmt.Sprintf("%p", cell)
		internal.stack = debug.Stack()
	}

	// Finalizer attaches to dummy reference so we can wipe the cell when it goes out of scope. We have to use
	// cellInternal to avoid keeping the cell in scope by virtue of the finalizer setup.
	runtime.SetFinalizer(cell.dummy, func(_ *bool) {
		go internal.finalize()
	})

	AllocCounter.Inc(1)
	InUseCounter.Inc(1)

	return cell
}

// With creates a cell from data, passes it to action and closes it when action returns, whichever way it returns.
// The error returned by action is returned as is.
func With(data []byte, action func(*Cell) error, opts ...Option) (err error) {
	cell := New(data, opts...)

	defer func() {
		if err2 := cell.Close(); err2 != nil && err == nil {
			err = err2
		}
	}()

	return cell.Scope(action)
}

// Reveal returns the secret as text. Invalid UTF-8 sequences are replaced with U+FFFD.
//
// If the cell has a TTL that has elapsed, the cell is wiped and ErrTTLExpired is returned. If every byte of the
// buffer is zero, ErrEmptyCell is returned. A volatile cell is wiped once the copy has been made; the returned
// string stays valid.
//
// The returned string is an ordinary Go string that cannot be erased. Prefer WithBytes where the secret can be
// consumed as a byte slice.
func (c *Cell) Reveal() (string, error) {
	// the finalizer must not release the buffer while it is being read
	defer runtime.KeepAlive(c)

	if err := c.checkReadable(); err != nil {
		return "", err
	}

	secret := decode(c.buf)

	if c.volatile {
		c.wipe()
	}

	return secret, nil
}

// RevealMasked returns the secret with everything but the last suffixLen bytes replaced by '*', one per byte. If
// suffixLen covers the whole secret it is returned unmasked. A negative suffixLen masks everything.
//
// RevealMasked fails with ErrEmptyCell on an all-zero buffer. Unlike Reveal, it does not enforce the TTL and does
// not consume a volatile cell.
func (c *Cell) RevealMasked(suffixLen int) (string, error) {
	defer runtime.KeepAlive(c)

	if c.isEmpty() {
		return "", errors.WithStack(ErrEmptyCell)
	}

	if suffixLen < 0 {
		suffixLen = 0
	}

	n := len(c.buf)
	if suffixLen >= n {
		return decode(c.buf), nil
	}

	return strings.Repeat(maskChar, n-suffixLen) + decode(c.buf[n-suffixLen:]), nil
}

// WithBytes passes the secret's buffer to action and returns the error returned by action. It applies the same
// checks as Reveal and, for a volatile cell, wipes the cell after action returns.
//
// A reference MUST not be kept to the bytes passed to the function as they are zeroed when the cell is wiped.
func (c *Cell) WithBytes(action func([]byte) error) error {
	defer runtime.KeepAlive(c)

	if err := c.checkReadable(); err != nil {
		return err
	}

	if c.volatile {
		defer c.wipe()
	}

	return action(c.buf)
}

// NewReader returns a new io.Reader reading from c. Every Read is subject to the same checks as WithBytes. For a
// volatile cell the first Read consumes the cell, so it should be given a buffer of at least Len bytes.
func (c *Cell) NewReader() io.Reader {
	return secrets.NewReader(c)
}

// Scope passes c to action and wipes c when action returns, including when it panics. Scope returns the error
// returned by action.
func (c *Cell) Scope(action func(*Cell) error) error {
	defer runtime.KeepAlive(c)
	defer c.wipe()

	return action(c)
}

// Wipe unpins the buffer and overwrites it with zeros. It is safe to call any number of times.
func (c *Cell) Wipe() {
	c.wipe()
}

// Close wipes the cell and releases its memory. Close is idempotent; subsequent reads fail with ErrEmptyCell.
func (c *Cell) Close() error {
	if c.dummy != nil {
		runtime.SetFinalizer(c.dummy, nil)
	}

	return c.close()
}

// Len returns the length of the secret given at creation.
func (c *Cell) Len() int {
	return c.size
}

// IsWiped returns true once the cell has been wiped by any path. Note that Reveal decides emptiness from the buffer
// content, not from this flag.
func (c *Cell) IsWiped() bool {
	return c.wiped
}

// IsClosed returns true if the cell's memory has been released.
func (c *Cell) IsClosed() bool {
	return c.closed.Load()
}

// Pinned reports whether the buffer is currently pinned in memory. A live, non-empty cell that is not pinned is
// running without swap protection.
func (c *Cell) Pinned() bool {
	return c.pinned
}

// Volatile reports whether the cell wipes itself after its first successful read.
func (c *Cell) Volatile() bool {
	return c.volatile
}

// Expired reports whether the cell's TTL has elapsed. Unlike Reveal it does not wipe the cell.
func (c *Cell) Expired() bool {
	return c.expired()
}

// String returns a redacted placeholder.
func (Cell) String() string {
	return redacted
}

// GoString returns a redacted placeholder for %#v.
func (Cell) GoString() string {
	return redacted
}

// Format implements fmt.Formatter so that no verb or flag can print the buffer.
func (Cell) Format(f fmt.State, _ rune) {
	_, _ = io.WriteString(f, redacted)
}

// MarshalText implements encoding.TextMarshaler with the redacted placeholder.
func (Cell) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

// MarshalJSON implements json.Marshaler with the redacted placeholder.
func (Cell) MarshalJSON() ([]byte, error) {
	return json.Marshal(redacted)
}

// alloc returns a zeroed buffer of the given size, preferring memory mapped outside the Go heap.
func (c *cellInternal) alloc(size int) []byte {
	if size == 0 {
		return []byte{}
	}

	b, err := c.mc.Alloc(size)
	if err != nil {
		log.Debugf("cyphercell: unable to map %d bytes, falling back to heap: %v\n", size, err)
		HeapFallbackCounter.Inc(1)

		return make([]byte, size)
	}

	c.mapped = true

	return b
}

func (c *cellInternal) pin() {
	if len(c.buf) == 0 {
		return
	}

	if err := c.pinner.Pin(c.buf); err != nil {
		log.Debugf("cyphercell: unable to pin %d bytes, continuing without swap protection: %v\n", len(c.buf), err)
		PinFailureCounter.Inc(1)

		return
	}

	c.pinned = true
}

func (c *cellInternal) unpin() {
	if !c.pinned {
		return
	}

	if err := c.pinner.Unpin(c.buf); err != nil {
		log.Debugf("cyphercell: unable to unpin %d bytes: %v\n", len(c.buf), err)
	}

	c.pinned = false
}

// wipe is the single erasure path shared by every trigger.
func (c *cellInternal) wipe() {
	c.unpin()

	// core.Wipe keeps the buffer alive past the loop so the stores cannot be eliminated.
	core.Wipe(c.buf)

	c.wiped = true

	WipeCounter.Inc(1)
}

// checkReadable enforces the TTL, wiping the cell if it has expired, and rejects an all-zero buffer.
func (c *cellInternal) checkReadable() error {
	if c.expired() {
		c.wipe()
		ExpiredCounter.Inc(1)

		return errors.WithStack(ErrTTLExpired)
	}

	if c.isEmpty() {
		return errors.WithStack(ErrEmptyCell)
	}

	return nil
}

func (c *cellInternal) expired() bool {
	if !c.hasTTL {
		return false
	}

	return c.ttl <= 0 || c.now().Sub(c.birth) > c.ttl
}

// isEmpty reports whether every byte of the buffer is zero. It reads the whole buffer regardless of content.
func (c *cellInternal) isEmpty() bool {
	var acc byte
	for _, b := range c.buf {
		acc |= b
	}

	return acc == 0
}

func (c *cellInternal) finalize() {
	if !c.closed.Load() {
		log.Debugf("cyphercell: finalized before closed: cell(%s){inner(%p)}\n%s\n", c.externalAddr, c, c.stack)
	}

	if err := c.close(); err != nil {
		log.Debugf("cyphercell: error closing finalized cell: %v\n", err)
	}
}

// close is the actual implementation of Cell.Close. It needs to be implemented at this level in order for
// the finalizer to work properly (to avoid a reference to the cell).
func (c *cellInternal) close() (err error) {
	if c.closed.Load() {
		return nil
	}

	c.wipe()

	if c.mapped {
		if err = c.mc.Free(c.buf); err != nil {
			err = errors.WithMessage(err, "unable to release cell memory")
		}

		c.mapped = false
	}

	c.buf = nil
	c.closed.Store(true)

	InUseCounter.Dec(1)

	return err
}
