package cyphercell

import (
	"math"
	"time"

	"github.com/godaddy/asherah/go/cyphercell/internal/memcall"
)

// Option is used to configure a Cell at creation.
type Option func(*config)

type config struct {
	volatile   bool
	ttl        time.Duration
	hasTTL     bool
	wipeSource bool
	pinner     Pinner
	mc         memcall.Interface
	now        func() time.Time
}

func newConfig(opts []Option) *config {
	cfg := &config{
		mc:  memcall.Default,
		now: time.Now,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.pinner == nil {
		cfg.pinner = &memcallPinner{mc: cfg.mc}
	}

	return cfg
}

// WithVolatile makes the first successful Reveal (or WithBytes) the last one: the cell wipes itself as soon as the
// secret has been handed out.
func WithVolatile() Option {
	return func(cfg *config) {
		cfg.volatile = true
	}
}

// WithTTL bounds the lifetime of the cell. Reads made once more than d has elapsed since creation wipe the cell and
// fail with ErrTTLExpired. A zero TTL expires immediately.
func WithTTL(d time.Duration) Option {
	return func(cfg *config) {
		cfg.ttl = d
		cfg.hasTTL = true
	}
}

// WithTTLSeconds is WithTTL expressed in whole seconds. Values beyond the range of time.Duration saturate.
func WithTTLSeconds(sec uint64) Option {
	if sec > uint64(math.MaxInt64/int64(time.Second)) {
		return WithTTL(time.Duration(math.MaxInt64))
	}

	return WithTTL(time.Duration(sec) * time.Second)
}

// WithPinner sets the capability used to keep the buffer out of swap. Pinners may be shared between cells to model
// a common budget; see Budget.
func WithPinner(p Pinner) Option {
	return func(cfg *config) {
		cfg.pinner = p
	}
}

// WithWipeSource zeroizes the caller's input slice once it has been copied into the cell.
func WithWipeSource() Option {
	return func(cfg *config) {
		cfg.wipeSource = true
	}
}

func withClock(now func() time.Time) Option {
	return func(cfg *config) {
		cfg.now = now
	}
}

func withMemcall(mc memcall.Interface) Option {
	return func(cfg *config) {
		cfg.mc = mc
	}
}
