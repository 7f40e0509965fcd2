package memcall

import "github.com/awnumar/memcall"

// Allocator hands out page-aligned regions outside the Go heap.
type Allocator interface {
	Alloc(size int) ([]byte, error)
}

// Freer releases a region obtained from an Allocator. The region is zeroed first.
type Freer interface {
	Free([]byte) error
}

// Locker pins a region so it is never written to swap.
type Locker interface {
	Lock([]byte) error
}

// Unlocker releases a Lock.
type Unlocker interface {
	Unlock([]byte) error
}

// Interface groups the page operations a cell needs over its lifetime: Alloc at creation, Lock and Unlock around
// the active state, Free at close.
type Interface interface {
	Allocator
	Freer
	Locker
	Unlocker
}

// wrapper implements Interface
type wrapper struct {
}

// Default maps cell buffers with mmap (VirtualAlloc on Windows) and pins them with mlock (VirtualLock).
var Default Interface = &wrapper{}

func (*wrapper) Alloc(size int) ([]byte, error) {
	return memcall.Alloc(size)
}

func (*wrapper) Lock(b []byte) error {
	return memcall.Lock(b)
}

func (*wrapper) Unlock(b []byte) error {
	return memcall.Unlock(b)
}

func (*wrapper) Free(b []byte) error {
	return memcall.Free(b)
}
