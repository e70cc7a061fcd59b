// Package memstack allocates page-granular, guard-paged memory regions
// via anonymous mmap, the mechanism spec §4.B asks for. Go goroutines
// manage their own stacks, so this package backs process actor-state
// buffers instead of a raw call stack
// (see SPEC_FULL.md's "context switching is expressed in Go" redesign
// note) — the guard-page/page-granularity contract is unchanged, only
// which buffer it protects.
package memstack

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Region is a single guard-paged allocation. Usable is the caller's
// span; base is the full mapping (guard page included) so Free can tear
// it all down.
type Region struct {
	base   []byte
	Usable []byte
}

// Alloc reserves at least size bytes, rounded up to the system page
// size, with one additional no-access guard page immediately below the
// usable span. size==0 is rejected; callers with no actor state should
// simply not call Alloc.
func Alloc(size int) (*Region, error) {
	if size <= 0 {
		return nil, errors.New("memstack: size must be positive")
	}
	pageSize := unix.Getpagesize()
	usable := roundUp(size, pageSize)
	total := usable + pageSize // + guard page

	b, err := unix.Mmap(-1, 0, total, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Wrap(err, "memstack: mmap failed")
	}

	guard := b[:pageSize]
	if err := unix.Mprotect(guard, unix.PROT_NONE); err != nil {
		_ = unix.Munmap(b)
		return nil, errors.Wrap(err, "memstack: mprotect guard page failed")
	}

	return &Region{base: b, Usable: b[pageSize:]}, nil
}

// Free releases the mapping, guard page included.
func (r *Region) Free() error {
	if r == nil || r.base == nil {
		return nil
	}
	err := unix.Munmap(r.base)
	r.base, r.Usable = nil, nil
	if err != nil {
		return errors.Wrap(err, "memstack: munmap failed")
	}
	return nil
}

// Size reports the usable (non-guard) byte count.
func (r *Region) Size() int {
	if r == nil {
		return 0
	}
	return len(r.Usable)
}

func roundUp(n, multiple int) int {
	if n%multiple == 0 {
		return n
	}
	return (n/multiple + 1) * multiple
}
