package sched

import (
	"sync"

	"github.com/mouuuuaad/arnm-runtime/internal/glink"
)

// currentByGoroutine backs the handful of spec §6 ABI calls that have
// no parameter to carry a Ctx through (arnm_self, arnm_yield,
// arnm_receive as called from generated machine code) and therefore
// need the C-style "current process" thread-local the rest of this
// package avoids by threading Ctx explicitly through entry closures.
// It is keyed by the owning goroutine's runtime *g (internal/glink.GetG),
// which is stable for the lifetime of a process's dedicated goroutine.
var currentByGoroutine sync.Map // map[unsafe.Pointer]*Ctx

func registerCurrent(key any, ctx *Ctx) {
	currentByGoroutine.Store(key, ctx)
}

func unregisterCurrent(key any) {
	currentByGoroutine.Delete(key)
}

// CurrentCtx looks up the Ctx registered for the calling goroutine.
// Only meaningful when called from inside a process's own dedicated
// goroutine (i.e. from generated code running as that process's
// entry); returns nil otherwise. Intended for cmd/arnmabi's flat C
// shim, not for idiomatic Go callers, who already hold a *Ctx.
func CurrentCtx() *Ctx {
	key := glink.GetG()
	v, ok := currentByGoroutine.Load(key)
	if !ok {
		return nil
	}
	return v.(*Ctx)
}
