// Command arnmabi builds as a cgo c-archive: `go build -buildmode=c-archive
// -o libarnm.a ./cmd/arnmabi` produces libarnm.a/libarnm.h, the static
// library a compiled ARNm program links against (spec §6). Every //export
// function here is a thin wrapper translating the flat C ABI spec §6
// names into calls against package arnm's idiomatic Go API; no scheduling
// or memory-management logic lives in this file.
package main

/*
#include <stdint.h>
#include <stddef.h>

typedef void (*arnm_entry_fn)(uint64_t pid, void *arg);
typedef void (*arnm_destructor_fn)(void *value);

static inline void arnm_call_entry(arnm_entry_fn fn, uint64_t pid, void *arg) {
    fn(pid, arg);
}

static inline void arnm_call_destructor(arnm_destructor_fn fn, void *value) {
    fn(value);
}
*/
import "C"

import (
	"context"
	"runtime/cgo"
	"unsafe"

	"github.com/mouuuuaad/arnm-runtime/arc"
	"github.com/mouuuuaad/arnm-runtime/arnm"
	"github.com/mouuuuaad/arnm-runtime/mailbox"
	"github.com/mouuuuaad/arnm-runtime/pkg/diag"
)

// runCtx carries the context passed to arnm.Run; arnm_shutdown cancels it.
var (
	runCtx    context.Context
	runCancel context.CancelFunc
)

// entryArgs is what a spawned process's Go entry closure receives: the
// C function pointer the compiler's generated code supplied, plus the
// opaque arg pointer to forward to it untouched.
type entryArgs struct {
	fn  C.arnm_entry_fn
	arg unsafe.Pointer
}

//export arnm_init
func arnm_init(numWorkers C.int) C.int {
	err := arnm.Init(arnm.Config{NumWorkers: int(numWorkers)})
	if err != nil {
		diag.Warn("arnm_init failed")
		return 1
	}
	runCtx, runCancel = context.WithCancel(context.Background())
	return 0
}

//export arnm_run
func arnm_run() {
	if runCtx == nil {
		return
	}
	_ = arnm.Run(runCtx)
}

//export arnm_shutdown
func arnm_shutdown() {
	if runCancel != nil {
		runCancel()
	}
	arnm.Shutdown()
}

//export arnm_spawn
func arnm_spawn(entry C.arnm_entry_fn, arg unsafe.Pointer, stateSize C.size_t) C.uintptr_t {
	h, err := arnm.Spawn(trampoline, entryArgs{fn: entry, arg: arg}, int(stateSize))
	if err != nil {
		diag.Warn("arnm_spawn failed")
		return 0
	}
	return C.uintptr_t(cgo.NewHandle(h))
}

// trampoline is every spawned process's Go-side Run body: it calls back
// into the C function pointer the compiler emitted for the process's
// entry block, with the process's own pid and the caller's opaque arg.
func trampoline(ctx *arnm.Ctx, a any) {
	ea := a.(entryArgs)
	C.arnm_call_entry(ea.fn, C.uint64_t(ctx.PID()), ea.arg)
}

//export arnm_self
func arnm_self() C.uintptr_t {
	ctx := arnm.Self()
	if ctx == nil {
		return 0
	}
	return C.uintptr_t(cgo.NewHandle(ctx.Handle()))
}

//export arnm_pid
func arnm_pid(handle C.uintptr_t) C.uint64_t {
	h, ok := lookupHandle(handle)
	if !ok {
		return 0
	}
	return C.uint64_t(h.PID())
}

//export arnm_yield
func arnm_yield() {
	if ctx := arnm.Self(); ctx != nil {
		ctx.Yield()
	}
}

//export arnm_exit
func arnm_exit() {
	if ctx := arnm.Self(); ctx != nil {
		ctx.Exit()
	}
}

//export arnm_send
func arnm_send(target C.uintptr_t, tag C.uint64_t, data unsafe.Pointer, size C.size_t) C.int {
	h, ok := lookupHandle(target)
	if !ok {
		return 1
	}
	buf := C.GoBytes(data, C.int(size))
	if err := arnm.Send(h, uint64(tag), buf); err != nil {
		return 1
	}
	return 0
}

//export arnm_receive
func arnm_receive() C.uintptr_t {
	ctx := arnm.Self()
	if ctx == nil {
		return 0
	}
	msg, err := ctx.Receive(context.Background())
	if err != nil {
		return 0
	}
	return C.uintptr_t(cgo.NewHandle(&msg))
}

//export arnm_try_receive
func arnm_try_receive() C.uintptr_t {
	ctx := arnm.Self()
	if ctx == nil {
		return 0
	}
	msg, ok := ctx.TryReceive()
	if !ok {
		return 0
	}
	return C.uintptr_t(cgo.NewHandle(&msg))
}

//export arnm_message_tag
func arnm_message_tag(handle C.uintptr_t) C.uint64_t {
	msg, ok := lookupMessage(handle)
	if !ok {
		return 0
	}
	return C.uint64_t(msg.Tag)
}

//export arnm_message_data
func arnm_message_data(handle C.uintptr_t) unsafe.Pointer {
	msg, ok := lookupMessage(handle)
	if !ok || len(msg.Data) == 0 {
		return nil
	}
	return C.CBytes(msg.Data)
}

//export arnm_message_size
func arnm_message_size(handle C.uintptr_t) C.size_t {
	msg, ok := lookupMessage(handle)
	if !ok {
		return 0
	}
	return C.size_t(len(msg.Data))
}

//export arnm_message_free
func arnm_message_free(handle C.uintptr_t) {
	if handle == 0 {
		return
	}
	cgo.Handle(handle).Delete()
}

//export arnm_panic_nomatch
func arnm_panic_nomatch() {
	diag.Panic("no pattern matched a received message")
}

//export arnm_alloc
func arnm_alloc(size C.size_t, destructor C.arnm_destructor_fn) C.uintptr_t {
	buf := make([]byte, int(size))
	var destroy arc.Destructor
	if destructor != nil {
		destroy = func(value any) {
			b := value.([]byte)
			if len(b) == 0 {
				C.arnm_call_destructor(destructor, nil)
				return
			}
			C.arnm_call_destructor(destructor, unsafe.Pointer(&b[0]))
		}
	}
	obj := arc.Alloc(buf, uintptr(size), destroy)
	return C.uintptr_t(cgo.NewHandle(obj))
}

//export arnm_retain
func arnm_retain(handle C.uintptr_t) C.uintptr_t {
	obj, ok := lookupObject(handle)
	if !ok {
		return 0
	}
	arc.Retain(obj)
	return handle
}

//export arnm_release
func arnm_release(handle C.uintptr_t) {
	obj, ok := lookupObject(handle)
	if !ok {
		return
	}
	arc.Release(obj)
	if arc.Refcount(obj) == 0 {
		cgo.Handle(handle).Delete()
	}
}

//export arnm_refcount
func arnm_refcount(handle C.uintptr_t) C.int64_t {
	obj, ok := lookupObject(handle)
	if !ok {
		return 0
	}
	return C.int64_t(arc.Refcount(obj))
}

func lookupHandle(raw C.uintptr_t) (*arnm.Handle, bool) {
	if raw == 0 {
		return nil, false
	}
	v := cgo.Handle(raw).Value()
	h, ok := v.(*arnm.Handle)
	return h, ok
}

func lookupMessage(raw C.uintptr_t) (*mailbox.Message, bool) {
	if raw == 0 {
		return nil, false
	}
	v := cgo.Handle(raw).Value()
	m, ok := v.(*mailbox.Message)
	return m, ok
}

func lookupObject(raw C.uintptr_t) (*arc.Object, bool) {
	if raw == 0 {
		return nil, false
	}
	v := cgo.Handle(raw).Value()
	o, ok := v.(*arc.Object)
	return o, ok
}

func main() {}
