// Command libfeaturekit builds the featurekit engine as a C shared library:
//
//	go build -buildmode=c-shared -o libfeaturekit.so ./cmd/libfeaturekit
//
// Engines are referenced by opaque handles. Every buffer or string returned by the library is
// allocated with malloc and must be released with free_buffer or free_response.
package main

/*
#include <stdbool.h>
#include <stdint.h>
#include <stdlib.h>
*/
import "C"

import (
	"errors"
	"os"
	"runtime/cgo"
	"unsafe"

	"github.com/featurekit/featurekit-go"
	"github.com/featurekit/featurekit-go/internal/ffi"
	"github.com/featurekit/featurekit-go/internal/logging"
)

var errInvalidHandle = errors.New("invalid engine handle")

func main() {}

func bridge(h C.uintptr_t) (b *ffi.Bridge, ok bool) {
	if h == 0 {
		return nil, false
	}
	defer func() {
		// cgo.Handle.Value panics on a released handle
		if recover() != nil {
			b, ok = nil, false
		}
	}()
	b, ok = cgo.Handle(h).Value().(*ffi.Bridge)
	return b, ok
}

//export new_engine
func new_engine() C.uintptr_t {
	logger := logging.New(os.Getenv("FEATUREKIT_LOG_LEVEL"))
	engine := featurekit.New(featurekit.WithLogger(logger))
	return C.uintptr_t(cgo.NewHandle(ffi.NewBridge(engine)))
}

//export free_engine
func free_engine(h C.uintptr_t) {
	if _, ok := bridge(h); ok {
		cgo.Handle(h).Delete()
	}
}

//export load
func load(h C.uintptr_t, document *C.char) *C.char {
	b, ok := bridge(h)
	if !ok {
		return C.CString(string(ffi.Failure(errInvalidHandle)))
	}
	if document == nil {
		return C.CString(string(ffi.Failure(errors.New("document is null"))))
	}
	return C.CString(string(b.Load([]byte(C.GoString(document)))))
}

//export resolve
func resolve(h C.uintptr_t, name *C.char, context *C.uint8_t, contextLen C.size_t, outLen *C.size_t) *C.uint8_t {
	*outLen = 0
	b, ok := bridge(h)
	if !ok || name == nil {
		return nil
	}
	out, err := b.Resolve(C.GoString(name), goBytes(context, contextLen))
	if err != nil {
		return nil
	}
	return cBuffer(out, outLen)
}

//export resolve_all
func resolve_all(h C.uintptr_t, context *C.uint8_t, contextLen C.size_t, includeAll C.bool, outLen *C.size_t) *C.uint8_t {
	*outLen = 0
	b, ok := bridge(h)
	if !ok {
		return nil
	}
	out, err := b.ResolveAll(goBytes(context, contextLen), bool(includeAll))
	if err != nil {
		return nil
	}
	return cBuffer(out, outLen)
}

//export snapshot_metrics
func snapshot_metrics(h C.uintptr_t) *C.char {
	b, ok := bridge(h)
	if !ok {
		return C.CString(string(ffi.Failure(errInvalidHandle)))
	}
	return C.CString(string(b.SnapshotMetrics()))
}

//export free_buffer
func free_buffer(ptr *C.uint8_t, _ C.size_t) {
	C.free(unsafe.Pointer(ptr))
}

//export free_response
func free_response(ptr *C.char) {
	C.free(unsafe.Pointer(ptr))
}

func goBytes(ptr *C.uint8_t, n C.size_t) []byte {
	if ptr == nil || n == 0 {
		return nil
	}
	return C.GoBytes(unsafe.Pointer(ptr), C.int(n))
}

// cBuffer copies out into C memory. At least one byte is allocated so a successful empty message is
// distinguishable from a failure.
func cBuffer(out []byte, outLen *C.size_t) *C.uint8_t {
	size := max(len(out), 1)
	ptr := (*C.uint8_t)(C.malloc(C.size_t(size)))
	if len(out) > 0 {
		copy(unsafe.Slice((*byte)(unsafe.Pointer(ptr)), len(out)), out)
	}
	*outLen = C.size_t(len(out))
	return ptr
}
