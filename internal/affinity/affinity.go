// Package affinity identifies the calling goroutine. It exists so that the
// component registry can enforce that a "local" component (one tagged as
// not safe to share between threads at insertion) is only ever touched from
// the goroutine that built it, per spec.md section 4.1.
package affinity

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// ID is an identifier that differs between goroutines and is stable for the
// lifetime of a given goroutine. It must only be used for affinity checks
// and debugging; it is not a supported concurrency primitive.
type ID uint64

// stackBufs pools the scratch buffer runtime.Stack writes its header into.
// Current is called on every borrow of a Local component, so the registry's
// hot path would otherwise allocate one 64-byte slice per call; reusing
// buffers keeps affinity checks allocation-free.
var stackBufs = sync.Pool{New: func() any { return make([]byte, 64) }}

// Current returns the ID of the calling goroutine, parsed out of the
// "goroutine N [state]:" header runtime.Stack writes when asked for only
// the calling goroutine (the "false" argument below).
func Current() ID {
	b := stackBufs.Get().([]byte)
	defer stackBufs.Put(b)

	n := runtime.Stack(b, false)
	header := b[:n]
	header = bytes.TrimPrefix(header, []byte("goroutine "))
	idField, _, _ := bytes.Cut(header, []byte(" "))
	id, _ := strconv.ParseUint(string(idField), 10, 64)
	return ID(id)
}
