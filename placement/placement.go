// Package placement constructs values of arbitrary type directly inside caller-
// supplied uninitialized memory. It is the only code in this module that reinterprets
// raw bytes as typed values, and both entry points follow the same discipline: a
// region that fails validation is returned untouched, a region whose construction
// fails is restored byte-for-byte to its pre-call state, and a region is only
// consumed once a live value actually exists in it.
//
// The storage behind a region is untyped bytes, which the garbage collector does not
// scan for pointers. A constructed value may contain Go pointers, but the caller must
// keep their referents reachable through ordinary references for as long as the value
// lives.
package placement

import (
	"reflect"
	"unsafe"

	cerrors "github.com/cockroachdb/errors"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/pbackus/allocator-demo/block"
)

// ErrConstructionFailed indicates that a constructor returned an error after storage
// for its value had already been secured. The storage itself is still usable.
var ErrConstructionFailed error = errors.New("constructor failed after storage was secured")

// Defaulter is implemented by types whose default value is not their zero value. When
// a Defaulter is default-initialized, the instance returned by Default is written into
// the target storage instead of zero bytes.
//
// Pointer types may implement Defaulter with a nil-receiver-safe method to make their
// default a live default-state instance rather than a nil pointer.
type Defaulter[T any] interface {
	Default() T
}

// Disposable is implemented by types that must run teardown logic before their
// storage is released. The unique package invokes Dispose exactly once per
// constructed value, before the value's bytes are reused or deallocated.
type Disposable interface {
	Dispose()
}

// SizeOf returns the storage size of T in bytes.
func SizeOf[T any]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// AlignOf returns the required alignment of T in bytes.
func AlignOf[T any]() uint {
	var zero T
	return uint(unsafe.Alignof(zero))
}

// InitializeAs default-initializes a T inside region and returns a pointer to it.
//
// If region is too small for T or its base address is not aligned for T, nil is
// returned and region is untouched, still owning its bytes; the two failures are not
// distinguishable from outside. On success region is consumed (left null) and the
// returned pointer refers to storage region used to own. A region larger than T
// succeeds, with the trailing bytes unused.
//
// The default value is resolved per type category: a Defaulter's Default instance, a
// fixed-size array's elements initialized individually when the element type carries
// its own default, and zero bytes for everything else.
func InitializeAs[T any](region *block.UninitializedBlock) *T {
	size := SizeOf[T]()
	if region.Size() < size || !region.IsAlignedFor(AlignOf[T]()) {
		return nil
	}

	data := region.TakeBytes()
	ptr := (*T)(unsafe.Pointer(&data[0]))

	var zero T
	if d, ok := any(zero).(Defaulter[T]); ok {
		zeroFill(data[:size])
		*ptr = d.Default()
		return ptr
	}

	rt := reflect.TypeOf((*T)(nil)).Elem()
	if rt.Kind() == reflect.Array && typeCarriesDefault(rt.Elem()) {
		writeDefault(rt, data[:size])
		return ptr
	}

	zeroFill(data[:size])
	return ptr
}

// Emplace constructs a T inside region by running ctor on a freshly zeroed value in
// place, and returns a pointer to the constructed value. A nil ctor is a request for
// default initialization and behaves exactly like InitializeAs, returning a nil error.
//
// Validation failures (region too small or misaligned) return (nil, nil) with region
// untouched. If ctor returns an error, region's bytes are restored to their pre-call
// contents, region keeps ownership of them, and the error is returned marked with
// ErrConstructionFailed; the caller may retry or return the storage to its allocator.
// If ctor panics, the bytes are restored the same way and the panic is re-raised.
// On success region is consumed.
func Emplace[T any](region *block.UninitializedBlock, ctor func(value *T) error) (*T, error) {
	if ctor == nil {
		return InitializeAs[T](region), nil
	}

	size := SizeOf[T]()
	if region.Size() < size || !region.IsAlignedFor(AlignOf[T]()) {
		return nil, nil
	}

	data := region.TakeBytes()
	snapshot := slices.Clone(data[:size])
	restore := func() {
		copy(data, snapshot)
		*region = block.UninitializedFromBytes(data)
	}

	constructed := false
	defer func() {
		if !constructed {
			restore()
		}
	}()

	zeroFill(data[:size])
	ptr := (*T)(unsafe.Pointer(&data[0]))

	if err := ctor(ptr); err != nil {
		// The deferred restore undoes any partial writes; no value was constructed,
		// so nothing is disposed.
		return nil, cerrors.Mark(cerrors.Wrap(err, "failed to construct value in place"), ErrConstructionFailed)
	}

	constructed = true
	return ptr, nil
}

// Dispose runs value's teardown logic if it has any. value is a pointer to a live
// constructed value; after Dispose returns, the value is considered dead and its
// bytes may be reused or released.
func Dispose[T any](value *T) {
	if d, ok := any(value).(Disposable); ok {
		d.Dispose()
	} else if d, ok := any(*value).(Disposable); ok {
		d.Dispose()
	}
}

func zeroFill(data []byte) {
	for i := range data {
		data[i] = 0
	}
}

// typeCarriesDefault reports whether default-initializing rt requires more than zero
// bytes: either rt declares its own Default method, or it is an array whose element
// type does.
func typeCarriesDefault(rt reflect.Type) bool {
	if _, ok := defaultMethod(rt); ok {
		return true
	}
	if rt.Kind() == reflect.Array {
		return typeCarriesDefault(rt.Elem())
	}
	return false
}

// defaultMethod looks up a Default method on rt matching the Defaulter shape: no
// arguments, one result of rt itself.
func defaultMethod(rt reflect.Type) (reflect.Method, bool) {
	m, ok := rt.MethodByName("Default")
	if !ok {
		return reflect.Method{}, false
	}
	if m.Type.NumIn() != 1 || m.Type.NumOut() != 1 || m.Type.Out(0) != rt {
		return reflect.Method{}, false
	}
	return m, true
}

// writeDefault recursively default-initializes the value of type rt occupying data.
// Arrays whose element type carries a default are initialized element by element on
// each element's sub-region; every other type is written in one step.
func writeDefault(rt reflect.Type, data []byte) {
	if m, ok := defaultMethod(rt); ok {
		zeroFill(data)
		def := reflect.Zero(rt).Method(m.Index).Call(nil)[0]
		reflect.NewAt(rt, unsafe.Pointer(&data[0])).Elem().Set(def)
		return
	}

	if rt.Kind() == reflect.Array && typeCarriesDefault(rt.Elem()) {
		elem := rt.Elem()
		elemSize := int(elem.Size())
		for i := 0; i < rt.Len(); i++ {
			writeDefault(elem, data[i*elemSize:(i+1)*elemSize])
		}
		return
	}

	zeroFill(data)
}
