package native

import (
	"strings"
	"unsafe"

	"github.com/moclojer/chrondb/errors"
)

// cBytes returns a NUL-terminated copy of s for the C boundary. A string
// with an embedded NUL cannot cross as a C string, so it is rejected here,
// before any native call.
func cBytes(s string) ([]byte, error) {
	if strings.IndexByte(s, 0) >= 0 {
		return nil, errors.OperationFailed("string argument contains an embedded NUL byte")
	}
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b, nil
}

// optBytes is cBytes for the optional branch argument: the empty string
// crosses the boundary as a null pointer, never as an empty C string.
func optBytes(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return cBytes(s)
}

func cPtr(b []byte) unsafe.Pointer {
	if b == nil {
		return nil
	}
	return unsafe.Pointer(&b[0])
}

// goString copies the NUL-terminated C string at p. The caller still owns
// p and is responsible for releasing it to the native side.
func goString(p uintptr) string {
	if p == 0 {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Pointer(p + uintptr(n))) != 0 {
		n++
	}
	if n == 0 {
		return ""
	}
	return string(unsafe.Slice((*byte)(unsafe.Pointer(p)), n))
}
