/*
Package slice contains byte slice helpers.
*/
package slice

// Copy returns a copy of the slice. Nil input gives nil output.
func Copy(b []byte) []byte {
	if b == nil {
		return nil
	}
	d := make([]byte, len(b))
	copy(d, b)
	return d
}

// Concat returns a new slice holding a followed by b.
func Concat(a, b []byte) []byte {
	d := make([]byte, len(a)+len(b))
	copy(d, a)
	copy(d[len(a):], b)
	return d
}

// CopyReverse returns a new byte slice containing reversed version of the
// original.
func CopyReverse(b []byte) []byte {
	dest := make([]byte, len(b))
	reverse(dest, b)
	return dest
}

// Reverse does in-place reversing of byte slice.
func Reverse(b []byte) {
	reverse(b, b)
}

func reverse(dst []byte, src []byte) {
	for i, j := 0, len(src)-1; i <= j; i, j = i+1, j-1 {
		dst[i], dst[j] = src[j], src[i]
	}
}
