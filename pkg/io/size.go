package io

// GetVarSize returns the number of bytes a var-int encoding of value takes.
func GetVarSize(value int) int {
	switch {
	case value < 0xFD:
		return 1 // unit8
	case value <= 0xFFFF:
		return 3 // byte + uint16
	case value <= 0xFFFFFFFF:
		return 5 // byte + uint32
	default:
		return 9 // byte + uint64
	}
}

// GetVarBytesSize returns the size of a var-bytes encoding of b.
func GetVarBytesSize(b []byte) int {
	return GetVarSize(len(b)) + len(b)
}
