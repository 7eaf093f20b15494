package common

// WipeByteArray overwrites the slice with zeros so sensitive material such
// as passwords does not linger in memory.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
