package common

// WipeByteArray zeroes b in place. Used for passwords and key material once
// they are no longer needed. A nil slice is a no-op.
func WipeByteArray(b []byte) {
	clear(b)
}
