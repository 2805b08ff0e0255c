package openpgp

// S2K specifiers, per RFC 4880 §3.7.1.
const (
	S2KSimple           byte = 0
	S2KSalted           byte = 1
	S2KIteratedAndSalted byte = 3
)

// S2KSaltSize is the fixed salt length used by the Salted and
// Iterated+Salted specifiers.
const S2KSaltSize = 8

// S2KParams describes the String-to-Key parameters embedded in a
// protected secret key packet (§3's Protection record).
type S2KParams struct {
	Specifier byte
	HashAlg   HashAlgorithm
	Salt      [S2KSaltSize]byte

	// Iterations is the intended (decoded) iteration count for the
	// Iterated+Salted specifier. s2k.Serialize encodes it to a single
	// coded-count byte on the wire, and the protected-key emitter then
	// replaces it with the count that byte decodes to.
	Iterations uint32
}

// DecodeS2KIterations expands the single-byte RFC 4880 coded count to
// the actual number of octets to be hashed.
func DecodeS2KIterations(c byte) uint32 {
	return uint32(16+(c&15)) << (uint(c>>4) + 6)
}

// EncodeS2KIterations finds the smallest coded byte whose decoded
// iteration count is at least want, saturating at 0xFF (maximum
// strength) for very large requests.
func EncodeS2KIterations(want uint32) byte {
	for c := 0; c <= 0xFF; c++ {
		if DecodeS2KIterations(byte(c)) >= want {
			return byte(c)
		}
	}
	return 0xFF
}
