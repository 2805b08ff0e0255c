package openpgp

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/elliptic"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	"golang.org/x/crypto/ripemd160"
)

// PublicKeyAlgorithm identifies a public-key algorithm (RFC 4880 §9.1).
type PublicKeyAlgorithm byte

const (
	PubKeyRSA            PublicKeyAlgorithm = 1
	PubKeyRSAEncryptOnly PublicKeyAlgorithm = 2
	PubKeyRSASignOnly    PublicKeyAlgorithm = 3
	PubKeyElGamal        PublicKeyAlgorithm = 16
	PubKeyDSA            PublicKeyAlgorithm = 17
	PubKeyECDH           PublicKeyAlgorithm = 18
	PubKeyECDSA          PublicKeyAlgorithm = 19
	PubKeyEdDSA          PublicKeyAlgorithm = 22
	PubKeySM2            PublicKeyAlgorithm = 27
)

// SymmetricAlgorithm identifies a symmetric cipher (RFC 4880 §9.2).
type SymmetricAlgorithm byte

const (
	CipherPlaintext SymmetricAlgorithm = 0
	CipherIDEA      SymmetricAlgorithm = 1
	CipherTripleDES SymmetricAlgorithm = 2
	CipherCAST5     SymmetricAlgorithm = 3
	CipherBlowfish  SymmetricAlgorithm = 4
	CipherAES128    SymmetricAlgorithm = 7
	CipherAES192    SymmetricAlgorithm = 8
	CipherAES256    SymmetricAlgorithm = 9
)

type symmInfo struct {
	keySize   int
	blockSize int
	newBlock  func(key []byte) (cipher.Block, error) // nil when no cipher is wired
}

var symmRegistry = map[SymmetricAlgorithm]symmInfo{
	CipherTripleDES: {keySize: 24, blockSize: 8, newBlock: des.NewTripleDESCipher},
	CipherCAST5:     {keySize: 16, blockSize: 8},
	CipherBlowfish:  {keySize: 16, blockSize: 8},
	CipherAES128:    {keySize: 16, blockSize: 16, newBlock: aes.NewCipher},
	CipherAES192:    {keySize: 24, blockSize: 16, newBlock: aes.NewCipher},
	CipherAES256:    {keySize: 32, blockSize: 16, newBlock: aes.NewCipher},
}

// KeySize returns the session-key size in bytes for alg.
func KeySize(alg SymmetricAlgorithm) (int, bool) {
	info, ok := symmRegistry[alg]
	return info.keySize, ok
}

// BlockSize returns the cipher block size in bytes for alg.
func BlockSize(alg SymmetricAlgorithm) (int, bool) {
	info, ok := symmRegistry[alg]
	return info.blockSize, ok
}

// NewCipherBlock constructs a cipher.Block for alg and key. Algorithms
// that are registered for sizing only (no stdlib cipher implementation
// wired) report ok=false; callers must surface ErrCryptoFailure rather
// than guess.
func NewCipherBlock(alg SymmetricAlgorithm, key []byte) (cipher.Block, bool) {
	info, ok := symmRegistry[alg]
	if !ok || info.newBlock == nil {
		return nil, false
	}
	block, err := info.newBlock(key)
	if err != nil {
		return nil, false
	}
	return block, true
}

// HashAlgorithm identifies a hash algorithm (RFC 4880 §9.4).
type HashAlgorithm byte

const (
	HashMD5       HashAlgorithm = 1
	HashSHA1      HashAlgorithm = 2
	HashRIPEMD160 HashAlgorithm = 3
	HashSHA256    HashAlgorithm = 8
	HashSHA384    HashAlgorithm = 9
	HashSHA512    HashAlgorithm = 10
	HashSHA224    HashAlgorithm = 11
)

var hashRegistry = map[HashAlgorithm]func() hash.Hash{
	HashMD5:       md5.New,
	HashSHA1:      sha1.New,
	HashRIPEMD160: ripemd160.New,
	HashSHA256:    sha256.New,
	HashSHA384:    sha512.New384,
	HashSHA512:    sha512.New,
	HashSHA224:    sha256.New224,
}

// NewHash returns a fresh hash.Hash for alg.
func NewHash(alg HashAlgorithm) (hash.Hash, bool) {
	f, ok := hashRegistry[alg]
	if !ok {
		return nil, false
	}
	return f(), true
}

// CurveID identifies an elliptic curve by the registry key used to
// look up its OID and parameters. It is algorithm-internal, not a wire
// value; the wire value is the OID itself.
type CurveID int

const (
	CurveNISTP256 CurveID = iota
	CurveNISTP384
	CurveNISTP521
	CurveEd25519
	CurveCurve25519
)

// Curve describes one curve's wire OID and (where applicable) its
// stdlib elliptic.Curve for point validation/signing.
type Curve struct {
	OID    []byte
	Native elliptic.Curve // nil for EdDSA/X25519, which stdlib doesn't model as elliptic.Curve
}

var curveRegistry = map[CurveID]Curve{
	CurveNISTP256: {OID: []byte{0x2A, 0x86, 0x48, 0xCE, 0x3D, 0x03, 0x01, 0x07}, Native: elliptic.P256()},
	CurveNISTP384: {OID: []byte{0x2B, 0x81, 0x04, 0x00, 0x22}, Native: elliptic.P384()},
	CurveNISTP521: {OID: []byte{0x2B, 0x81, 0x04, 0x00, 0x23}, Native: elliptic.P521()},
	CurveEd25519:  {OID: []byte{0x2B, 0x06, 0x01, 0x04, 0x01, 0xDA, 0x47, 0x0F, 0x01}},
	CurveCurve25519: {OID: []byte{0x2B, 0x06, 0x01, 0x04, 0x01, 0x97, 0x55, 0x01, 0x05, 0x01}},
}

// CurveByID returns the registered curve parameters, or ok=false for an
// unrecognized curve. §3's invariant requires every caller to treat
// ok=false as fatal (UnsupportedAlgorithm), never as a zero-length OID.
func CurveByID(id CurveID) (Curve, bool) {
	c, ok := curveRegistry[id]
	return c, ok
}
