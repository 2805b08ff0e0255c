package openpgp

import (
	"bytes"
	"crypto"
	"crypto/dsa"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"math/big"

	"golang.org/x/crypto/ed25519"
)

// Signer produces algorithm-specific MPI signature values over a
// digest the caller has already computed (§4.8). Each concrete signer
// corresponds to one PublicKeyAlgorithm; ElGamal has no signer (it is
// encrypt-only in this system) and SM2 has none wired (§DESIGN.md).
type Signer interface {
	Algorithm() PublicKeyAlgorithm
	Sign(digest []byte) ([]*big.Int, error)
}

func cryptoHash(alg HashAlgorithm) (crypto.Hash, bool) {
	switch alg {
	case HashMD5:
		return crypto.MD5, true
	case HashSHA1:
		return crypto.SHA1, true
	case HashRIPEMD160:
		return crypto.RIPEMD160, true
	case HashSHA256:
		return crypto.SHA256, true
	case HashSHA384:
		return crypto.SHA384, true
	case HashSHA512:
		return crypto.SHA512, true
	case HashSHA224:
		return crypto.SHA224, true
	}
	return 0, false
}

// RSASigner signs with PKCS#1 v1.5 padding over a digest already
// computed with Hash.
type RSASigner struct {
	Priv *rsa.PrivateKey
	Hash HashAlgorithm
}

func (s *RSASigner) Algorithm() PublicKeyAlgorithm { return PubKeyRSA }

func (s *RSASigner) Sign(digest []byte) ([]*big.Int, error) {
	ch, ok := cryptoHash(s.Hash)
	if !ok {
		return nil, errorf(ErrUnsupportedAlgorithm, "rsa_sign", nil)
	}
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.Priv, ch, digest)
	if err != nil {
		return nil, errorf(ErrCryptoFailure, "rsa_sign", err)
	}
	return []*big.Int{new(big.Int).SetBytes(sig)}, nil
}

// DSASigner signs with FIPS 186 DSA.
type DSASigner struct{ Priv *dsa.PrivateKey }

func (s *DSASigner) Algorithm() PublicKeyAlgorithm { return PubKeyDSA }

func (s *DSASigner) Sign(digest []byte) ([]*big.Int, error) {
	r, sVal, err := dsa.Sign(rand.Reader, s.Priv, digest)
	if err != nil {
		return nil, errorf(ErrCryptoFailure, "dsa_sign", err)
	}
	return []*big.Int{r, sVal}, nil
}

// ECDSASigner signs with ECDSA over any registered NIST curve.
type ECDSASigner struct{ Priv *ecdsa.PrivateKey }

func (s *ECDSASigner) Algorithm() PublicKeyAlgorithm { return PubKeyECDSA }

func (s *ECDSASigner) Sign(digest []byte) ([]*big.Int, error) {
	r, sVal, err := ecdsa.Sign(rand.Reader, s.Priv, digest)
	if err != nil {
		return nil, errorf(ErrCryptoFailure, "ecdsa_sign", err)
	}
	return []*big.Int{r, sVal}, nil
}

// EdDSASigner signs with Ed25519, treating digest as the message to
// sign directly (the scheme this system's packets use is "sign the
// hash output", not native PureEdDSA pre-hashing).
type EdDSASigner struct{ Priv ed25519.PrivateKey }

func (s *EdDSASigner) Algorithm() PublicKeyAlgorithm { return PubKeyEdDSA }

func (s *EdDSASigner) Sign(digest []byte) ([]*big.Int, error) {
	sig := ed25519.Sign(s.Priv, digest)
	if len(sig) != ed25519.SignatureSize {
		return nil, errorf(ErrCryptoFailure, "eddsa_sign", nil)
	}
	half := ed25519.SignatureSize / 2
	return []*big.Int{
		new(big.Int).SetBytes(sig[:half]),
		new(big.Int).SetBytes(sig[half:]),
	}, nil
}

// ecPointMPI packs an uncompressed SEC1 point (elliptic.Marshal) into
// the single MPI these packets store EC public points as.
func ecPointMPI(curve elliptic.Curve, x, y *big.Int) *big.Int {
	return new(big.Int).SetBytes(elliptic.Marshal(curve, x, y))
}

// ecPointToXY unpacks the SEC1 MPI encoding back into curve
// coordinates, for callers that need to reconstruct an ecdsa.PublicKey
// from stored material.
func ecPointToXY(curve elliptic.Curve, point *big.Int) (x, y *big.Int, ok bool) {
	x, y = elliptic.Unmarshal(curve, point.Bytes())
	return x, y, x != nil
}

// keyIDOf computes the low-order 64 bits of the SHA-1 hash of a
// version-4 public key's canonical body, per §4.7's 0x99-prefixed
// fingerprint construction (the teacher's SignKey.KeyID, generalized
// off the fixed Ed25519 case to any algorithm).
func keyIDOf(pk *PublicKey) ([8]byte, error) {
	var id [8]byte
	if pk.Version != 4 {
		return id, errorf(ErrInvalidParameter, "key_id", nil)
	}
	var body bytes.Buffer
	out := NewOutput(&body)
	if err := writePubkeyBody(out, pk); err != nil {
		return id, err
	}
	b := body.Bytes()

	h := sha1.New()
	h.Write([]byte{0x99, byte(len(b) >> 8), byte(len(b))})
	h.Write(b)
	sum := h.Sum(nil)
	copy(id[:], sum[len(sum)-8:])
	return id, nil
}
