package openpgp

import (
	"bytes"
	"encoding/binary"
)

// Signature type octets (RFC 4880 §5.2.1).
const (
	SigTypePositiveCert  byte = 0x13
	SigTypeSubkeyBinding byte = 0x18
)

// Hashed subpacket type octets (RFC 4880 §5.2.3.1), in numeric order;
// buildHashedSubpackets adds them in the order §4.8 requires.
const (
	subpktCreationTime     byte = 2
	subpktKeyExpiry        byte = 9
	subpktPrefSymm         byte = 11
	subpktIssuerKeyID      byte = 16
	subpktPrefHash         byte = 21
	subpktPrefCompress     byte = 22
	subpktKeyServerPrefs   byte = 23
	subpktPrefKeyServer    byte = 24
	subpktPrimaryUserID    byte = 25
	subpktKeyFlags         byte = 27
)

type subpacket struct {
	typ  byte
	data []byte
}

func (s subpacket) encode() []byte {
	// Subpacket length includes the type octet and uses the one-, two-
	// or five-octet form depending on its size.
	n := len(s.data) + 1
	buf := make([]byte, 0, 6+len(s.data))
	switch {
	case n < 192:
		buf = append(buf, byte(n))
	case n < 16320:
		n -= 192
		buf = append(buf, byte(n>>8)+192, byte(n))
	default:
		buf = append(buf, 0xFF, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	}
	buf = append(buf, s.typ)
	buf = append(buf, s.data...)
	return buf
}

// sigState is the signature builder's state machine (§4.9): Init →
// HeaderHashed → HashedSubpktsOpen → HashedSubpktsClosed → Signed.
// Invalid transitions are rejected with an ErrBadState error and leave
// the state unchanged.
type sigState int

const (
	sigInit sigState = iota
	sigHeaderHashed
	sigHashedSubpktsOpen
	sigHashedSubpktsClosed
	sigSigned
)

// SignatureBuilder assembles a version-4 signature packet: a running
// hash over the canonicalized signed-over data and header, a hashed
// subpacket region, and finally the signer's MPI output.
type SignatureBuilder struct {
	state sigState

	pkAlg   PublicKeyAlgorithm
	hashAlg HashAlgorithm
	sigType byte

	hashStg    *hashStage
	out        *Output
	depth      int
	subpackets []subpacket

	hashedLen int
}

// NewSignatureBuilder starts a builder over out for the given
// algorithm pair and signature type. The caller must call HashOver one
// or more times, then AddHashedSubpacket one or more times, then
// CloseHashedSubpackets, then Finish.
func NewSignatureBuilder(out *Output, pkAlg PublicKeyAlgorithm, hashAlg HashAlgorithm, sigType byte) (*SignatureBuilder, error) {
	h, ok := NewHash(hashAlg)
	if !ok {
		return nil, errorf(ErrUnsupportedAlgorithm, "new_signature_builder", nil)
	}
	b := &SignatureBuilder{
		pkAlg:   pkAlg,
		hashAlg: hashAlg,
		sigType: sigType,
		out:     out,
		depth:   out.Depth(),
	}
	b.hashStg = out.PushHash(h)
	return b, nil
}

// HashOver feeds additional canonicalized bytes (e.g. the primary key
// body, a user id, or a subkey body) into the running hash, per the
// signature-type-specific "signed-over data" rules of §4.8. It does
// not write anything to the underlying sink: the hash stage only
// updates its digest, since nothing has asked it to forward bytes to
// the real output yet (the builder writes the actual packet only in
// Finish).
func (b *SignatureBuilder) HashOver(data []byte) error {
	if b.state != sigInit && b.state != sigHeaderHashed {
		return errorf(ErrBadState, "signature.hash_over", nil)
	}
	b.hashStg.h.Write(data)
	b.state = sigHeaderHashed
	return nil
}

// AddHashedSubpacket appends a hashed subpacket; order of calls
// determines wire order and must follow §4.8's numbered sequence.
func (b *SignatureBuilder) AddHashedSubpacket(typ byte, data []byte) error {
	if b.state != sigHeaderHashed && b.state != sigHashedSubpktsOpen {
		return errorf(ErrBadState, "signature.add_hashed_subpacket", nil)
	}
	b.subpackets = append(b.subpackets, subpacket{typ: typ, data: data})
	b.state = sigHashedSubpktsOpen
	return nil
}

// CloseHashedSubpackets moves the builder into the state where only
// Finish is legal.
func (b *SignatureBuilder) CloseHashedSubpackets() error {
	if b.state != sigHashedSubpktsOpen {
		return errorf(ErrBadState, "signature.close_hashed_subpackets", nil)
	}
	b.state = sigHashedSubpktsClosed
	return nil
}

// Finish computes the version-4 signature trailer, hashes it,
// produces the signer's MPI values, and emits the complete Signature
// packet through out. The hash stage pushed by NewSignatureBuilder is
// popped before returning, success or failure.
func (b *SignatureBuilder) Finish(out *Output, signer Signer) error {
	if b.state != sigHashedSubpktsClosed {
		out.Unwind(b.depth)
		return errorf(ErrBadState, "signature.finish", nil)
	}
	if signer.Algorithm() != b.pkAlg {
		out.Unwind(b.depth)
		return errorf(ErrInvalidParameter, "signature.finish", nil)
	}

	var hashedRegion bytes.Buffer
	for _, sp := range b.subpackets {
		hashedRegion.Write(sp.encode())
	}
	hashedBytes := hashedRegion.Bytes()

	header := []byte{4, b.sigType, byte(b.pkAlg), byte(b.hashAlg)}
	var hashedLenBuf [2]byte
	binary.BigEndian.PutUint16(hashedLenBuf[:], uint16(len(hashedBytes)))

	b.hashStg.h.Write(header)
	b.hashStg.h.Write(hashedLenBuf[:])
	b.hashStg.h.Write(hashedBytes)

	trailer := []byte{4, 0xff, 0, 0, 0, 0}
	binary.BigEndian.PutUint32(trailer[2:], uint32(len(header)+2+len(hashedBytes)))
	b.hashStg.h.Write(trailer)

	digest := b.hashStg.h.Sum(nil)
	if err := out.Pop(); err != nil { // pop the hash stage
		return err
	}
	b.state = sigSigned

	mpis, err := signer.Sign(digest)
	if err != nil {
		return err
	}

	var body bytes.Buffer
	body.Write(header)
	body.Write(hashedLenBuf[:])
	body.Write(hashedBytes)
	body.Write([]byte{0, 0}) // unhashed subpacket region: empty
	body.Write(digest[:2])   // left 16 bits of the digest
	for _, m := range mpis {
		mbuf := &mpiWriter{}
		if err := writeMPI(mbuf, m); err != nil {
			return err
		}
		body.Write(mbuf.buf)
	}

	return writePacket(out, TagSignature, body.Bytes())
}

// mpiWriter satisfies io.Writer so writeMPI can be used to serialize a
// single MPI into an in-memory buffer outside of an Output stack.
type mpiWriter struct{ buf []byte }

func (w *mpiWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

// SigningOptions carries the self-cert/binding-specific hashed
// subpacket inputs of §4.8, steps 1-9. Created is always emitted; for
// every other field a zero value means "omit".
type SigningOptions struct {
	Created       uint32 // step 1, required
	KeyExpiry     uint32 // step 2, if nonzero
	KeyFlags      byte   // step 3, if nonzero
	PrimaryUserID bool   // step 4, self-cert only
	PrefSymm      []SymmetricAlgorithm
	PrefHash      []HashAlgorithm
	PrefCompress  []byte
	KeyServerPrefs byte
	PrefKeyServer string
}

func buildHashedSubpackets(b *SignatureBuilder, opts SigningOptions, issuerKeyID [8]byte, selfCert bool) error {
	var created [4]byte
	binary.BigEndian.PutUint32(created[:], opts.Created)
	if err := b.AddHashedSubpacket(subpktCreationTime, created[:]); err != nil {
		return err
	}

	if opts.KeyExpiry != 0 {
		var exp [4]byte
		binary.BigEndian.PutUint32(exp[:], opts.KeyExpiry)
		if err := b.AddHashedSubpacket(subpktKeyExpiry, exp[:]); err != nil {
			return err
		}
	}
	if opts.KeyFlags != 0 {
		if err := b.AddHashedSubpacket(subpktKeyFlags, []byte{opts.KeyFlags}); err != nil {
			return err
		}
	}
	if selfCert && opts.PrimaryUserID {
		if err := b.AddHashedSubpacket(subpktPrimaryUserID, []byte{1}); err != nil {
			return err
		}
	}
	if selfCert && len(opts.PrefSymm) > 0 {
		data := make([]byte, len(opts.PrefSymm))
		for i, a := range opts.PrefSymm {
			data[i] = byte(a)
		}
		if err := b.AddHashedSubpacket(subpktPrefSymm, data); err != nil {
			return err
		}
	}
	if selfCert && len(opts.PrefHash) > 0 {
		data := make([]byte, len(opts.PrefHash))
		for i, a := range opts.PrefHash {
			data[i] = byte(a)
		}
		if err := b.AddHashedSubpacket(subpktPrefHash, data); err != nil {
			return err
		}
	}
	if selfCert && len(opts.PrefCompress) > 0 {
		if err := b.AddHashedSubpacket(subpktPrefCompress, opts.PrefCompress); err != nil {
			return err
		}
	}
	if selfCert && opts.KeyServerPrefs != 0 {
		if err := b.AddHashedSubpacket(subpktKeyServerPrefs, []byte{opts.KeyServerPrefs}); err != nil {
			return err
		}
	}
	if selfCert && opts.PrefKeyServer != "" {
		if err := b.AddHashedSubpacket(subpktPrefKeyServer, []byte(opts.PrefKeyServer)); err != nil {
			return err
		}
	}
	if err := b.AddHashedSubpacket(subpktIssuerKeyID, issuerKeyID[:]); err != nil {
		return err
	}
	return b.CloseHashedSubpackets()
}

// canonicalPubkeyBody returns the wire bytes writePubkeyBody produces
// for key, for use as signed-over material.
func canonicalPubkeyBody(key *PublicKey) ([]byte, error) {
	var buf bytes.Buffer
	out := NewOutput(&buf)
	if err := writePubkeyBody(out, key); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SelfCertify emits a POSITIVE_CERT signature packet binding primary
// and userID, signed by signer, per §4.8's self-certification entry
// point.
func SelfCertify(out *Output, primary *PublicKey, userID UserID, signer Signer, hashAlg HashAlgorithm, opts SigningOptions) error {
	issuerKeyID, err := keyIDOf(primary)
	if err != nil {
		return err
	}
	primaryBody, err := canonicalPubkeyBody(primary)
	if err != nil {
		return err
	}

	b, err := NewSignatureBuilder(out, primary.Algorithm, hashAlg, SigTypePositiveCert)
	if err != nil {
		return err
	}

	var primaryHeader [3]byte
	primaryHeader[0] = 0x99
	binary.BigEndian.PutUint16(primaryHeader[1:], uint16(len(primaryBody)))
	if err := b.HashOver(primaryHeader[:]); err != nil {
		out.Unwind(b.depth)
		return err
	}
	if err := b.HashOver(primaryBody); err != nil {
		out.Unwind(b.depth)
		return err
	}

	// §5.2.4: a certification over a user id also hashes a 0xB4
	// header plus the 4-byte big-endian length of the user id text.
	var uidHeader [5]byte
	uidHeader[0] = 0xb4
	binary.BigEndian.PutUint32(uidHeader[1:], uint32(len(userID)))
	if err := b.HashOver(uidHeader[:]); err != nil {
		out.Unwind(b.depth)
		return err
	}
	if err := b.HashOver([]byte(userID)); err != nil {
		out.Unwind(b.depth)
		return err
	}

	if err := buildHashedSubpackets(b, opts, issuerKeyID, true); err != nil {
		out.Unwind(b.depth)
		return err
	}
	return b.Finish(out, signer)
}

// BindSubkey emits a SUBKEY_BINDING signature packet binding primary
// and subkey, signed by signer, per §4.8's subkey-binding entry point.
func BindSubkey(out *Output, primary *PublicKey, subkey *PublicKey, signer Signer, hashAlg HashAlgorithm, opts SigningOptions) error {
	issuerKeyID, err := keyIDOf(primary)
	if err != nil {
		return err
	}
	primaryBody, err := canonicalPubkeyBody(primary)
	if err != nil {
		return err
	}
	subkeyBody, err := canonicalPubkeyBody(subkey)
	if err != nil {
		return err
	}

	b, err := NewSignatureBuilder(out, primary.Algorithm, hashAlg, SigTypeSubkeyBinding)
	if err != nil {
		return err
	}

	var primaryHeader [3]byte
	primaryHeader[0] = 0x99
	binary.BigEndian.PutUint16(primaryHeader[1:], uint16(len(primaryBody)))
	if err := b.HashOver(primaryHeader[:]); err != nil {
		out.Unwind(b.depth)
		return err
	}
	if err := b.HashOver(primaryBody); err != nil {
		out.Unwind(b.depth)
		return err
	}

	var subkeyHeader [3]byte
	subkeyHeader[0] = 0x99
	binary.BigEndian.PutUint16(subkeyHeader[1:], uint16(len(subkeyBody)))
	if err := b.HashOver(subkeyHeader[:]); err != nil {
		out.Unwind(b.depth)
		return err
	}
	if err := b.HashOver(subkeyBody); err != nil {
		out.Unwind(b.depth)
		return err
	}

	if err := buildHashedSubpackets(b, opts, issuerKeyID, false); err != nil {
		out.Unwind(b.depth)
		return err
	}
	return b.Finish(out, signer)
}
