package openpgp

import "math/big"

// RSAPublicMaterial holds an RSA public key's MPIs.
type RSAPublicMaterial struct{ N, E *big.Int }

// DSAPublicMaterial holds a DSA public key's MPIs.
type DSAPublicMaterial struct{ P, Q, G, Y *big.Int }

// ElGamalPublicMaterial holds an ElGamal public key's MPIs.
type ElGamalPublicMaterial struct{ P, G, Y *big.Int }

// ECMaterial holds the curve and public point shared by ECDSA, EdDSA,
// SM2, and (embedded in ECDHMaterial) ECDH keys. Point is the MPI
// encoding of the public point: SEC1 uncompressed form for NIST
// curves, native encoding for EdDSA/SM2.
type ECMaterial struct {
	Curve CurveID
	Point *big.Int
}

// ECDHMaterial extends ECMaterial with the KDF parameters ECDH keys
// carry in their public packet.
type ECDHMaterial struct {
	EC         ECMaterial
	KDFHash    HashAlgorithm
	KeyWrapAlg SymmetricAlgorithm
}

// PublicKey is an immutable record of the material needed to emit a
// Public-Key or Public-Subkey packet body (§3).
type PublicKey struct {
	Version   int // 2, 3, or 4
	Created   uint32
	DaysValid uint16 // only meaningful when Version <= 3
	Algorithm PublicKeyAlgorithm

	RSA     *RSAPublicMaterial
	DSA     *DSAPublicMaterial
	ElGamal *ElGamalPublicMaterial
	EC      *ECMaterial
	ECDH    *ECDHMaterial
}

func ecMaterialLength(ec *ECMaterial) (int, error) {
	if ec == nil {
		return 0, errorf(ErrInvalidParameter, "pubkey_length", nil)
	}
	curve, ok := CurveByID(ec.Curve)
	if !ok {
		return 0, errorf(ErrUnsupportedAlgorithm, "pubkey_length", nil)
	}
	return 1 + len(curve.OID) + mpiLength(ec.Point), nil
}

// PubkeyBodyLength precomputes the exact byte count write_pubkey_body
// will produce for key, per §4.3. An unrecognized algorithm or curve
// is a fatal UnsupportedAlgorithm error, never a silent zero.
func PubkeyBodyLength(key *PublicKey) (int, error) {
	n := 1 + 4 // version + creation
	if key.Version <= 3 {
		n += 2
	}
	n++ // algorithm

	switch key.Algorithm {
	case PubKeyRSA, PubKeyRSAEncryptOnly, PubKeyRSASignOnly:
		if key.RSA == nil {
			return 0, errorf(ErrInvalidParameter, "pubkey_length", nil)
		}
		n += mpiLength(key.RSA.N) + mpiLength(key.RSA.E)
	case PubKeyDSA:
		if key.DSA == nil {
			return 0, errorf(ErrInvalidParameter, "pubkey_length", nil)
		}
		n += mpiLength(key.DSA.P) + mpiLength(key.DSA.Q) + mpiLength(key.DSA.G) + mpiLength(key.DSA.Y)
	case PubKeyElGamal:
		if key.ElGamal == nil {
			return 0, errorf(ErrInvalidParameter, "pubkey_length", nil)
		}
		n += mpiLength(key.ElGamal.P) + mpiLength(key.ElGamal.G) + mpiLength(key.ElGamal.Y)
	case PubKeyECDSA, PubKeyEdDSA, PubKeySM2:
		m, err := ecMaterialLength(key.EC)
		if err != nil {
			return 0, err
		}
		n += m
	case PubKeyECDH:
		if key.ECDH == nil {
			return 0, errorf(ErrInvalidParameter, "pubkey_length", nil)
		}
		m, err := ecMaterialLength(&key.ECDH.EC)
		if err != nil {
			return 0, err
		}
		n += m + 4 // size-of-following, reserved, kdf hash, key wrap alg
	default:
		return 0, errorf(ErrUnsupportedAlgorithm, "pubkey_length", nil)
	}
	return n, nil
}

func writeECMaterial(out *Output, ec *ECMaterial) error {
	curve, ok := CurveByID(ec.Curve)
	if !ok {
		return errorf(ErrUnsupportedAlgorithm, "write_pubkey_body", nil)
	}
	if err := writeScalar(out, uint32(len(curve.OID)), 1); err != nil {
		return err
	}
	if _, err := out.Write(curve.OID); err != nil {
		return err
	}
	return writeMPI(out, ec.Point)
}

// writePubkeyBody emits version, creation time, validity (v3 only),
// algorithm, and per-algorithm material, per §4.4.
func writePubkeyBody(out *Output, key *PublicKey) error {
	if err := writeScalar(out, uint32(key.Version), 1); err != nil {
		return err
	}
	if err := writeScalar(out, key.Created, 4); err != nil {
		return err
	}
	switch key.Version {
	case 2, 3:
		if err := writeScalar(out, uint32(key.DaysValid), 2); err != nil {
			return err
		}
	case 4:
	default:
		return errorf(ErrInvalidParameter, "write_pubkey_body", nil)
	}
	if err := writeScalar(out, uint32(key.Algorithm), 1); err != nil {
		return err
	}

	switch key.Algorithm {
	case PubKeyRSA, PubKeyRSAEncryptOnly, PubKeyRSASignOnly:
		if key.RSA == nil {
			return errorf(ErrInvalidParameter, "write_pubkey_body", nil)
		}
		if err := writeMPI(out, key.RSA.N); err != nil {
			return err
		}
		return writeMPI(out, key.RSA.E)
	case PubKeyDSA:
		if key.DSA == nil {
			return errorf(ErrInvalidParameter, "write_pubkey_body", nil)
		}
		for _, v := range []*big.Int{key.DSA.P, key.DSA.Q, key.DSA.G, key.DSA.Y} {
			if err := writeMPI(out, v); err != nil {
				return err
			}
		}
		return nil
	case PubKeyElGamal:
		if key.ElGamal == nil {
			return errorf(ErrInvalidParameter, "write_pubkey_body", nil)
		}
		for _, v := range []*big.Int{key.ElGamal.P, key.ElGamal.G, key.ElGamal.Y} {
			if err := writeMPI(out, v); err != nil {
				return err
			}
		}
		return nil
	case PubKeyECDSA, PubKeyEdDSA, PubKeySM2:
		if key.EC == nil {
			return errorf(ErrInvalidParameter, "write_pubkey_body", nil)
		}
		return writeECMaterial(out, key.EC)
	case PubKeyECDH:
		if key.ECDH == nil {
			return errorf(ErrInvalidParameter, "write_pubkey_body", nil)
		}
		if err := writeECMaterial(out, &key.ECDH.EC); err != nil {
			return err
		}
		if err := writeScalar(out, 3, 1); err != nil { // size of following fields
			return err
		}
		if err := writeScalar(out, 1, 1); err != nil { // reserved
			return err
		}
		if err := writeScalar(out, uint32(key.ECDH.KDFHash), 1); err != nil {
			return err
		}
		return writeScalar(out, uint32(key.ECDH.KeyWrapAlg), 1)
	default:
		return errorf(ErrUnsupportedAlgorithm, "write_pubkey_body", nil)
	}
}

// WriteStructPublicKey emits a Public-Key or Public-Subkey packet
// (tag must be TagPublicKey or TagPublicSubkey) for key. The body
// length is computed up front and verified against what is actually
// written; a mismatch is a BadState internal invariant violation.
func WriteStructPublicKey(out *Output, tag PacketTag, key *PublicKey) error {
	length, err := PubkeyBodyLength(key)
	if err != nil {
		return err
	}
	if err := writePacketHeader(out, tag, length); err != nil {
		return err
	}

	depth := out.Depth()
	counter := out.pushCount()
	if err := writePubkeyBody(out, key); err != nil {
		out.Unwind(depth)
		return err
	}
	written := counter.n
	if err := out.Pop(); err != nil {
		return err
	}
	if written != length {
		return errorf(ErrBadState, "write_struct_pubkey", nil)
	}
	return nil
}
