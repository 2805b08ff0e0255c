package openpgp

import (
	"bytes"
	"math/big"
	"testing"
)

func rsaTestKey() *PublicKey {
	return &PublicKey{
		Version:   4,
		Created:   1700000000,
		Algorithm: PubKeyRSA,
		RSA: &RSAPublicMaterial{
			N: new(big.Int).SetBytes(bytes.Repeat([]byte{0xAB}, 256)),
			E: big.NewInt(65537),
		},
	}
}

func TestPubkeyBodyLengthMatchesEmittedBytes(t *testing.T) {
	keys := map[string]*PublicKey{
		"rsa": rsaTestKey(),
		"dsa": {
			Version: 4, Created: 1700000000, Algorithm: PubKeyDSA,
			DSA: &DSAPublicMaterial{
				P: new(big.Int).SetBytes(bytes.Repeat([]byte{1}, 128)),
				Q: new(big.Int).SetBytes(bytes.Repeat([]byte{1}, 20)),
				G: big.NewInt(2),
				Y: new(big.Int).SetBytes(bytes.Repeat([]byte{3}, 128)),
			},
		},
		"eddsa": {
			Version: 4, Created: 1700000000, Algorithm: PubKeyEdDSA,
			EC: &ECMaterial{Curve: CurveEd25519, Point: new(big.Int).SetBytes(append([]byte{0x40}, bytes.Repeat([]byte{9}, 32)...))},
		},
		"ecdh": {
			Version: 4, Created: 1700000000, Algorithm: PubKeyECDH,
			ECDH: &ECDHMaterial{
				EC:         ECMaterial{Curve: CurveCurve25519, Point: new(big.Int).SetBytes(append([]byte{0x40}, bytes.Repeat([]byte{9}, 32)...))},
				KDFHash:    HashSHA256,
				KeyWrapAlg: CipherAES128,
			},
		},
	}

	for name, key := range keys {
		length, err := PubkeyBodyLength(key)
		if err != nil {
			t.Fatalf("%s: PubkeyBodyLength: %v", name, err)
		}
		var buf bytes.Buffer
		out := NewOutput(&buf)
		if err := writePubkeyBody(out, key); err != nil {
			t.Fatalf("%s: writePubkeyBody: %v", name, err)
		}
		if buf.Len() != length {
			t.Errorf("%s: body length = %d, want %d", name, buf.Len(), length)
		}
	}
}

func TestPubkeyBodyLengthUnsupportedAlgorithm(t *testing.T) {
	key := &PublicKey{Version: 4, Created: 1, Algorithm: PublicKeyAlgorithm(99)}
	if _, err := PubkeyBodyLength(key); err == nil {
		t.Fatal("expected UnsupportedAlgorithm error")
	} else if e, ok := err.(*Error); !ok || e.Kind != ErrUnsupportedAlgorithm {
		t.Errorf("got %v, want ErrUnsupportedAlgorithm", err)
	}
}

func TestWriteStructPublicKeyAssertsLengthParity(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf)
	key := rsaTestKey()
	if err := WriteStructPublicKey(out, TagPublicKey, key); err != nil {
		t.Fatal(err)
	}
	// Packet tag byte plus new-format length plus body should equal
	// the total emitted bytes. The 269-byte body takes the two-octet
	// length form.
	length, _ := PubkeyBodyLength(key)
	if want := 1 + 2 + length; buf.Len() != want {
		t.Errorf("emitted packet length = %d, want %d", buf.Len(), want)
	}
}

func TestWriteStructPublicKeyNilMaterialIsInvalidParameter(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf)
	key := &PublicKey{Version: 4, Created: 1, Algorithm: PubKeyRSA} // RSA is nil
	err := WriteStructPublicKey(out, TagPublicKey, key)
	if err == nil {
		t.Fatal("expected error for nil RSA material")
	}
	if e, ok := err.(*Error); !ok || e.Kind != ErrInvalidParameter {
		t.Errorf("got %v, want ErrInvalidParameter", err)
	}
}

func TestV3KeyIncludesDaysValid(t *testing.T) {
	v3 := &PublicKey{Version: 3, Created: 1, DaysValid: 365, Algorithm: PubKeyRSA, RSA: &RSAPublicMaterial{N: big.NewInt(5), E: big.NewInt(3)}}
	v4 := &PublicKey{Version: 4, Created: 1, Algorithm: PubKeyRSA, RSA: &RSAPublicMaterial{N: big.NewInt(5), E: big.NewInt(3)}}
	l3, err := PubkeyBodyLength(v3)
	if err != nil {
		t.Fatal(err)
	}
	l4, err := PubkeyBodyLength(v4)
	if err != nil {
		t.Fatal(err)
	}
	if l3 != l4+2 {
		t.Errorf("v3 length = %d, v4 length = %d; expected v3 to be exactly 2 bytes longer", l3, l4)
	}
}
