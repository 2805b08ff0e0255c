package openpgp

import (
	"bytes"
	"testing"
)

func TestWriteTransferableKeyPublicModeSkipsSecretPackets(t *testing.T) {
	key := TransferableKey{
		{Tag: TagPublicKey, Bytes: []byte{0xC6, 0x01, 0xAA}},
		{Tag: TagSecretKey, Bytes: []byte{0xC5, 0x01, 0xBB}},
		{Tag: TagUserID, Bytes: []byte{0xCD, 0x01, 0x41}},
		{Tag: TagSignature, Bytes: []byte{0xC2, 0x01, 0x42}},
	}
	var buf bytes.Buffer
	out := NewOutput(&buf)
	if err := WriteTransferableKey(out, key, ModePublic, false); err != nil {
		t.Fatal(err)
	}
	got := buf.Bytes()
	want := []byte{0xC6, 0x01, 0xAA, 0xCD, 0x01, 0x41, 0xC2, 0x01, 0x42}
	if !bytes.Equal(got, want) {
		t.Errorf("public-mode output = %x, want %x", got, want)
	}
}

func TestWriteTransferableKeySecretModeSkipsPublicKeyPacket(t *testing.T) {
	key := TransferableKey{
		{Tag: TagPublicKey, Bytes: []byte{0xC6, 0x01, 0xAA}},
		{Tag: TagSecretKey, Bytes: []byte{0xC5, 0x01, 0xBB}},
	}
	var buf bytes.Buffer
	out := NewOutput(&buf)
	if err := WriteTransferableKey(out, key, ModeSecret, false); err != nil {
		t.Fatal(err)
	}
	want := []byte{0xC5, 0x01, 0xBB}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("secret-mode output = %x, want %x", buf.Bytes(), want)
	}
}

func TestWriteTransferableKeyEmptyIsError(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(&buf)
	if err := WriteTransferableKey(out, nil, ModePublic, false); err == nil {
		t.Fatal("expected error for empty transferable key")
	}
}

func TestWriteTransferableKeyArmored(t *testing.T) {
	key := TransferableKey{{Tag: TagPublicKey, Bytes: []byte{0xC6, 0x01, 0xAA}}}
	var buf bytes.Buffer
	out := NewOutput(&buf)
	if err := WriteTransferableKey(out, key, ModePublic, true); err != nil {
		t.Fatal(err)
	}
	s := buf.String()
	if !bytes.Contains([]byte(s), []byte("BEGIN PGP PUBLIC KEY BLOCK")) {
		t.Errorf("armored output missing BEGIN header: %q", s)
	}
	if !bytes.Contains([]byte(s), []byte("END PGP PUBLIC KEY BLOCK")) {
		t.Errorf("armored output missing END trailer: %q", s)
	}
}

func TestKeyModePermits(t *testing.T) {
	if !ModePublic.permits(TagPublicKey) {
		t.Error("ModePublic must permit TagPublicKey")
	}
	if ModePublic.permits(TagSecretKey) {
		t.Error("ModePublic must not permit TagSecretKey")
	}
	if !ModeSecret.permits(TagSecretSubkey) {
		t.Error("ModeSecret must permit TagSecretSubkey")
	}
	if ModeSecret.permits(TagPublicSubkey) {
		t.Error("ModeSecret must not permit TagPublicSubkey")
	}
}
