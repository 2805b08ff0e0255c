package openpgp

// PacketTag identifies an OpenPGP packet type (RFC 4880 §4.3).
type PacketTag byte

const (
	TagPublicKeyEncryptedSessionKey PacketTag = 1
	TagSignature                    PacketTag = 2
	TagSymmetricSessionKey          PacketTag = 3
	TagOnePassSignature             PacketTag = 4
	TagSecretKey                    PacketTag = 5
	TagPublicKey                    PacketTag = 6
	TagSecretSubkey                 PacketTag = 7
	TagCompressedData               PacketTag = 8
	TagSymmetricEncryptedData       PacketTag = 9
	TagMarker                       PacketTag = 10
	TagLiteralData                  PacketTag = 11
	TagTrust                        PacketTag = 12
	TagUserID                       PacketTag = 13
	TagPublicSubkey                 PacketTag = 14
	TagUserAttribute                PacketTag = 17
)

// RawPacket is a pre-serialized packet as found in a transferable-key
// blob: the core re-emits its bytes verbatim, it never reinterprets
// them.
type RawPacket struct {
	Tag   PacketTag
	Bytes []byte
}

// TransferableKey is an ordered sequence of RawPackets describing one
// key, its user IDs, its subkeys, and their signatures.
type TransferableKey []RawPacket

// KeyMode selects which packet tags the transferable-key walker emits.
type KeyMode int

const (
	// ModePublic permits PUBLIC_KEY, PUBLIC_SUBKEY, USER_ID, SIGNATURE.
	ModePublic KeyMode = iota
	// ModeSecret permits SECRET_KEY, SECRET_SUBKEY, USER_ID, SIGNATURE.
	ModeSecret
)

func (m KeyMode) permits(tag PacketTag) bool {
	switch m {
	case ModePublic:
		switch tag {
		case TagPublicKey, TagPublicSubkey, TagUserID, TagSignature:
			return true
		}
	case ModeSecret:
		switch tag {
		case TagSecretKey, TagSecretSubkey, TagUserID, TagSignature:
			return true
		}
	}
	return false
}

func (m KeyMode) blockType() string {
	if m == ModeSecret {
		return blockTypePrivateKey
	}
	return blockTypePublicKey
}

// WriteTransferableKey walks key in original order, emitting every
// RawPacket whose tag is permitted by mode and silently skipping the
// rest (§4.7). An empty blob is an error. When armored is true, the
// whole output is wrapped in an ASCII armor block matching mode.
func WriteTransferableKey(out *Output, key TransferableKey, mode KeyMode, armored bool) error {
	if len(key) == 0 {
		return errorf(ErrInvalidParameter, "write_xfer_key", nil)
	}

	depth := out.Depth()
	if armored {
		if err := out.PushArmor(mode.blockType(), nil); err != nil {
			return err
		}
	}

	for _, pkt := range key {
		if !mode.permits(pkt.Tag) {
			continue
		}
		if _, err := out.Write(pkt.Bytes); err != nil {
			out.Unwind(depth)
			return err
		}
	}

	if armored {
		if err := out.Pop(); err != nil {
			return err
		}
	}
	return nil
}
