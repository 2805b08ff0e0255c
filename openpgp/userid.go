package openpgp

import "bytes"

// UserID is a User ID packet payload: a free-form UTF-8 string,
// conventionally "Name (Comment) <email>" (§4.7).
type UserID string

// Packet serializes u as a complete User ID packet.
func (u UserID) Packet() ([]byte, error) {
	var buf bytes.Buffer
	out := NewOutput(&buf)
	if err := writePacket(out, TagUserID, []byte(u)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
