package openpgp

import (
	"crypto/cipher"
	"hash"
	"io"

	"golang.org/x/crypto/openpgp/armor"
)

// stage is one level of the Output writer stack. finalize runs exactly
// once, when the stage is popped, and must flush or emit any trailer
// the stage owes (armor trailer, final CFB block, ...).
type stage interface {
	io.Writer
	finalize() error
}

// Output is the LIFO writer stack described in §4.2: a raw sink at the
// bottom, with hashing, encryption, checksumming, byte-counting, and
// armor stages pushed and popped on top of it. Writes always go to the
// current top of stack; Pop finalizes and removes it.
type Output struct {
	stages []stage
}

// NewOutput wraps w as the bottom of a fresh writer stack.
func NewOutput(w io.Writer) *Output {
	return &Output{stages: []stage{&sinkStage{w: w}}}
}

// Depth reports the current stack depth, including the bottom sink.
func (o *Output) Depth() int { return len(o.stages) }

func (o *Output) top() stage { return o.stages[len(o.stages)-1] }

// Write sends p through the current top-of-stack stage.
func (o *Output) Write(p []byte) (int, error) {
	n, err := o.top().Write(p)
	if err != nil {
		return n, errorf(ErrIoFailure, "output.write", err)
	}
	return n, nil
}

// Pop finalizes and removes the top stage. Popping the bottom sink is
// a BadState error.
func (o *Output) Pop() error {
	if len(o.stages) <= 1 {
		return errorf(ErrBadState, "output.pop", nil)
	}
	s := o.stages[len(o.stages)-1]
	o.stages = o.stages[:len(o.stages)-1]
	if err := s.finalize(); err != nil {
		return errorf(ErrIoFailure, "output.pop", err)
	}
	return nil
}

// Unwind pops every stage above depth, in LIFO order, ignoring errors
// from stages that never produced output (used on error paths where a
// partial stack must still be released per §5/§7).
func (o *Output) Unwind(depth int) {
	for len(o.stages) > depth && len(o.stages) > 1 {
		_ = o.Pop()
	}
}

type sinkStage struct{ w io.Writer }

func (s *sinkStage) Write(p []byte) (int, error) { return s.w.Write(p) }
func (s *sinkStage) finalize() error             { return nil }

// hashStage forwards bytes unchanged while updating a running hash. Its
// Digest field is populated by finalize and is only valid after Pop.
type hashStage struct {
	next   io.Writer
	h      hash.Hash
	Digest []byte
}

func (s *hashStage) Write(p []byte) (int, error) {
	s.h.Write(p)
	return s.next.Write(p)
}

func (s *hashStage) finalize() error {
	s.Digest = s.h.Sum(nil)
	return nil
}

// PushHash pushes a hashing stage onto the stack and returns it so the
// caller can read Digest after popping it.
func (o *Output) PushHash(h hash.Hash) *hashStage {
	s := &hashStage{next: o.top(), h: h}
	o.stages = append(o.stages, s)
	return s
}

// cfbStage encrypts bytes with OpenPGP CFB (no resync, as used for
// secret-key protection) and forwards ciphertext downstream.
type cfbStage struct {
	next   io.Writer
	stream cipher.Stream
}

func (s *cfbStage) Write(p []byte) (int, error) {
	out := make([]byte, len(p))
	s.stream.XORKeyStream(out, p)
	return s.next.Write(out)
}

func (s *cfbStage) finalize() error { return nil }

// PushCFB pushes a CFB encryption stage driven by the given stream
// cipher (constructed by the caller via cipher.NewCFBEncrypter).
func (o *Output) PushCFB(stream cipher.Stream) *cfbStage {
	s := &cfbStage{next: o.top(), stream: stream}
	o.stages = append(o.stages, s)
	return s
}

// sum16Stage forwards bytes unchanged while accumulating a mod-2^16
// checksum.
type sum16Stage struct {
	next io.Writer
	sum  uint16
}

func (s *sum16Stage) Write(p []byte) (int, error) {
	for _, b := range p {
		s.sum += uint16(b)
	}
	return s.next.Write(p)
}

func (s *sum16Stage) finalize() error { return nil }

// Sum returns the running checksum; valid at any time, including after
// Pop.
func (s *sum16Stage) Sum() uint16 { return s.sum }

// PushSum16 pushes a sum-16 checksum stage.
func (o *Output) PushSum16() *sum16Stage {
	s := &sum16Stage{next: o.top()}
	o.stages = append(o.stages, s)
	return s
}

// countStage forwards bytes unchanged while counting them, used to
// assert length parity between the calculator and the emitter (§4.3,
// §8 property 1/2).
type countStage struct {
	next io.Writer
	n    int
}

func (s *countStage) Write(p []byte) (int, error) {
	s.n += len(p)
	return s.next.Write(p)
}

func (s *countStage) finalize() error { return nil }

func (o *Output) pushCount() *countStage {
	s := &countStage{next: o.top()}
	o.stages = append(o.stages, s)
	return s
}

// armorStage wraps an underlying golang.org/x/crypto/openpgp/armor
// encoder, which already implements the base64 line-wrap, CRC-24
// trailer, and BEGIN/END label framing that §6/§8 require.
type armorStage struct {
	w io.WriteCloser
}

func (s *armorStage) Write(p []byte) (int, error) { return s.w.Write(p) }
func (s *armorStage) finalize() error             { return s.w.Close() }

// blockType names for ASCII armor, per §4.7.
const (
	blockTypePublicKey  = "PGP PUBLIC KEY BLOCK"
	blockTypePrivateKey = "PGP PRIVATE KEY BLOCK"
	blockTypeSignature  = "PGP SIGNATURE"
)

// PushArmor pushes an armor stage of the given block type.
func (o *Output) PushArmor(blockType string, headers map[string]string) error {
	w, err := armor.Encode(o.top(), blockType, headers)
	if err != nil {
		return errorf(ErrIoFailure, "push_armor", err)
	}
	o.stages = append(o.stages, &armorStage{w: w})
	return nil
}

// writePacket emits a new-format packet header for tag/bodyLen followed
// by body, through the current top of the writer stack. This is the
// "implicit packetizer" of §4.2.
func writePacket(out *Output, tag PacketTag, body []byte) error {
	if err := writePacketHeader(out, tag, len(body)); err != nil {
		return err
	}
	if _, err := out.Write(body); err != nil {
		return err
	}
	return nil
}

// writePacketHeader emits a new-format packet tag byte and length,
// using the three-tier encoding of §6.
func writePacketHeader(out *Output, tag PacketTag, bodyLen int) error {
	if _, err := out.Write([]byte{0xC0 | byte(tag)}); err != nil {
		return err
	}
	return writeNewFormatLength(out, bodyLen)
}

func writeNewFormatLength(out *Output, n int) error {
	switch {
	case n < 192:
		_, err := out.Write([]byte{byte(n)})
		if err != nil {
			return errorf(ErrIoFailure, "write_length", err)
		}
	case n < 8384:
		n -= 192
		_, err := out.Write([]byte{byte(n>>8) + 192, byte(n)})
		if err != nil {
			return errorf(ErrIoFailure, "write_length", err)
		}
	default:
		_, err := out.Write([]byte{0xFF, byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)})
		if err != nil {
			return errorf(ErrIoFailure, "write_length", err)
		}
	}
	return nil
}
