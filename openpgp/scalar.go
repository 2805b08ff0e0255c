package openpgp

import (
	"io"
	"math/big"
)

// writeScalar emits n as a big-endian unsigned integer of the given
// width (1, 2, or 4 bytes), per RFC 4880's scalar encoding.
func writeScalar(w io.Writer, n uint32, width int) error {
	var buf [4]byte
	switch width {
	case 1:
		buf[0] = byte(n)
	case 2:
		buf[0] = byte(n >> 8)
		buf[1] = byte(n)
	case 4:
		buf[0] = byte(n >> 24)
		buf[1] = byte(n >> 16)
		buf[2] = byte(n >> 8)
		buf[3] = byte(n)
	default:
		return errorf(ErrInvalidParameter, "write_scalar", nil)
	}
	_, err := w.Write(buf[:width])
	if err != nil {
		return errorf(ErrIoFailure, "write_scalar", err)
	}
	return nil
}

// mpiBytes returns the minimal unsigned big-endian encoding of x, with
// no leading zero byte. A nil or zero value encodes as an empty slice.
func mpiBytes(x *big.Int) []byte {
	if x == nil {
		return nil
	}
	return x.Bytes()
}

// mpiBitCount returns the position of the highest set bit in x plus
// one; zero has a bit count of zero.
func mpiBitCount(x *big.Int) int {
	if x == nil {
		return 0
	}
	return x.BitLen()
}

// mpiLength returns the on-wire length of x's MPI encoding: 2 bytes of
// bit count plus the minimal unsigned byte representation.
func mpiLength(x *big.Int) int {
	return 2 + len(mpiBytes(x))
}

// writeMPI emits a 16-bit big-endian bit count of x followed by the
// minimal unsigned big-endian byte representation.
func writeMPI(w io.Writer, x *big.Int) error {
	if err := writeScalar(w, uint32(mpiBitCount(x)), 2); err != nil {
		return err
	}
	b := mpiBytes(x)
	if len(b) == 0 {
		return nil
	}
	if _, err := w.Write(b); err != nil {
		return errorf(ErrIoFailure, "write_mpi", err)
	}
	return nil
}

// parseMPI reads one MPI from the front of buf and returns the decoded
// value along with the remaining bytes. It is used only by tests to
// verify the MPI round-trip property.
func parseMPI(buf []byte) (*big.Int, []byte, bool) {
	if len(buf) < 2 {
		return nil, nil, false
	}
	bits := int(buf[0])<<8 | int(buf[1])
	n := (bits + 7) / 8
	buf = buf[2:]
	if len(buf) < n {
		return nil, nil, false
	}
	x := new(big.Int).SetBytes(buf[:n])
	return x, buf[n:], true
}
