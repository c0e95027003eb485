package r1cs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math/big"

	"github.com/holiman/uint256"
)

var r1csMagic = [8]byte{'l', 'o', 'f', '-', 'r', '1', 'c', 's'}

const r1csVersion uint32 = 1

// MalformedR1CSError is returned when a byte stream fails R1CS decoding.
type MalformedR1CSError struct{ Reason string }

func (e *MalformedR1CSError) Error() string {
	return fmt.Sprintf("malformed R1CS file: %s", e.Reason)
}

// encodeSignedLE encodes v as a two's-complement little-endian byte
// string of BitLen(|v|)/8+1 bytes; zero encodes as a single zero byte.
// Coefficients are BN254 scalar-field elements, so the common case has
// fewer than 256 bits; that path is handled with a fixed-width
// uint256.Int to avoid a big.Int allocation per term, falling back to
// arbitrary precision for a coefficient of 256 bits or more.
func encodeSignedLE(v *big.Int) []byte {
	if v.Sign() == 0 {
		return []byte{0}
	}
	abs := new(big.Int).Abs(v)
	if abs.BitLen() < 256 {
		return encodeSignedLEFast(v, abs)
	}
	return encodeSignedLESlow(v, abs)
}

func encodeSignedLEFast(v, abs *big.Int) []byte {
	mag, overflow := uint256.FromBig(abs)
	if overflow {
		return encodeSignedLESlow(v, abs)
	}
	nbytes := (abs.BitLen() / 8) + 1
	full := make([]byte, nbytes)
	if v.Sign() > 0 {
		be := mag.Bytes32()
		copy(full, be[32-nbytes:])
	} else {
		var mod uint256.Int
		mod.Lsh(uint256.NewInt(1), uint(nbytes*8))
		var tc uint256.Int
		tc.Sub(&mod, mag)
		be := tc.Bytes32()
		copy(full, be[32-nbytes:])
	}
	reverseBytes(full)
	return full
}

func encodeSignedLESlow(v, abs *big.Int) []byte {
	nbytes := abs.BitLen()/8 + 1
	if v.Sign() > 0 {
		be := abs.Bytes()
		full := make([]byte, nbytes)
		copy(full[nbytes-len(be):], be)
		reverseBytes(full)
		return full
	}
	mod := new(big.Int).Lsh(big.NewInt(1), uint(nbytes*8))
	tc := new(big.Int).Add(mod, v)
	be := tc.Bytes()
	full := make([]byte, nbytes)
	copy(full[nbytes-len(be):], be)
	reverseBytes(full)
	return full
}

// decodeSignedLE is the inverse of encodeSignedLE.
func decodeSignedLE(b []byte) *big.Int {
	if len(b) == 0 {
		return big.NewInt(0)
	}
	be := make([]byte, len(b))
	copy(be, b)
	reverseBytes(be)
	negative := be[0]&0x80 != 0
	if len(be) < 32 {
		var padded [32]byte
		copy(padded[32-len(be):], be)
		mag := new(uint256.Int).SetBytes(padded[:])
		v := mag.ToBig()
		if negative {
			var mod uint256.Int
			mod.Lsh(uint256.NewInt(1), uint(len(be)*8))
			v.Sub(v, mod.ToBig())
		}
		return v
	}
	v := new(big.Int).SetBytes(be)
	if negative {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(len(be)*8))
		v.Sub(v, mod)
	}
	return v
}

func reverseBytes(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

func writeU32(w *bytes.Buffer, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	w.Write(buf[:])
}

func writeString(w *bytes.Buffer, s string) {
	writeU32(w, uint32(len(s)))
	w.WriteString(s)
}

func writeLC(w *bytes.Buffer, lc LC) {
	writeU32(w, uint32(len(lc)))
	for _, t := range lc {
		writeU32(w, uint32(t.Var))
		enc := encodeSignedLE(t.Coeff)
		writeU32(w, uint32(len(enc)))
		w.Write(enc)
	}
}

// Encode serializes s to the binary R1CS file format of §4.6.
func Encode(s *System) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(r1csMagic[:])
	writeU32(&buf, r1csVersion)
	writeU32(&buf, uint32(len(s.PubNames)))
	writeU32(&buf, uint32(len(s.WitNames)))
	writeU32(&buf, uint32(len(s.Constraints)))
	for _, n := range s.PubNames {
		writeString(&buf, n)
	}
	for _, n := range s.WitNames {
		writeString(&buf, n)
	}
	for _, c := range s.Constraints {
		writeLC(&buf, c.A)
		writeLC(&buf, c.B)
		writeLC(&buf, c.C)
	}
	return buf.Bytes(), nil
}

type reader struct {
	data []byte
	pos  int
}

func (r *reader) u32() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if r.pos+n > len(r.data) {
		return nil, io.ErrUnexpectedEOF
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) string() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	b, err := r.bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *reader) lc() (LC, error) {
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	out := make(LC, count)
	for i := range out {
		varIdx, err := r.u32()
		if err != nil {
			return nil, err
		}
		coeffLen, err := r.u32()
		if err != nil {
			return nil, err
		}
		coeffBytes, err := r.bytes(int(coeffLen))
		if err != nil {
			return nil, err
		}
		out[i] = Term{Var: int(varIdx), Coeff: decodeSignedLE(coeffBytes)}
	}
	return out, nil
}

// Decode parses the binary R1CS file format produced by Encode.
func Decode(data []byte) (*System, error) {
	if len(data) < 20 {
		return nil, &MalformedR1CSError{Reason: "truncated header"}
	}
	if !bytes.Equal(data[:8], r1csMagic[:]) {
		return nil, &MalformedR1CSError{Reason: "bad magic"}
	}
	r := &reader{data: data, pos: 8}
	version, err := r.u32()
	if err != nil {
		return nil, &MalformedR1CSError{Reason: err.Error()}
	}
	if version != r1csVersion {
		return nil, &MalformedR1CSError{Reason: fmt.Sprintf("unsupported version %d", version)}
	}
	numPub, err := r.u32()
	if err != nil {
		return nil, &MalformedR1CSError{Reason: err.Error()}
	}
	numWit, err := r.u32()
	if err != nil {
		return nil, &MalformedR1CSError{Reason: err.Error()}
	}
	numCons, err := r.u32()
	if err != nil {
		return nil, &MalformedR1CSError{Reason: err.Error()}
	}

	s := &System{}
	for i := uint32(0); i < numPub; i++ {
		n, err := r.string()
		if err != nil {
			return nil, &MalformedR1CSError{Reason: err.Error()}
		}
		s.PubNames = append(s.PubNames, n)
	}
	for i := uint32(0); i < numWit; i++ {
		n, err := r.string()
		if err != nil {
			return nil, &MalformedR1CSError{Reason: err.Error()}
		}
		s.WitNames = append(s.WitNames, n)
	}
	for i := uint32(0); i < numCons; i++ {
		a, err := r.lc()
		if err != nil {
			return nil, &MalformedR1CSError{Reason: err.Error()}
		}
		b, err := r.lc()
		if err != nil {
			return nil, &MalformedR1CSError{Reason: err.Error()}
		}
		c, err := r.lc()
		if err != nil {
			return nil, &MalformedR1CSError{Reason: err.Error()}
		}
		s.Constraints = append(s.Constraints, Constraint{A: a, B: b, C: c})
	}
	s.NumVars = 1 + len(s.PubNames) + len(s.WitNames)
	for _, c := range s.Constraints {
		for _, lc := range [][]Term{c.A, c.B, c.C} {
			for _, t := range lc {
				if t.Var+1 > s.NumVars {
					s.NumVars = t.Var + 1
				}
			}
		}
	}
	return s, nil
}
