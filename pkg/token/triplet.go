package token

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// TripletSize is the encoded size of a Triplet in bytes.
const TripletSize = 4

// MaxOffset is the largest source offset a Triplet can carry.
const MaxOffset = 0xFFFF

var (
	ErrOffsetOutOfRange = errors.New("offset does not fit in a triplet")
	ErrShortTriplet     = errors.New("triplet needs 4 bytes")
)

// Triplet packs {kind, offset, aux} into 32 bits:
//
//	bits 31..24  kind
//	bits 23..8   offset
//	bits  7..0   aux
type Triplet uint32

// Encode packs a triplet. The offset must fit in 16 bits.
func Encode(kind Kind, offset int, aux uint8) (Triplet, error) {
	if offset < 0 || offset > MaxOffset {
		return 0, fmt.Errorf("%w: %d", ErrOffsetOutOfRange, offset)
	}
	return MakeTriplet(kind, uint16(offset), aux), nil
}

// MakeTriplet packs already range-checked fields.
func MakeTriplet(kind Kind, offset uint16, aux uint8) Triplet {
	return Triplet(uint32(kind)<<24 | uint32(offset)<<8 | uint32(aux))
}

func (t Triplet) Kind() Kind         { return Kind(t >> 24) }
func (t Triplet) Offset() int        { return int(uint16(t >> 8)) }
func (t Triplet) Aux() uint8         { return uint8(t) }
func (t Triplet) IsTerminator() bool { return t.Kind() == EOF }

// Decode unpacks the triplet fields.
func (t Triplet) Decode() (Kind, int, uint8) {
	return t.Kind(), t.Offset(), t.Aux()
}

func (t Triplet) String() string {
	return fmt.Sprintf("(%s, %d, %d)", t.Kind(), t.Offset(), t.Aux())
}

// AppendBinary appends the boundary layout [kind, offset lo, offset hi, aux].
func (t Triplet) AppendBinary(b []byte) []byte {
	b = append(b, byte(t.Kind()))
	b = binary.LittleEndian.AppendUint16(b, uint16(t.Offset()))
	return append(b, t.Aux())
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (t Triplet) MarshalBinary() ([]byte, error) {
	return t.AppendBinary(make([]byte, 0, TripletSize)), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (t *Triplet) UnmarshalBinary(data []byte) error {
	decoded, err := DecodeTriplet(data)
	if err != nil {
		return err
	}
	*t = decoded
	return nil
}

// DecodeTriplet reads one triplet from the first four bytes of data.
func DecodeTriplet(data []byte) (Triplet, error) {
	if len(data) < TripletSize {
		return 0, ErrShortTriplet
	}
	return MakeTriplet(Kind(data[0]), binary.LittleEndian.Uint16(data[1:3]), data[3]), nil
}
