package store

import (
	"bytes"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/pkg/errors"
)

// EncodeU32List packs a list<u32> (spec.md §4.1 height_to_slots /
// slot_to_heights values) into a roaring bitmap, which compresses well for
// the small, mostly-contiguous sets these columns hold.
func EncodeU32List(values []uint32) ([]byte, error) {
	bm := roaring.New()
	bm.AddMany(values)
	var buf bytes.Buffer
	if _, err := bm.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, "roaring encode")
	}
	return buf.Bytes(), nil
}

// DecodeU32List reverses EncodeU32List.
func DecodeU32List(data []byte) ([]uint32, error) {
	bm := roaring.New()
	if _, err := bm.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, errors.Wrap(err, "roaring decode")
	}
	return bm.ToArray(), nil
}

// AddToU32List decodes data (nil treated as empty), adds v, and
// re-encodes, used when appending an observed slot/height to an existing
// index row.
func AddToU32List(data []byte, v uint32) ([]byte, error) {
	var bm *roaring.Bitmap
	if len(data) == 0 {
		bm = roaring.New()
	} else {
		bm = roaring.New()
		if _, err := bm.ReadFrom(bytes.NewReader(data)); err != nil {
			return nil, errors.Wrap(err, "roaring decode")
		}
	}
	bm.Add(v)
	var buf bytes.Buffer
	if _, err := bm.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, "roaring encode")
	}
	return buf.Bytes(), nil
}
