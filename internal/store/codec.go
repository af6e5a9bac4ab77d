package store

import (
	"github.com/golang/snappy"
	"github.com/pkg/errors"
	"github.com/ugorji/go/codec"
)

var cborHandle = &codec.CborHandle{}

// Encode CBOR-serializes v and snappy-compresses the result, matching the
// "serialized X" value shape named throughout spec.md §4.1.
func Encode(v interface{}) ([]byte, error) {
	var raw []byte
	enc := codec.NewEncoderBytes(&raw, cborHandle)
	if err := enc.Encode(v); err != nil {
		return nil, errors.Wrap(err, "cbor encode")
	}
	return snappy.Encode(nil, raw), nil
}

// Decode reverses Encode into v (a pointer).
func Decode(data []byte, v interface{}) error {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return errors.Wrap(err, "snappy decode")
	}
	dec := codec.NewDecoderBytes(raw, cborHandle)
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(err, "cbor decode")
	}
	return nil
}
