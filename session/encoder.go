package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/vmihailenco/msgpack/v5"
)

// Encoding selects how session blobs are written. Decoding accepts both.
type Encoding string

const (
	EncodingBinary  Encoding = "binary"
	EncodingMsgpack Encoding = "msgpack"
)

const binaryFormatV1 byte = 1

var ErrInvalidEncoding = errors.New("invalid session encoding")

// ParseEncoding maps a config value to an Encoding. Empty selects binary.
func ParseEncoding(name string) (Encoding, error) {
	switch Encoding(name) {
	case "", EncodingBinary:
		return EncodingBinary, nil
	case EncodingMsgpack:
		return EncodingMsgpack, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidEncoding, name)
	}
}

// Encode serializes s with the given encoding.
func Encode(s *Session, enc Encoding) ([]byte, error) {
	switch enc {
	case "", EncodingBinary:
		return encodeBinary(s)
	case EncodingMsgpack:
		return msgpack.Marshal(s)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidEncoding, enc)
	}
}

// Decode detects the blob format from its first byte. Binary blobs start with
// a version byte; msgpack maps never start with 0x01.
func Decode(data []byte) (*Session, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty blob", ErrInvalidEncoding)
	}
	if data[0] == binaryFormatV1 {
		return decodeBinary(data)
	}

	s := &Session{}
	if err := msgpack.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	if s.Identity == "" {
		return nil, fmt.Errorf("%w: missing identity", ErrInvalidEncoding)
	}
	return s, nil
}

// v1 layout: version(1) | identity len(2 BE) | identity | created(8 BE) | expires(8 BE)
func encodeBinary(s *Session) ([]byte, error) {
	if s.Identity == "" {
		return nil, errors.New("identity is required")
	}
	if len(s.Identity) > math.MaxUint16 {
		return nil, errors.New("identity too long")
	}

	var buf bytes.Buffer
	buf.Grow(1 + 2 + len(s.Identity) + 16)
	buf.WriteByte(binaryFormatV1)

	var scratch [8]byte
	binary.BigEndian.PutUint16(scratch[:2], uint16(len(s.Identity)))
	buf.Write(scratch[:2])
	buf.WriteString(s.Identity)

	binary.BigEndian.PutUint64(scratch[:], uint64(s.CreatedAt))
	buf.Write(scratch[:])
	binary.BigEndian.PutUint64(scratch[:], uint64(s.ExpiresAt))
	buf.Write(scratch[:])

	return buf.Bytes(), nil
}

func decodeBinary(data []byte) (*Session, error) {
	reader := bytes.NewReader(data[1:])

	var identityLen uint16
	if err := binary.Read(reader, binary.BigEndian, &identityLen); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	if identityLen == 0 {
		return nil, fmt.Errorf("%w: missing identity", ErrInvalidEncoding)
	}
	identity := make([]byte, identityLen)
	if _, err := io.ReadFull(reader, identity); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}

	s := &Session{Identity: string(identity)}
	if err := binary.Read(reader, binary.BigEndian, &s.CreatedAt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	if err := binary.Read(reader, binary.BigEndian, &s.ExpiresAt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	if reader.Len() != 0 {
		return nil, fmt.Errorf("%w: trailing bytes", ErrInvalidEncoding)
	}

	return s, nil
}
