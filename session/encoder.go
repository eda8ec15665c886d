package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	// entryFormatV1 carried a one-byte identifier length. Still decoded so
	// sessions written before the upgrade survive until their TTL.
	entryFormatV1             = 1
	entryFormatVersionCurrent = 2

	maxIdentifierLen = math.MaxUint16
	maxTokenLen      = math.MaxUint16
)

// Encode serializes e as
//
//	version(1) | idLen(2, BE) | identifier | tokenLen(2, BE) | token | issuedAt(8, BE) | expiresAt(8, BE)
func Encode(e *Entry) ([]byte, error) {
	if e == nil {
		return nil, errors.New("nil entry")
	}
	if e.Identifier == "" {
		return nil, errors.New("identifier required")
	}
	if len(e.Identifier) > maxIdentifierLen {
		return nil, errors.New("identifier too long")
	}
	if len(e.Token) > maxTokenLen {
		return nil, errors.New("token too long")
	}

	var buf bytes.Buffer
	buf.Grow(1 + 2 + len(e.Identifier) + 2 + len(e.Token) + 16)

	buf.WriteByte(entryFormatVersionCurrent)
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(e.Identifier))); err != nil {
		return nil, err
	}
	buf.WriteString(e.Identifier)

	if err := binary.Write(&buf, binary.BigEndian, uint16(len(e.Token))); err != nil {
		return nil, err
	}
	buf.WriteString(e.Token)

	if err := binary.Write(&buf, binary.BigEndian, e.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, e.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses the output of [Encode], and version 1 entries with a
// one-byte identifier length. Trailing bytes are rejected.
func Decode(data []byte) (*Entry, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	var idLen uint16
	switch version {
	case entryFormatV1:
		b, err := reader.ReadByte()
		if err != nil {
			return nil, err
		}
		idLen = uint16(b)
	case entryFormatVersionCurrent:
		if err := binary.Read(reader, binary.BigEndian, &idLen); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported entry format version %d", version)
	}
	if idLen == 0 {
		return nil, errors.New("empty identifier")
	}
	if int(idLen) > reader.Len() {
		return nil, io.ErrUnexpectedEOF
	}

	e := &Entry{}
	id := make([]byte, idLen)
	if _, err := io.ReadFull(reader, id); err != nil {
		return nil, err
	}
	e.Identifier = string(id)

	var tokenLen uint16
	if err := binary.Read(reader, binary.BigEndian, &tokenLen); err != nil {
		return nil, err
	}
	if int(tokenLen) > reader.Len() {
		return nil, io.ErrUnexpectedEOF
	}
	token := make([]byte, tokenLen)
	if _, err := io.ReadFull(reader, token); err != nil {
		return nil, err
	}
	e.Token = string(token)

	if err := binary.Read(reader, binary.BigEndian, &e.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &e.ExpiresAt); err != nil {
		return nil, err
	}

	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes after entry")
	}

	return e, nil
}
