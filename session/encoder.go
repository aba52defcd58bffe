package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
)

const sessionFormatVersionCurrent = 1

// Encode serializes a session into the compact binary store format:
// version byte, length-prefixed UserID and JTI, uint16-length-prefixed
// refresh hash, then CreatedAt and ExpiresAt as big-endian int64.
func Encode(s *Session) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(sessionFormatVersionCurrent)

	if len(s.UserID) > 255 {
		return nil, errors.New("userID too long")
	}
	buf.WriteByte(byte(len(s.UserID)))
	buf.WriteString(s.UserID)

	if len(s.JTI) > 255 {
		return nil, errors.New("jti too long")
	}
	buf.WriteByte(byte(len(s.JTI)))
	buf.WriteString(s.JTI)

	if len(s.RefreshHash) > math.MaxUint16 {
		return nil, errors.New("refresh hash too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(s.RefreshHash))); err != nil {
		return nil, err
	}
	buf.WriteString(s.RefreshHash)

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses the binary store format back into a session.
func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != sessionFormatVersionCurrent {
		return nil, errors.New("invalid session version")
	}

	s := &Session{}

	userLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	userID := make([]byte, userLen)
	if _, err := io.ReadFull(reader, userID); err != nil {
		return nil, err
	}
	s.UserID = string(userID)

	jtiLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	jti := make([]byte, jtiLen)
	if _, err := io.ReadFull(reader, jti); err != nil {
		return nil, err
	}
	s.JTI = string(jti)

	var hashLen uint16
	if err := binary.Read(reader, binary.BigEndian, &hashLen); err != nil {
		return nil, err
	}
	hash := make([]byte, hashLen)
	if _, err := io.ReadFull(reader, hash); err != nil {
		return nil, err
	}
	s.RefreshHash = string(hash)

	if err := binary.Read(reader, binary.BigEndian, &s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &s.ExpiresAt); err != nil {
		return nil, err
	}

	return s, nil
}
