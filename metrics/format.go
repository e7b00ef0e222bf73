package metrics

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
)

const (
	maxStringLen = 255

	frameVersion = uint8(1)
)

var (
	errNameTooLong   = errors.New("<prefix>.<name> must smaller than 256")
	errTooManyTags   = errors.New("tag map must smaller than 256")
	errStringTooLong = errors.New("string length must less than 256")
)

// formatPoint writes one frame:
//
//	version u8 | name | count u32 | duration_ms f64 | ntags u8 | (key | value)*
//
// strings are a u8 length followed by the bytes; numbers are little endian.
func formatPoint(buf *bytes.Buffer, prefix string, p point) error {
	buf.WriteByte(frameVersion)
	if err := writeName(buf, prefix, p.name); err != nil {
		return err
	}
	writeUint32(buf, p.count)
	writeFloat64(buf, p.durationMs)
	return writeTags(buf, p.tags)
}

func writeName(buf *bytes.Buffer, prefix string, name string) error {
	if prefix == "" {
		return writeString(buf, name)
	}
	length := len(prefix) + len(name) + 1
	if length > maxStringLen {
		return errNameTooLong
	}
	buf.WriteByte(uint8(length))
	buf.WriteString(prefix)
	buf.WriteByte('.')
	buf.WriteString(name)
	return nil
}

func writeTags(buf *bytes.Buffer, tags []t) error {
	if len(tags) > maxStringLen {
		return errTooManyTags
	}
	buf.WriteByte(uint8(len(tags)))
	for _, tag := range tags {
		if err := writeString(buf, tag.key); err != nil {
			return err
		}
		if err := writeString(buf, tag.value); err != nil {
			return err
		}
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > maxStringLen {
		return errStringTooLong
	}
	buf.WriteByte(uint8(len(s)))
	buf.WriteString(s)
	return nil
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	vv := [4]byte{}
	binary.LittleEndian.PutUint32(vv[:], v)
	buf.Write(vv[:])
}

func writeFloat64(buf *bytes.Buffer, value float64) {
	vv := [8]byte{}
	binary.LittleEndian.PutUint64(vv[:], math.Float64bits(value))
	buf.Write(vv[:])
}
