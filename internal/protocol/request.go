// Package protocol implements the fixed-width request record exchanged with
// clients and the response writing rules.
package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gophlicense/internal/common"
)

const (
	// FieldSize is the width of each text field. A field holds at most
	// FieldSize bytes; shorter values are NUL terminated.
	FieldSize = 32
	// RecordSize is the tag followed by four text fields.
	RecordSize = 8 + 4*FieldSize
	// ProbeSize is the length of a liveness frame. The client echoes it back.
	ProbeSize = 64
)

var ErrFieldTooLong = errors.New("field exceeds 32 bytes")

// Tag selects the operation a request asks for.
type Tag uint64

const (
	TagLogin    Tag = 0x5CD100F
	TagRegister Tag = 0x20CC1D
	TagAddKey   Tag = 0x4411969
	TagValidate Tag = 0x988CCD
)

func (t Tag) String() string {
	switch t {
	case TagLogin:
		return "login"
	case TagRegister:
		return "register"
	case TagAddKey:
		return "add_key"
	case TagValidate:
		return "validate"
	default:
		return "unknown"
	}
}

// Request is a decoded request record. Key carries the license key for
// REGISTER, ADDKEY and VALIDATE; Extra is spare.
type Request struct {
	Tag      Tag
	Name     string
	Password string
	Key      string
	Extra    string
}

// Decode parses one RecordSize record.
func Decode(b []byte) (Request, error) {
	if len(b) != RecordSize {
		return Request{}, fmt.Errorf("request record is %d bytes, want %d", len(b), RecordSize)
	}

	fields := b[8:]
	return Request{
		Tag:      Tag(binary.LittleEndian.Uint64(b[:8])),
		Name:     cString(fields[0*FieldSize : 1*FieldSize]),
		Password: cString(fields[1*FieldSize : 2*FieldSize]),
		Key:      cString(fields[2*FieldSize : 3*FieldSize]),
		Extra:    cString(fields[3*FieldSize : 4*FieldSize]),
	}, nil
}

// ReadRequest reads exactly one record from r.
func ReadRequest(r io.Reader) (Request, error) {
	buf := make([]byte, RecordSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Request{}, fmt.Errorf("%w: read request: %w", common.ErrTransport, err)
	}
	return Decode(buf)
}

// Encode lays the request out as a record.
func (r Request) Encode() ([]byte, error) {
	buf := make([]byte, RecordSize)
	binary.LittleEndian.PutUint64(buf[:8], uint64(r.Tag))

	for i, v := range []string{r.Name, r.Password, r.Key, r.Extra} {
		if len(v) > FieldSize {
			return nil, fmt.Errorf("field %d: %w", i, ErrFieldTooLong)
		}
		copy(buf[8+i*FieldSize:], v)
	}
	return buf, nil
}

// WriteOutcome sends the outcome text with no framing.
func WriteOutcome(w io.Writer, o common.Outcome) error {
	if _, err := io.WriteString(w, string(o)); err != nil {
		return fmt.Errorf("%w: write response: %w", common.ErrTransport, err)
	}
	return nil
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
