package protocol

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// Limits enforced by ReadPayload against a misbehaving server.
const (
	MaxImageSize = 1 << 30
	MaxOffsets   = 1 << 20
)

// Payload is the executable image plus its offsets, sent after a successful
// login.
type Payload struct {
	Image   []byte
	Offsets []uint64
}

// WritePayload streams p as: uint64 image length, image bytes, uint64 offset
// count, offsets. All integers are little endian. It returns the number of
// bytes that reached w.
func WritePayload(w io.Writer, p *Payload) (int64, error) {
	cw := &countingWriter{w: w}
	bw := bufio.NewWriterSize(cw, 64*1024)

	var hdr [8]byte
	binary.LittleEndian.PutUint64(hdr[:], uint64(len(p.Image)))
	if _, err := bw.Write(hdr[:]); err != nil {
		return cw.n, err
	}
	if _, err := bw.Write(p.Image); err != nil {
		return cw.n, err
	}

	binary.LittleEndian.PutUint64(hdr[:], uint64(len(p.Offsets)))
	if _, err := bw.Write(hdr[:]); err != nil {
		return cw.n, err
	}
	for _, off := range p.Offsets {
		binary.LittleEndian.PutUint64(hdr[:], off)
		if _, err := bw.Write(hdr[:]); err != nil {
			return cw.n, err
		}
	}

	err := bw.Flush()
	return cw.n, err
}

// ReadPayload is the client side of WritePayload.
func ReadPayload(r io.Reader) (*Payload, error) {
	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("read image length: %w", err)
	}
	size := binary.LittleEndian.Uint64(hdr[:])
	if size > MaxImageSize {
		return nil, fmt.Errorf("image length %d exceeds %d", size, MaxImageSize)
	}
	image := make([]byte, size)
	if _, err := io.ReadFull(r, image); err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("read offset count: %w", err)
	}
	count := binary.LittleEndian.Uint64(hdr[:])
	if count > MaxOffsets {
		return nil, fmt.Errorf("offset count %d exceeds %d", count, MaxOffsets)
	}
	offsets := make([]uint64, count)
	for i := range offsets {
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return nil, fmt.Errorf("read offset %d: %w", i, err)
		}
		offsets[i] = binary.LittleEndian.Uint64(hdr[:])
	}
	return &Payload{Image: image, Offsets: offsets}, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
