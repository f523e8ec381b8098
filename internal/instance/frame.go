package instance

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// MaxFrameSize bounds the payload of a handoff message
const MaxFrameSize = 64 * 1024

var (
	// ErrFrameTooLarge is returned for payloads above MaxFrameSize
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
	// ErrEmptyFrame is returned for zero-length payloads
	ErrEmptyFrame = errors.New("empty frame")
	// ErrInvalidUTF8 is returned when the payload is not valid UTF-8
	ErrInvalidUTF8 = errors.New("frame is not valid UTF-8")
)

// writeFrame writes a 4-byte big-endian length followed by the payload
func writeFrame(w io.Writer, payload string) error {
	if len(payload) == 0 {
		return ErrEmptyFrame
	}
	if len(payload) > MaxFrameSize {
		return ErrFrameTooLarge
	}

	buf := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[4:], payload)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// readFrame reads exactly one frame
func readFrame(r io.Reader) (string, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return "", fmt.Errorf("failed to read frame header: %w", err)
	}

	size := binary.BigEndian.Uint32(header[:])
	if size == 0 {
		return "", ErrEmptyFrame
	}
	if size > MaxFrameSize {
		return "", ErrFrameTooLarge
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return "", fmt.Errorf("failed to read frame payload: %w", err)
	}
	if !utf8.Valid(payload) {
		return "", ErrInvalidUTF8
	}
	return string(payload), nil
}
