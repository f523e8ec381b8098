package instance

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"
)

func TestFrame_RoundTrip(t *testing.T) {
	tests := []string{
		"/music/a.mp3",
		"/home/user/Müsik/日本語.flac",
		`C:\Videos\clip.mkv`,
		strings.Repeat("x", MaxFrameSize),
	}

	for _, payload := range tests {
		var buf bytes.Buffer
		if err := writeFrame(&buf, payload); err != nil {
			t.Fatalf("writeFrame: %v", err)
		}
		got, err := readFrame(&buf)
		if err != nil {
			t.Fatalf("readFrame: %v", err)
		}
		if got != payload {
			t.Errorf("expected %.40q, got %.40q", payload, got)
		}
	}
}

func TestReadFrame_Errors(t *testing.T) {
	header := func(n uint32) []byte {
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, n)
		return b
	}

	tests := []struct {
		name          string
		input         []byte
		expectedErr   error
		expectedError string
	}{
		{name: "Empty input", input: nil, expectedError: "failed to read frame header"},
		{name: "Short header", input: []byte{0, 0}, expectedError: "failed to read frame header"},
		{name: "Zero length", input: header(0), expectedErr: ErrEmptyFrame},
		{name: "Too large", input: header(MaxFrameSize + 1), expectedErr: ErrFrameTooLarge},
		{name: "Truncated payload", input: append(header(10), "abc"...), expectedError: "failed to read frame payload"},
		{name: "Invalid UTF-8", input: append(header(2), 0xff, 0xfe), expectedErr: ErrInvalidUTF8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readFrame(bytes.NewReader(tt.input))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.expectedErr != nil && !errors.Is(err, tt.expectedErr) {
				t.Errorf("expected %v, got %v", tt.expectedErr, err)
			}
			if tt.expectedError != "" && !strings.Contains(err.Error(), tt.expectedError) {
				t.Errorf("expected error containing '%s', got '%s'", tt.expectedError, err.Error())
			}
		})
	}
}

func TestWriteFrame_Rejects(t *testing.T) {
	var buf bytes.Buffer
	if err := writeFrame(&buf, ""); !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("expected ErrEmptyFrame, got %v", err)
	}
	if err := writeFrame(&buf, strings.Repeat("x", MaxFrameSize+1)); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("expected ErrFrameTooLarge, got %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("nothing should be written on rejection, got %d bytes", buf.Len())
	}
}
