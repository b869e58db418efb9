package backend

import (
	"bytes"
	"fmt"

	"golang.org/x/text/encoding/japanese"
)

// Strings are stored as Shift-JIS on disk and held as UTF-8 in the IR and
// the text form.

// DecodeString converts Shift-JIS bytes to UTF-8. ok is false when the
// bytes would not re-encode to the same sequence; callers then keep the
// surrounding data undecoded.
func DecodeString(b []byte) (string, bool) {
	if bytes.IndexByte(b, 0) >= 0 {
		return "", false
	}
	utf, err := japanese.ShiftJIS.NewDecoder().Bytes(b)
	if err != nil {
		return "", false
	}
	back, err := japanese.ShiftJIS.NewEncoder().Bytes(utf)
	if err != nil || !bytes.Equal(back, b) {
		return "", false
	}
	return string(utf), true
}

// EncodeString converts UTF-8 text to Shift-JIS.
func EncodeString(s string) ([]byte, error) {
	if bytes.IndexByte([]byte(s), 0) >= 0 {
		return nil, fmt.Errorf("string %q contains a NUL byte", s)
	}
	b, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("string %q is not representable in Shift-JIS: %w", s, err)
	}
	return b, nil
}
