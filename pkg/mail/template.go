package mail

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// DecodeTemplate turns uploaded template bytes into text. Invalid UTF-8 is
// replaced with U+FFFD; decoding never fails.
func DecodeTemplate(raw []byte) string {
	decoded, err := unicode.UTF8.NewDecoder().Bytes(raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), "\uFFFD")
	}
	return string(decoded)
}

// ReadTemplate reads a template upload and returns its compacted body.
func ReadTemplate(r io.Reader) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read template: %w", err)
	}
	return CompactHTML(DecodeTemplate(raw)), nil
}
