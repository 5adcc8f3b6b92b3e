package extract

import (
	"bytes"
	"errors"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// extractText decodes data as UTF-8, dropping a leading byte order mark.
func extractText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", &DecodeError{Err: errors.New("content is not valid UTF-8")}
	}
	return string(data), nil
}
