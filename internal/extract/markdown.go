package extract

import (
	"errors"
	"unicode/utf8"
)

var errInvalidUTF8 = errors.New("markdown: content is not valid UTF-8")

// extractMarkdown returns the file verbatim; markup is left for the model.
func extractMarkdown(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errInvalidUTF8
	}
	return string(data), nil
}
