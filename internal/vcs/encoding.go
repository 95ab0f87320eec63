package vcs

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

const DefaultEncoding = "utf-8"

// lookupEncoding resolves a WHATWG encoding label such as "utf-8" or
// "iso-8859-1".
func lookupEncoding(label string) (encoding.Encoding, error) {
	if label == "" {
		label = DefaultEncoding
	}
	enc, err := htmlindex.Get(strings.ToLower(label))
	if err != nil {
		return nil, fmt.Errorf("unknown text encoding %q: %w", label, err)
	}
	return enc, nil
}
