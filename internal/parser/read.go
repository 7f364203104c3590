package parser

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadLines reads a text file as UTF-8, falling back to ISO-8859-1 when the
// content is not valid UTF-8. A leading byte order mark and trailing blank
// lines are dropped; line endings are normalized.
func ReadLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return decodeLines(data)
}

func decodeLines(data []byte) ([]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	text := string(data)
	if !utf8.Valid(data) {
		b, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("decode latin-1: %w", err)
		}
		text = string(b)
	}
	lines := strings.Split(text, "\n")
	for i, ln := range lines {
		lines[i] = strings.TrimRight(ln, "\r")
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines, nil
}
