package parser

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf16"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// stringValue decodes a string or template literal. Text is kept as UTF-16
// code units while decoding so escaped surrogate pairs combine; lone
// surrogates become U+FFFD.
func (c *parseContext) stringValue(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	var units []uint16
	for i := uint(0); i < node.NamedChildCount(); i++ {
		part := node.NamedChild(i)
		text := c.textOf(part)
		switch part.Kind() {
		case "string_fragment":
			units = append(units, utf16.Encode([]rune(text))...)
		case "escape_sequence":
			units = append(units, decodeEscape(text)...)
		}
	}
	return string(utf16.Decode(units))
}

func decodeEscape(seq string) []uint16 {
	if len(seq) < 2 || seq[0] != '\\' {
		return utf16.Encode([]rune(seq))
	}
	body := seq[1:]
	switch body[0] {
	case 'n':
		return []uint16{'\n'}
	case 't':
		return []uint16{'\t'}
	case 'r':
		return []uint16{'\r'}
	case 'b':
		return []uint16{'\b'}
	case 'f':
		return []uint16{'\f'}
	case 'v':
		return []uint16{'\v'}
	case '0':
		if len(body) == 1 {
			return []uint16{0}
		}
	case '\n', '\r', 0xe2:
		// Line continuation.
		return nil
	case 'x':
		if v, err := strconv.ParseUint(body[1:], 16, 16); err == nil {
			return []uint16{uint16(v)}
		}
	case 'u':
		hex := strings.TrimSuffix(strings.TrimPrefix(body[1:], "{"), "}")
		if v, err := strconv.ParseUint(hex, 16, 32); err == nil && v <= 0x10FFFF {
			if v > 0xFFFF {
				return utf16.Encode([]rune{rune(v)})
			}
			return []uint16{uint16(v)}
		}
	}
	return utf16.Encode([]rune(body))
}

// parseNumber parses a numeric literal. BigInt literals are rejected.
func parseNumber(text string) (float64, bool) {
	text = strings.ReplaceAll(text, "_", "")
	if strings.HasSuffix(text, "n") {
		return 0, false
	}
	if len(text) > 2 && text[0] == '0' {
		base := 0
		switch text[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			v, err := strconv.ParseUint(text[2:], base, 64)
			if err != nil {
				return 0, false
			}
			return float64(v), true
		}
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return v, true
		}
		return 0, false
	}
	return v, true
}

func formatNumberKey(n float64) string {
	if n == math.Trunc(n) && math.Abs(n) < 1e21 {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}
