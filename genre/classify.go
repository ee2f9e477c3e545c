// Package genre filters DVB content codes down to the categories the
// operator's guide knows about and renders them as a delimited field.
package genre

import (
	"strconv"
	"strings"
)

// Code is level1<<4 | level2, or one of the internal categories.
type Code uint16

func CodeOf(level1, level2 uint8) Code {
	return Code(level1&0x0f)<<4 | Code(level2&0x0f)
}

var whitelist = map[Code]struct{}{
	1: {}, 2: {}, 4: {}, 5: {}, 6: {}, 8: {},
	11: {}, 13: {}, 14: {}, 15: {}, 17: {}, 18: {}, 19: {}, 20: {}, 21: {}, 23: {},
	26: {}, 27: {}, 28: {}, 29: {}, 44: {}, 45: {}, 46: {},
	InternalCategory1: {}, InternalCategory2: {},
}

func Allowed(c Code) bool {
	_, ok := whitelist[c]
	return ok
}

// Classify keeps the allowed codes in encounter order. Repeats are kept.
func Classify(codes []Code) []Code {
	kept := make([]Code, 0, len(codes))
	for _, c := range codes {
		if Allowed(c) {
			kept = append(kept, c)
		}
	}
	return kept
}

// Render formats codes as ",c1,c2,...,cn,"; no codes gives ",,".
func Render(codes []Code) string {
	var sb strings.Builder
	sb.WriteByte(',')
	for i, c := range codes {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatUint(uint64(c), 10))
	}
	sb.WriteByte(',')
	return sb.String()
}

// Text is Render(Classify(codes)).
func Text(codes []Code) string {
	return Render(Classify(codes))
}

// Parse reads a rendered field back into codes.
func Parse(text string) ([]Code, error) {
	trimmed := strings.Trim(text, ",")
	if trimmed == "" {
		return []Code{}, nil
	}
	parts := strings.Split(trimmed, ",")
	codes := make([]Code, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return nil, err
		}
		codes = append(codes, Code(v))
	}
	return codes, nil
}
