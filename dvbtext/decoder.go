// Package dvbtext decodes SI text fields as defined by ETSI EN 300 468
// Annex A. The first byte of a field may select a character table; without
// one the field is in the default table (ISO/IEC 6937).
package dvbtext

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/unicode/norm"
)

var ErrUnsupportedTable = errors.New("unsupported character table")

// single byte selectors 0x01..0x0B, Annex A table A.3
var selectorTables = map[byte]encoding.Encoding{
	0x01: charmap.ISO8859_5,
	0x02: charmap.ISO8859_6,
	0x03: charmap.ISO8859_7,
	0x04: charmap.ISO8859_8,
	0x05: charmap.ISO8859_9,
	0x06: charmap.ISO8859_10,
	0x07: charmap.Windows874, // ISO/IEC 8859-11 superset
	0x09: charmap.ISO8859_13,
	0x0a: charmap.ISO8859_14,
	0x0b: charmap.ISO8859_15,
}

// two byte tables carry 0x80..0x9f as trail bytes, so C1 controls are not
// stripped before decoding
var multiByteTables = map[byte]encoding.Encoding{
	0x12: korean.EUCKR,
	0x13: simplifiedchinese.GBK,
	0x14: traditionalchinese.Big5,
}

// 0x10 0x00 nn selects ISO/IEC 8859-nn
var iso8859Tables = map[byte]encoding.Encoding{
	0x01: charmap.ISO8859_1,
	0x02: charmap.ISO8859_2,
	0x03: charmap.ISO8859_3,
	0x04: charmap.ISO8859_4,
	0x05: charmap.ISO8859_5,
	0x06: charmap.ISO8859_6,
	0x07: charmap.ISO8859_7,
	0x08: charmap.ISO8859_8,
	0x09: charmap.ISO8859_9,
	0x0a: charmap.ISO8859_10,
	0x0b: charmap.Windows874,
	0x0d: charmap.ISO8859_13,
	0x0e: charmap.ISO8859_14,
	0x0f: charmap.ISO8859_15,
	0x10: charmap.ISO8859_16,
}

// DecodeString converts an SI text field to UTF-8. Control codes are
// handled as in table A.1: emphasis on/off are dropped and CR/LF becomes
// a newline.
func DecodeString(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	sel := raw[0]
	switch {
	case sel >= 0x20:
		return decodeDefault(raw), nil
	case sel == 0x10:
		if len(raw) < 3 {
			return "", fmt.Errorf("truncated 0x10 table selector")
		}
		enc, ok := iso8859Tables[raw[2]]
		if !ok || raw[1] != 0 {
			return "", fmt.Errorf("%w: 0x10 0x%02x 0x%02x", ErrUnsupportedTable, raw[1], raw[2])
		}
		return decodeWith(enc, raw[3:])
	case sel == 0x11:
		return decodeUCS2(raw[1:])
	case sel == 0x15:
		return filterControls(string(raw[1:])), nil
	case sel == 0x1f:
		return "", fmt.Errorf("%w: encoding_type_id 0x1f", ErrUnsupportedTable)
	}
	if enc, ok := multiByteTables[sel]; ok {
		out, err := enc.NewDecoder().Bytes(raw[1:])
		if err != nil {
			return "", err
		}
		return filterControls(string(out)), nil
	}
	enc, ok := selectorTables[sel]
	if !ok {
		return "", fmt.Errorf("%w: 0x%02x", ErrUnsupportedTable, sel)
	}
	return decodeWith(enc, raw[1:])
}

func decodeWith(enc encoding.Encoding, body []byte) (string, error) {
	out, err := enc.NewDecoder().Bytes(stripC1(body))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func decodeUCS2(body []byte) (string, error) {
	if len(body)%2 != 0 {
		return "", fmt.Errorf("odd length UCS-2 field: %d bytes", len(body))
	}
	out, err := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder().Bytes(body)
	if err != nil {
		return "", err
	}
	return filterControls(string(out)), nil
}

// stripC1 handles the control codes shared by every one byte table.
func stripC1(body []byte) []byte {
	out := make([]byte, 0, len(body))
	for _, b := range body {
		switch {
		case b == 0x8a:
			out = append(out, '\n')
		case 0x80 <= b && b < 0xa0:
			// emphasis on/off and reserved controls
		default:
			out = append(out, b)
		}
	}
	return out
}

// filterControls applies table A.1 to already decoded text (UTF-8, UCS-2),
// where the controls are carried as U+0080..U+009F.
func filterControls(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r == 0x8a:
			sb.WriteByte('\n')
		case 0x80 <= r && r < 0xa0:
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// ISO/IEC 6937 non-spacing diacritical marks, 0xC1..0xCF
var diacritics = map[byte]rune{
	0xc1: '\u0300', // grave
	0xc2: '\u0301', // acute
	0xc3: '\u0302', // circumflex
	0xc4: '\u0303', // tilde
	0xc5: '\u0304', // macron
	0xc6: '\u0306', // breve
	0xc7: '\u0307', // dot above
	0xc8: '\u0308', // diaeresis
	0xca: '\u030a', // ring
	0xcb: '\u0327', // cedilla
	0xcd: '\u030b', // double acute
	0xce: '\u0328', // ogonek
	0xcf: '\u030c', // caron
}

// ISO/IEC 6937 spacing characters that differ from ISO/IEC 8859-1
var iso6937Specials = map[byte]rune{
	0xa4: '$', 0xa6: '#', 0xa8: '¤', 0xa9: '‘', 0xaa: '“', 0xac: '←', 0xad: '↑', 0xae: '→', 0xaf: '↓',
	0xb4: '×', 0xb8: '÷', 0xb9: '’', 0xba: '”',
	0xd0: '―', 0xd1: '¹', 0xd2: '®', 0xd3: '©', 0xd4: '™', 0xd5: '♪', 0xd6: '¬', 0xd7: '¦',
	0xdc: '⅛', 0xdd: '⅜', 0xde: '⅝', 0xdf: '⅞',
	0xe0: 'Ω', 0xe1: 'Æ', 0xe2: 'Đ', 0xe3: 'ª', 0xe4: 'Ħ', 0xe6: 'Ĳ', 0xe7: 'Ŀ', 0xe8: 'Ł', 0xe9: 'Ø',
	0xea: 'Œ', 0xeb: 'º', 0xec: 'Þ', 0xed: 'Ŧ', 0xee: 'Ŋ', 0xef: 'ŉ',
	0xf0: 'ĸ', 0xf1: 'æ', 0xf2: 'đ', 0xf3: 'ð', 0xf4: 'ħ', 0xf5: 'ı', 0xf6: 'ĳ', 0xf7: 'ŀ', 0xf8: 'ł',
	0xf9: 'ø', 0xfa: 'œ', 0xfb: 'ß', 0xfc: 'þ', 0xfd: 'ŧ', 0xfe: 'ŋ', 0xff: '\u00ad',
}

func decodeDefault(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		b := raw[i]
		switch {
		case b < 0x80:
			sb.WriteByte(b)
		case b == 0x8a:
			sb.WriteByte('\n')
		case b < 0xa0:
			// emphasis on/off and reserved controls
		case diacritics[b] != 0:
			if i+1 < len(raw) {
				i++
				// base letter followed by its combining mark, composed by NFC
				sb.WriteString(norm.NFC.String(string([]rune{rune(raw[i]), diacritics[b]})))
			}
		default:
			if r, ok := iso6937Specials[b]; ok {
				sb.WriteRune(r)
			} else {
				sb.WriteRune(rune(b))
			}
		}
	}
	return sb.String()
}
