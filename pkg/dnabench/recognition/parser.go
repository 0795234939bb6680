// Package recognition talks to the recognition engine under test: it runs
// the engine on a clip and decodes what the engine prints.
package recognition

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/himanishpuri/dnabench/pkg/models"
)

// DefaultNoMatchMarker is what the engine prints when nothing matched.
const DefaultNoMatchMarker = "None"

// FieldNames are the record keys the parser requires.
type FieldNames struct {
	SongName      string
	Confidence    string
	Offset        string
	QueryDuration string
}

// DefaultFieldNames matches the engine's own result keys.
func DefaultFieldNames() FieldNames {
	return FieldNames{
		SongName:      "song_name",
		Confidence:    "confidence",
		Offset:        "offset",
		QueryDuration: "match_time",
	}
}

// ResultParseError reports engine output that could not be decoded. Field
// is empty when the record as a whole was unreadable.
type ResultParseError struct {
	Field string
	Raw   string
	Err   error
}

func (e *ResultParseError) Error() string {
	raw := e.Raw
	if len(raw) > 200 {
		raw = raw[:200] + "..."
	}
	if e.Field == "" {
		return fmt.Sprintf("unreadable recognition result: %v (raw: %q)", e.Err, raw)
	}
	return fmt.Sprintf("recognition result field %q: %v (raw: %q)", e.Field, e.Err, raw)
}

func (e *ResultParseError) Unwrap() error { return e.Err }

var (
	errMissing  = errors.New("missing")
	errNotText  = errors.New("not a string")
	errNotNum   = errors.New("not a number")
	errNotInt   = errors.New("not an integer")
	errNegative = errors.New("negative")
	errEmpty    = errors.New("empty")
)

// Parser decodes engine output. The zero value uses the defaults.
type Parser struct {
	NoMatchMarker string
	Fields        FieldNames
}

func (p Parser) marker() string {
	if p.NoMatchMarker == "" {
		return DefaultNoMatchMarker
	}
	return p.NoMatchMarker
}

func (p Parser) fields() FieldNames {
	if p.Fields == (FieldNames{}) {
		return DefaultFieldNames()
	}
	return p.Fields
}

// Parse decodes raw engine output. JSON records are decoded directly; the
// engine's Python-literal records ({'song_name': u'x', ...}) are tokenised
// into JSON first. Any missing or malformed required field is a
// *ResultParseError; nothing is defaulted.
func (p Parser) Parse(raw string) (*models.RecognitionResult, error) {
	text := strings.TrimSpace(raw)
	if text == p.marker() || text == "null" {
		return &models.RecognitionResult{Matched: false, Raw: raw}, nil
	}
	if text == "" {
		return nil, &ResultParseError{Raw: raw, Err: errEmpty}
	}

	record, err := decodeRecord(text)
	if err != nil {
		return nil, &ResultParseError{Raw: raw, Err: err}
	}

	f := p.fields()
	res := &models.RecognitionResult{Matched: true, Raw: raw}

	if res.MatchedSongID, err = stringField(record, f.SongName); err != nil {
		return nil, &ResultParseError{Field: f.SongName, Raw: raw, Err: err}
	}
	if res.Confidence, err = floatField(record, f.Confidence); err != nil {
		return nil, &ResultParseError{Field: f.Confidence, Raw: raw, Err: err}
	}
	if res.LandmarkOffset, err = intField(record, f.Offset); err != nil {
		return nil, &ResultParseError{Field: f.Offset, Raw: raw, Err: err}
	}
	if res.QueryDuration, err = floatField(record, f.QueryDuration); err != nil {
		return nil, &ResultParseError{Field: f.QueryDuration, Raw: raw, Err: err}
	}
	return res, nil
}

func decodeRecord(text string) (map[string]json.RawMessage, error) {
	var record map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &record); err == nil {
		if record == nil {
			return nil, errors.New("record is null")
		}
		return record, nil
	}

	converted, err := pythonLiteralToJSON(text)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(converted), &record); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	if record == nil {
		return nil, errors.New("record is null")
	}
	return record, nil
}

func stringField(record map[string]json.RawMessage, key string) (string, error) {
	raw, ok := record[key]
	if !ok || string(raw) == "null" {
		return "", errMissing
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", errNotText
	}
	if strings.TrimSpace(s) == "" {
		return "", errEmpty
	}
	return s, nil
}

func numberField(record map[string]json.RawMessage, key string) (json.Number, error) {
	raw, ok := record[key]
	if !ok || string(raw) == "null" {
		return "", errMissing
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return "", errNotNum
	}
	return n, nil
}

func floatField(record map[string]json.RawMessage, key string) (float64, error) {
	n, err := numberField(record, key)
	if err != nil {
		return 0, err
	}
	v, err := n.Float64()
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNotNum
	}
	if v < 0 {
		return 0, errNegative
	}
	return v, nil
}

func intField(record map[string]json.RawMessage, key string) (int, error) {
	n, err := numberField(record, key)
	if err != nil {
		return 0, err
	}
	if v, err := n.Int64(); err == nil {
		return int(v), nil
	}
	v, err := n.Float64()
	if err != nil || v != math.Trunc(v) || math.IsInf(v, 0) {
		return 0, errNotInt
	}
	return int(v), nil
}

// pythonLiteralToJSON rewrites a Python dict literal as JSON: single or
// double quoted strings (with u/b/r prefixes), None/True/False, long integer
// suffixes and trailing commas. Anything else outside a string is copied
// verbatim and left for the JSON decoder to reject.
func pythonLiteralToJSON(src string) (string, error) {
	var out strings.Builder
	rs := []rune(src)

	for i := 0; i < len(rs); {
		c := rs[i]
		switch {
		case c == '\'' || c == '"':
			s, next, err := readPyString(rs, i, plainLiteral, false)
			if err != nil {
				return "", err
			}
			writeJSONString(&out, s)
			i = next

		case unicode.IsDigit(c):
			j := i
			for j < len(rs) && (unicode.IsDigit(rs[j]) || strings.ContainsRune(".eE+-", rs[j])) {
				j++
			}
			out.WriteString(string(rs[i:j]))
			if j < len(rs) && (rs[j] == 'L' || rs[j] == 'l') {
				// Python 2 long suffix: 123L
				j++
			}
			i = j

		case unicode.IsLetter(c) || c == '_':
			j := i
			for j < len(rs) && (unicode.IsLetter(rs[j]) || unicode.IsDigit(rs[j]) || rs[j] == '_') {
				j++
			}
			ident := string(rs[i:j])
			switch {
			case j < len(rs) && (rs[j] == '\'' || rs[j] == '"') && isStringPrefix(ident):
				s, next, err := readPyString(rs, j, literalKindOf(ident), strings.ContainsAny(ident, "rR"))
				if err != nil {
					return "", err
				}
				writeJSONString(&out, s)
				j = next
			case ident == "None":
				out.WriteString("null")
			case ident == "True":
				out.WriteString("true")
			case ident == "False":
				out.WriteString("false")
			default:
				return "", fmt.Errorf("unexpected token %q at offset %d", ident, i)
			}
			i = j

		case c == '}' || c == ']':
			trimTrailingComma(&out)
			out.WriteRune(c)
			i++

		default:
			out.WriteRune(c)
			i++
		}
	}
	return out.String(), nil
}

func isStringPrefix(ident string) bool {
	switch strings.ToLower(ident) {
	case "u", "b", "r", "ur", "br", "rb":
		return true
	}
	return false
}

// literalKind is the flavour of a Python string literal, from its prefix.
type literalKind int

const (
	// plainLiteral has no prefix: a byte string under Python 2, text under
	// Python 3. \x and octal escapes build bytes, \u escapes build runes.
	plainLiteral literalKind = iota
	unicodeLiteral
	bytesLiteral
)

func literalKindOf(prefix string) literalKind {
	p := strings.ToLower(prefix)
	switch {
	case strings.Contains(p, "u"):
		return unicodeLiteral
	case strings.Contains(p, "b"):
		return bytesLiteral
	}
	return plainLiteral
}

// readPyString reads the quoted string starting at rs[start] and returns its
// value and the index just past the closing quote. Byte escapes are read back
// as UTF-8, falling back to Latin-1 for bytes that are not valid UTF-8.
func readPyString(rs []rune, start int, kind literalKind, raw bool) (string, int, error) {
	quote := rs[start]
	var buf []byte
	for i := start + 1; i < len(rs); i++ {
		c := rs[i]
		if c == quote {
			return decodeLiteralBytes(buf, kind), i + 1, nil
		}
		if c != '\\' || i+1 >= len(rs) {
			buf = utf8.AppendRune(buf, c)
			continue
		}
		i++
		esc := rs[i]
		if raw {
			buf = utf8.AppendRune(append(buf, '\\'), esc)
			continue
		}
		switch esc {
		case '\n':
			// line continuation
		case 'n':
			buf = append(buf, '\n')
		case 't':
			buf = append(buf, '\t')
		case 'r':
			buf = append(buf, '\r')
		case 'a':
			buf = append(buf, '\a')
		case 'b':
			buf = append(buf, '\b')
		case 'f':
			buf = append(buf, '\f')
		case 'v':
			buf = append(buf, '\v')
		case '\\', '\'', '"':
			buf = append(buf, byte(esc))
		case 'x':
			v, next, err := readHexEscape(rs, i+1, 2)
			if err != nil {
				return "", 0, fmt.Errorf("bad \\x escape at offset %d: %w", i-1, err)
			}
			buf = appendCodeUnit(buf, v, kind)
			i = next - 1
		case 'u', 'U':
			if kind == bytesLiteral {
				buf = utf8.AppendRune(append(buf, '\\'), esc)
				continue
			}
			width := 4
			if esc == 'U' {
				width = 8
			}
			v, next, err := readHexEscape(rs, i+1, width)
			if err != nil {
				return "", 0, fmt.Errorf("bad \\%c escape at offset %d: %w", esc, i-1, err)
			}
			if v > unicode.MaxRune || (v >= 0xD800 && v <= 0xDFFF) {
				return "", 0, fmt.Errorf("bad \\%c escape at offset %d: code point %#x out of range", esc, i-1, v)
			}
			buf = utf8.AppendRune(buf, rune(v))
			i = next - 1
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j, v := i, 0
			for j < len(rs) && j < i+3 && rs[j] >= '0' && rs[j] <= '7' {
				v = v*8 + int(rs[j]-'0')
				j++
			}
			if v > 0xFF && kind != unicodeLiteral {
				return "", 0, fmt.Errorf("bad octal escape at offset %d: value %#o exceeds a byte", i-1, v)
			}
			buf = appendCodeUnit(buf, v, kind)
			i = j - 1
		default:
			buf = utf8.AppendRune(append(buf, '\\'), esc)
		}
	}
	return "", 0, fmt.Errorf("unterminated string starting at offset %d", start)
}

// readHexEscape reads exactly width hex digits starting at rs[at].
func readHexEscape(rs []rune, at, width int) (int, int, error) {
	if at+width > len(rs) {
		return 0, 0, errors.New("truncated")
	}
	v := 0
	for _, c := range rs[at : at+width] {
		d := strings.IndexRune("0123456789abcdef", unicode.ToLower(c))
		if d < 0 {
			return 0, 0, fmt.Errorf("%q is not a hex digit", c)
		}
		v = v*16 + d
	}
	return v, at + width, nil
}

func appendCodeUnit(buf []byte, v int, kind literalKind) []byte {
	if kind == unicodeLiteral {
		return utf8.AppendRune(buf, rune(v))
	}
	return append(buf, byte(v))
}

func decodeLiteralBytes(buf []byte, kind literalKind) string {
	if kind == unicodeLiteral || utf8.Valid(buf) {
		return string(buf)
	}
	var b strings.Builder
	for len(buf) > 0 {
		r, size := utf8.DecodeRune(buf)
		if r == utf8.RuneError && size == 1 {
			r = rune(buf[0])
		}
		b.WriteRune(r)
		buf = buf[size:]
	}
	return b.String()
}

func writeJSONString(out *strings.Builder, s string) {
	enc, _ := json.Marshal(s)
	out.Write(enc)
}

func trimTrailingComma(out *strings.Builder) {
	s := strings.TrimRightFunc(out.String(), unicode.IsSpace)
	if strings.HasSuffix(s, ",") {
		rest := strings.TrimSuffix(s, ",")
		out.Reset()
		out.WriteString(rest)
	}
}
