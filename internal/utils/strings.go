package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// ErrInvalidDelimiter indicates a delimiter string that is not one or two characters.
var ErrInvalidDelimiter = errors.New("delimiter must be 1 or 2 characters")

// Characters left behind when a UTF-8 byte order mark is decoded as latin-1.
const bomArtifacts = "ï»¿\ufeff"

var unitDelimiters = []string{"()", "[]"}

func encapsulatedPattern(delims string) (*regexp.Regexp, error) {
	r := []rune(delims)
	var openMark, closeMark string
	switch len(r) {
	case 1:
		openMark, closeMark = string(r[0]), string(r[0])
	case 2:
		openMark, closeMark = string(r[0]), string(r[1])
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidDelimiter, delims)
	}
	return regexp.Compile(`(?s)` + regexp.QuoteMeta(openMark) + `(.*?)` + regexp.QuoteMeta(closeMark))
}

// GetEncapsulated returns every substring found between the delimiter pair.
// A single character delimiter is used as both the opening and closing mark.
//
//	GetEncapsulated("density (kg/m^3), temperature (C)", "()") // ["kg/m^3", "C"]
func GetEncapsulated(line, delims string) ([]string, error) {
	re, err := encapsulatedPattern(delims)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, m := range re.FindAllStringSubmatch(line, -1) {
		out = append(out, m[1])
	}
	return out, nil
}

// StripEncapsulated removes every delimited substring, delimiters included.
func StripEncapsulated(line, delims string) (string, error) {
	re, err := encapsulatedPattern(delims)
	if err != nil {
		return "", err
	}
	return re.ReplaceAllString(line, ""), nil
}

func stripUnits(s string) string {
	for _, d := range unitDelimiters {
		// unit delimiters are constant and always valid
		s, _ = StripEncapsulated(s, d)
	}
	return s
}

var (
	// a word is delimited by spaces or underscores so a key keeps its colons
	// when cleaned again after spaces became underscores
	colonWord  = regexp.MustCompile(`[^ _]*:[^ _]*`)
	digitGroup = regexp.MustCompile(`^[0-9]+(:[0-9]+)+$`)
)

// CleanStr trims boundary whitespace, drops colons that are not part of a
// digit group such as 12:30, and removes quote characters.
func CleanStr(messy string) string {
	clean := strings.Trim(messy, " \t\r\n")
	clean = colonWord.ReplaceAllStringFunc(clean, func(w string) string {
		if digitGroup.MatchString(w) {
			return w
		}
		return strings.ReplaceAll(w, ":", "")
	})
	clean = strings.NewReplacer(`"`, "", "'", "").Replace(clean)
	return strings.Trim(clean, " ")
}

// StandardizeKey prepares a raw header key or column name for lookup: units
// in () or [] are discarded, the result is cleaned, lower cased and spaces
// and hyphens become underscores. StandardizeKey is idempotent.
func StandardizeKey(messy string) string {
	key := CleanStr(stripUnits(messy))
	key = strings.Join(strings.Fields(key), " ")
	key = strings.ToLower(key)
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(bomArtifacts, r) {
			return -1
		}
		return r
	}, key)
}

// InferUnitFromKey returns the first () or [] annotation of a raw column
// header, lower cased, e.g. "Density (kg/m3)" yields "kg/m3".
func InferUnitFromKey(raw string) (string, bool) {
	for _, d := range unitDelimiters {
		found, _ := GetEncapsulated(raw, d)
		if len(found) > 0 {
			return strings.ToLower(strings.TrimSpace(found[0])), true
		}
	}
	return "", false
}

// IsNone reports whether a textual value stands for a missing value.
func IsNone(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "nan", "none":
		return true
	}
	return false
}

// ParseNone returns nil for missing-value text and a pointer to v otherwise.
func ParseNone(v string) *string {
	if IsNone(v) {
		return nil
	}
	return &v
}

// GetAlphaRatio is the ratio of letters to digits in a line. Double quoted
// spans are skipped when ignoreQuoted is set. A line without digits yields 1.
func GetAlphaRatio(line string, ignoreQuoted bool) float64 {
	if ignoreQuoted {
		line, _ = StripEncapsulated(line, `"`)
	}
	var alpha, numeric int
	for _, r := range line {
		switch {
		case unicode.IsLetter(r):
			alpha++
		case unicode.IsDigit(r):
			numeric++
		}
	}
	if numeric == 0 {
		return 1
	}
	return float64(alpha) / float64(numeric)
}

// LineIsHeader decides whether a line belongs to the header block. A non
// empty indicator is definitive. Otherwise the alpha ratio against the
// previous line and the column count against expectedColumns each cast a
// vote; a zero previous ratio or expected column count skips that signal and
// ties count as data.
func LineIsHeader(line, sep, indicator string, prevAlphaRatio float64, expectedColumns int) bool {
	if indicator != "" {
		return strings.HasPrefix(line, indicator)
	}
	var yes, no int
	vote := func(ok bool) {
		if ok {
			yes++
		} else {
			no++
		}
	}
	if prevAlphaRatio > 0 {
		vote(GetAlphaRatio(line, true) >= prevAlphaRatio)
	}
	if sep != "" && expectedColumns > 0 {
		stripped, _ := StripEncapsulated(line, "()")
		vote(len(strings.Split(stripped, sep)) == expectedColumns)
	}
	return yes > no
}
