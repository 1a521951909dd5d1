package extract

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	truthy = regexp.MustCompile(`(?i)\b(yes|true)\b`)
	falsy  = regexp.MustCompile(`(?i)\b(no|false)\b`)
)

// Coerce converts a raw model answer into a value of type t. A nil value means
// the answer could not be read as that type. Only an unsupported type is an
// error.
func Coerce(t FieldType, raw string) (any, error) {
	switch t {
	case Boolean:
		switch {
		case truthy.MatchString(raw):
			return true, nil
		case falsy.MatchString(raw):
			return false, nil
		}
		return nil, nil
	case Integer:
		n, ok := parseInteger(raw)
		if !ok {
			return nil, nil
		}
		return n, nil
	case Float:
		f, ok := parseNumber(raw)
		if !ok {
			return nil, nil
		}
		return f, nil
	case Text:
		return strings.TrimSpace(raw), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, t)
}

// numeric keeps digits, dots and a leading minus sign.
func numeric(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// parseInteger accepts a whole number that fits int64. A fraction of zeros
// ("2.0") is allowed; any other fraction or an out-of-range value is not.
func parseInteger(raw string) (int64, bool) {
	s := numeric(raw)
	whole, frac, hasFrac := strings.Cut(s, ".")
	if hasFrac && strings.Trim(frac, "0") != "" {
		return 0, false
	}
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseNumber(raw string) (float64, bool) {
	f, err := strconv.ParseFloat(numeric(raw), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
