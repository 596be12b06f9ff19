package normalize

import (
	"math"
	"strings"

	"github.com/golang-sql/civil"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"reviewetl/internal/table"
)

// castInt follows Spark's non-ANSI CAST(x AS INT). Strings accept optional
// surrounding whitespace, an optional sign and an optional fractional part
// that is discarded; overflow is a failure. Longs wrap, doubles saturate.
func castInt(v any) (int64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case int64:
		return int64(int32(x)), true
	case int:
		return int64(int32(x)), true
	case float64:
		switch {
		case math.IsNaN(x):
			return 0, true
		case x >= math.MaxInt32:
			return math.MaxInt32, true
		case x <= math.MinInt32:
			return math.MinInt32, true
		}
		return int64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		return parseInt32(x)
	default:
		return 0, false
	}
}

// parseInt32 accepts [ws][+|-]digits[.digits][ws]. A lone sign is invalid;
// an empty integer part before the separator reads as 0.
func parseInt32(s string) (int64, bool) {
	s = strings.TrimFunc(s, func(r rune) bool { return r <= ' ' })
	if s == "" {
		return 0, false
	}

	i := 0
	neg := false
	if s[0] == '-' || s[0] == '+' {
		neg = s[0] == '-'
		i++
		if len(s) == 1 {
			return 0, false
		}
	}

	// Accumulate negatively so MinInt32 fits.
	const limit = math.MinInt32
	var n int64
	for ; i < len(s); i++ {
		c := s[i]
		if c == '.' {
			i++
			break
		}
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 - int64(c-'0')
		if n < limit {
			return 0, false
		}
	}
	for ; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}

	if !neg {
		n = -n
		if n > math.MaxInt32 {
			return 0, false
		}
	}
	return n, true
}

// parseDate parses yyyy-MM-dd strictly; no trimming, no other layout.
func parseDate(v any) (civil.Date, bool) {
	switch x := v.(type) {
	case civil.Date:
		return x, x.IsValid()
	case string:
		d, err := civil.ParseDate(x)
		if err != nil {
			return civil.Date{}, false
		}
		return d, true
	default:
		return civil.Date{}, false
	}
}

// upper performs full Unicode uppercasing ("ß" -> "SS"). Not safe for
// concurrent use.
type upper struct{ c cases.Caser }

func newUpper() *upper { return &upper{c: cases.Upper(language.Und)} }

func (u *upper) of(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return u.c.String(x)
	default:
		return u.c.String(table.Format(x))
	}
}
