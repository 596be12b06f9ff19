package table

import (
	"cmp"
	"math"
	"strconv"
	"strings"

	"github.com/golang-sql/civil"
)

// DateLayout is the canonical text form of Date values.
const DateLayout = "2006-01-02"

// Format renders v as CSV cell text. NULL renders as the empty string. Float
// values follow the JVM Double.toString shape ("100.0", "2.5", "1.0E7"),
// which is what Spark's CSV writer emits.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return FormatFloat(x)
	case bool:
		return strconv.FormatBool(x)
	case civil.Date:
		return x.String()
	default:
		return ""
	}
}

// FormatFloat renders f the way java.lang.Double.toString does: plain decimal
// with at least one fractional digit for 1e-3 <= |f| < 1e7, otherwise
// computerized scientific notation.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}

	if abs := math.Abs(f); abs >= 1e-3 && abs < 1e7 {
		s := strconv.FormatFloat(f, 'f', -1, 64)
		if !strings.ContainsRune(s, '.') {
			s += ".0"
		}
		return s
	}

	mant, exp, _ := strings.Cut(strconv.FormatFloat(f, 'E', -1, 64), "E")
	if !strings.ContainsRune(mant, '.') {
		mant += ".0"
	}
	e, _ := strconv.Atoi(exp)
	return mant + "E" + strconv.Itoa(e)
}

// Compare orders two non-nil values of the same kind. Int and Float values
// compare numerically with each other. Values of unrelated types compare by
// their kind order so sorting stays total. NaN sorts before other floats.
func Compare(a, b any) int {
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case int64:
		switch y := b.(type) {
		case int64:
			return cmp.Compare(x, y)
		case float64:
			return cmp.Compare(float64(x), y)
		}
	case float64:
		switch y := b.(type) {
		case float64:
			return cmp.Compare(x, y)
		case int64:
			return cmp.Compare(x, float64(y))
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			default:
				return 1
			}
		}
	case civil.Date:
		if y, ok := b.(civil.Date); ok {
			switch {
			case x.Before(y):
				return -1
			case x.After(y):
				return 1
			default:
				return 0
			}
		}
	}
	return cmp.Compare(rank(a), rank(b))
}

func rank(v any) int {
	switch v.(type) {
	case bool:
		return 1
	case int64, float64:
		return 2
	case string:
		return 3
	case civil.Date:
		return 4
	default:
		return 5
	}
}
