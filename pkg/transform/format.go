package transform

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
)

// Interval is a calendar interval as stored by most engines: months and days are kept
// apart from the clock part.
type Interval struct {
	Months int32
	Days   int32
	Micros int64
}

// String renders the default interval text: "[y-m ]d hh:mm:ss[.ffffff]".
func (iv Interval) String() string {
	var b strings.Builder
	if iv.Months != 0 {
		sign, months := "", int64(iv.Months)
		if months < 0 {
			sign, months = "-", -months
		}
		fmt.Fprintf(&b, "%s%d-%d ", sign, months/12, months%12)
	}
	fmt.Fprintf(&b, "%d ", iv.Days)

	micros := iv.Micros
	if micros < 0 {
		b.WriteByte('-')
		micros = -micros
	}
	secs := micros / 1e6
	fmt.Fprintf(&b, "%02d:%02d:%02d", secs/3600, secs/60%60, secs%60)
	if frac := micros % 1e6; frac != 0 {
		fmt.Fprintf(&b, ".%06d", frac)
	}
	return b.String()
}

// numberFormat accepts exactly one printf verb among d, x, X, e, E, f, F, g, G.
var numberFormat = regexp.MustCompile(`^(?:[^%]|%%)*%[-+# 0]*\d*(?:\.\d+)?([dxXeEfFgG])(?:[^%]|%%)*$`)

// FormatNumber converts a numeric value to text. An empty format selects the default
// conversion; otherwise format is a printf-style pattern with a single numeric verb.
func FormatNumber(value any, format string) (string, error) {
	if format == "" {
		return defaultNumberText(value)
	}
	m := numberFormat.FindStringSubmatch(format)
	if m == nil {
		return "", fmt.Errorf("number format %q: expected a single numeric verb", format)
	}
	var (
		arg any
		err error
	)
	switch m[1] {
	case "d", "x", "X":
		arg, err = integerArg(value)
	default:
		arg, err = floatArg(value)
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(format, arg), nil
}

func defaultNumberText(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case *big.Int:
		return v.String(), nil
	case *big.Float:
		return v.Text('f', -1), nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return "", fmt.Errorf("value %v is outside the representable range", f)
		}
		return strconv.FormatFloat(f, 'f', -1, rv.Type().Bits()), nil
	}

	if s, ok := value.(fmt.Stringer); ok {
		return s.String(), nil
	}
	return "", fmt.Errorf("unsupported numeric value of type %T", value)
}

func integerArg(value any) (any, error) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint(), nil
	}
	if v, ok := value.(*big.Int); ok {
		return v, nil
	}

	f, err := floatArg(value)
	if err != nil {
		return nil, err
	}
	bf := f.(*big.Float)
	if !bf.IsInt() {
		return nil, fmt.Errorf("value %s is not an integer", bf.Text('g', -1))
	}
	i, _ := bf.Int(nil)
	return i, nil
}

// floatArg returns the value as a *big.Float so that decimal text keeps its precision.
func floatArg(value any) (any, error) {
	const prec = 256

	switch v := value.(type) {
	case *big.Float:
		return v, nil
	case *big.Int:
		return new(big.Float).SetPrec(prec).SetInt(v), nil
	case string:
		return parseDecimal(v)
	case []byte:
		return parseDecimal(string(v))
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return new(big.Float).SetPrec(prec).SetInt64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return new(big.Float).SetPrec(prec).SetUint64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("value %v is outside the representable range", f)
		}
		if rv.Kind() == reflect.Float32 {
			// Shortest decimal form, so 1.1f does not print as 1.10000002384.
			return parseDecimal(strconv.FormatFloat(f, 'g', -1, 32))
		}
		return new(big.Float).SetPrec(prec).SetFloat64(f), nil
	}
	return nil, fmt.Errorf("unsupported numeric value of type %T", value)
}

func parseDecimal(s string) (*big.Float, error) {
	f, ok := new(big.Float).SetPrec(256).SetString(strings.TrimSpace(s))
	if !ok {
		return nil, fmt.Errorf("%q is not a number", s)
	}
	return f, nil
}

// FormatDate converts a date/time value to text. An empty format selects the default
// conversion; otherwise format is a strftime pattern.
func FormatDate(value any, format string) (string, error) {
	var t time.Time
	switch v := value.(type) {
	case time.Time:
		t = v
	case *time.Time:
		if v == nil {
			return "", nil
		}
		t = *v
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("unsupported date value of type %T", value)
	}

	// Time-of-day values have no date to print; date patterns fall back to the clock.
	if format == "" || dateless(t) && hasDateSpecifier(format) {
		return defaultDateText(t), nil
	}
	layout, err := strftime.Layout(format)
	if err != nil {
		return "", fmt.Errorf("date format %q: %w", format, err)
	}
	return t.Format(layout), nil
}

func dateless(t time.Time) bool {
	y, mo, d := t.Date()
	return y <= 1 && mo == time.January && d == 1
}

// hasDateSpecifier reports whether a strftime pattern prints any part of the date.
func hasDateSpecifier(format string) bool {
	for i := 0; i+1 < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		i++
		if strings.IndexByte("aAbBcCdDeFgGhjmuUVwWxyY", format[i]) >= 0 {
			return true
		}
	}
	return false
}

func defaultDateText(t time.Time) string {
	midnight := t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0

	switch {
	case dateless(t):
		return t.Format("15:04:05.999999999")
	case midnight:
		return t.Format("2006-01-02")
	default:
		return t.Format("2006-01-02 15:04:05.999999999")
	}
}

// FormatInterval converts an interval value to text. An empty format selects the default
// conversion; otherwise format may use %Y %m %d %H %M %S %f and %%.
func FormatInterval(value any, format string) (string, error) {
	var iv Interval
	switch v := value.(type) {
	case Interval:
		iv = v
	case time.Duration:
		iv = Interval{Micros: v.Microseconds()}
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("unsupported interval value of type %T", value)
	}

	if format == "" {
		return iv.String(), nil
	}
	return formatInterval(iv, format)
}

// formatInterval expands format against iv. The month and clock parts carry their own
// sign, written once before the first specifier of that part.
func formatInterval(iv Interval, format string) (string, error) {
	months, monthSign := int64(iv.Months), ""
	if months < 0 {
		months, monthSign = -months, "-"
	}
	micros, clockSign := iv.Micros, ""
	if micros < 0 {
		micros, clockSign = -micros, "-"
	}
	secs := micros / 1e6

	var b strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		i++
		if i == len(format) {
			return "", fmt.Errorf("interval format %q: dangling %%", format)
		}
		switch format[i] {
		case 'Y', 'm':
			b.WriteString(monthSign)
			monthSign = ""
		case 'H', 'M', 'S', 'f':
			b.WriteString(clockSign)
			clockSign = ""
		}
		switch format[i] {
		case 'Y':
			fmt.Fprintf(&b, "%d", months/12)
		case 'm':
			fmt.Fprintf(&b, "%02d", months%12)
		case 'd':
			fmt.Fprintf(&b, "%d", iv.Days)
		case 'H':
			fmt.Fprintf(&b, "%02d", secs/3600)
		case 'M':
			fmt.Fprintf(&b, "%02d", secs/60%60)
		case 'S':
			fmt.Fprintf(&b, "%02d", secs%60)
		case 'f':
			fmt.Fprintf(&b, "%06d", micros%1e6)
		case '%':
			b.WriteByte('%')
		default:
			return "", fmt.Errorf("interval format %q: unsupported specifier %%%c", format, format[i])
		}
	}
	return b.String(), nil
}
