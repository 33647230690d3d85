package transform

import (
	"fmt"
	"regexp"
	"strings"
)

// numericString matches text a spreadsheet would re-interpret as a number.
var numericString = regexp.MustCompile(`^\s*[+-]?(\d+\.?\d*|\.\d+)\s*$`)

// EncodeField converts one value to text per policy and quotes it for the separator in
// opts. A nil value and empty text both encode to an empty, unquoted fragment.
func EncodeField(value any, policy ConversionPolicy, opts Options) (string, error) {
	if value == nil {
		return "", nil
	}

	text, err := toText(value, policy)
	if err != nil {
		return "", err
	}

	if policy.Kind == PolicyProtectedText && numericString.MatchString(text) {
		text = `="` + text + `"`
	}

	return quoteField(text, opts.Separator), nil
}

func toText(value any, policy ConversionPolicy) (string, error) {
	switch policy.Kind {
	case PolicyFormattedNumber:
		return FormatNumber(value, policy.Format)
	case PolicyFormattedDate:
		return FormatDate(value, policy.Format)
	case PolicyFormattedInterval:
		return FormatInterval(value, policy.Format)
	default:
		return plainText(value), nil
	}
}

func plainText(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// quoteField wraps text in double quotes when it contains the separator, a double quote
// or a line break, doubling embedded quotes.
func quoteField(text string, sep rune) string {
	if !needsQuote(text, sep) {
		return text
	}
	return `"` + strings.ReplaceAll(text, `"`, `""`) + `"`
}

func needsQuote(text string, sep rune) bool {
	for _, r := range text {
		switch r {
		case '"', '\n', '\r', sep:
			return true
		}
	}
	return false
}
