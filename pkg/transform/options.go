package transform

import (
	"strings"
	"unicode/utf8"

	"github.com/lee-lindley/app-csv-pkg/pkg/config"
	"github.com/lee-lindley/app-csv-pkg/pkg/csverr"
)

// Options controls how rows are rendered. The zero value is not the default: use
// DefaultOptions and override fields.
type Options struct {
	EmitHeader            bool
	Separator             rune
	ProtectNumericStrings bool

	// Formats are handed to the conversion facility untouched. Empty means unset.
	NumberFormat   string
	DateFormat     string
	IntervalFormat string
}

// DefaultOptions returns the options used when a caller supplies none.
func DefaultOptions() Options {
	return Options{
		EmitHeader: config.DefaultEmitHeader,
		Separator:  config.DefaultSeparator,
	}
}

// Validate checks the options once, before any row is planned.
func (o Options) Validate() error {
	switch o.Separator {
	case 0:
		return csverr.NewInvalidOptions(config.OptionSeparator, "separator is required")
	case '"', '\r', '\n':
		return csverr.NewInvalidOptions(config.OptionSeparator, "separator cannot be a double quote or a line break")
	case utf8.RuneError:
		return csverr.NewInvalidOptions(config.OptionSeparator, "separator is not valid UTF-8")
	}
	return nil
}

// ParseSeparator converts option text into a separator rune. Exactly one character is
// accepted; the names "tab" and "\t" also resolve to a tab.
func ParseSeparator(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "tab", `\t`:
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, csverr.NewInvalidOptions(config.OptionSeparator, "separator must be exactly one character")
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

// ParseFlag resolves a Y/N style option value into a boolean. A nil value is only
// accepted when def is non-nil; emitHeader has no absent state once it reaches here.
func ParseFlag(option string, value *string, def *bool) (bool, error) {
	if value == nil {
		if def == nil {
			return false, csverr.NewInvalidOptions(option, "a value is required")
		}
		return *def, nil
	}
	switch strings.ToUpper(strings.TrimSpace(*value)) {
	case "Y", "YES", "TRUE", "T", "1":
		return true, nil
	case "N", "NO", "FALSE", "F", "0":
		return false, nil
	}
	return false, csverr.NewInvalidOptions(option, "expected 'Y' or 'N', got '"+*value+"'")
}
