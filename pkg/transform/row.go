package transform

import (
	"fmt"
	"strings"
)

// JoinFields joins encoded fragments with one separator between fields and none after
// the last.
func JoinFields(fragments []string, sep rune) string {
	return strings.Join(fragments, string(sep))
}

// EncodeHeader renders the header line. Names are always quoted.
func EncodeHeader(names []string, sep rune) string {
	fragments := make([]string, len(names))
	for i, name := range names {
		fragments[i] = `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
	return JoinFields(fragments, sep)
}

func errArity(got, want int) error {
	return fmt.Errorf("row has %d values, plan has %d columns", got, want)
}
