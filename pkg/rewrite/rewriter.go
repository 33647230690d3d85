// Package rewrite restructures SQL text so that it invokes the CSV row transform, and
// splits such text back into the inner query and the transform's options.
package rewrite

import (
	"fmt"
	"strings"

	"github.com/lee-lindley/app-csv-pkg/pkg/config"
	"github.com/lee-lindley/app-csv-pkg/pkg/csverr"
	"github.com/lee-lindley/app-csv-pkg/pkg/transform"
)

// Mode tells how Rewrite produced its result.
type Mode string

// Rewrite modes.
const (
	ModeWired   Mode = "wired"   // text already invoked the transform
	ModeWrapped Mode = "wrapped" // text was wrapped as a single named subquery
	ModeChained Mode = "chained" // a subquery was spliced into an existing WITH chain
)

// IsWired reports whether sql already references the transform invocation.
func IsWired(sql string) bool {
	return strings.Contains(strings.ToLower(sql), config.InvocationMarker)
}

// Rewrite returns sql restructured to select from the transform invocation, with opts
// embedded as literals. Text that already invokes the transform is returned unchanged
// and opts are ignored.
func Rewrite(sql string, opts transform.Options) (string, error) {
	out, _, err := RewriteMode(sql, opts)
	return out, err
}

// RewriteMode is Rewrite that also reports which path was taken.
func RewriteMode(sql string, opts transform.Options) (string, Mode, error) {
	if IsWired(sql) {
		return sql, ModeWired, nil
	}
	if err := opts.Validate(); err != nil {
		return "", "", err
	}

	tokens, scanErr := scan(sql)
	start, end := statementBounds(sql, tokens, scanErr)
	if start >= end {
		return "", "", csverr.NewUnparsableQuery("empty SQL text")
	}
	body := sql[start:end]
	call := Invocation(config.RelationName, opts)

	if len(tokens) == 0 || !tokens[0].is(sql, "WITH") {
		return "WITH " + config.RelationName + " AS (\n" + body + "\n)\nSELECT * FROM " + call, ModeWrapped, nil
	}

	if scanErr != nil {
		return "", "", csverr.NewUnparsableQuery(fmt.Sprintf("cannot scan WITH clause: %v", scanErr))
	}
	split := finalSelect(sql, tokens)
	if split < start || split >= end {
		return "", "", csverr.NewUnparsableQuery("no top-level SELECT follows the WITH clause")
	}

	return sql[start:split] + "\n, " + config.RelationName + " AS (\n" + sql[split:end] + "\n)\nSELECT * FROM " + call, ModeChained, nil
}

// statementBounds locates the statement inside sql, leaving out surrounding whitespace,
// trailing comments and trailing statement terminators.
func statementBounds(sql string, tokens []token, scanErr error) (int, int) {
	if scanErr != nil {
		trimmed := strings.TrimSpace(sql)
		start := strings.Index(sql, trimmed)
		return start, start + len(trimmed)
	}
	n := len(tokens)
	for n > 0 && tokens[n-1].kind == tokPunct && sql[tokens[n-1].start] == ';' {
		n--
	}
	if n == 0 {
		return 0, 0
	}
	start := len(sql) - len(strings.TrimLeft(sql, " \t\r\n\f\v"))
	return start, tokens[n-1].end
}

// finalSelect returns the offset of the SELECT that starts the final query of a WITH
// chain: the first top-level SELECT directly after a parenthesis closing back to depth
// zero. It returns -1 when there is none.
func finalSelect(sql string, tokens []token) int {
	for i := 1; i+1 < len(tokens); i++ {
		tk := tokens[i]
		if tk.kind != tokClose || tk.depth != 0 {
			continue
		}
		if next := tokens[i+1]; next.depth == 0 && next.is(sql, "SELECT") {
			return next.start
		}
	}
	return -1
}

// Invocation renders the transform call over relation with opts as literal arguments.
func Invocation(relation string, opts transform.Options) string {
	args := []string{
		relation,
		flagLiteral(opts.EmitHeader),
		Literal(string(opts.Separator)),
		flagLiteral(opts.ProtectNumericStrings),
		nullableLiteral(opts.NumberFormat),
		nullableLiteral(opts.DateFormat),
		nullableLiteral(opts.IntervalFormat),
	}
	return config.InvocationMarker + "(" + strings.Join(args, ", ") + ")"
}

// Literal quotes s as a SQL string literal, doubling single quotes.
func Literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func nullableLiteral(s string) string {
	if s == "" {
		return "NULL"
	}
	return Literal(s)
}

func flagLiteral(b bool) string {
	if b {
		return "'Y'"
	}
	return "'N'"
}
