package rewrite

import (
	"fmt"
	"strings"

	"github.com/blastrain/vitess-sqlparser/sqlparser"

	"github.com/lee-lindley/app-csv-pkg/pkg/config"
	"github.com/lee-lindley/app-csv-pkg/pkg/csverr"
	"github.com/lee-lindley/app-csv-pkg/pkg/transform"
)

// maxArguments is the relation plus the six options.
const maxArguments = 7

// Call is a transform invocation located inside SQL text.
type Call struct {
	// Relation is the first argument as written in the SQL text.
	Relation string
	Options  transform.Options
	// InnerSQL is the original text with the call replaced by Relation, i.e. the query
	// producing the rows to transform.
	InnerSQL string
}

// ParseInvocation finds the transform call in sql and decodes its literal arguments.
// Omitted trailing arguments take their defaults; an explicit NULL header is rejected.
func ParseInvocation(sql string) (*Call, error) {
	tokens, err := scan(sql)
	if err != nil {
		return nil, csverr.NewUnparsableQuery(fmt.Sprintf("cannot scan SQL text: %v", err))
	}

	open := findCall(sql, tokens)
	if open < 0 {
		return nil, csverr.NewUnparsableQuery("no " + config.InvocationMarker + "(...) call found")
	}
	closing := -1
	for i := open + 1; i < len(tokens); i++ {
		if tokens[i].kind == tokClose && tokens[i].depth == tokens[open].depth {
			closing = i
			break
		}
	}
	if closing < 0 {
		return nil, csverr.NewUnparsableQuery("unterminated " + config.InvocationMarker + " call")
	}

	relation, args, err := splitArguments(sql, tokens[open+1:closing], tokens[open].depth+1)
	if err != nil {
		return nil, err
	}
	values, err := decodeArguments(args)
	if err != nil {
		return nil, err
	}
	opts, err := optionsFromArguments(values)
	if err != nil {
		return nil, err
	}

	callStart := tokens[open-3].start
	callEnd := tokens[closing].end
	return &Call{
		Relation: relation,
		Options:  opts,
		InnerSQL: sql[:callStart] + relation + sql[callEnd:],
	}, nil
}

// findCall returns the index of the '(' token that opens the transform call.
func findCall(sql string, tokens []token) int {
	pkg, fn, _ := strings.Cut(config.InvocationMarker, ".")
	for i := 3; i < len(tokens); i++ {
		if tokens[i].kind == tokOpen &&
			tokens[i-3].is(sql, pkg) &&
			tokens[i-2].kind == tokPunct && sql[tokens[i-2].start] == '.' &&
			tokens[i-1].is(sql, fn) {
			return i
		}
	}
	return -1
}

// splitArguments separates the relation argument from the option arguments. Option
// literals are re-rendered for the parser: standard SQL text has no backslash escapes.
func splitArguments(sql string, inner []token, depth int) (string, []string, error) {
	var (
		parts   []string
		current strings.Builder
		first   = -1
		last    = -1
	)
	var relation string
	flush := func() {
		if len(parts) == 0 && first >= 0 {
			relation = strings.TrimSpace(sql[inner[first].start:inner[last].end])
		}
		parts = append(parts, strings.TrimSpace(current.String()))
		current.Reset()
		first, last = -1, -1
	}

	for i, tk := range inner {
		if tk.kind == tokPunct && tk.depth == depth && sql[tk.start] == ',' {
			flush()
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
		if tk.kind == tokString {
			current.WriteString(parserLiteral(unquote(tk.text(sql))))
		} else {
			current.WriteString(tk.text(sql))
		}
		current.WriteByte(' ')
	}
	flush()

	if relation == "" {
		return "", nil, csverr.NewInvalidOptions("relation", "the first argument must name the relation to transform")
	}
	if len(parts) > maxArguments {
		return "", nil, csverr.NewInvalidOptions("arguments", fmt.Sprintf("at most %d arguments are accepted, got %d", maxArguments, len(parts)))
	}
	return relation, parts[1:], nil
}

// parserLiteral quotes s for the MySQL-dialect parser, which treats backslash as an
// escape character.
func parserLiteral(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// decodeArguments parses each option argument as a literal. A nil entry is SQL NULL.
func decodeArguments(args []string) ([]*string, error) {
	if len(args) == 0 {
		return nil, nil
	}
	stmt, err := sqlparser.Parse("select " + strings.Join(args, ", ") + " from dual")
	if err != nil {
		return nil, csverr.NewInvalidOptions("arguments", fmt.Sprintf("option arguments must be literals: %v", err))
	}
	sel, ok := stmt.(*sqlparser.Select)
	if !ok || len(sel.SelectExprs) != len(args) {
		return nil, csverr.NewInvalidOptions("arguments", "option arguments must be literals")
	}

	values := make([]*string, len(args))
	for i, se := range sel.SelectExprs {
		ae, ok := se.(*sqlparser.AliasedExpr)
		if !ok {
			return nil, csverr.NewInvalidOptions("arguments", fmt.Sprintf("argument %d is not a literal", i+2))
		}
		switch v := ae.Expr.(type) {
		case *sqlparser.NullVal:
			values[i] = nil
		case *sqlparser.SQLVal:
			s := string(v.Val)
			values[i] = &s
		default:
			return nil, csverr.NewInvalidOptions("arguments",
				fmt.Sprintf("argument %d is not a literal: %s", i+2, sqlparser.String(ae.Expr)))
		}
	}
	return values, nil
}

// optionsFromArguments maps positional values onto Options:
// header, separator, protect, number format, date format, interval format.
func optionsFromArguments(values []*string) (transform.Options, error) {
	opts := transform.DefaultOptions()
	present := func(i int) bool { return i < len(values) }

	if present(0) {
		b, err := transform.ParseFlag(config.OptionHeader, values[0], nil)
		if err != nil {
			return opts, err
		}
		opts.EmitHeader = b
	}
	if present(1) {
		if values[1] == nil {
			return opts, csverr.NewInvalidOptions(config.OptionSeparator, "separator cannot be NULL")
		}
		sep, err := transform.ParseSeparator(*values[1])
		if err != nil {
			return opts, err
		}
		opts.Separator = sep
	}
	if present(2) {
		def := config.DefaultProtectNumericStrings
		b, err := transform.ParseFlag(config.OptionProtectNumericStrings, values[2], &def)
		if err != nil {
			return opts, err
		}
		opts.ProtectNumericStrings = b
	}
	formats := []*string{&opts.NumberFormat, &opts.DateFormat, &opts.IntervalFormat}
	for i, dst := range formats {
		if present(3+i) && values[3+i] != nil {
			*dst = *values[3+i]
		}
	}
	return opts, opts.Validate()
}
