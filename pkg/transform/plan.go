// Package transform turns rows of an arbitrary row source into separated-value text lines.
//
// Rendering is a two-step API: BuildPlan inspects the shape of the row set once, then
// the plan encodes every row. Stream wraps both steps around a RowSource.
package transform

import (
	"github.com/lee-lindley/app-csv-pkg/pkg/csverr"
)

// DeclaredType is the text-relevant family of a column's database type.
type DeclaredType int

// Declared types. TypeBinary and TypeTransientDateTime have no text representation and
// are rejected by BuildPlan.
const (
	TypeText DeclaredType = iota
	TypeNumber
	TypeDateTime
	TypeInterval
	TypeOther
	TypeBinary
	TypeTransientDateTime
)

var declaredTypeNames = [...]string{"TEXT", "NUMBER", "DATETIME", "INTERVAL", "OTHER", "BINARY", "TRANSIENT_DATETIME"}

func (t DeclaredType) String() string {
	if t < 0 || int(t) >= len(declaredTypeNames) {
		return "UNKNOWN"
	}
	return declaredTypeNames[t]
}

// ColumnShape describes one column of the input row set.
type ColumnShape struct {
	Name string
	Type DeclaredType
	// DatabaseType is the engine's own type name, kept for error messages.
	DatabaseType string
}

// PolicyKind selects how a column value becomes text.
type PolicyKind int

// Policy kinds.
const (
	PolicyRawText PolicyKind = iota
	PolicyProtectedText
	PolicyFormattedNumber
	PolicyFormattedDate
	PolicyFormattedInterval
)

// ConversionPolicy is the per-column conversion decided at plan time.
type ConversionPolicy struct {
	Kind PolicyKind
	// Format is empty when the default conversion applies.
	Format string
}

// PlannedColumn pairs an input column with its conversion policy.
type PlannedColumn struct {
	Shape  ColumnShape
	Policy ConversionPolicy
}

// Plan is the immutable output description of one invocation. It is safe for
// concurrent use.
type Plan struct {
	columns []PlannedColumn
	opts    Options
	header  string
}

// BuildPlan validates opts and derives one conversion policy per column, in column order.
// It performs no I/O and returns the same plan for the same inputs.
func BuildPlan(columns []ColumnShape, opts Options) (*Plan, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	planned := make([]PlannedColumn, len(columns))
	names := make([]string, len(columns))
	for i, col := range columns {
		policy, err := policyFor(col, opts)
		if err != nil {
			return nil, err
		}
		planned[i] = PlannedColumn{Shape: col, Policy: policy}
		names[i] = col.Name
	}

	p := &Plan{columns: planned, opts: opts}
	if opts.EmitHeader {
		p.header = EncodeHeader(names, opts.Separator)
	}
	return p, nil
}

func policyFor(col ColumnShape, opts Options) (ConversionPolicy, error) {
	switch col.Type {
	case TypeText:
		if opts.ProtectNumericStrings {
			return ConversionPolicy{Kind: PolicyProtectedText}, nil
		}
		return ConversionPolicy{Kind: PolicyRawText}, nil
	case TypeNumber:
		return ConversionPolicy{Kind: PolicyFormattedNumber, Format: opts.NumberFormat}, nil
	case TypeDateTime:
		return ConversionPolicy{Kind: PolicyFormattedDate, Format: opts.DateFormat}, nil
	case TypeInterval:
		return ConversionPolicy{Kind: PolicyFormattedInterval, Format: opts.IntervalFormat}, nil
	case TypeOther:
		return ConversionPolicy{Kind: PolicyRawText}, nil
	case TypeTransientDateTime:
		return ConversionPolicy{}, csverr.NewUnsupportedColumnType(col.Name, databaseType(col)).WithData("temporal", true)
	default:
		return ConversionPolicy{}, csverr.NewUnsupportedColumnType(col.Name, databaseType(col))
	}
}

func databaseType(col ColumnShape) string {
	if col.DatabaseType != "" {
		return col.DatabaseType
	}
	return col.Type.String()
}

// Columns returns a copy of the planned columns.
func (p *Plan) Columns() []PlannedColumn {
	out := make([]PlannedColumn, len(p.columns))
	copy(out, p.columns)
	return out
}

// Options returns the validated options the plan was built with.
func (p *Plan) Options() Options {
	return p.opts
}

// Header returns the header line, or "" when no header is emitted.
func (p *Plan) Header() string {
	return p.header
}

// EmitsHeader reports whether streams over this plan start with a header row.
func (p *Plan) EmitsHeader() bool {
	return p.opts.EmitHeader
}

// EncodeRow renders one input row. values must have one entry per planned column.
func (p *Plan) EncodeRow(values []any) (string, error) {
	return p.encodeRow(0, values)
}

func (p *Plan) encodeRow(ordinal int64, values []any) (string, error) {
	if len(values) != len(p.columns) {
		return "", csverr.NewRowConversion("", ordinal, errArity(len(values), len(p.columns)))
	}
	fragments := make([]string, len(values))
	for i, v := range values {
		frag, err := EncodeField(v, p.columns[i].Policy, p.opts)
		if err != nil {
			return "", csverr.NewRowConversion(p.columns[i].Shape.Name, ordinal, err)
		}
		fragments[i] = frag
	}
	return JoinFields(fragments, p.opts.Separator), nil
}
