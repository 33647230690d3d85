package rewrite

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/lee-lindley/app-csv-pkg/pkg/csverr"
	"github.com/lee-lindley/app-csv-pkg/pkg/transform"
)

const defaultCall = "app_csv_pkg.ptf(R_app_csv_pkg_ptf, 'Y', ',', 'N', NULL, NULL, NULL)"

func TestRewrite(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		opts     transform.Options
		expected string
		mode     Mode
	}{
		{
			name:     "PlainSelect",
			input:    "SELECT a FROM t",
			opts:     transform.DefaultOptions(),
			expected: "WITH R_app_csv_pkg_ptf AS (\nSELECT a FROM t\n)\nSELECT * FROM " + defaultCall,
			mode:     ModeWrapped,
		},
		{
			name:     "TrailingSemicolonAndComment",
			input:    "  select a from t;  -- done\n",
			opts:     transform.DefaultOptions(),
			expected: "WITH R_app_csv_pkg_ptf AS (\nselect a from t\n)\nSELECT * FROM " + defaultCall,
			mode:     ModeWrapped,
		},
		{
			name:     "SingleCTE",
			input:    "WITH x AS (SELECT 1 FROM dual) SELECT * FROM x",
			opts:     transform.DefaultOptions(),
			expected: "WITH x AS (SELECT 1 FROM dual) \n, R_app_csv_pkg_ptf AS (\nSELECT * FROM x\n)\nSELECT * FROM " + defaultCall,
			mode:     ModeChained,
		},
		{
			name:  "ChainWithNestedParens",
			input: "with a as (select (1+2) n from dual), b as (select * from a where n in (select 3 from dual))\nselect * from (select n from b) q",
			opts:  transform.DefaultOptions(),
			expected: "with a as (select (1+2) n from dual), b as (select * from a where n in (select 3 from dual))\n" +
				"\n, R_app_csv_pkg_ptf AS (\nselect * from (select n from b) q\n)\nSELECT * FROM " + defaultCall,
			mode: ModeChained,
		},
		{
			name:  "LiteralsDoNotMoveSplit",
			input: "WITH x AS (SELECT ') SELECT' AS s FROM dual /* ) SELECT */) SELECT s FROM x",
			opts:  transform.DefaultOptions(),
			expected: "WITH x AS (SELECT ') SELECT' AS s FROM dual /* ) SELECT */) \n" +
				", R_app_csv_pkg_ptf AS (\nSELECT s FROM x\n)\nSELECT * FROM " + defaultCall,
			mode: ModeChained,
		},
		{
			name:     "ColumnListCTE",
			input:    "WITH x(a, b) AS (SELECT 1, 2) SELECT a FROM x",
			opts:     transform.DefaultOptions(),
			expected: "WITH x(a, b) AS (SELECT 1, 2) \n, R_app_csv_pkg_ptf AS (\nSELECT a FROM x\n)\nSELECT * FROM " + defaultCall,
			mode:     ModeChained,
		},
		{
			name:  "OptionsAsEscapedLiterals",
			input: "SELECT d FROM t",
			opts: transform.Options{
				EmitHeader:            false,
				Separator:             '|',
				ProtectNumericStrings: true,
				NumberFormat:          "%.2f",
				DateFormat:            "%Y-%m-%d'); DROP TABLE t; --",
			},
			expected: "WITH R_app_csv_pkg_ptf AS (\nSELECT d FROM t\n)\nSELECT * FROM " +
				"app_csv_pkg.ptf(R_app_csv_pkg_ptf, 'N', '|', 'Y', '%.2f', '%Y-%m-%d''); DROP TABLE t; --', NULL)",
			mode: ModeWrapped,
		},
		{
			name:     "AlreadyWired",
			input:    "SELECT * FROM APP_CSV_PKG.PTF(t, 'N')",
			opts:     transform.Options{Separator: ';'},
			expected: "SELECT * FROM APP_CSV_PKG.PTF(t, 'N')",
			mode:     ModeWired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, mode, err := RewriteMode(tt.input, tt.opts)
			if err != nil {
				t.Fatalf("RewriteMode() error = %v", err)
			}
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("RewriteMode() mismatch (-want +got):\n%s", diff)
			}
			if mode != tt.mode {
				t.Errorf("RewriteMode() mode = %s, want %s", mode, tt.mode)
			}

			again, err := Rewrite(got, tt.opts)
			if err != nil {
				t.Fatalf("second Rewrite() error = %v", err)
			}
			if diff := cmp.Diff(got, again); diff != "" {
				t.Errorf("Rewrite() is not idempotent (-first +second):\n%s", diff)
			}
		})
	}
}

func TestRewrite_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		opts    transform.Options
		wantErr error
	}{
		{name: "Empty", input: "  ;  ", opts: transform.DefaultOptions(), wantErr: csverr.ErrUnparsableQuery},
		{name: "WithWithoutSelect", input: "WITH x AS (SELECT 1)", opts: transform.DefaultOptions(), wantErr: csverr.ErrUnparsableQuery},
		{name: "WithUnbalanced", input: "WITH x AS (SELECT 1 SELECT * FROM x", opts: transform.DefaultOptions(), wantErr: csverr.ErrUnparsableQuery},
		{name: "WithUnterminatedString", input: "WITH x AS (SELECT 'a) SELECT * FROM x", opts: transform.DefaultOptions(), wantErr: csverr.ErrUnparsableQuery},
		{name: "WithInsert", input: "WITH x AS (SELECT 1) INSERT INTO t SELECT * FROM x", opts: transform.DefaultOptions(), wantErr: csverr.ErrUnparsableQuery},
		{name: "BadSeparator", input: "SELECT 1", opts: transform.Options{Separator: '"'}, wantErr: csverr.ErrInvalidOptions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Rewrite(tt.input, tt.opts)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Rewrite() error = %v, want %v", err, tt.wantErr)
			}
			if got != "" {
				t.Errorf("Rewrite() returned %q alongside an error", got)
			}
		})
	}
}

func TestLiteral(t *testing.T) {
	tests := map[string]string{
		"":       "''",
		"abc":    "'abc'",
		"it's":   "'it''s'",
		"''":     "''''''",
		`a\b`:    `'a\b'`,
		"x\ny":   "'x\ny'",
		"%Y'%m'": "'%Y''%m'''",
	}
	for in, want := range tests {
		if got := Literal(in); got != want {
			t.Errorf("Literal(%q) = %q, want %q", in, got, want)
		}
	}
}
