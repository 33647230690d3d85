package query

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestClassifier_Classify(t *testing.T) {
	classifier := NewClassifier()

	tests := []struct {
		sql      string
		expected ClassifyResult
	}{
		{"SELECT 1", ClassifyResult{Type: StatementTypeQuery, Keyword: "SELECT", IsQuery: true}},
		{"  with a as (select 1) select * from a", ClassifyResult{Type: StatementTypeQuery, Keyword: "WITH", IsQuery: true}},
		{"(SELECT 1) UNION (SELECT 2)", ClassifyResult{Type: StatementTypeQuery, Keyword: "SELECT", IsQuery: true}},
		{"-- report\n/* v2 */ SELECT 1", ClassifyResult{Type: StatementTypeQuery, Keyword: "SELECT", IsQuery: true}},
		{"VALUES (1), (2)", ClassifyResult{Type: StatementTypeQuery, Keyword: "VALUES", IsQuery: true}},
		{"INSERT INTO t VALUES (1)", ClassifyResult{Type: StatementTypeDML, Keyword: "INSERT"}},
		{"merge into t using s on 1=1", ClassifyResult{Type: StatementTypeDML, Keyword: "MERGE"}},
		{"CREATE TABLE t (id INT)", ClassifyResult{Type: StatementTypeDDL, Keyword: "CREATE"}},
		{"DROP TABLE t", ClassifyResult{Type: StatementTypeDDL, Keyword: "DROP"}},
		{"BEGIN", ClassifyResult{Type: StatementTypeTransaction, Keyword: "BEGIN"}},
		{"PRAGMA version", ClassifyResult{Type: StatementTypeOther, Keyword: "PRAGMA"}},
		{"", ClassifyResult{Type: StatementTypeOther}},
		{"-- only a comment", ClassifyResult{Type: StatementTypeOther}},
	}

	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			got := classifier.Classify(tt.sql)
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("Classify(%q) mismatch (-want +got):\n%s", tt.sql, diff)
			}
		})
	}
}

func TestExecutor_RejectsStatementByType(t *testing.T) {
	executor := &Executor{classifier: NewClassifier()}

	tests := []struct {
		sql  string
		want string
	}{
		{"DELETE FROM orders", "[UNPARSABLE_QUERY] only queries can be exported, DELETE is a DML statement"},
		{"create table t (id int)", "[UNPARSABLE_QUERY] only queries can be exported, CREATE is a DDL statement"},
		{"COMMIT", "[UNPARSABLE_QUERY] only queries can be exported, COMMIT is a transaction control statement"},
		{"PRAGMA version", "[UNPARSABLE_QUERY] only queries can be exported, PRAGMA is a non-query statement"},
		{"  -- nothing", "[UNPARSABLE_QUERY] empty SQL text"},
		{"SELECT 1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			err := executor.checkQuery(tt.sql)
			got := ""
			if err != nil {
				got = err.Error()
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("checkQuery(%q) mismatch (-want +got):\n%s", tt.sql, diff)
			}
		})
	}
}
