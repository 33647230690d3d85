package query

import (
	"strings"
)

// StatementType represents the category of a SQL statement.
type StatementType int

// Statement types.
const (
	StatementTypeQuery       StatementType = iota // SELECT, WITH, VALUES, TABLE
	StatementTypeDML                              // INSERT, UPDATE, DELETE, MERGE, COPY
	StatementTypeDDL                              // CREATE, DROP, ALTER, TRUNCATE
	StatementTypeTransaction                      // BEGIN, COMMIT, ROLLBACK
	StatementTypeOther                            // Unknown or unsupported
)

// String returns the category name used in error messages.
func (t StatementType) String() string {
	switch t {
	case StatementTypeQuery:
		return "query"
	case StatementTypeDML:
		return "DML"
	case StatementTypeDDL:
		return "DDL"
	case StatementTypeTransaction:
		return "transaction control"
	default:
		return "non-query"
	}
}

// Classifier provides SQL statement classification functionality.
type Classifier struct{}

// NewClassifier creates a new SQL classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// ClassifyResult contains the classification result of a SQL statement.
type ClassifyResult struct {
	Type    StatementType
	Keyword string // Leading keyword, upper-cased
	IsQuery bool
}

// Classify analyzes a SQL statement and returns its classification. Leading comments
// and opening parentheses are skipped.
func (c *Classifier) Classify(sql string) ClassifyResult {
	kw := leadingKeyword(sql)
	res := ClassifyResult{Keyword: kw, Type: StatementTypeOther}

	switch kw {
	case "SELECT", "WITH", "VALUES", "TABLE", "FROM":
		res.Type = StatementTypeQuery
		res.IsQuery = true
	case "INSERT", "UPDATE", "DELETE", "MERGE", "COPY", "UPSERT", "REPLACE":
		res.Type = StatementTypeDML
	case "CREATE", "DROP", "ALTER", "TRUNCATE", "COMMENT", "GRANT", "REVOKE":
		res.Type = StatementTypeDDL
	case "BEGIN", "START", "COMMIT", "ROLLBACK", "SAVEPOINT", "END":
		res.Type = StatementTypeTransaction
	}
	return res
}

// leadingKeyword returns the first word of sql, skipping whitespace, comments and
// opening parentheses.
func leadingKeyword(sql string) string {
	s := sql
	for {
		s = strings.TrimLeft(s, " \t\r\n\f\v(")
		switch {
		case strings.HasPrefix(s, "--"):
			nl := strings.IndexByte(s, '\n')
			if nl < 0 {
				return ""
			}
			s = s[nl+1:]
		case strings.HasPrefix(s, "/*"):
			end := strings.Index(s, "*/")
			if end < 0 {
				return ""
			}
			s = s[end+2:]
		default:
			end := strings.IndexFunc(s, func(r rune) bool {
				return !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
			})
			if end < 0 {
				end = len(s)
			}
			return strings.ToUpper(s[:end])
		}
	}
}
