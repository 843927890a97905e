package sqlpath

import (
	"fmt"
	"regexp"
	"strings"
)

// forbiddenKeywords are statement types and pragmas that must never reach the
// database. The allow-list is effectively SELECT/WITH.
var forbiddenKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "CREATE",
	"REPLACE", "TRUNCATE", "ATTACH", "DETACH", "PRAGMA", "VACUUM", "REINDEX", "GRANT",
}

var keywordPattern = func() *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(` + strings.Join(forbiddenKeywords, "|") + `)\b`)
}()

// ValidateReadOnly checks that sqlText is a single read-only statement.
// Violations fail closed with ErrUnsafeQuery; the statement is never executed.
func ValidateReadOnly(sqlText string) error {
	trimmed := strings.TrimSpace(sqlText)
	trimmed = strings.TrimSuffix(trimmed, ";")

	if trimmed == "" {
		return &QueryError{Kind: ErrUnsafeQuery, Statement: sqlText, Detail: "empty statement"}
	}
	if strings.Contains(trimmed, ";") {
		return &QueryError{Kind: ErrUnsafeQuery, Statement: sqlText, Detail: "multiple statements"}
	}

	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return &QueryError{Kind: ErrUnsafeQuery, Statement: sqlText, Detail: "only read queries are allowed"}
	}

	if match := keywordPattern.FindString(trimmed); match != "" {
		return &QueryError{
			Kind:      ErrUnsafeQuery,
			Statement: sqlText,
			Detail:    fmt.Sprintf("forbidden keyword %s", strings.ToUpper(match)),
		}
	}

	return nil
}

// CheckTableScope reports tables referenced by sqlText that are known to the
// schema but outside the allowed set. An empty result means the statement is
// within scope. Unknown identifiers are left to the database engine to reject.
func CheckTableScope(sqlText string, knownTables, allowedTables []string) []string {
	allowed := make(map[string]bool, len(allowedTables))
	for _, t := range allowedTables {
		allowed[strings.ToLower(t)] = true
	}

	var violations []string
	for _, t := range knownTables {
		if allowed[strings.ToLower(t)] {
			continue
		}
		pattern := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(t) + `\b`)
		if pattern.MatchString(sqlText) {
			violations = append(violations, t)
		}
	}
	return violations
}

// stripCodeFences removes markdown code fences LLMs often wrap SQL in.
func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	// Drop an optional language tag like "sql".
	if idx := strings.Index(trimmed, "\n"); idx >= 0 && !strings.ContainsAny(trimmed[:idx], " \t(") {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
