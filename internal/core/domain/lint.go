package domain

import (
	"fmt"
	"strings"
)

// LintIssue is a single static analysis finding.
type LintIssue struct {
	File    string
	Line    int
	Column  int
	Rule    string
	Message string
}

// String formats the issue as "file:line:col rule: message".
func (i LintIssue) String() string {
	return fmt.Sprintf("%s:%d:%d %s: %s", i.File, i.Line, i.Column, i.Rule, i.Message)
}

// LintError reports the issues found by a lint stage.
// It matches ErrLintFailed with errors.Is.
type LintError struct {
	Stage  string
	Issues []LintIssue
}

func (e *LintError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d issue(s)", e.Stage, len(e.Issues))
	for _, issue := range e.Issues {
		b.WriteString("\n  ")
		b.WriteString(issue.String())
	}
	return b.String()
}

// Unwrap returns the lint failure category.
func (e *LintError) Unwrap() error {
	return ErrLintFailed
}
