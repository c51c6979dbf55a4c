package stages

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/js"

	"go.trai.ch/basis/internal/core/domain"
	"go.trai.ch/basis/internal/core/ports"
	"go.trai.ch/basis/internal/scss"
	"go.trai.ch/basis/internal/stylesheet"
)

// Sass lint rules.
const (
	ruleTrailingWhitespace = "no-trailing-whitespace"
	ruleIndentation        = "indentation"
	ruleNoImportant        = "no-important"
	ruleNoIDs              = "no-ids"
	ruleZeroUnit           = "zero-unit"
	ruleFinalNewline       = "final-newline"
	ruleNoDebug            = "no-debug"
)

// ruleSyntax reports unparsable input. It cannot be switched off.
const ruleSyntax = "syntax"

// Script lint rules.
const (
	ruleEqEqEq         = "eqeqeq"
	ruleNoDebugger     = "no-debugger"
	ruleNoVar          = "no-var"
	ruleTrailingSpaces = "no-trailing-spaces"
)

var (
	sassRules = []string{ruleTrailingWhitespace, ruleIndentation, ruleNoImportant, ruleNoIDs, ruleZeroUnit, ruleFinalNewline, ruleNoDebug}
	jsRules   = []string{ruleEqEqEq, ruleNoDebugger, ruleNoVar, ruleTrailingSpaces}

	idSelector  = regexp.MustCompile(`#[A-Za-z_-][\w-]*`)
	interpolate = regexp.MustCompile(`#\{[^}]*\}`)
	zeroUnit    = regexp.MustCompile(`(^|[\s:(,])(0(?:px|em|rem|pt|pc|cm|mm|in|ex|ch|vw|vh|vmin|vmax))\b`)
)

// enabledRules returns the enabled rules: every known rule unless switched
// off in overrides. Unknown rule names are rejected.
func enabledRules(known []string, overrides map[string]bool) (map[string]bool, error) {
	enabled := make(map[string]bool, len(known))
	for _, r := range known {
		enabled[r] = true
	}
	for name, on := range overrides {
		if !slices.Contains(known, name) {
			return nil, domain.Tag(domain.ErrInvalidStageOption, "option", "rules."+name+": unknown rule")
		}
		enabled[name] = on
	}
	return enabled, nil
}

type lintStage struct {
	kind  domain.StageKind
	ext   string
	rules map[string]bool
	check func(rules map[string]bool, f domain.File) []domain.LintIssue
}

func newSassLint(_ *Registry, _ string, o domain.Options) (ports.Stage, error) {
	return newLint(o, domain.StageSassLint, ".scss", sassRules, lintSass)
}

func newJSLint(_ *Registry, _ string, o domain.Options) (ports.Stage, error) {
	return newLint(o, domain.StageJSLint, ".js", jsRules, lintJS)
}

func newLint(
	o domain.Options,
	kind domain.StageKind,
	ext string,
	known []string,
	check func(map[string]bool, domain.File) []domain.LintIssue,
) (ports.Stage, error) {
	opts := readOptions(o, "rules")
	overrides := opts.flags("rules")
	if opts.err != nil {
		return nil, opts.err
	}
	rules, err := enabledRules(known, overrides)
	if err != nil {
		return nil, err
	}
	return &lintStage{kind: kind, ext: ext, rules: rules, check: check}, nil
}

func (s *lintStage) Name() string { return string(s.kind) }

// Transform checks every matching file. It consumes its input: a clean run
// returns no files, any issue fails with a *domain.LintError.
func (s *lintStage) Transform(ctx context.Context, files []domain.File) ([]domain.File, error) {
	var issues []domain.LintIssue
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.Ext() != s.ext {
			continue
		}
		issues = append(issues, s.check(s.rules, f)...)
	}
	if len(issues) > 0 {
		return nil, &domain.LintError{Stage: s.Name(), Issues: issues}
	}
	return nil, nil
}

func lintSass(rules map[string]bool, f domain.File) []domain.LintIssue {
	var issues []domain.LintIssue
	report := func(line, col int, rule, msg string) {
		issues = append(issues, domain.LintIssue{File: f.SourcePath(), Line: line, Column: col, Rule: rule, Message: msg})
	}

	if err := scss.Parse(f.SourcePath(), f.Contents); err != nil {
		var se *scss.Error
		if errors.As(err, &se) {
			report(se.Line, se.Column, ruleSyntax, se.Message)
		} else {
			report(1, 1, ruleSyntax, err.Error())
		}
		return issues
	}

	inComment := false
	lines := strings.Split(string(f.Contents), "\n")
	for i, raw := range lines {
		n := i + 1
		line := strings.TrimSuffix(raw, "\r")
		if i == len(lines)-1 && line == "" {
			break
		}

		if rules[ruleTrailingWhitespace] {
			if trimmed := strings.TrimRight(line, " \t"); len(trimmed) < len(line) {
				report(n, len(trimmed)+1, ruleTrailingWhitespace, "trailing whitespace")
			}
		}
		if rules[ruleIndentation] {
			indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
			if strings.Contains(indent, " ") && strings.Contains(indent, "\t") {
				report(n, 1, ruleIndentation, "mixed tabs and spaces")
			}
		}

		var code string
		code, inComment = stripSassComments(line, inComment)
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}

		if rules[ruleNoImportant] {
			if idx := strings.Index(code, "!important"); idx >= 0 {
				report(n, idx+1, ruleNoImportant, "!important should not be used")
			}
		}
		if rules[ruleNoDebug] && strings.HasPrefix(trimmed, "@debug") {
			report(n, strings.Index(code, "@debug")+1, ruleNoDebug, "@debug statements should be removed")
		}
		if rules[ruleNoIDs] && strings.HasSuffix(trimmed, "{") && !strings.HasPrefix(trimmed, "@") {
			selector := interpolate.ReplaceAllStringFunc(code, func(s string) string { return strings.Repeat(" ", len(s)) })
			if loc := idSelector.FindStringIndex(selector); loc != nil {
				report(n, loc[0]+1, ruleNoIDs, fmt.Sprintf("id selector %s should not be used", selector[loc[0]:loc[1]]))
			}
		}
		if rules[ruleZeroUnit] && strings.Contains(code, ":") && !strings.HasSuffix(trimmed, "{") {
			for _, m := range zeroUnit.FindAllStringSubmatchIndex(code, -1) {
				report(n, m[4]+1, ruleZeroUnit, fmt.Sprintf("%s should be written without a unit", code[m[4]:m[5]]))
			}
		}
	}

	if rules[ruleFinalNewline] && len(f.Contents) > 0 && !bytes.HasSuffix(f.Contents, []byte("\n")) {
		report(len(lines), len(lines[len(lines)-1])+1, ruleFinalNewline, "files must end with a newline")
	}
	return issues
}

// stripSassComments blanks out comments, keeping column positions.
func stripSassComments(line string, inComment bool) (string, bool) {
	b := []byte(line)
	var quote byte
	for i := 0; i < len(b); i++ {
		switch {
		case inComment:
			if b[i] == '*' && i+1 < len(b) && b[i+1] == '/' {
				b[i], b[i+1] = ' ', ' '
				i++
				inComment = false
				continue
			}
			b[i] = ' '
		case quote != 0:
			if b[i] == '\\' {
				i++
			} else if b[i] == quote {
				quote = 0
			}
		case b[i] == '"' || b[i] == '\'':
			quote = b[i]
		case b[i] == '/' && i+1 < len(b) && b[i+1] == '*':
			b[i], b[i+1] = ' ', ' '
			i++
			inComment = true
		case b[i] == '/' && i+1 < len(b) && b[i+1] == '/' && (i == 0 || b[i-1] != ':'):
			for j := i; j < len(b); j++ {
				b[j] = ' '
			}
			return string(b), inComment
		}
	}
	return string(b), inComment
}

func lintJS(rules map[string]bool, f domain.File) []domain.LintIssue {
	var issues []domain.LintIssue
	report := func(line, col int, rule, msg string) {
		issues = append(issues, domain.LintIssue{File: f.SourcePath(), Line: line, Column: col, Rule: rule, Message: msg})
	}

	if _, err := js.Parse(parse.NewInputBytes(f.Contents), js.Options{}); err != nil {
		var pe *parse.Error
		if errors.As(err, &pe) {
			report(pe.Line, pe.Column, ruleSyntax, pe.Message)
		} else {
			report(1, 1, ruleSyntax, err.Error())
		}
		return issues
	}

	index := stylesheet.NewLineIndex(f.Contents)
	at := func(offset int) (int, int) {
		line, col := index.Position(offset)
		return line + 1, col + 1
	}

	l := js.NewLexer(parse.NewInputBytes(f.Contents))
	offset := 0
	prev := js.ErrorToken
	for {
		tt, data := l.Next()
		if tt == js.ErrorToken {
			if err := l.Err(); err != nil && !errors.Is(err, io.EOF) {
				line, col := at(offset)
				report(line, col, ruleSyntax, err.Error())
			}
			break
		}
		if (tt == js.DivToken || tt == js.DivEqToken) && expectsRegExp(prev) {
			tt, data = l.RegExp()
		}
		start := offset
		offset += len(data)

		switch tt {
		case js.WhitespaceToken, js.LineTerminatorToken, js.CommentToken, js.CommentLineTerminatorToken:
			continue
		case js.EqEqToken, js.NotEqToken:
			if rules[ruleEqEqEq] {
				line, col := at(start)
				report(line, col, ruleEqEqEq, fmt.Sprintf("expected '%s=' and instead saw '%s'", data, data))
			}
		case js.DebuggerToken:
			if rules[ruleNoDebugger] {
				line, col := at(start)
				report(line, col, ruleNoDebugger, "unexpected 'debugger' statement")
			}
		case js.VarToken:
			if rules[ruleNoVar] {
				line, col := at(start)
				report(line, col, ruleNoVar, "unexpected var, use let or const instead")
			}
		}
		prev = tt
	}

	if rules[ruleTrailingSpaces] {
		for i, line := range strings.Split(string(f.Contents), "\n") {
			line = strings.TrimSuffix(line, "\r")
			if trimmed := strings.TrimRight(line, " \t"); len(trimmed) < len(line) {
				report(i+1, len(trimmed)+1, ruleTrailingSpaces, "trailing spaces not allowed")
			}
		}
	}
	slices.SortStableFunc(issues, func(a, b domain.LintIssue) int {
		if a.Line != b.Line {
			return a.Line - b.Line
		}
		return a.Column - b.Column
	})
	return issues
}

// expectsRegExp reports whether a slash after prev starts a regular
// expression rather than a division.
func expectsRegExp(prev js.TokenType) bool {
	switch prev {
	case js.ErrorToken:
		return true
	case js.CloseParenToken, js.CloseBracketToken, js.CloseBraceToken:
		return false
	case js.ReturnToken, js.TypeofToken, js.CaseToken, js.DoToken, js.ElseToken, js.InToken,
		js.InstanceofToken, js.NewToken, js.DeleteToken, js.VoidToken, js.ThrowToken, js.YieldToken, js.AwaitToken:
		return true
	}
	return js.IsPunctuator(prev) || js.IsOperator(prev)
}
