package stages_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.trai.ch/basis/internal/core/domain"
)

func lintIssues(t *testing.T, kind domain.StageKind, opts domain.Options, files ...domain.File) []domain.LintIssue {
	t.Helper()
	out, err := newStage(t, kind, opts).Transform(context.Background(), files)
	assert.Empty(t, out)
	if err == nil {
		return nil
	}
	require.ErrorIs(t, err, domain.ErrLintFailed)
	var lintErr *domain.LintError
	require.True(t, errors.As(err, &lintErr))
	assert.Equal(t, string(kind), lintErr.Stage)
	return lintErr.Issues
}

func rulesOf(issues []domain.LintIssue) []string {
	rules := make([]string, len(issues))
	for i, issue := range issues {
		rules[i] = issue.Rule
	}
	return rules
}

func TestSassLint_ReportsIssues(t *testing.T) {
	t.Parallel()

	src := "// #not-an-id {\n" +
		"#header {\n" +
		"\tmargin: 0px; \n" +
		"\t  color: red !important;\n" +
		"\tbackground: #fff;\n" +
		"\t.item-#{$name} { padding: 0; }\n" +
		"}\n" +
		"@debug $name;"

	issues := lintIssues(t, domain.StageSassLint, nil, scssFile("_header.scss", src))

	assert.Equal(t, []domain.LintIssue{
		{File: "src/sass/_header.scss", Line: 2, Column: 1, Rule: "no-ids", Message: "id selector #header should not be used"},
		{File: "src/sass/_header.scss", Line: 3, Column: 14, Rule: "no-trailing-whitespace", Message: "trailing whitespace"},
		{File: "src/sass/_header.scss", Line: 3, Column: 10, Rule: "zero-unit", Message: "0px should be written without a unit"},
		{File: "src/sass/_header.scss", Line: 4, Column: 1, Rule: "indentation", Message: "mixed tabs and spaces"},
		{File: "src/sass/_header.scss", Line: 4, Column: 15, Rule: "no-important", Message: "!important should not be used"},
		{File: "src/sass/_header.scss", Line: 8, Column: 1, Rule: "no-debug", Message: "@debug statements should be removed"},
		{File: "src/sass/_header.scss", Line: 8, Column: 14, Rule: "final-newline", Message: "files must end with a newline"},
	}, issues)
}

func TestSassLint_RuleOverrides(t *testing.T) {
	t.Parallel()

	opts := domain.Options{"rules": map[string]any{"no-ids": false, "zero-unit": false}}
	issues := lintIssues(t, domain.StageSassLint, opts, scssFile("style.scss", "#main {\n\tmargin: 0px;\n}\n"))
	assert.Empty(t, issues)
}

func TestSassLint_SyntaxError(t *testing.T) {
	t.Parallel()

	issues := lintIssues(t, domain.StageSassLint, nil, scssFile("style.scss", ".nav {\n  color: red\n  a { color: blue; }\n"))

	assert.Equal(t, []domain.LintIssue{
		{File: "src/sass/style.scss", Line: 4, Column: 1, Rule: "syntax", Message: `expected "}"`},
	}, issues)
}

func TestSassLint_AcceptsControlDirectives(t *testing.T) {
	t.Parallel()

	src := "@function double($n) {\n\t@return $n * 2;\n}\n" +
		"@each $size in small, large {\n\t.btn-#{$size} {\n\t\tpadding: 1px;\n\t}\n}\n"
	issues := lintIssues(t, domain.StageSassLint, nil, scssFile("_mixins.scss", src))
	assert.Empty(t, issues)
}

func TestSassLint_IgnoresOtherFiles(t *testing.T) {
	t.Parallel()

	issues := lintIssues(t, domain.StageSassLint, nil, domain.File{Path: "style.css", Contents: []byte("#a { margin: 0px; }")})
	assert.Empty(t, issues)
}

func TestJSLint_ReportsIssues(t *testing.T) {
	t.Parallel()

	src := "var a = 1;\n" +
		"if (a == 2) { debugger; }\n" +
		"const re = /a==b/g; \n" +
		"let ok = a !== 3 && a / 2 === 1;\n"

	issues := lintIssues(t, domain.StageJSLint, nil, domain.File{Path: "menu.js", Base: "assets/scripts/concat", Contents: []byte(src)})

	require.Len(t, issues, 4)
	assert.Equal(t, []string{"no-var", "eqeqeq", "no-debugger", "no-trailing-spaces"}, rulesOf(issues))
	assert.Equal(t, domain.LintIssue{
		File:    "assets/scripts/concat/menu.js",
		Line:    2,
		Column:  7,
		Rule:    "eqeqeq",
		Message: "expected '===' and instead saw '=='",
	}, issues[1])
	assert.Equal(t, 15, issues[2].Column)
	assert.Equal(t, 3, issues[3].Line)
	assert.Equal(t, 20, issues[3].Column)
}

func TestJSLint_SyntaxError(t *testing.T) {
	t.Parallel()

	issues := lintIssues(t, domain.StageJSLint, nil, domain.File{Path: "broken.js", Contents: []byte("function (\n")})

	require.Len(t, issues, 1)
	assert.Equal(t, "syntax", issues[0].Rule)
	assert.Equal(t, "broken.js", issues[0].File)
	assert.Positive(t, issues[0].Line)
}

func TestJSLint_CleanScript(t *testing.T) {
	t.Parallel()

	issues := lintIssues(t, domain.StageJSLint, nil, domain.File{Path: "ok.js", Contents: []byte("const a = 1;\nconsole.log(a === 1);\n")})
	assert.Empty(t, issues)
}

func TestSassDoc_GeneratesMarkdown(t *testing.T) {
	t.Parallel()

	src := "/// Base font size.\n" +
		"$font-size: 16px !default;\n" +
		"\n" +
		"/// Builds a button.\n" +
		"/// @param {Color} $bg [blue] - Background color\n" +
		"/// @example\n" +
		"///   .btn { @include button(red); }\n" +
		"@mixin button($bg: blue) {\n" +
		"\tbackground: $bg;\n" +
		"}\n" +
		"\n" +
		"/// @access private\n" +
		"@mixin internal {}\n" +
		"\n" +
		"/// Clears floats.\n" +
		"%clearfix { clear: both; }\n"

	stage := newStage(t, domain.StageSassDoc, domain.Options{"title": "Basis"})
	out := run(t, stage, scssFile("_mixins.scss", src))
	require.Len(t, out, 1)
	assert.Equal(t, "sassdoc.md", out[0].Path)

	doc := string(out[0].Contents)
	assert.Contains(t, doc, "# Basis\n")
	assert.Contains(t, doc, "## Mixins\n\n### button\n")
	assert.Contains(t, doc, "| `$bg` | Color | blue | Background color |")
	assert.Contains(t, doc, "  .btn { @include button(red); }")
	assert.Contains(t, doc, "### $font-size\n\n```scss\n$font-size: 16px !default\n```\n\nBase font size.\n")
	assert.Contains(t, doc, "### %clearfix")
	assert.Contains(t, doc, "Defined in `src/sass/_mixins.scss:8`.")
	assert.NotContains(t, doc, "internal")
	assert.Less(t, strings.Index(doc, "## Mixins"), strings.Index(doc, "## Variables"))
	assert.Less(t, strings.Index(doc, "## Variables"), strings.Index(doc, "## Placeholders"))
}
