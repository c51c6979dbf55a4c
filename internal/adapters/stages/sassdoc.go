package stages

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.trai.ch/basis/internal/core/domain"
	"go.trai.ch/basis/internal/core/ports"
)

var (
	docMixin       = regexp.MustCompile(`^@mixin\s+([\w-]+)\s*(\([^)]*\))?`)
	docVariable    = regexp.MustCompile(`^\$([\w-]+)\s*:\s*([^;]*);?`)
	docPlaceholder = regexp.MustCompile(`^%([\w-]+)`)
	docParam       = regexp.MustCompile(`^@param\s+(?:\{([^}]*)\}\s+)?(\$[\w-]+)(?:\s*\[([^\]]*)\])?\s*(?:-\s*)?(.*)$`)
)

type docKind int

const (
	docKindMixin docKind = iota
	docKindVariable
	docKindPlaceholder
)

var docSections = []struct {
	kind  docKind
	title string
}{
	{docKindMixin, "Mixins"},
	{docKindVariable, "Variables"},
	{docKindPlaceholder, "Placeholders"},
}

type docParamItem struct {
	name, typ, def, desc string
}

type docItem struct {
	kind        docKind
	name        string
	signature   string
	file        string
	line        int
	description []string
	params      []docParamItem
	example     []string
}

type sassDocStage struct {
	title    string
	fileName string
}

func newSassDoc(_ *Registry, _ string, o domain.Options) (ports.Stage, error) {
	opts := readOptions(o, "title", "fileName")
	s := &sassDocStage{
		title:    opts.str("title", "SassDoc"),
		fileName: opts.str("fileName", "sassdoc.md"),
	}
	if opts.err != nil {
		return nil, opts.err
	}
	if s.fileName == "" {
		return nil, domain.Tag(domain.ErrInvalidStageOption, "option", "fileName: required")
	}
	return s, nil
}

func (s *sassDocStage) Name() string { return string(domain.StageSassDoc) }

// Transform collects the /// documentation of every SCSS file into a single
// markdown page. Items marked "@access private" are left out.
func (s *sassDocStage) Transform(ctx context.Context, files []domain.File) ([]domain.File, error) {
	var (
		items []docItem
		base  string
	)
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i == 0 {
			base = f.Base
		}
		if f.Ext() != ".scss" {
			continue
		}
		items = append(items, parseSassDoc(f)...)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n", s.title)
	for _, section := range docSections {
		first := true
		for _, item := range items {
			if item.kind != section.kind {
				continue
			}
			if first {
				fmt.Fprintf(&buf, "\n## %s\n", section.title)
				first = false
			}
			writeDocItem(&buf, item)
		}
	}
	if len(items) == 0 {
		buf.WriteString("\nNo documented items.\n")
	}
	return []domain.File{{Path: s.fileName, Base: base, Contents: buf.Bytes()}}, nil
}

func parseSassDoc(f domain.File) []docItem {
	var (
		items   []docItem
		block   []string
		private bool
	)
	for i, raw := range strings.Split(string(f.Contents), "\n") {
		line := strings.TrimSpace(raw)
		if rest, ok := strings.CutPrefix(line, "///"); ok {
			rest = strings.TrimPrefix(rest, " ")
			if strings.TrimSpace(rest) == "@access private" {
				private = true
				continue
			}
			block = append(block, rest)
			continue
		}
		if len(block) == 0 && !private {
			continue
		}

		item := docItem{file: f.SourcePath(), line: i + 1}
		switch {
		case docMixin.MatchString(line):
			m := docMixin.FindStringSubmatch(line)
			item.kind, item.name, item.signature = docKindMixin, m[1], "@mixin "+m[1]+m[2]
		case docVariable.MatchString(line):
			m := docVariable.FindStringSubmatch(line)
			item.kind, item.name, item.signature = docKindVariable, "$"+m[1], "$"+m[1]+": "+strings.TrimSpace(m[2])
		case docPlaceholder.MatchString(line):
			m := docPlaceholder.FindStringSubmatch(line)
			item.kind, item.name, item.signature = docKindPlaceholder, "%"+m[1], "%"+m[1]
		default:
			if line == "" {
				continue
			}
			block, private = nil, false
			continue
		}
		if !private {
			fillDocItem(&item, block)
			items = append(items, item)
		}
		block, private = nil, false
	}
	return items
}

func fillDocItem(item *docItem, block []string) {
	inExample := false
	for _, line := range block {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "@example"):
			inExample = true
		case strings.HasPrefix(trimmed, "@param"):
			inExample = false
			if m := docParam.FindStringSubmatch(trimmed); m != nil {
				item.params = append(item.params, docParamItem{typ: m[1], name: m[2], def: m[3], desc: m[4]})
			}
		case strings.HasPrefix(trimmed, "@"):
			inExample = false
		case inExample:
			item.example = append(item.example, line)
		default:
			item.description = append(item.description, trimmed)
		}
	}
}

func writeDocItem(buf *bytes.Buffer, item docItem) {
	fmt.Fprintf(buf, "\n### %s\n\n", item.name)
	fmt.Fprintf(buf, "```scss\n%s\n```\n", item.signature)
	if desc := strings.TrimSpace(strings.Join(item.description, "\n")); desc != "" {
		fmt.Fprintf(buf, "\n%s\n", desc)
	}
	if len(item.params) > 0 {
		buf.WriteString("\n| Name | Type | Default | Description |\n|------|------|---------|-------------|\n")
		for _, p := range item.params {
			fmt.Fprintf(buf, "| `%s` | %s | %s | %s |\n", p.name, p.typ, p.def, p.desc)
		}
	}
	if len(item.example) > 0 {
		fmt.Fprintf(buf, "\n```scss\n%s\n```\n", strings.Join(item.example, "\n"))
	}
	fmt.Fprintf(buf, "\nDefined in `%s:%d`.\n", item.file, item.line)
}
