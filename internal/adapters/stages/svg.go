package stages

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/beevik/etree"

	"go.trai.ch/basis/internal/core/domain"
	"go.trai.ch/basis/internal/core/ports"
)

const (
	svgNamespace = "http://www.w3.org/2000/svg"
	svgDoctype   = `DOCTYPE svg PUBLIC "-//W3C//DTD SVG 1.1//EN" "http://www.w3.org/Graphics/SVG/1.1/DTD/svg11.dtd"`
)

type svgStoreStage struct {
	idPrefix  string
	inlineSvg bool
	fileName  string
}

func newSVGStore(_ *Registry, _ string, o domain.Options) (ports.Stage, error) {
	opts := readOptions(o, "idPrefix", "inlineSvg", "fileName")
	s := &svgStoreStage{
		idPrefix:  opts.str("idPrefix", "icon-"),
		inlineSvg: opts.boolean("inlineSvg", false),
		fileName:  opts.str("fileName", "svg-icons.svg"),
	}
	if opts.err != nil {
		return nil, opts.err
	}
	if s.fileName == "" || path.Ext(s.fileName) != ".svg" {
		return nil, domain.Tag(domain.ErrInvalidStageOption, "option", "fileName: "+s.fileName)
	}
	return s, nil
}

func (s *svgStoreStage) Name() string { return string(domain.StageSVGStore) }

// Transform combines every SVG into a sprite of <symbol> elements named after
// the source files. Other files pass through.
func (s *svgStoreStage) Transform(ctx context.Context, files []domain.File) ([]domain.File, error) {
	var (
		out    []domain.File
		sprite *etree.Element
		defs   *etree.Element
		ids    = make(map[string]string)
		base   string
	)

	doc := etree.NewDocument()
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.Ext() != ".svg" {
			out = append(out, f)
			continue
		}

		src, err := readSVG(s.Name(), f)
		if err != nil {
			return nil, err
		}
		id := s.idPrefix + f.Stem()
		if prev, ok := ids[id]; ok {
			return nil, domain.NewTransformError(s.Name(), f.SourcePath(),
				fmt.Sprintf("duplicate symbol id %q, already used by %s", id, prev))
		}
		ids[id] = f.SourcePath()

		if sprite == nil {
			base = f.Base
			sprite = doc.CreateElement("svg")
			sprite.CreateAttr("xmlns", svgNamespace)
		}
		for _, a := range src.Attr {
			if a.Space == "xmlns" && sprite.SelectAttr(a.FullKey()) == nil {
				sprite.CreateAttr(a.FullKey(), a.Value)
			}
		}

		symbol := etree.NewElement("symbol")
		symbol.CreateAttr("id", id)
		if vb := src.SelectAttrValue("viewBox", ""); vb != "" {
			symbol.CreateAttr("viewBox", vb)
		}
		for _, child := range src.Child {
			if el, ok := child.(*etree.Element); ok && el.Tag == "defs" {
				if defs == nil {
					defs = etree.NewElement("defs")
				}
				for _, d := range el.ChildElements() {
					defs.AddChild(d.Copy())
				}
				continue
			}
			if cd, ok := child.(*etree.CharData); ok && cd.IsWhitespace() {
				continue
			}
			if t := copyToken(child); t != nil {
				symbol.AddChild(t)
			}
		}
		sprite.AddChild(symbol)
	}

	if sprite == nil {
		return out, nil
	}
	if defs != nil {
		sprite.InsertChildAt(0, defs)
	}

	if !s.inlineSvg {
		doc.InsertChildAt(0, etree.NewText("\n"))
		doc.InsertChildAt(0, etree.NewDirective(svgDoctype))
		doc.InsertChildAt(0, etree.NewText("\n"))
		doc.InsertChildAt(0, etree.NewProcInst("xml", `version="1.0" encoding="UTF-8"`))
	}
	b, err := doc.WriteToBytes()
	if err != nil {
		return nil, domain.NewTransformError(s.Name(), s.fileName, err.Error()).Wrapping(err)
	}
	return append(out, domain.File{Path: s.fileName, Base: base, Contents: b}), nil
}

type svgCleanStage struct {
	hidden          bool
	removeFill      bool
	removePathClass bool
	removeTitle     bool
}

func newSVGClean(_ *Registry, _ string, o domain.Options) (ports.Stage, error) {
	opts := readOptions(o, "hidden", "removeFill", "removePathClass", "removeTitle")
	s := &svgCleanStage{
		hidden:          opts.boolean("hidden", true),
		removeFill:      opts.boolean("removeFill", true),
		removePathClass: opts.boolean("removePathClass", true),
		removeTitle:     opts.boolean("removeTitle", true),
	}
	if opts.err != nil {
		return nil, opts.err
	}
	return s, nil
}

func (s *svgCleanStage) Name() string { return string(domain.StageSVGClean) }

// Transform strips presentation cruft from every SVG.
func (s *svgCleanStage) Transform(ctx context.Context, files []domain.File) ([]domain.File, error) {
	out := make([]domain.File, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.Ext() != ".svg" {
			out = append(out, f)
			continue
		}
		doc := etree.NewDocument()
		if err := doc.ReadFromBytes(f.Contents); err != nil {
			return nil, transformError(s.Name(), f, err)
		}
		root := doc.Root()
		if root == nil {
			return nil, domain.NewTransformError(s.Name(), f.SourcePath(), "missing root element")
		}

		if s.hidden {
			for _, el := range append([]*etree.Element{root}, root.FindElements("//svg")...) {
				el.CreateAttr("style", "display:none")
			}
		}
		s.clean(root)

		b, err := doc.WriteToBytes()
		if err != nil {
			return nil, transformError(s.Name(), f, err)
		}
		f.Contents = b
		f.Map = nil
		out = append(out, f)
	}
	return out, nil
}

func (s *svgCleanStage) clean(el *etree.Element) {
	if s.removeFill {
		el.RemoveAttr("fill")
	}
	if s.removePathClass && el.Tag == "path" {
		el.RemoveAttr("class")
	}
	for _, child := range el.ChildElements() {
		if s.removeTitle && child.Tag == "title" {
			el.RemoveChild(child)
			continue
		}
		s.clean(child)
	}
}

// readSVG parses f and returns its <svg> root element.
func readSVG(stage string, f domain.File) (*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(f.Contents); err != nil {
		return nil, transformError(stage, f, err)
	}
	root := doc.Root()
	if root == nil || !strings.EqualFold(root.Tag, "svg") {
		return nil, domain.NewTransformError(stage, f.SourcePath(), "expected an <svg> root element")
	}
	return root, nil
}

func copyToken(t etree.Token) etree.Token {
	switch v := t.(type) {
	case *etree.Element:
		return v.Copy()
	case *etree.CharData:
		return etree.NewText(v.Data)
	case *etree.Comment:
		return etree.NewComment(v.Data)
	}
	return nil
}
