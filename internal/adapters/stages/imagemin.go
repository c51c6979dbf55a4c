package stages

import (
	"bytes"
	"context"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strings"

	"go.trai.ch/basis/internal/core/domain"
	"go.trai.ch/basis/internal/core/ports"
)

type imageMinStage struct {
	level       int
	progressive bool
	interlaced  bool
}

func newImageMin(_ *Registry, _ string, o domain.Options) (ports.Stage, error) {
	opts := readOptions(o, "optimizationLevel", "progressive", "interlaced")
	s := &imageMinStage{
		level:       opts.integer("optimizationLevel", 3),
		progressive: opts.boolean("progressive", false),
		interlaced:  opts.boolean("interlaced", false),
	}
	if opts.err != nil {
		return nil, opts.err
	}
	if s.level < 0 || s.level > 7 {
		return nil, domain.Tag(domain.ErrInvalidStageOption, "option", "optimizationLevel: expected 0-7")
	}
	return s, nil
}

func (s *imageMinStage) Name() string { return string(domain.StageImageMin) }

// Transform re-encodes PNG, JPEG and GIF files and keeps whichever version is
// smaller. Other files pass through.
func (s *imageMinStage) Transform(ctx context.Context, files []domain.File) ([]domain.File, error) {
	out := make([]domain.File, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, err := s.recompress(strings.ToLower(f.Ext()), f.Contents)
		if err != nil {
			return nil, transformError(s.Name(), f, err)
		}
		if b != nil && len(b) < len(f.Contents) {
			f.Contents = b
		}
		out = append(out, f)
	}
	return out, nil
}

// recompress returns nil for formats it does not handle.
func (s *imageMinStage) recompress(ext string, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	switch ext {
	case ".png":
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if s.level == 0 {
			enc.CompressionLevel = png.DefaultCompression
		}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, err
		}
	case ".jpg", ".jpeg":
		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95 - 2*s.level}); err != nil {
			return nil, err
		}
	case ".gif":
		g, err := gif.DecodeAll(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		if err := gif.EncodeAll(&buf, g); err != nil {
			return nil, err
		}
	default:
		return nil, nil
	}
	return buf.Bytes(), nil
}
