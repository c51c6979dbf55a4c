package sourcemap_test

import (
	"encoding/base64"
	"strings"
	"testing"

	gosourcemap "github.com/go-sourcemap/sourcemap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/basis/internal/sourcemap"
)

func TestEncodeDecode(t *testing.T) {
	mappings := []sourcemap.Mapping{
		{GenLine: 0, GenColumn: 0, Source: 0, SourceLine: 0, SourceColumn: 0},
		{GenLine: 0, GenColumn: 12, Source: 1, SourceLine: 40, SourceColumn: 2},
		{GenLine: 2, GenColumn: 4, Source: 0, SourceLine: 3, SourceColumn: 17},
		{GenLine: 2, GenColumn: 9, Source: -1},
	}

	encoded := sourcemap.Encode(mappings)
	assert.Equal(t, 2, strings.Count(encoded, ";"))

	decoded, err := sourcemap.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, mappings, decoded)
}

func TestDecode_Known(t *testing.T) {
	// "AAAA;AACA" maps line 0 col 0 to source 0 line 0, and line 1 to source line 1.
	decoded, err := sourcemap.Decode("AAAA;AACA")
	require.NoError(t, err)
	assert.Equal(t, []sourcemap.Mapping{
		{GenLine: 0, GenColumn: 0, Source: 0, SourceLine: 0, SourceColumn: 0},
		{GenLine: 1, GenColumn: 0, Source: 0, SourceLine: 1, SourceColumn: 0},
	}, decoded)

	_, err = sourcemap.Decode("A*AA")
	require.ErrorIs(t, err, sourcemap.ErrInvalidMappings)
}

func TestBuilder_ReadableByConsumer(t *testing.T) {
	b := sourcemap.NewBuilder("style.css")
	main := b.AddSource("src/sass/style.scss", "@import 'base';\n.a { color: red; }\n")
	base := b.AddSource("src/sass/_base.scss", "body { margin: 0; }\n")
	assert.Equal(t, main, b.AddSource("src/sass/style.scss", ""))

	b.Add(sourcemap.Mapping{GenLine: 0, GenColumn: 0, Source: base, SourceLine: 0, SourceColumn: 0})
	b.Add(sourcemap.Mapping{GenLine: 3, GenColumn: 0, Source: main, SourceLine: 1, SourceColumn: 0})
	b.Add(sourcemap.Mapping{GenLine: 4, GenColumn: 2, Source: main, SourceLine: 1, SourceColumn: 5})

	raw, err := sourcemap.Marshal(b.Map())
	require.NoError(t, err)

	consumer, err := gosourcemap.Parse("", raw)
	require.NoError(t, err)

	source, _, line, col, ok := consumer.Source(5, 2)
	require.True(t, ok)
	assert.Equal(t, "src/sass/style.scss", source)
	assert.Equal(t, 2, line)
	assert.Equal(t, 5, col)

	source, _, line, _, ok = consumer.Source(1, 0)
	require.True(t, ok)
	assert.Equal(t, "src/sass/_base.scss", source)
	assert.Equal(t, 1, line)
	assert.Equal(t, "body { margin: 0; }\n", consumer.SourceContent("src/sass/_base.scss"))
}

func TestCompose(t *testing.T) {
	// inner: intermediate.css line 1 <- a.scss line 10, line 2 <- a.scss line 20
	inner := sourcemap.NewBuilder("style.css")
	src := inner.AddSource("a.scss", "")
	inner.Add(sourcemap.Mapping{GenLine: 0, Source: src, SourceLine: 9})
	inner.Add(sourcemap.Mapping{GenLine: 1, Source: src, SourceLine: 19})

	// outer: minified line 0 col 0 <- intermediate line 0, col 30 <- intermediate line 1
	outer := sourcemap.NewBuilder("style.css")
	mid := outer.AddSource("style.css", "")
	outer.Add(sourcemap.Mapping{GenLine: 0, GenColumn: 0, Source: mid, SourceLine: 0})
	outer.Add(sourcemap.Mapping{GenLine: 0, GenColumn: 30, Source: mid, SourceLine: 1})

	composed, err := sourcemap.Compose(outer.Map(), inner.Map())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.scss"}, composed.Sources)

	decoded, err := sourcemap.Decode(composed.Mappings)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.Equal(t, 9, decoded[0].SourceLine)
	assert.Equal(t, 30, decoded[1].GenColumn)
	assert.Equal(t, 19, decoded[1].SourceLine)
}

func TestCompose_NilInner(t *testing.T) {
	outer := sourcemap.Identity("app.js", "app.js", "a\nb")
	composed, err := sourcemap.Compose(outer, nil)
	require.NoError(t, err)
	assert.Same(t, outer, composed)
}

func TestShift(t *testing.T) {
	m := sourcemap.Identity("b.js", "b.js", "one\ntwo")
	shifted, err := sourcemap.Shift(m, 3)
	require.NoError(t, err)

	decoded, err := sourcemap.Decode(shifted.Mappings)
	require.NoError(t, err)
	assert.Equal(t, 3, decoded[0].GenLine)
	assert.Equal(t, 0, decoded[0].SourceLine)
	assert.Equal(t, 4, decoded[1].GenLine)
}

func TestComments(t *testing.T) {
	assert.Equal(t, "/*# sourceMappingURL=style.css.map */", sourcemap.Comment(".css", "style.css.map"))
	assert.Equal(t, "//# sourceMappingURL=app.js.map", sourcemap.Comment(".js", "app.js.map"))

	url, err := sourcemap.InlineURL(sourcemap.Identity("a.css", "a.scss", "x"))
	require.NoError(t, err)
	payload, ok := strings.CutPrefix(url, "data:application/json;charset=utf8;base64,")
	require.True(t, ok)
	raw, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)

	m, err := sourcemap.Unmarshal(raw)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Version)
	assert.Equal(t, []string{"a.scss"}, m.Sources)
}
