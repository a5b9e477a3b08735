package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/npillmayer/addglyph/ot"
	"github.com/npillmayer/addglyph/otgsub"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() rawArgs {
	return rawArgs{
		files: unset, font: unset, text: unset, vs: unset, gsub: unset,
		output: unset, langsys: "DFLT/dflt", trace: "Error",
	}
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(unset))
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"a.txt", "b c.txt"}, splitList("a.txt, b c.txt,,"))
}

func TestNewInvocation(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "addglyph")
	defer teardown()
	//
	raw := defaults()
	raw.files = "Font.TTF,chars.txt,VS_jis.txt"
	raw.gsub = "jp78.txt"
	raw.langsys = "hani/JAN,DFLT/dflt"
	inv, err := newInvocation(raw)
	require.NoError(t, err)
	assert.Equal(t, "Font.TTF", inv.font)
	assert.Equal(t, []string{"chars.txt"}, inv.text)
	assert.Equal(t, []string{"VS_jis.txt"}, inv.vs)
	assert.Equal(t, []string{"jp78.txt"}, inv.gsub)
	assert.Equal(t, "", inv.output)
	assert.Equal(t, []otgsub.LangSysTag{
		{Script: ot.T("hani"), Lang: ot.T("JAN")},
		otgsub.DefaultLangSys,
	}, inv.langSystems)
	assert.Equal(t, tracing.LevelError, inv.traceLevel)

	raw = defaults()
	raw.font = "font.otf"
	raw.text = "a.txt,b.txt"
	raw.output = "out.otf"
	raw.trace = "Debug"
	raw.quiet = true
	inv, err = newInvocation(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, inv.text)
	assert.Equal(t, "out.otf", inv.output)
	assert.Equal(t, tracing.LevelError, inv.traceLevel, "quiet wins")
}

func TestNewInvocationErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*rawArgs)
		want   string
	}{
		{"no font", func(r *rawArgs) { r.text = "a.txt" }, errNoFont.Error()},
		{"two fonts", func(r *rawArgs) { r.font = "a.ttf"; r.files = "b.otf,c.txt" },
			"more than one font file given: a.ttf, b.otf"},
		{"no input", func(r *rawArgs) { r.font = "a.ttf" }, errNoInput.Error()},
		{"langsys", func(r *rawArgs) { r.files = "a.ttf,t.txt"; r.langsys = "hani" },
			`invalid language system "hani", expected SCRIPT/lang`},
		{"trace", func(r *rawArgs) { r.files = "a.ttf,t.txt"; r.trace = "loud" },
			"invalid trace level: loud"},
	}
	for _, tt := range tests {
		raw := defaults()
		tt.modify(&raw)
		_, err := newInvocation(raw)
		assert.EqualError(t, err, tt.want, tt.name)
	}
}

func TestRequest(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "addglyph")
	defer teardown()
	//
	dir := t.TempDir()
	font := filepath.Join(dir, "font.ttf")
	text := filepath.Join(dir, "chars.txt")
	vs := filepath.Join(dir, "vs.txt")
	require.NoError(t, os.WriteFile(font, []byte("not parsed here"), 0o644))
	require.NoError(t, os.WriteFile(text, []byte("ab"), 0o644))
	require.NoError(t, os.WriteFile(vs, []byte("&#x4E00;&#xE0100; D\n"), 0o644))
	raw := defaults()
	raw.files = font + "," + text + "," + vs
	inv, err := newInvocation(raw)
	require.NoError(t, err)
	req, err := inv.request()
	require.NoError(t, err)
	assert.Equal(t, font, req.Font)
	assert.Equal(t, []rune{'a', 'b'}, req.Chars)
	require.Len(t, req.Sequences, 1)
	assert.True(t, req.Sequences[0].Default)
	assert.Empty(t, inv.output, "local fonts keep the default output path")
}

func TestTraceLevel(t *testing.T) {
	for s, want := range map[string]tracing.TraceLevel{
		"Debug": tracing.LevelDebug,
		"info":  tracing.LevelInfo,
		"Error": tracing.LevelError,
		unset:   tracing.LevelError,
	} {
		level, err := traceLevel(s)
		require.NoError(t, err, s)
		assert.Equal(t, want, level, s)
	}
}
