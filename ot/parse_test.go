package ot

import (
	"encoding/binary"
	"testing"

	"github.com/npillmayer/addglyph/internal/fonttest"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseTestFont(t *testing.T, f *fonttest.Font) *Font {
	t.Helper()
	otf, err := Parse(f.Bytes())
	require.NoError(t, err)
	require.Empty(t, otf.CriticalErrors())
	return otf
}

func TestParseHeader(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "addglyph.ot")
	defer teardown()
	//
	otf := parseTestFont(t, fonttest.Simple())
	t.Logf("otf.header.tag = %x", otf.Header.FontType)
	if otf.Header.FontType != 0x00010000 {
		t.Fatalf("expected font to be OT 0x0001000, is %x", otf.Header.FontType)
	}
	assert.True(t, otf.IsTrueType())
	assert.Equal(t, 4, otf.NumGlyphs())
	for _, tag := range RequiredTables {
		assert.NotNil(t, otf.Table(T(tag)), "table %s", tag)
	}
}

func TestParseDecodedTables(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "addglyph.ot")
	defer teardown()
	//
	f := fonttest.Simple()
	f.LongHMetrics = 2
	f.Vertical = true
	otf := parseTestFont(t, f)

	assert.Equal(t, uint16(1000), otf.Head().UnitsPerEm)
	assert.Equal(t, uint16(0), otf.Head().IndexToLocFormat)
	assert.Equal(t, 2, otf.HHea().NumberOfLongMetrics)
	require.Len(t, otf.HMtx().Metrics, 4)
	// glyphs beyond the long metrics inherit the last advance
	assert.Equal(t, uint16(250), otf.HMtx().Metrics[3].Advance)
	require.NotNil(t, otf.VMtx())
	assert.Len(t, otf.VMtx().Metrics, 4)

	require.NotNil(t, otf.Glyf())
	require.Len(t, otf.Glyf().Glyphs, 4)
	assert.Empty(t, otf.Glyf().Glyphs[1], "space has no outline")
	assert.NotEmpty(t, otf.Glyf().Glyphs[2])

	assert.Equal(t, "A", otf.GlyphName(2))
	gid, ok := otf.GlyphIndexByName("B")
	assert.True(t, ok)
	assert.Equal(t, GlyphIndex(3), gid)

	bmp := otf.CMap().Subtable(3, 1, 4)
	require.NotNil(t, bmp)
	assert.Equal(t, map[rune]GlyphIndex{' ': 1, 'A': 2, 'B': 3}, bmp.Mapping)
	assert.Nil(t, otf.CMap().Subtable(3, 10, 12))

	require.NotNil(t, otf.OS2())
	assert.Equal(t, uint32(1), otf.OS2().UnicodeRange[0])
	assert.True(t, otf.OS2().HasCodePageRange())
	assert.Nil(t, otf.GSub())
}

func TestParseGlyphNamesWithoutPost2(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "addglyph.ot")
	defer teardown()
	//
	f := fonttest.Simple()
	f.PostNames = false
	otf := parseTestFont(t, f)
	assert.False(t, otf.Post().HasNames())
	assert.Equal(t, ".notdef", otf.GlyphName(0))
	assert.Equal(t, "glyph00002", otf.GlyphName(2))
	_, ok := otf.GlyphIndexByName("A")
	assert.False(t, ok)
}

func TestParseFormat12And14(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "addglyph.ot")
	defer teardown()
	//
	f := fonttest.Simple()
	f.Full = map[rune]uint16{' ': 1, 'A': 2, 'B': 3, 0x20000: 3}
	f.Sequences = []fonttest.UVS{
		{Base: 'A', Selector: 0xFE00, Default: true},
		{Base: 'B', Selector: 0xFE00, Glyph: 2},
		{Base: 0x20000, Selector: 0xE0100, Glyph: 1},
	}
	otf := parseTestFont(t, f)
	full := otf.CMap().Subtable(3, 10, 12)
	require.NotNil(t, full)
	assert.Equal(t, GlyphIndex(3), full.Mapping[0x20000])

	vs := otf.CMap().Subtable(0, 5, 14)
	require.NotNil(t, vs)
	assert.Equal(t, []rune{0xFE00, 0xE0100}, vs.Selectors())
	entries := vs.UVS[0xFE00]
	require.Len(t, entries, 2)
	assert.Equal(t, 'A', entries[0].Base)
	assert.True(t, entries[0].Glyph.IsNone())
	assert.Equal(t, GlyphIndex(2), entries[1].Glyph.MustUnwrap())
}

// renameTable overwrites the tag of a table record in the table directory.
func renameTable(font []byte, from, to string) {
	n := int(binary.BigEndian.Uint16(font[4:]))
	for i := 0; i < n; i++ {
		rec := font[12+16*i:]
		if string(rec[:4]) == from {
			copy(rec, to)
		}
	}
}

func TestParseErrors(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "addglyph.ot")
	defer teardown()
	//
	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"truncated header", func(b []byte) []byte { return b[:5] }},
		{"font collection", func(b []byte) []byte { copy(b, "ttcf"); return b }},
		{"unknown font type", func(b []byte) []byte { copy(b, "typ1"); return b }},
		{"truncated directory", func(b []byte) []byte { return b[:20] }},
		{"truncated table", func(b []byte) []byte { return b[:len(b)-8] }},
		{"missing cmap", func(b []byte) []byte { renameTable(b, "cmap", "cmaq"); return b }},
		{"missing hmtx", func(b []byte) []byte { renameTable(b, "hmtx", "hmty"); return b }},
		{"unsorted directory", func(b []byte) []byte { renameTable(b, "head", "zzzz"); return b }},
		{"misaligned table", func(b []byte) []byte {
			binary.BigEndian.PutUint32(b[12+8:], binary.BigEndian.Uint32(b[12+8:])+1)
			return b
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.mutate(fonttest.Simple().Bytes()))
			assert.Error(t, err)
		})
	}
}

func TestParseCorruptGSubIsKept(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "addglyph.ot")
	defer teardown()
	//
	f := fonttest.Simple()
	f.Tables = map[string][]byte{"GSUB": {0, 2, 0, 0, 0, 10, 0, 12, 0, 14}}
	otf := parseTestFont(t, f)
	assert.NotNil(t, otf.Table(T("GSUB")))
	assert.Nil(t, otf.GSub())
	require.NotEmpty(t, otf.Errors())
	assert.Equal(t, SeverityMajor, otf.Errors()[0].Severity)
	assert.Equal(t, T("GSUB"), otf.Errors()[0].Table)
}
