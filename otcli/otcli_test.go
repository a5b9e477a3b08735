package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/npillmayer/addglyph/internal/fonttest"
	"github.com/npillmayer/addglyph/ot"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	op := parseCommand("VS U+4E00 U+E0100")
	assert.Equal(t, VS, op.code)
	assert.Equal(t, []string{"U+4E00", "U+E0100"}, op.args)
	op = parseCommand("frobnicate 1")
	assert.Equal(t, HELP, op.code)
	assert.Empty(t, op.args)
}

func TestParseCodepoint(t *testing.T) {
	for token, want := range map[string]rune{
		"U+4E00":  0x4E00,
		"u+e0100": 0xE0100,
		"0x41":    'A',
		"3402":    0x3402,
		"A":       'A',
		"葛":       0x845B,
	} {
		r, err := parseCodepoint(token)
		require.NoError(t, err, token)
		assert.Equal(t, want, r, token)
	}
	_, err := parseCodepoint("U+XYZ")
	assert.EqualError(t, err, "invalid codepoint: U+XYZ")
	_, err = parseCodepoint("U+110000")
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "addglyph")
	defer teardown()
	//
	f := fonttest.Simple()
	f.Sequences = []fonttest.UVS{
		{Base: 'A', Selector: 0xFE00, Glyph: 3},
		{Base: 'B', Selector: 0xFE01, Default: true},
	}
	path := filepath.Join(t.TempDir(), "simple.ttf")
	require.NoError(t, os.WriteFile(path, f.Bytes(), 0o644))
	intp := &Intp{}
	require.NoError(t, intp.loadFont(path))
	require.NotNil(t, intp.sfnt)

	s, err := intp.describeChar('A')
	require.NoError(t, err)
	assert.Equal(t, "U+0041 -> glyph 2 (A)", s)
	s, err = intp.describeChar('Z')
	require.NoError(t, err)
	assert.Equal(t, "U+005A is not mapped", s)

	s, err = intp.describeSequence('A', 0xFE00)
	require.NoError(t, err)
	assert.Equal(t, "U+0041 U+FE00 -> glyph 3 (B)", s)
	s, err = intp.describeSequence('B', 0xFE01)
	require.NoError(t, err)
	assert.Equal(t, "U+0042 U+FE01 -> glyph 3 (B)", s)
	s, err = intp.describeSequence('B', 0xFE00)
	require.NoError(t, err)
	assert.Equal(t, "U+0042 U+FE00 is not mapped", s)

	_, err = intp.gsub()
	assert.ErrorIs(t, err, errNoGSub)
	assert.Error(t, intp.loadFont(""))
}

func testGSub() *ot.GSubTable {
	gsub := ot.NewGSubTable()
	ls := &ot.LangSys{FeatureIndices: []uint16{0, 1}}
	gsub.Scripts = []*ot.Script{{
		Tag:            ot.T("hani"),
		DefaultLangSys: ls,
		LangSystems: []ot.LangSysRecord{{
			Tag:     ot.T("JAN"),
			LangSys: &ot.LangSys{RequiredFeature: ot.Some[uint16](1), FeatureIndices: []uint16{0}},
		}},
	}}
	gsub.Features = []*ot.Feature{
		{Tag: ot.T("aalt"), LookupIndices: []uint16{0, 1}},
		{Tag: ot.T("jp78"), LookupIndices: []uint16{1}},
	}
	gsub.Lookups = []*ot.Lookup{
		{Type: 1, Flag: 0x0008, Subtables: []ot.Subtable{
			&ot.SingleSubst{Mapping: map[ot.GlyphIndex]ot.GlyphIndex{2: 3}},
		}},
		{Type: 7, Subtables: []ot.Subtable{
			&ot.ExtensionSubst{Type: 3, Subtable: &ot.AlternateSubst{
				Alternates: map[ot.GlyphIndex][]ot.GlyphIndex{2: {3, 1}},
			}},
		}},
		{Type: 6, Subtables: []ot.Subtable{
			&ot.ChainContextSubst{Format: 3, Records: []ot.SequenceLookup{
				{SequenceIndex: 0, LookupIndex: 1},
				{SequenceIndex: 1, LookupIndex: 0},
				{SequenceIndex: 2, LookupIndex: 1},
			}},
		}},
	}
	return gsub
}

func TestGSubRows(t *testing.T) {
	gsub := testGSub()
	assert.Equal(t, [][]string{
		{"Script", "LangSys", "Required", "Features"},
		{"hani", "(default)", "-", "0:aalt 1:jp78"},
		{"hani", "JAN ", "1:jp78", "0:aalt"},
	}, scriptRows(gsub))
	assert.Equal(t, [][]string{
		{"Index", "Tag", "Lookups"},
		{"0", "aalt", "0 1"},
		{"1", "jp78", "1"},
	}, featureRows(gsub))
	assert.Equal(t, [][]string{
		{"Index", "Type", "Flags", "Subtables", "Features"},
		{"0", "Single", "IgnoreMarks", "1", "aalt"},
		{"1", "Extension(Alternate)", "-", "1", "aalt jp78"},
		{"2", "ChainingContext", "-", "1", "-"},
	}, lookupRows(gsub))
	assert.Equal(t, [][]string{
		{"Sub", "Type", "Summary"},
		{"0", "Extension", "extension of Alternate: 1 glyphs, 2 alternates"},
	}, subtableRows(gsub.Lookups[1]))
	assert.Equal(t, [][]string{
		{"Sub", "Type", "Summary"},
		{"0", "ChainingContext", "format 3, lookups 0 1"},
	}, subtableRows(gsub.Lookups[2]))
}

func TestIndexArgument(t *testing.T) {
	intp := &Intp{}
	i, err := intp.index(&Op{name: "lookup", args: []string{"2"}}, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, i)
	_, err = intp.index(&Op{name: "lookup", args: []string{"3"}}, 3)
	assert.EqualError(t, err, "index out of range: 3")
	_, err = intp.index(&Op{name: "glyph"}, 3)
	assert.EqualError(t, err, "usage: glyph N")
}
