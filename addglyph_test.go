package addglyph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/npillmayer/addglyph/internal/fontload"
	"github.com/npillmayer/addglyph/internal/fonttest"
	"github.com/npillmayer/addglyph/ot"
	"github.com/npillmayer/addglyph/otcmap"
	"github.com/npillmayer/addglyph/otgsub"
	"github.com/npillmayer/addglyph/otinput"
	"github.com/npillmayer/addglyph/report"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// --- Test Suite Preparation ------------------------------------------------

type RunTestEnviron struct {
	suite.Suite
	dir  string
	font string // path of the input font
}

func TestRun(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "addglyph")
	defer teardown()
	suite.Run(t, new(RunTestEnviron))
}

// run before each test: a fresh copy of the simple test font
func (env *RunTestEnviron) SetupTest() {
	env.dir = env.T().TempDir()
	env.font = filepath.Join(env.dir, "simple.ttf")
	env.Require().NoError(os.WriteFile(env.font, fonttest.Simple().Bytes(), 0o644))
}

func (env *RunTestEnviron) run(req Request, opts ...Option) (*Result, *report.Recorder) {
	rec := &report.Recorder{}
	res, err := Run(req, append(opts, WithReporter(rec.Sink()))...)
	env.Require().NoError(err, rec.String())
	return res, rec
}

func (env *RunTestEnviron) load(path string) *ot.Font {
	otf, err := ot.Load(path)
	env.Require().NoError(err)
	return otf
}

// --- Tests -----------------------------------------------------------------

func (env *RunTestEnviron) TestAddCharacters() {
	res, rec := env.run(Request{Font: env.font, Chars: []rune{0x3402, 'A', 0x3402}})
	out := filepath.Join(env.dir, "simple_new.ttf")
	env.Equal([]string{
		"cmap subtable (format=12) created",
		"already in font: U+0041",
		"added: U+3402",
		"1 glyphs added!",
		"saving...",
		"saved successfully: " + out,
	}, rec.Lines())
	env.Equal(&Result{GlyphsAdded: 1, Added: 1, AlreadyPresent: 1, OutputPath: out}, res)

	otf := env.load(out)
	env.Equal(5, otf.NumGlyphs())
	env.Equal("uni3402", otf.GlyphName(4))
	env.Equal(ot.GlyphIndex(4), otf.CMap().Subtable(3, 10, 12).Mapping[0x3402])
	env.Equal(ot.GlyphIndex(4), otf.CMap().Subtable(3, 1, 4).Mapping[0x3402])
	env.True(otcmap.UnicodeRangeBits(otf.OS2().UnicodeRange).Has(59), "CJK ext. A range")
	sf, err := fontload.LoadOpenTypeFont(out)
	env.Require().NoError(err)
	gid, err := sf.GlyphIndex(0x3402)
	env.Require().NoError(err)
	env.Equal(4, gid)
	adv, err := sf.Advance(gid)
	env.Require().NoError(err)
	env.Equal(1024, adv)

	// second run on the output
	again := filepath.Join(env.dir, "again.ttf")
	res, rec = env.run(Request{Font: out, Chars: []rune{0x3402}}, WithOutput(again))
	env.True(rec.Contains("already in font: U+3402"))
	env.Equal(0, res.GlyphsAdded)
	env.Equal(5, env.load(again).NumGlyphs())
}

func (env *RunTestEnviron) TestAddVariationSequences() {
	res, rec := env.run(Request{Font: env.font, Sequences: []otinput.VariationSequence{
		{Sequence: otcmap.Sequence{Base: 0x4E00, Selector: 0xE0100}, Default: true},
		{Sequence: otcmap.Sequence{Base: 'A', Selector: 0xFE00}},
		{Sequence: otcmap.Sequence{Base: 'B', Selector: 0xFE00}, Default: true},
	}})
	env.Equal(2, res.GlyphsAdded)
	env.Equal(3, res.Added)
	for _, line := range []string{
		"cmap subtable (format=14) created",
		"added: U+0041 U+FE00 as non-default",
		"added: U+0042 U+FE00 as default",
		"added base character: U+4E00",
		"added: U+4E00 U+E0100 as default",
		"at least one non-BMP character should be added for VS to work on Windows 7",
	} {
		env.True(rec.Contains(line), "missing %q in\n%s", line, rec)
	}
	env.False(rec.Contains("U+0020 should be added for VS to work on Windows 7"))

	otf := env.load(res.OutputPath)
	env.Equal("u0041uFE00", otf.GlyphName(4))
	env.Equal("uni4E00", otf.GlyphName(5))
	uvs := otf.CMap().Subtable(0, 5, 14).UVS
	env.Equal([]ot.UVSEntry{
		{Base: 'A', Glyph: ot.Some(ot.GlyphIndex(4))},
		{Base: 'B', Glyph: ot.Some(ot.GlyphIndex(3))},
	}, uvs[0xFE00])
	env.Equal([]ot.UVSEntry{{Base: 0x4E00, Glyph: ot.Some(ot.GlyphIndex(5))}}, uvs[0xE0100])
	env.True(otcmap.UnicodeRangeBits(otf.OS2().UnicodeRange).Has(otcmap.NonPlane0Bit))

	// second run on the output
	res, rec = env.run(Request{Font: res.OutputPath, Sequences: []otinput.VariationSequence{
		{Sequence: otcmap.Sequence{Base: 0x4E00, Selector: 0xE0100}, Default: true},
	}}, WithOutput(filepath.Join(env.dir, "again.ttf")))
	env.Equal(0, res.GlyphsAdded)
	env.True(rec.Contains("already in font: U+4E00 U+E0100"))
}

func (env *RunTestEnviron) TestAddRules() {
	jp78, aalt := ot.T("jp78"), ot.T("aalt")
	char := func(r rune) otinput.GlyphSpec { return otinput.GlyphSpec{Kind: otinput.ByChar, Char: r} }
	gid := func(g ot.GlyphIndex) otinput.GlyphSpec { return otinput.GlyphSpec{Kind: otinput.ByIndex, Glyph: g} }
	req := Request{Font: env.font, Rules: []otinput.Rule{
		{Tag: jp78, Input: char('A'), Alternate: char('B')},
		{Tag: jp78, Input: char('A'), Alternate: gid(1)},
		{Tag: aalt, Input: char('Z'), Alternate: char('A')},
		{Tag: aalt, Input: char('A'), Alternate: gid(99)},
	}}
	res, rec := env.run(req)
	env.Equal(2, res.Skipped)
	env.Equal(0, res.GlyphsAdded)
	for _, line := range []string{
		"GSUB table created",
		"feature 'jp78' created",
		"added: jp78: A -> B, space",
		"skipped: aalt: U+005A: character not in font: U+005A",
		"skipped: aalt: U+0041 -> \\99: glyph index out of range: 99",
	} {
		env.True(rec.Contains(line), "missing %q in\n%s", line, rec)
	}

	otf := env.load(res.OutputPath)
	gsub := otf.GSub()
	env.Require().NotNil(gsub)
	env.Require().Len(gsub.Lookups, 1)
	env.Require().Len(gsub.Features, 1)
	alt := gsub.Lookups[0].Subtables[0].(*ot.AlternateSubst)
	env.Equal(map[ot.GlyphIndex][]ot.GlyphIndex{2: {3, 1}}, alt.Alternates)

	// second run on the output
	req.Font = res.OutputPath
	res, rec = env.run(req, WithOutput(filepath.Join(env.dir, "again.ttf")))
	env.Equal(1, res.AlreadyPresent)
	env.Equal(0, res.Added)
	env.Equal(3, rec.Count(report.Notice), "only the closing notices:\n%s", rec)
	env.Len(env.load(filepath.Join(env.dir, "again.ttf")).GSub().Lookups, 1)
}

func (env *RunTestEnviron) TestLangSys() {
	hani, err := otgsub.ParseLangSys("hani/JAN")
	env.Require().NoError(err)
	out := filepath.Join(env.dir, "out.ttf")
	_, rec := env.run(Request{Font: env.font, Rules: []otinput.Rule{{
		Tag:       ot.T("jp78"),
		Input:     otinput.GlyphSpec{Kind: otinput.ByChar, Char: 'A'},
		Alternate: otinput.GlyphSpec{Kind: otinput.ByChar, Char: 'B'},
	}}}, WithLangSys(hani), WithOutput(out))
	env.True(rec.Contains("langsys 'JAN ' for script 'hani' created"))
	gsub := env.load(out).GSub()
	env.Require().Len(gsub.Scripts, 1)
	env.Equal([]uint16{0}, gsub.Script(ot.T("hani")).LangSys(ot.T("JAN ")).FeatureIndices)
}

func (env *RunTestEnviron) TestLoadErrors() {
	_, err := Run(Request{Font: filepath.Join(env.dir, "missing.ttf")}, WithReporter(report.Discard))
	env.ErrorIs(err, ErrLoad)

	f := fonttest.Simple()
	f.BMP = nil
	noCMap := filepath.Join(env.dir, "nocmap.ttf")
	env.Require().NoError(os.WriteFile(noCMap, f.Bytes(), 0o644))
	_, err = Run(Request{Font: noCMap, Chars: []rune{'C'}}, WithReporter(report.Discard))
	env.ErrorIs(err, ErrLoad)
	env.ErrorIs(err, otcmap.ErrNoCharMap)
	_, err = os.Stat(OutputPath(noCMap))
	env.ErrorIs(err, os.ErrNotExist, "nothing saved")
}

func (env *RunTestEnviron) TestMissingBaseCharacter() {
	f := fonttest.Simple()
	f.Sequences = []fonttest.UVS{{Base: 'Z', Selector: 0xFE00, Default: true}}
	path := filepath.Join(env.dir, "broken.ttf")
	env.Require().NoError(os.WriteFile(path, f.Bytes(), 0o644))
	_, err := Run(Request{Font: path, Sequences: []otinput.VariationSequence{
		{Sequence: otcmap.Sequence{Base: 'A', Selector: 0xFE01}, Default: true},
	}}, WithReporter(report.Discard))
	env.Require().Error(err)
	env.ErrorIs(err, ErrLoad)
	env.Contains(err.Error(), "base character (U+005A) not in font")
	_, err = os.Stat(OutputPath(path))
	env.ErrorIs(err, os.ErrNotExist, "nothing saved")
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "a/font_new.ttf", OutputPath("a/font.ttf"))
	assert.Equal(t, "font_new.OTF", OutputPath("font.OTF"))
	assert.Equal(t, "ttf_new", OutputPath("ttf"))
}

func TestGroupRules(t *testing.T) {
	a := otinput.GlyphSpec{Kind: otinput.ByChar, Char: 'A'}
	b := otinput.GlyphSpec{Kind: otinput.ByChar, Char: 'B'}
	groups := groupRules([]otinput.Rule{
		{Tag: ot.T("aalt"), Input: a, Alternate: b},
		{Tag: ot.T("jp78"), Input: a, Alternate: b},
		{Tag: ot.T("aalt"), Input: b, Alternate: a},
		{Tag: ot.T("aalt"), Input: a, Alternate: a},
	})
	require.Len(t, groups, 3)
	assert.Equal(t, []otinput.GlyphSpec{b, a}, groups[0].alternates)
	assert.Equal(t, ot.T("jp78"), groups[1].tag)
	assert.Equal(t, b, groups[2].input)
}
