package ttxtest

import (
	"testing"

	"github.com/npillmayer/addglyph/ot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ttxDump = `<?xml version="1.0" encoding="UTF-8"?>
<ttFont sfntVersion="\x00\x01\x00\x00" ttLibVersion="4.47">
  <GSUB>
    <Version value="0x00010000"/>
    <ScriptList>
      <!-- ScriptCount=1 -->
      <ScriptRecord index="0">
        <ScriptTag value="latn"/>
        <Script>
          <DefaultLangSys>
            <ReqFeatureIndex value="65535"/>
            <!-- FeatureCount=1 -->
            <FeatureIndex index="0" value="0"/>
          </DefaultLangSys>
          <!-- LangSysCount=1 -->
          <LangSysRecord index="0">
            <LangSysTag value="TRK "/>
            <LangSys>
              <ReqFeatureIndex value="0"/>
              <!-- FeatureCount=0 -->
            </LangSys>
          </LangSysRecord>
        </Script>
      </ScriptRecord>
    </ScriptList>
    <FeatureList>
      <!-- FeatureCount=1 -->
      <FeatureRecord index="0">
        <FeatureTag value="liga"/>
        <Feature>
          <!-- LookupCount=2 -->
          <LookupListIndex index="0" value="0"/>
          <LookupListIndex index="1" value="1"/>
        </Feature>
      </FeatureRecord>
    </FeatureList>
    <LookupList>
      <!-- LookupCount=2 -->
      <Lookup index="0">
        <LookupType value="4"/>
        <LookupFlag value="8"/><!-- ignoreMarks -->
        <!-- SubTableCount=1 -->
        <LigatureSubst index="0" Format="1">
          <LigatureSet glyph="f">
            <Ligature components="f,i" glyph="f_f_i"/>
            <Ligature components="i" glyph="fi"/>
          </LigatureSet>
        </LigatureSubst>
      </Lookup>
      <Lookup index="1">
        <LookupType value="7"/>
        <LookupFlag value="0"/>
        <!-- SubTableCount=1 -->
        <ExtensionSubst index="0" Format="1">
          <ExtensionLookupType value="3"/>
          <AlternateSubst Format="1">
            <AlternateSet glyph="f">
              <Alternate glyph="fi"/>
              <Alternate glyph="i"/>
            </AlternateSet>
          </AlternateSubst>
        </ExtensionSubst>
      </Lookup>
    </LookupList>
  </GSUB>
</ttFont>
`

type names []string

func (n names) GlyphName(gid ot.GlyphIndex) string {
	return n[gid]
}

func TestParseTTXGSUB(t *testing.T) {
	exp, err := ParseTTXGSUB([]byte(ttxDump))
	require.NoError(t, err)
	require.Len(t, exp.Scripts, 1)
	latn := exp.Scripts[0]
	assert.Equal(t, "latn", latn.Tag)
	require.NotNil(t, latn.Default)
	assert.Equal(t, ExpectedLangSys{Required: NoRequiredFeature, Features: []int{0}}, *latn.Default)
	require.Len(t, latn.LangSys, 1)
	assert.Equal(t, "TRK ", latn.LangSys[0].Tag)
	assert.Equal(t, 0, latn.LangSys[0].LangSys.Required)
	assert.Equal(t, []ExpectedFeature{{Tag: "liga", Lookups: []int{0, 1}}}, exp.Features)

	require.Len(t, exp.Lookups, 2)
	liga := exp.Lookups[0]
	assert.Equal(t, 4, liga.Type)
	assert.Equal(t, uint16(8), liga.Flag)
	require.Len(t, liga.Subtables, 1)
	assert.Equal(t, []ExpectedLigature{
		{Components: []string{"f", "i"}, Glyph: "f_f_i"},
		{Components: []string{"i"}, Glyph: "fi"},
	}, liga.Subtables[0].Ligatures["f"])

	ext := exp.Lookups[1]
	assert.Equal(t, 7, ext.Type)
	require.Len(t, ext.Subtables, 1)
	assert.True(t, ext.Subtables[0].Extension)
	assert.Equal(t, 3, ext.Subtables[0].Type)
	assert.Equal(t, []string{"fi", "i"}, ext.Subtables[0].Alternates["f"])
}

func TestFromGSubMatchesTTX(t *testing.T) {
	// glyphs: 0 .notdef, 1 f, 2 i, 3 fi, 4 f_f_i
	glyphs := names{".notdef", "f", "i", "fi", "f_f_i"}
	gsub := ot.NewGSubTable()
	gsub.Scripts = []*ot.Script{{
		Tag:            ot.T("latn"),
		DefaultLangSys: &ot.LangSys{FeatureIndices: []uint16{0}},
		LangSystems: []ot.LangSysRecord{{
			Tag:     ot.T("TRK"),
			LangSys: &ot.LangSys{RequiredFeature: ot.Some[uint16](0)},
		}},
	}}
	gsub.Features = []*ot.Feature{{Tag: ot.T("liga"), LookupIndices: []uint16{0, 1}}}
	gsub.Lookups = []*ot.Lookup{
		{Type: 4, Flag: 8, Subtables: []ot.Subtable{&ot.LigatureSubst{
			Ligatures: map[ot.GlyphIndex][]ot.Ligature{
				1: {{Components: []ot.GlyphIndex{1, 2}, Glyph: 4}, {Components: []ot.GlyphIndex{2}, Glyph: 3}},
			},
		}}},
		{Type: 7, Subtables: []ot.Subtable{&ot.ExtensionSubst{
			Type:     3,
			Subtable: &ot.AlternateSubst{Alternates: map[ot.GlyphIndex][]ot.GlyphIndex{1: {3, 2}}},
		}}},
	}
	want, err := ParseTTXGSUB([]byte(ttxDump))
	require.NoError(t, err)
	assert.Empty(t, Diff(want, FromGSub(gsub, glyphs)))

	gsub.Lookups[1].Flag = 1
	assert.NotEmpty(t, Diff(want, FromGSub(gsub, glyphs)))
}

func TestParseErrors(t *testing.T) {
	_, err := ParseTTXGSUB([]byte(`<ttFont><GPOS/></ttFont>`))
	assert.EqualError(t, err, "ttx: missing GSUB")
	_, err = ParseTTXGSUB([]byte(`<ttFont><GSUB><LookupList><Lookup index="0">
		<LookupType value="1"/><AlternateSubst/></Lookup></LookupList></GSUB></ttFont>`))
	assert.EqualError(t, err, "ttx: unsupported lookup type 1 with AlternateSubst")
	_, err = ParseTTXGSUBFile("does-not-exist.ttx")
	assert.Error(t, err)
}
