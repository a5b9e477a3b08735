package ot

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var layoutCmpOpts = []cmp.Option{
	cmp.AllowUnexported(Option[uint16]{}),
	cmpopts.IgnoreUnexported(GSubTable{}),
	cmpopts.EquateEmpty(),
}

// sampleGSub uses every lookup type and both header versions' features.
func sampleGSub() *GSubTable {
	gsub := NewGSubTable()
	gsub.MinorVersion = 1
	gsub.Scripts = []*Script{
		{Tag: T("DFLT"), DefaultLangSys: &LangSys{FeatureIndices: []uint16{0, 1}}},
		{Tag: T("latn"), LangSystems: []LangSysRecord{
			{Tag: T("TRK "), LangSys: &LangSys{RequiredFeature: Some(uint16(2)), FeatureIndices: []uint16{0}}},
		}},
	}
	gsub.Features = []*Feature{
		{Tag: T("salt"), LookupIndices: []uint16{0, 1}},
		{Tag: T("liga"), LookupIndices: []uint16{3}},
		{Tag: T("ss01"), Params: []byte{0, 0, 1, 8}, LookupIndices: []uint16{2}},
	}
	gsub.Lookups = []*Lookup{
		{Type: GSubLookupTypeSingle, Subtables: []Subtable{
			&SingleSubst{Mapping: map[GlyphIndex]GlyphIndex{10: 20, 11: 21, 12: 22}},
			&SingleSubst{Mapping: map[GlyphIndex]GlyphIndex{10: 5, 30: 7}},
		}},
		{Type: GSubLookupTypeAlternate, Flag: LookupUseMarkFilteringSet | 0x0008,
			MarkFilteringSet: Some(uint16(3)), Subtables: []Subtable{
				&AlternateSubst{Alternates: map[GlyphIndex][]GlyphIndex{10: {40, 41}, 11: {42}}},
			}},
		{Type: GSubLookupTypeMultiple, Subtables: []Subtable{
			&MultipleSubst{Mapping: map[GlyphIndex][]GlyphIndex{50: {51, 52, 53}}},
		}},
		{Type: GSubLookupTypeLigature, Subtables: []Subtable{
			&LigatureSubst{Ligatures: map[GlyphIndex][]Ligature{
				60: {{Components: []GlyphIndex{61, 62}, Glyph: 70}, {Components: []GlyphIndex{61}, Glyph: 71}},
			}},
		}},
		{Type: GSubLookupTypeContext, Subtables: []Subtable{
			&ContextSubst{Format: 1, Coverage: []GlyphIndex{10, 11}, RuleSets: [][]SequenceRule{
				{{Input: []uint16{11}, Records: []SequenceLookup{{SequenceIndex: 0, LookupIndex: 0}}}},
				{{Input: []uint16{10, 12}, Records: []SequenceLookup{{SequenceIndex: 1, LookupIndex: 1}}}},
			}},
			&ContextSubst{Format: 2, Coverage: []GlyphIndex{10, 11, 12},
				ClassDef: ClassDef{10: 1, 11: 1, 12: 2},
				RuleSets: [][]SequenceRule{
					nil,
					{{Input: []uint16{2}, Records: []SequenceLookup{{SequenceIndex: 0, LookupIndex: 2}}}},
				}},
			&ContextSubst{Format: 3, InputCoverages: [][]GlyphIndex{{10, 11}, {12}},
				Records: []SequenceLookup{{SequenceIndex: 1, LookupIndex: 0}}},
		}},
		{Type: GSubLookupTypeChainingContext, Subtables: []Subtable{
			&ChainContextSubst{Format: 1, Coverage: []GlyphIndex{10}, RuleSets: [][]ChainedSequenceRule{
				{{Backtrack: []uint16{9}, Input: []uint16{11}, Lookahead: []uint16{12, 13},
					Records: []SequenceLookup{{SequenceIndex: 0, LookupIndex: 1}}}},
			}},
			&ChainContextSubst{Format: 2, Coverage: []GlyphIndex{10},
				BacktrackClassDef: ClassDef{9: 1},
				InputClassDef:     ClassDef{10: 1, 11: 2},
				LookaheadClassDef: ClassDef{12: 3},
				RuleSets: [][]ChainedSequenceRule{
					nil,
					{{Backtrack: []uint16{1}, Input: []uint16{2}, Lookahead: []uint16{3},
						Records: []SequenceLookup{{SequenceIndex: 1, LookupIndex: 0}}}},
				}},
			&ChainContextSubst{Format: 3,
				BacktrackCoverages: [][]GlyphIndex{{9}},
				InputCoverages:     [][]GlyphIndex{{10, 11}},
				LookaheadCoverages: [][]GlyphIndex{{12}, {13, 14}},
				Records:            []SequenceLookup{{SequenceIndex: 0, LookupIndex: 3}}},
		}},
		{Type: GSubLookupTypeExtensionSubs, Subtables: []Subtable{
			&ExtensionSubst{Type: GSubLookupTypeSingle, Subtable: &SingleSubst{
				Mapping: map[GlyphIndex]GlyphIndex{80: 81}},
			},
		}},
		{Type: GSubLookupTypeReverseChainSingle, Subtables: []Subtable{
			&ReverseChainSubst{Coverage: []GlyphIndex{90, 91},
				BacktrackCoverages: [][]GlyphIndex{{88}},
				LookaheadCoverages: [][]GlyphIndex{{92}},
				Substitutes:        []GlyphIndex{95, 96}},
		}},
	}
	gsub.FeatureVariations = []*FeatureVariationRecord{
		{
			Conditions: [][]byte{{0, 1, 0, 0, 0x20, 0, 0x40, 0}},
			Substitutions: []FeatureSubstitution{
				{FeatureIndex: 0, Alternate: &Feature{Tag: T("salt"), LookupIndices: []uint16{1}}},
			},
		},
	}
	return gsub
}

func TestGSubRoundTrip(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "addglyph.ot")
	defer teardown()
	//
	gsub := sampleGSub()
	b, err := gsub.encode()
	require.NoError(t, err)
	ec := &errorCollector{}
	parsed, err := parseGSub(T("GSUB"), b, 0, uint32(len(b)), ec)
	require.NoError(t, err)
	assert.Empty(t, ec.errors)
	assert.Empty(t, ec.warnings)
	got := parsed.Self().AsGSub()
	require.NotNil(t, got)
	if diff := cmp.Diff(gsub, got, layoutCmpOpts...); diff != "" {
		t.Errorf("GSUB round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestGSubVersion10(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "addglyph.ot")
	defer teardown()
	//
	gsub := NewGSubTable()
	gsub.Scripts = []*Script{{Tag: T("DFLT"), DefaultLangSys: &LangSys{}}}
	b, err := gsub.encode()
	require.NoError(t, err)
	assert.Equal(t, uint16(0), u16(b[2:]))
	parsed, err := parseGSub(T("GSUB"), b, 0, uint32(len(b)), &errorCollector{})
	require.NoError(t, err)
	got := parsed.Self().AsGSub()
	assert.Equal(t, uint16(0), got.MinorVersion)
	require.Len(t, got.Scripts, 1)
	assert.NotNil(t, got.Scripts[0].DefaultLangSys)
	assert.Empty(t, got.Features)
	assert.Empty(t, got.Lookups)
}

func TestGSubRejectsMismatchedSubtable(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "addglyph.ot")
	defer teardown()
	//
	gsub := NewGSubTable()
	gsub.Lookups = []*Lookup{{Type: GSubLookupTypeSingle, Subtables: []Subtable{
		&AlternateSubst{Alternates: map[GlyphIndex][]GlyphIndex{1: {2}}},
	}}}
	_, err := gsub.encode()
	assert.Error(t, err)
}

func TestGSubExtensionPromotion(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "addglyph.ot")
	defer teardown()
	//
	gsub := NewGSubTable()
	const size = 3000
	for i := 0; i < 15; i++ {
		m := make(map[GlyphIndex]GlyphIndex, size)
		for g := 0; g < size; g++ {
			m[GlyphIndex(i+g)] = GlyphIndex((g*7+i)%60000 + 1)
		}
		gsub.Lookups = append(gsub.Lookups, &Lookup{Type: GSubLookupTypeSingle,
			Subtables: []Subtable{&SingleSubst{Mapping: m}}})
	}
	_, err := gsub.pack(false)
	require.True(t, errors.Is(err, ErrOffsetOverflow), "expected overflow, got %v", err)

	b, err := gsub.encode()
	require.NoError(t, err)
	parsed, err := parseGSub(T("GSUB"), b, 0, uint32(len(b)), &errorCollector{})
	require.NoError(t, err)
	got := parsed.Self().AsGSub()
	require.Len(t, got.Lookups, 15)
	for i, l := range got.Lookups {
		assert.Equal(t, GSubLookupTypeExtensionSubs, l.Type)
		assert.Equal(t, GSubLookupTypeSingle, l.EffectiveType())
		ext := l.Subtables[0].(*ExtensionSubst)
		want := gsub.Lookups[i].Subtables[0].(*SingleSubst).Mapping
		assert.Equal(t, want, ext.Subtable.(*SingleSubst).Mapping, "lookup %d", i)
	}
}

func TestLayoutNavigation(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "addglyph.ot")
	defer teardown()
	//
	gsub := sampleGSub()
	dflt := gsub.Script(T("DFLT"))
	require.NotNil(t, dflt)
	assert.Same(t, dflt.DefaultLangSys, dflt.LangSys(T("dflt")))
	assert.Nil(t, gsub.Script(T("cyrl")))
	trk := gsub.Script(T("latn")).LangSys(T("TRK "))
	require.NotNil(t, trk)
	assert.True(t, gsub.HasFeature(trk, T("salt")))
	assert.False(t, gsub.HasFeature(trk, T("liga")))
	assert.Len(t, gsub.AllLangSys(), 2)
	assert.Len(t, gsub.Lookups[4].Subtables[0].(*ContextSubst).LookupRecords(), 2)
}
