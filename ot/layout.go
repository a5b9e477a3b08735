package ot

import (
	"fmt"
	"slices"
)

// GSubTable is the decoded 'GSUB' table of a font.
//
// The layout hierarchy is kept in slices (script list, feature list, lookup
// list) which are addressed by index, just like in the binary format. Offsets
// are resolved when the table is read and re-calculated when it is written.
// Clients may edit every part of the structure, but have to keep indices
// consistent: features reference lookups by index, language systems reference
// features by index, and contextual subtables reference lookups by index.
type GSubTable struct {
	tableBase
	MinorVersion      uint16 // 0, or 1 if the table has feature variations
	Scripts           []*Script
	Features          []*Feature
	Lookups           []*Lookup
	FeatureVariations []*FeatureVariationRecord
}

func newGSubTable(tag Tag, b binarySegm, offset, size uint32) *GSubTable {
	t := &GSubTable{tableBase: makeTableBase(tag, b, offset, size)}
	t.self = t
	return t
}

// NewGSubTable creates an empty GSUB table of version 1.0, suitable to be
// added to a font with Font.SetTable.
func NewGSubTable() *GSubTable {
	return newGSubTable(T("GSUB"), nil, 0, 0)
}

// Script is an entry of the script list.
type Script struct {
	Tag            Tag
	DefaultLangSys *LangSys // may be nil
	LangSystems    []LangSysRecord
}

// LangSysRecord associates a language tag with a language system.
type LangSysRecord struct {
	Tag     Tag
	LangSys *LangSys
}

// LangSys is a language system table: the features to apply for a
// script/language combination.
type LangSys struct {
	RequiredFeature Option[uint16] // index into the feature list
	FeatureIndices  []uint16
}

// Feature is an entry of the feature list.
type Feature struct {
	Tag           Tag
	Params        []byte // raw FeatureParams table, nil if absent
	LookupIndices []uint16
}

// FeatureVariationRecord substitutes alternate feature tables for a set of
// conditions. Conditions are kept in their binary form.
type FeatureVariationRecord struct {
	Conditions    [][]byte
	Substitutions []FeatureSubstitution
}

// FeatureSubstitution replaces the feature with index FeatureIndex by an
// alternate feature table. The alternate's Tag is unused.
type FeatureSubstitution struct {
	FeatureIndex uint16
	Alternate    *Feature
}

// Lookup flag bit for lookups carrying a mark filtering set.
const LookupUseMarkFilteringSet uint16 = 0x0010

// GSUB lookup types
const (
	GSubLookupTypeSingle             uint16 = 1
	GSubLookupTypeMultiple           uint16 = 2
	GSubLookupTypeAlternate          uint16 = 3
	GSubLookupTypeLigature           uint16 = 4
	GSubLookupTypeContext            uint16 = 5
	GSubLookupTypeChainingContext    uint16 = 6
	GSubLookupTypeExtensionSubs      uint16 = 7
	GSubLookupTypeReverseChainSingle uint16 = 8
)

// Lookup is an entry of the lookup list.
type Lookup struct {
	Type             uint16
	Flag             uint16
	MarkFilteringSet Option[uint16] // present if Flag has LookupUseMarkFilteringSet set
	Subtables        []Subtable
}

// EffectiveType returns the lookup type, looking through extension
// subtables. An extension lookup without subtables yields type 7.
func (l *Lookup) EffectiveType() uint16 {
	if l.Type == GSubLookupTypeExtensionSubs && len(l.Subtables) > 0 {
		if ext, ok := l.Subtables[0].(*ExtensionSubst); ok {
			return ext.Type
		}
	}
	return l.Type
}

// --- Subtables -------------------------------------------------------------

// Subtable is a lookup subtable. The set of subtable types is closed:
// SingleSubst, MultipleSubst, AlternateSubst, LigatureSubst, ContextSubst,
// ChainContextSubst, ExtensionSubst and ReverseChainSubst.
type Subtable interface {
	LookupType() uint16
	isSubtable()
}

// SingleSubst replaces one glyph by another (lookup type 1).
type SingleSubst struct {
	Mapping map[GlyphIndex]GlyphIndex
}

// MultipleSubst replaces one glyph by a sequence of glyphs (lookup type 2).
type MultipleSubst struct {
	Mapping map[GlyphIndex][]GlyphIndex
}

// AlternateSubst offers a set of alternates for a glyph (lookup type 3).
type AlternateSubst struct {
	Alternates map[GlyphIndex][]GlyphIndex
}

// LigatureSubst replaces a glyph sequence by a single glyph (lookup type 4).
// Ligatures are keyed by their first component and keep their order of
// preference.
type LigatureSubst struct {
	Ligatures map[GlyphIndex][]Ligature
}

// Ligature is a ligature glyph with its components after the first one.
type Ligature struct {
	Components []GlyphIndex
	Glyph      GlyphIndex
}

// SequenceLookup applies a lookup at a position of a matched sequence.
type SequenceLookup struct {
	SequenceIndex uint16
	LookupIndex   uint16
}

// ClassDef assigns classes to glyphs. Glyphs not in the map have class 0.
type ClassDef map[GlyphIndex]uint16

// SequenceRule is a rule of a contextual subtable of format 1 or 2.
// Input holds glyphs (format 1) or classes (format 2) of the input sequence,
// starting with the second position.
type SequenceRule struct {
	Input   []uint16
	Records []SequenceLookup
}

// ContextSubst is a contextual substitution (lookup type 5).
//
// Format 1 keeps one rule set per glyph of Coverage, format 2 one rule set
// per class of ClassDef; format 3 matches a sequence of coverages.
type ContextSubst struct {
	Format         uint16
	Coverage       []GlyphIndex     // formats 1 and 2
	ClassDef       ClassDef         // format 2
	RuleSets       [][]SequenceRule // formats 1 and 2
	InputCoverages [][]GlyphIndex   // format 3
	Records        []SequenceLookup // format 3
}

// ChainedSequenceRule is a rule of a chained contextual subtable of format
// 1 or 2.
type ChainedSequenceRule struct {
	Backtrack []uint16
	Input     []uint16 // starting with the second input position
	Lookahead []uint16
	Records   []SequenceLookup
}

// ChainContextSubst is a chained contextual substitution (lookup type 6).
type ChainContextSubst struct {
	Format             uint16
	Coverage           []GlyphIndex // formats 1 and 2
	BacktrackClassDef  ClassDef     // format 2
	InputClassDef      ClassDef     // format 2
	LookaheadClassDef  ClassDef     // format 2
	RuleSets           [][]ChainedSequenceRule
	BacktrackCoverages [][]GlyphIndex // format 3
	InputCoverages     [][]GlyphIndex // format 3
	LookaheadCoverages [][]GlyphIndex // format 3
	Records            []SequenceLookup
}

// ExtensionSubst wraps a subtable of another lookup type (lookup type 7).
type ExtensionSubst struct {
	Type     uint16
	Subtable Subtable
}

// ReverseChainSubst is a reverse chaining contextual single substitution
// (lookup type 8).
type ReverseChainSubst struct {
	Coverage           []GlyphIndex
	BacktrackCoverages [][]GlyphIndex
	LookaheadCoverages [][]GlyphIndex
	Substitutes        []GlyphIndex
}

func (*SingleSubst) LookupType() uint16       { return GSubLookupTypeSingle }
func (*MultipleSubst) LookupType() uint16     { return GSubLookupTypeMultiple }
func (*AlternateSubst) LookupType() uint16    { return GSubLookupTypeAlternate }
func (*LigatureSubst) LookupType() uint16     { return GSubLookupTypeLigature }
func (*ContextSubst) LookupType() uint16      { return GSubLookupTypeContext }
func (*ChainContextSubst) LookupType() uint16 { return GSubLookupTypeChainingContext }
func (*ExtensionSubst) LookupType() uint16    { return GSubLookupTypeExtensionSubs }
func (*ReverseChainSubst) LookupType() uint16 { return GSubLookupTypeReverseChainSingle }

func (*SingleSubst) isSubtable()       {}
func (*MultipleSubst) isSubtable()     {}
func (*AlternateSubst) isSubtable()    {}
func (*LigatureSubst) isSubtable()     {}
func (*ContextSubst) isSubtable()      {}
func (*ChainContextSubst) isSubtable() {}
func (*ExtensionSubst) isSubtable()    {}
func (*ReverseChainSubst) isSubtable() {}

// LookupRecords returns pointers to every nested lookup record.
func (s *ContextSubst) LookupRecords() []*SequenceLookup {
	var recs []*SequenceLookup
	for i := range s.RuleSets {
		for j := range s.RuleSets[i] {
			for k := range s.RuleSets[i][j].Records {
				recs = append(recs, &s.RuleSets[i][j].Records[k])
			}
		}
	}
	for k := range s.Records {
		recs = append(recs, &s.Records[k])
	}
	return recs
}

// LookupRecords returns pointers to every nested lookup record.
func (s *ChainContextSubst) LookupRecords() []*SequenceLookup {
	var recs []*SequenceLookup
	for i := range s.RuleSets {
		for j := range s.RuleSets[i] {
			for k := range s.RuleSets[i][j].Records {
				recs = append(recs, &s.RuleSets[i][j].Records[k])
			}
		}
	}
	for k := range s.Records {
		recs = append(recs, &s.Records[k])
	}
	return recs
}

// --- Navigation helpers ----------------------------------------------------

// Script returns the script with a given tag, or nil.
func (t *GSubTable) Script(tag Tag) *Script {
	for _, s := range t.Scripts {
		if s.Tag == tag {
			return s
		}
	}
	return nil
}

// LangSys returns the language system of a script for a language tag, or
// nil. Tag "dflt" selects the default language system.
func (s *Script) LangSys(tag Tag) *LangSys {
	if tag == T("dflt") {
		return s.DefaultLangSys
	}
	for _, rec := range s.LangSystems {
		if rec.Tag == tag {
			return rec.LangSys
		}
	}
	return nil
}

// AllLangSys returns every language system of the table, default language
// systems first within each script.
func (t *GSubTable) AllLangSys() []*LangSys {
	var all []*LangSys
	for _, s := range t.Scripts {
		if s.DefaultLangSys != nil {
			all = append(all, s.DefaultLangSys)
		}
		for _, rec := range s.LangSystems {
			if rec.LangSys != nil {
				all = append(all, rec.LangSys)
			}
		}
	}
	return all
}

// HasFeature is true if the language system references a feature with the
// given tag.
func (t *GSubTable) HasFeature(ls *LangSys, tag Tag) bool {
	return slices.ContainsFunc(ls.FeatureIndices, func(inx uint16) bool {
		return int(inx) < len(t.Features) && t.Features[inx].Tag == tag
	})
}

func (t *GSubTable) String() string {
	return fmt.Sprintf("GSUB(1.%d: %d scripts, %d features, %d lookups)",
		t.MinorVersion, len(t.Scripts), len(t.Features), len(t.Lookups))
}
