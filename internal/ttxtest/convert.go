package ttxtest

import (
	"maps"
	"slices"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/npillmayer/addglyph/ot"
)

// GlyphNamer names glyphs. *ot.Font is a GlyphNamer.
type GlyphNamer interface {
	GlyphName(ot.GlyphIndex) string
}

// FromGSub normalizes a decoded GSUB table the way ParseTTXGSUB normalizes
// a TTX dump.
func FromGSub(gsub *ot.GSubTable, names GlyphNamer) *ExpectedGSUB {
	exp := &ExpectedGSUB{}
	for _, s := range gsub.Scripts {
		script := ExpectedScript{Tag: s.Tag.String()}
		if s.DefaultLangSys != nil {
			ls := fromLangSys(s.DefaultLangSys)
			script.Default = &ls
		}
		for _, rec := range s.LangSystems {
			script.LangSys = append(script.LangSys, ExpectedLangSysRecord{
				Tag:     rec.Tag.String(),
				LangSys: fromLangSys(rec.LangSys),
			})
		}
		exp.Scripts = append(exp.Scripts, script)
	}
	for _, f := range gsub.Features {
		feature := ExpectedFeature{Tag: f.Tag.String()}
		for _, inx := range f.LookupIndices {
			feature.Lookups = append(feature.Lookups, int(inx))
		}
		exp.Features = append(exp.Features, feature)
	}
	for i, l := range gsub.Lookups {
		lookup := ExpectedLookup{Index: i, Type: int(l.Type), Flag: l.Flag}
		for _, st := range l.Subtables {
			lookup.Subtables = append(lookup.Subtables, fromSubtable(st, names))
		}
		exp.Lookups = append(exp.Lookups, lookup)
	}
	return exp
}

func fromLangSys(ls *ot.LangSys) ExpectedLangSys {
	exp := ExpectedLangSys{Required: int(ls.RequiredFeature.Or(NoRequiredFeature))}
	for _, fi := range ls.FeatureIndices {
		exp.Features = append(exp.Features, int(fi))
	}
	return exp
}

func fromSubtable(st ot.Subtable, names GlyphNamer) ExpectedSubtable {
	exp := ExpectedSubtable{Type: int(st.LookupType())}
	nameAll := func(glyphs []ot.GlyphIndex) []string {
		s := make([]string, len(glyphs))
		for i, g := range glyphs {
			s[i] = names.GlyphName(g)
		}
		return s
	}
	switch s := st.(type) {
	case *ot.SingleSubst:
		exp.SingleSubst = make(map[string]string)
		for _, g := range slices.Sorted(maps.Keys(s.Mapping)) {
			exp.Coverage = append(exp.Coverage, names.GlyphName(g))
			exp.SingleSubst[names.GlyphName(g)] = names.GlyphName(s.Mapping[g])
		}
	case *ot.AlternateSubst:
		exp.Alternates = make(map[string][]string)
		for _, g := range slices.Sorted(maps.Keys(s.Alternates)) {
			exp.Coverage = append(exp.Coverage, names.GlyphName(g))
			exp.Alternates[names.GlyphName(g)] = nameAll(s.Alternates[g])
		}
	case *ot.LigatureSubst:
		exp.Ligatures = make(map[string][]ExpectedLigature)
		for _, g := range slices.Sorted(maps.Keys(s.Ligatures)) {
			var ligs []ExpectedLigature
			for _, lig := range s.Ligatures[g] {
				ligs = append(ligs, ExpectedLigature{
					Components: nameAll(lig.Components),
					Glyph:      names.GlyphName(lig.Glyph),
				})
			}
			exp.Coverage = append(exp.Coverage, names.GlyphName(g))
			exp.Ligatures[names.GlyphName(g)] = ligs
		}
	case *ot.ExtensionSubst:
		if s.Subtable != nil {
			exp = fromSubtable(s.Subtable, names)
		} else {
			exp.Type = int(s.Type)
		}
		exp.Extension = true
	}
	return exp
}

// Diff compares two normalized tables, treating nil and empty collections
// as equal. It returns an empty string for equal tables.
func Diff(want, got *ExpectedGSUB) string {
	return cmp.Diff(want, got, cmpopts.EquateEmpty())
}
