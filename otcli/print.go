package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/npillmayer/addglyph/ot"
)

// Lookup flag bits
const (
	flagRightToLeft         uint16 = 0x0001
	flagIgnoreBaseGlyphs    uint16 = 0x0002
	flagIgnoreLigatures     uint16 = 0x0004
	flagIgnoreMarks         uint16 = 0x0008
	flagUseMarkFilteringSet uint16 = ot.LookupUseMarkFilteringSet
	flagMarkAttachmentType  uint16 = 0xFF00
)

var lookupTypeNames = []string{
	"Unknown(0)",
	"Single",
	"Multiple",
	"Alternate",
	"Ligature",
	"Context",
	"ChainingContext",
	"Extension",
	"ReverseChainSingle",
}

func formatLookupType(ltype uint16) string {
	if int(ltype) < len(lookupTypeNames) && ltype > 0 {
		return lookupTypeNames[ltype]
	}
	return fmt.Sprintf("Unknown(%d)", ltype)
}

// formatLookup shows the effective type of extension lookups, too.
func formatLookup(l *ot.Lookup) string {
	s := formatLookupType(l.Type)
	if eff := l.EffectiveType(); eff != l.Type {
		s += "(" + formatLookupType(eff) + ")"
	}
	return s
}

func formatLookupFlags(l *ot.Lookup) string {
	flag := l.Flag
	if flag == 0 {
		return "-"
	}
	parts := make([]string, 0, 6)
	if flag&flagRightToLeft != 0 {
		parts = append(parts, "RightToLeft")
	}
	if flag&flagIgnoreBaseGlyphs != 0 {
		parts = append(parts, "IgnoreBase")
	}
	if flag&flagIgnoreLigatures != 0 {
		parts = append(parts, "IgnoreLigatures")
	}
	if flag&flagIgnoreMarks != 0 {
		parts = append(parts, "IgnoreMarks")
	}
	if flag&flagUseMarkFilteringSet != 0 {
		parts = append(parts, fmt.Sprintf("UseMarkFilteringSet=%s", l.MarkFilteringSet))
	}
	if flag&flagMarkAttachmentType != 0 {
		parts = append(parts, fmt.Sprintf("MarkAttachType=%d", flag>>8))
	}
	return strings.Join(parts, "|")
}

func formatTags(gsub *ot.GSubTable, indices []uint16) string {
	if len(indices) == 0 {
		return "-"
	}
	tags := make([]string, len(indices))
	for i, fi := range indices {
		if int(fi) < len(gsub.Features) {
			tags[i] = fmt.Sprintf("%d:%s", fi, gsub.Features[fi].Tag)
		} else {
			tags[i] = fmt.Sprintf("%d:?", fi)
		}
	}
	return strings.Join(tags, " ")
}

func formatIndices(indices []uint16) string {
	if len(indices) == 0 {
		return "-"
	}
	s := make([]string, len(indices))
	for i, x := range indices {
		s[i] = fmt.Sprintf("%d", x)
	}
	return strings.Join(s, " ")
}

// scriptRows lists every language system of a GSUB table.
func scriptRows(gsub *ot.GSubTable) [][]string {
	data := [][]string{
		{"Script", "LangSys", "Required", "Features"},
	}
	row := func(script ot.Tag, lang string, ls *ot.LangSys) []string {
		req := "-"
		if fi, ok := ls.RequiredFeature.Unwrap(); ok {
			req = formatTags(gsub, []uint16{fi})
		}
		return []string{script.String(), lang, req, formatTags(gsub, ls.FeatureIndices)}
	}
	for _, s := range gsub.Scripts {
		if s.DefaultLangSys != nil {
			data = append(data, row(s.Tag, "(default)", s.DefaultLangSys))
		}
		for _, rec := range s.LangSystems {
			data = append(data, row(s.Tag, rec.Tag.String(), rec.LangSys))
		}
	}
	return data
}

func featureRows(gsub *ot.GSubTable) [][]string {
	data := [][]string{
		{"Index", "Tag", "Lookups"},
	}
	for i, f := range gsub.Features {
		data = append(data, []string{fmt.Sprintf("%d", i), f.Tag.String(), formatIndices(f.LookupIndices)})
	}
	return data
}

func lookupRows(gsub *ot.GSubTable) [][]string {
	data := [][]string{
		{"Index", "Type", "Flags", "Subtables", "Features"},
	}
	for i, l := range gsub.Lookups {
		var users []string
		for _, f := range gsub.Features {
			if slices.Contains(f.LookupIndices, uint16(i)) && !slices.Contains(users, f.Tag.String()) {
				users = append(users, f.Tag.String())
			}
		}
		used := "-"
		if len(users) > 0 {
			used = strings.Join(users, " ")
		}
		data = append(data, []string{
			fmt.Sprintf("%d", i),
			formatLookup(l),
			formatLookupFlags(l),
			fmt.Sprintf("%d", len(l.Subtables)),
			used,
		})
	}
	return data
}

func subtableRows(l *ot.Lookup) [][]string {
	data := [][]string{
		{"Sub", "Type", "Summary"},
	}
	for i, st := range l.Subtables {
		data = append(data, []string{
			fmt.Sprintf("%d", i),
			formatLookupType(st.LookupType()),
			formatSubtable(st),
		})
	}
	return data
}

func formatSubtable(st ot.Subtable) string {
	switch s := st.(type) {
	case *ot.SingleSubst:
		return fmt.Sprintf("%d mappings", len(s.Mapping))
	case *ot.MultipleSubst:
		return fmt.Sprintf("%d sequences", len(s.Mapping))
	case *ot.AlternateSubst:
		n := 0
		for _, alts := range s.Alternates {
			n += len(alts)
		}
		return fmt.Sprintf("%d glyphs, %d alternates", len(s.Alternates), n)
	case *ot.LigatureSubst:
		n := 0
		for _, ligs := range s.Ligatures {
			n += len(ligs)
		}
		return fmt.Sprintf("%d ligatures", n)
	case *ot.ContextSubst:
		return fmt.Sprintf("format %d, lookups %s", s.Format, formatRecords(s.LookupRecords()))
	case *ot.ChainContextSubst:
		return fmt.Sprintf("format %d, lookups %s", s.Format, formatRecords(s.LookupRecords()))
	case *ot.ExtensionSubst:
		if s.Subtable == nil {
			return "extension, empty"
		}
		return fmt.Sprintf("extension of %s: %s", formatLookupType(s.Type), formatSubtable(s.Subtable))
	case *ot.ReverseChainSubst:
		return fmt.Sprintf("%d substitutes", len(s.Substitutes))
	}
	return fmt.Sprintf("%T", st)
}

// formatRecords lists the distinct lookups referenced by sequence lookup
// records.
func formatRecords(records []*ot.SequenceLookup) string {
	var lookups []uint16
	for _, r := range records {
		if !slices.Contains(lookups, r.LookupIndex) {
			lookups = append(lookups, r.LookupIndex)
		}
	}
	slices.Sort(lookups)
	return formatIndices(lookups)
}
