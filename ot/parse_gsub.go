package ot

import (
	"fmt"
	"strconv"
)

// parseGSub parses the GSUB (Glyph Substitution) table.
// Every lookup type is decoded; offsets are resolved into the slices of
// GSubTable.
func parseGSub(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	gsub := newGSubTable(tag, b, offset, size)
	r := newReader(b, 0)
	major, minor := r.u16(), r.u16()
	scriptListOffset, featureListOffset, lookupListOffset := r.u16(), r.u16(), r.u16()
	var featureVariationsOffset uint32
	if minor >= 1 {
		featureVariationsOffset = r.u32()
	}
	if r.err != nil || major != 1 {
		return nil, fmt.Errorf("unsupported GSUB header version %d.%d", major, minor)
	}
	gsub.MinorVersion = min(minor, 1)
	var err error
	if gsub.Scripts, err = parseScriptList(b, int(scriptListOffset)); err != nil {
		return nil, fmt.Errorf("script list: %w", err)
	}
	if gsub.Features, err = parseFeatureList(b, int(featureListOffset), ec); err != nil {
		return nil, fmt.Errorf("feature list: %w", err)
	}
	if gsub.Lookups, err = parseLookupList(b, int(lookupListOffset)); err != nil {
		return nil, fmt.Errorf("lookup list: %w", err)
	}
	if featureVariationsOffset != 0 {
		if gsub.FeatureVariations, err = parseFeatureVariations(b, int(featureVariationsOffset), gsub.Features, ec); err != nil {
			return nil, fmt.Errorf("feature variations: %w", err)
		}
	}
	tracer().Debugf("GSUB table has version %d.%d", major, minor)
	tracer().Debugf("GSUB table has %d lookup list entries", len(gsub.Lookups))
	return gsub, nil
}

// at returns the tail of b starting at a non-NULL offset.
func at(b binarySegm, offset int) (binarySegm, error) {
	if offset == 0 {
		return nil, fmt.Errorf("unexpected NULL offset")
	}
	return b.from(offset)
}

func parseScriptList(b binarySegm, offset int) ([]*Script, error) {
	if offset == 0 {
		return nil, nil
	}
	list, err := at(b, offset)
	if err != nil {
		return nil, err
	}
	r := newReader(list, 0)
	count := int(r.u16())
	scripts := make([]*Script, 0, count)
	for i := 0; i < count; i++ {
		tag, off := r.tag(), int(r.u16())
		if r.err != nil {
			return nil, r.err
		}
		s, err := parseScript(list, off)
		if err != nil {
			return nil, fmt.Errorf("script %s: %w", tag, err)
		}
		s.Tag = tag
		scripts = append(scripts, s)
	}
	return scripts, nil
}

func parseScript(b binarySegm, offset int) (*Script, error) {
	sb, err := at(b, offset)
	if err != nil {
		return nil, err
	}
	s := &Script{}
	r := newReader(sb, 0)
	defaultOffset := int(r.u16())
	count := int(r.u16())
	if defaultOffset != 0 {
		if s.DefaultLangSys, err = parseLangSys(sb, defaultOffset); err != nil {
			return nil, err
		}
	}
	for i := 0; i < count; i++ {
		tag, off := r.tag(), int(r.u16())
		if r.err != nil {
			return nil, r.err
		}
		ls, err := parseLangSys(sb, off)
		if err != nil {
			return nil, fmt.Errorf("language system %s: %w", tag, err)
		}
		s.LangSystems = append(s.LangSystems, LangSysRecord{Tag: tag, LangSys: ls})
	}
	return s, r.err
}

func parseLangSys(b binarySegm, offset int) (*LangSys, error) {
	lb, err := at(b, offset)
	if err != nil {
		return nil, err
	}
	r := newReader(lb, 2) // skip lookupOrderOffset
	ls := &LangSys{}
	if req := r.u16(); req != 0xffff {
		ls.RequiredFeature = Some(req)
	}
	ls.FeatureIndices = r.u16s(int(r.u16()))
	return ls, r.err
}

func parseFeatureList(b binarySegm, offset int, ec *errorCollector) ([]*Feature, error) {
	if offset == 0 {
		return nil, nil
	}
	list, err := at(b, offset)
	if err != nil {
		return nil, err
	}
	r := newReader(list, 0)
	count := int(r.u16())
	features := make([]*Feature, 0, count)
	for i := 0; i < count; i++ {
		tag, off := r.tag(), int(r.u16())
		if r.err != nil {
			return nil, r.err
		}
		f, err := parseFeature(list, off, tag, ec)
		if err != nil {
			return nil, fmt.Errorf("feature %d (%s): %w", i, tag, err)
		}
		features = append(features, f)
	}
	return features, nil
}

func parseFeature(b binarySegm, offset int, tag Tag, ec *errorCollector) (*Feature, error) {
	fb, err := at(b, offset)
	if err != nil {
		return nil, err
	}
	f := &Feature{Tag: tag}
	r := newReader(fb, 0)
	paramsOffset := int(r.u16())
	f.LookupIndices = r.u16s(int(r.u16()))
	if r.err != nil {
		return nil, r.err
	}
	if paramsOffset != 0 {
		size := featureParamsSize(tag, fb, paramsOffset)
		if size == 0 {
			ec.addWarning(T("GSUB"), fmt.Sprintf("feature parameters of %s dropped", tag), 0)
			return f, nil
		}
		params, err := fb.view(paramsOffset, size)
		if err != nil {
			return nil, fmt.Errorf("feature parameters: %w", err)
		}
		f.Params = []byte(params)
	}
	return f, nil
}

// featureParamsSize derives the size of a FeatureParams table from the
// feature tag, as the table itself carries no length. Returns 0 for unknown
// kinds of parameters.
func featureParamsSize(tag Tag, b binarySegm, offset int) int {
	name := tag.String()
	isNumbered := func(prefix string, lo, hi int) bool {
		if name[:2] != prefix {
			return false
		}
		n, err := strconv.Atoi(name[2:])
		return err == nil && n >= lo && n <= hi
	}
	switch {
	case name == "size":
		return 10
	case isNumbered("ss", 1, 20):
		return 4
	case isNumbered("cv", 1, 99):
		charCount, err := b.u16(offset + 12)
		if err != nil {
			return 0
		}
		return 14 + 3*int(charCount)
	}
	return 0
}

func parseLookupList(b binarySegm, offset int) ([]*Lookup, error) {
	if offset == 0 {
		return nil, nil
	}
	list, err := at(b, offset)
	if err != nil {
		return nil, err
	}
	r := newReader(list, 0)
	offsets := r.u16s(int(r.u16()))
	if r.err != nil {
		return nil, r.err
	}
	lookups := make([]*Lookup, 0, len(offsets))
	for i, off := range offsets {
		l, err := parseLookup(list, int(off))
		if err != nil {
			return nil, fmt.Errorf("lookup %d: %w", i, err)
		}
		lookups = append(lookups, l)
	}
	return lookups, nil
}

func parseLookup(b binarySegm, offset int) (*Lookup, error) {
	lb, err := at(b, offset)
	if err != nil {
		return nil, err
	}
	r := newReader(lb, 0)
	l := &Lookup{Type: r.u16(), Flag: r.u16()}
	offsets := r.u16s(int(r.u16()))
	if l.Flag&LookupUseMarkFilteringSet != 0 {
		l.MarkFilteringSet = Some(r.u16())
	}
	if r.err != nil {
		return nil, r.err
	}
	if l.Type < 1 || l.Type > 8 {
		return nil, fmt.Errorf("unknown lookup type %d", l.Type)
	}
	for i, off := range offsets {
		sb, err := at(lb, int(off))
		if err != nil {
			return nil, fmt.Errorf("subtable %d: %w", i, err)
		}
		st, err := parseSubtable(sb, l.Type, false)
		if err != nil {
			return nil, fmt.Errorf("subtable %d: %w", i, err)
		}
		l.Subtables = append(l.Subtables, st)
	}
	return l, nil
}

// parseSubtable decodes a lookup subtable of a given lookup type.
func parseSubtable(b binarySegm, lookupType uint16, inExtension bool) (Subtable, error) {
	format, err := b.u16(0)
	if err != nil {
		return nil, err
	}
	tracer().Debugf("parsing GSUB sub-table type %d, format %d", lookupType, format)
	switch lookupType {
	case GSubLookupTypeSingle:
		return parseSingleSubst(b, format)
	case GSubLookupTypeMultiple, GSubLookupTypeAlternate:
		if format != 1 {
			break
		}
		m, err := parseGlyphSequences(b)
		if err != nil {
			return nil, err
		}
		if lookupType == GSubLookupTypeMultiple {
			return &MultipleSubst{Mapping: m}, nil
		}
		return &AlternateSubst{Alternates: m}, nil
	case GSubLookupTypeLigature:
		if format == 1 {
			return parseLigatureSubst(b)
		}
	case GSubLookupTypeContext:
		return parseContextSubst(b, format)
	case GSubLookupTypeChainingContext:
		return parseChainContextSubst(b, format)
	case GSubLookupTypeExtensionSubs:
		if format != 1 || inExtension {
			break
		}
		r := newReader(b, 2)
		extType, extOffset := r.u16(), int(r.u32())
		if r.err != nil {
			return nil, r.err
		}
		if extType == GSubLookupTypeExtensionSubs {
			return nil, fmt.Errorf("extension subtable wraps another extension")
		}
		eb, err := at(b, extOffset)
		if err != nil {
			return nil, err
		}
		st, err := parseSubtable(eb, extType, true)
		if err != nil {
			return nil, err
		}
		return &ExtensionSubst{Type: extType, Subtable: st}, nil
	case GSubLookupTypeReverseChainSingle:
		if format == 1 {
			return parseReverseChainSubst(b)
		}
	}
	return nil, fmt.Errorf("unsupported format %d for lookup type %d", format, lookupType)
}

func coverageAt(b binarySegm, offset int) ([]GlyphIndex, error) {
	cb, err := at(b, offset)
	if err != nil {
		return nil, err
	}
	return parseCoverage(cb)
}

func classDefAt(b binarySegm, offset int) (ClassDef, error) {
	if offset == 0 {
		return ClassDef{}, nil
	}
	cb, err := b.from(offset)
	if err != nil {
		return nil, err
	}
	return parseClassDef(cb)
}

func parseSingleSubst(b binarySegm, format uint16) (Subtable, error) {
	r := newReader(b, 2)
	coverage, err := coverageAt(b, int(r.u16()))
	if err != nil {
		return nil, err
	}
	st := &SingleSubst{Mapping: make(map[GlyphIndex]GlyphIndex, len(coverage))}
	switch format {
	case 1:
		delta := r.u16()
		for _, g := range coverage {
			st.Mapping[g] = GlyphIndex(uint16(g) + delta)
		}
	case 2:
		substitutes := r.glyphs(int(r.u16()))
		if len(substitutes) != len(coverage) {
			return nil, fmt.Errorf("single substitution: %d substitutes for %d glyphs", len(substitutes), len(coverage))
		}
		for i, g := range coverage {
			st.Mapping[g] = substitutes[i]
		}
	default:
		return nil, fmt.Errorf("unsupported format %d for lookup type 1", format)
	}
	return st, r.err
}

// parseGlyphSequences decodes the common structure of multiple and
// alternate substitution subtables: a coverage and one glyph sequence per
// covered glyph.
func parseGlyphSequences(b binarySegm) (map[GlyphIndex][]GlyphIndex, error) {
	r := newReader(b, 2)
	coverage, err := coverageAt(b, int(r.u16()))
	if err != nil {
		return nil, err
	}
	offsets := r.u16s(int(r.u16()))
	if r.err != nil {
		return nil, r.err
	}
	if len(offsets) != len(coverage) {
		return nil, fmt.Errorf("%d sequences for %d glyphs", len(offsets), len(coverage))
	}
	m := make(map[GlyphIndex][]GlyphIndex, len(coverage))
	for i, off := range offsets {
		sb, err := at(b, int(off))
		if err != nil {
			return nil, err
		}
		sr := newReader(sb, 0)
		m[coverage[i]] = sr.glyphs(int(sr.u16()))
		if sr.err != nil {
			return nil, sr.err
		}
	}
	return m, nil
}

func parseLigatureSubst(b binarySegm) (Subtable, error) {
	r := newReader(b, 2)
	coverage, err := coverageAt(b, int(r.u16()))
	if err != nil {
		return nil, err
	}
	offsets := r.u16s(int(r.u16()))
	if r.err != nil || len(offsets) != len(coverage) {
		return nil, fmt.Errorf("ligature substitution: inconsistent ligature sets")
	}
	st := &LigatureSubst{Ligatures: make(map[GlyphIndex][]Ligature, len(coverage))}
	for i, off := range offsets {
		setb, err := at(b, int(off))
		if err != nil {
			return nil, err
		}
		sr := newReader(setb, 0)
		for _, ligOffset := range sr.u16s(int(sr.u16())) {
			lb, err := at(setb, int(ligOffset))
			if err != nil {
				return nil, err
			}
			lr := newReader(lb, 0)
			lig := Ligature{Glyph: GlyphIndex(lr.u16())}
			count := int(lr.u16())
			if count < 1 {
				return nil, fmt.Errorf("ligature has illegal component count %d", count)
			}
			lig.Components = lr.glyphs(count - 1)
			if lr.err != nil {
				return nil, lr.err
			}
			st.Ligatures[coverage[i]] = append(st.Ligatures[coverage[i]], lig)
		}
		if sr.err != nil {
			return nil, sr.err
		}
	}
	return st, nil
}

func (r *reader) sequenceLookups(n int) []SequenceLookup {
	var recs []SequenceLookup
	for i := 0; i < n && r.err == nil; i++ {
		recs = append(recs, SequenceLookup{SequenceIndex: r.u16(), LookupIndex: r.u16()})
	}
	return recs
}

// ruleSets follows a list of offsets to rule sets, each being a list of
// offsets to rules. NULL rule set offsets yield empty rule sets.
func ruleSets[R any](b binarySegm, offsets []uint16, parseRule func(*reader) R) ([][]R, error) {
	sets := make([][]R, len(offsets))
	for i, off := range offsets {
		if off == 0 {
			continue
		}
		setb, err := b.from(int(off))
		if err != nil {
			return nil, err
		}
		sr := newReader(setb, 0)
		for _, ruleOffset := range sr.u16s(int(sr.u16())) {
			rb, err := at(setb, int(ruleOffset))
			if err != nil {
				return nil, err
			}
			rr := newReader(rb, 0)
			rule := parseRule(rr)
			if rr.err != nil {
				return nil, rr.err
			}
			sets[i] = append(sets[i], rule)
		}
		if sr.err != nil {
			return nil, sr.err
		}
	}
	return sets, nil
}

func parseSequenceRule(r *reader) SequenceRule {
	glyphCount, lookupCount := int(r.u16()), int(r.u16())
	rule := SequenceRule{}
	if glyphCount == 0 {
		r.err = fmt.Errorf("sequence rule with empty input")
		return rule
	}
	rule.Input = r.u16s(glyphCount - 1)
	rule.Records = r.sequenceLookups(lookupCount)
	return rule
}

func parseChainedSequenceRule(r *reader) ChainedSequenceRule {
	rule := ChainedSequenceRule{}
	rule.Backtrack = r.u16s(int(r.u16()))
	inputCount := int(r.u16())
	if inputCount == 0 {
		r.err = fmt.Errorf("chained sequence rule with empty input")
		return rule
	}
	rule.Input = r.u16s(inputCount - 1)
	rule.Lookahead = r.u16s(int(r.u16()))
	rule.Records = r.sequenceLookups(int(r.u16()))
	return rule
}

func coverageList(b binarySegm, offsets []uint16) ([][]GlyphIndex, error) {
	var list [][]GlyphIndex
	for _, off := range offsets {
		cov, err := coverageAt(b, int(off))
		if err != nil {
			return nil, err
		}
		list = append(list, cov)
	}
	return list, nil
}

func parseContextSubst(b binarySegm, format uint16) (Subtable, error) {
	r := newReader(b, 2)
	st := &ContextSubst{Format: format}
	var err error
	switch format {
	case 1, 2:
		if st.Coverage, err = coverageAt(b, int(r.u16())); err != nil {
			return nil, err
		}
		if format == 2 {
			if st.ClassDef, err = classDefAt(b, int(r.u16())); err != nil {
				return nil, err
			}
		}
		offsets := r.u16s(int(r.u16()))
		if r.err != nil {
			return nil, r.err
		}
		st.RuleSets, err = ruleSets(b, offsets, parseSequenceRule)
		return st, err
	case 3:
		glyphCount, lookupCount := int(r.u16()), int(r.u16())
		offsets := r.u16s(glyphCount)
		st.Records = r.sequenceLookups(lookupCount)
		if r.err != nil {
			return nil, r.err
		}
		st.InputCoverages, err = coverageList(b, offsets)
		return st, err
	}
	return nil, fmt.Errorf("unsupported format %d for lookup type 5", format)
}

func parseChainContextSubst(b binarySegm, format uint16) (Subtable, error) {
	r := newReader(b, 2)
	st := &ChainContextSubst{Format: format}
	var err error
	switch format {
	case 1, 2:
		if st.Coverage, err = coverageAt(b, int(r.u16())); err != nil {
			return nil, err
		}
		if format == 2 {
			for _, cd := range []*ClassDef{&st.BacktrackClassDef, &st.InputClassDef, &st.LookaheadClassDef} {
				if *cd, err = classDefAt(b, int(r.u16())); err != nil {
					return nil, err
				}
			}
		}
		offsets := r.u16s(int(r.u16()))
		if r.err != nil {
			return nil, r.err
		}
		st.RuleSets, err = ruleSets(b, offsets, parseChainedSequenceRule)
		return st, err
	case 3:
		backtrack := r.u16s(int(r.u16()))
		input := r.u16s(int(r.u16()))
		lookahead := r.u16s(int(r.u16()))
		st.Records = r.sequenceLookups(int(r.u16()))
		if r.err != nil {
			return nil, r.err
		}
		if st.BacktrackCoverages, err = coverageList(b, backtrack); err != nil {
			return nil, err
		}
		if st.InputCoverages, err = coverageList(b, input); err != nil {
			return nil, err
		}
		st.LookaheadCoverages, err = coverageList(b, lookahead)
		return st, err
	}
	return nil, fmt.Errorf("unsupported format %d for lookup type 6", format)
}

func parseReverseChainSubst(b binarySegm) (Subtable, error) {
	r := newReader(b, 2)
	st := &ReverseChainSubst{}
	var err error
	if st.Coverage, err = coverageAt(b, int(r.u16())); err != nil {
		return nil, err
	}
	backtrack := r.u16s(int(r.u16()))
	lookahead := r.u16s(int(r.u16()))
	st.Substitutes = r.glyphs(int(r.u16()))
	if r.err != nil {
		return nil, r.err
	}
	if st.BacktrackCoverages, err = coverageList(b, backtrack); err != nil {
		return nil, err
	}
	st.LookaheadCoverages, err = coverageList(b, lookahead)
	return st, err
}

// --- Feature variations ----------------------------------------------------

func parseFeatureVariations(b binarySegm, offset int, features []*Feature, ec *errorCollector) ([]*FeatureVariationRecord, error) {
	fvb, err := at(b, offset)
	if err != nil {
		return nil, err
	}
	r := newReader(fvb, 4) // skip version
	count := int(r.u32())
	var records []*FeatureVariationRecord
	for i := 0; i < count; i++ {
		condOffset, substOffset := int(r.u32()), int(r.u32())
		if r.err != nil {
			return nil, r.err
		}
		rec := &FeatureVariationRecord{}
		if condOffset != 0 {
			if rec.Conditions, err = parseConditionSet(fvb, condOffset); err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
		}
		if substOffset != 0 {
			if rec.Substitutions, err = parseFeatureSubstitutions(fvb, substOffset, features, ec); err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseConditionSet(b binarySegm, offset int) ([][]byte, error) {
	cb, err := at(b, offset)
	if err != nil {
		return nil, err
	}
	r := newReader(cb, 0)
	offsets := make([]uint32, r.u16())
	for i := range offsets {
		offsets[i] = r.u32()
	}
	if r.err != nil {
		return nil, r.err
	}
	var conditions [][]byte
	for _, off := range offsets {
		cond, err := cb.view(int(off), 8)
		if err != nil {
			return nil, err
		}
		if format := u16(cond); format != 1 {
			return nil, fmt.Errorf("unsupported condition format %d", format)
		}
		conditions = append(conditions, []byte(cond))
	}
	return conditions, nil
}

func parseFeatureSubstitutions(b binarySegm, offset int, features []*Feature, ec *errorCollector) ([]FeatureSubstitution, error) {
	sb, err := at(b, offset)
	if err != nil {
		return nil, err
	}
	r := newReader(sb, 4) // skip version
	count := int(r.u16())
	var substs []FeatureSubstitution
	for i := 0; i < count; i++ {
		inx, off := r.u16(), int(r.u32())
		if r.err != nil {
			return nil, r.err
		}
		var tag Tag // alternates share the tag of the feature they replace
		if int(inx) < len(features) {
			tag = features[inx].Tag
		}
		f, err := parseFeature(sb, off, tag, ec)
		if err != nil {
			return nil, err
		}
		substs = append(substs, FeatureSubstitution{FeatureIndex: inx, Alternate: f})
	}
	return substs, nil
}
