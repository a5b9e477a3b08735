package ot

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"
)

// encode writes the GSUB table. If a 16-bit offset overflows, every lookup
// is promoted to an extension lookup and the table is laid out again.
func (t *GSubTable) encode() ([]byte, error) {
	b, err := t.pack(false)
	if errors.Is(err, ErrOffsetOverflow) {
		tracer().Infof("GSUB offset overflow, promoting lookups to extension lookups")
		b, err = t.pack(true)
	}
	if err != nil {
		return nil, fmt.Errorf("GSUB: %w", err)
	}
	return b, nil
}

func (t *GSubTable) pack(promote bool) ([]byte, error) {
	p := newPacker()
	scriptList := p.scriptListNode(t.Scripts)
	featureList := p.featureListNode(t.Features)
	lookupList, err := p.lookupListNode(t.Lookups, promote)
	if err != nil {
		return nil, err
	}
	header := p.node()
	header.u16(1)
	minor := t.MinorVersion
	if len(t.FeatureVariations) > 0 {
		minor = 1
	}
	header.u16(minor)
	header.offset16(scriptList)
	header.offset16(featureList)
	header.offset16(lookupList)
	if minor >= 1 {
		var fv *packNode
		if len(t.FeatureVariations) > 0 {
			fv = p.featureVariationsNode(t.FeatureVariations)
		}
		header.offset32(fv)
	}
	return p.pack(p.intern(header))
}

func (p *packer) scriptListNode(scripts []*Script) *packNode {
	n := p.node()
	n.u16(uint16(len(scripts)))
	for _, s := range scripts {
		script := p.node()
		script.offset16(p.langSysNode(s.DefaultLangSys))
		script.u16(uint16(len(s.LangSystems)))
		for _, rec := range s.LangSystems {
			script.tag(rec.Tag)
			script.offset16(p.langSysNode(rec.LangSys))
		}
		n.tag(s.Tag)
		n.offset16(p.intern(script))
	}
	return p.intern(n)
}

func (p *packer) langSysNode(ls *LangSys) *packNode {
	if ls == nil {
		return nil
	}
	n := p.node()
	n.u16(0) // lookupOrderOffset
	n.u16(ls.RequiredFeature.Or(0xffff))
	n.u16(uint16(len(ls.FeatureIndices)))
	for _, inx := range ls.FeatureIndices {
		n.u16(inx)
	}
	return p.intern(n)
}

func (p *packer) featureListNode(features []*Feature) *packNode {
	n := p.node()
	n.u16(uint16(len(features)))
	for _, f := range features {
		n.tag(f.Tag)
		n.offset16(p.featureNode(f))
	}
	return p.intern(n)
}

func (p *packer) featureNode(f *Feature) *packNode {
	return p.intern(p.featureTable(f, true))
}

func (p *packer) featureTable(f *Feature, shared bool) *packNode {
	n := p.node()
	var params *packNode
	if len(f.Params) > 0 {
		params = p.node()
		params.raw(f.Params)
		if shared {
			params = p.intern(params)
		} else {
			params = p.unique(params)
		}
	}
	n.offset16(params)
	n.u16(uint16(len(f.LookupIndices)))
	for _, inx := range f.LookupIndices {
		n.u16(inx)
	}
	return n
}

func (p *packer) lookupListNode(lookups []*Lookup, promote bool) (*packNode, error) {
	n := p.node()
	n.u16(uint16(len(lookups)))
	for i, l := range lookups {
		ln, err := p.lookupNode(l, promote)
		if err != nil {
			return nil, fmt.Errorf("lookup %d: %w", i, err)
		}
		n.offset16(ln)
	}
	return p.intern(n), nil
}

func (p *packer) lookupNode(l *Lookup, promote bool) (*packNode, error) {
	n := p.node()
	wrap := promote && l.Type != GSubLookupTypeExtensionSubs
	if wrap {
		n.u16(GSubLookupTypeExtensionSubs)
	} else {
		n.u16(l.Type)
	}
	n.u16(l.Flag)
	n.u16(uint16(len(l.Subtables)))
	for i, st := range l.Subtables {
		if st.LookupType() != l.Type {
			return nil, fmt.Errorf("subtable %d has type %d in lookup of type %d", i, st.LookupType(), l.Type)
		}
		sn, err := p.subtableNode(st)
		if err != nil {
			return nil, fmt.Errorf("subtable %d: %w", i, err)
		}
		if wrap {
			sn = p.extensionNode(l.Type, sn)
		}
		n.offset16(sn)
	}
	if l.Flag&LookupUseMarkFilteringSet != 0 {
		n.u16(l.MarkFilteringSet.Or(0))
	}
	return p.intern(n), nil
}

func (p *packer) extensionNode(lookupType uint16, sub *packNode) *packNode {
	n := p.node()
	n.u16(1)
	n.u16(lookupType)
	n.offset32(sub)
	return p.intern(n)
}

func (p *packer) subtableNode(st Subtable) (*packNode, error) {
	switch st := st.(type) {
	case *SingleSubst:
		return p.singleNode(st), nil
	case *MultipleSubst:
		return p.sequencesNode(st.Mapping), nil
	case *AlternateSubst:
		return p.sequencesNode(st.Alternates), nil
	case *LigatureSubst:
		return p.ligatureNode(st), nil
	case *ContextSubst:
		return p.contextNode(st)
	case *ChainContextSubst:
		return p.chainContextNode(st)
	case *ExtensionSubst:
		if st.Subtable == nil || st.Subtable.LookupType() != st.Type || st.Type == GSubLookupTypeExtensionSubs {
			return nil, fmt.Errorf("invalid extension subtable")
		}
		sub, err := p.subtableNode(st.Subtable)
		if err != nil {
			return nil, err
		}
		return p.extensionNode(st.Type, sub), nil
	case *ReverseChainSubst:
		return p.reverseChainNode(st), nil
	}
	return nil, fmt.Errorf("unknown subtable type %T", st)
}

func (p *packer) singleNode(st *SingleSubst) *packNode {
	glyphs := slices.Sorted(maps.Keys(st.Mapping))
	n := p.node()
	sameDelta := len(glyphs) > 0
	var delta uint16
	for i, g := range glyphs {
		d := uint16(st.Mapping[g]) - uint16(g)
		if i == 0 {
			delta = d
		} else if d != delta {
			sameDelta = false
			break
		}
	}
	if sameDelta {
		n.u16(1)
		n.offset16(p.coverageNode(glyphs))
		n.u16(delta)
		return p.intern(n)
	}
	n.u16(2)
	n.offset16(p.coverageNode(glyphs))
	n.u16(uint16(len(glyphs)))
	for _, g := range glyphs {
		n.u16(uint16(st.Mapping[g]))
	}
	return p.intern(n)
}

// sequencesNode writes multiple and alternate substitution subtables,
// which share the same layout.
func (p *packer) sequencesNode(m map[GlyphIndex][]GlyphIndex) *packNode {
	glyphs := slices.Sorted(maps.Keys(m))
	n := p.node()
	n.u16(1)
	n.offset16(p.coverageNode(glyphs))
	n.u16(uint16(len(glyphs)))
	for _, g := range glyphs {
		seq := p.node()
		seq.u16(uint16(len(m[g])))
		seq.glyphs(m[g])
		n.offset16(p.intern(seq))
	}
	return p.intern(n)
}

func (p *packer) ligatureNode(st *LigatureSubst) *packNode {
	glyphs := slices.Sorted(maps.Keys(st.Ligatures))
	n := p.node()
	n.u16(1)
	n.offset16(p.coverageNode(glyphs))
	n.u16(uint16(len(glyphs)))
	for _, g := range glyphs {
		set := p.node()
		set.u16(uint16(len(st.Ligatures[g])))
		for _, lig := range st.Ligatures[g] {
			ln := p.node()
			ln.u16(uint16(lig.Glyph))
			ln.u16(uint16(len(lig.Components) + 1))
			ln.glyphs(lig.Components)
			set.offset16(p.intern(ln))
		}
		n.offset16(p.intern(set))
	}
	return p.intern(n)
}

func (n *packNode) sequenceLookups(recs []SequenceLookup) {
	for _, rec := range recs {
		n.u16(rec.SequenceIndex)
		n.u16(rec.LookupIndex)
	}
}

func (n *packNode) u16s(v []uint16) {
	for _, x := range v {
		n.u16(x)
	}
}

// ruleSetNodes writes rule sets as lists of offsets to rules. Empty rule
// sets get a NULL offset.
func ruleSetNodes[R any](p *packer, sets [][]R, writeRule func(*packNode, R)) []*packNode {
	nodes := make([]*packNode, len(sets))
	for i, set := range sets {
		if len(set) == 0 {
			continue
		}
		sn := p.node()
		sn.u16(uint16(len(set)))
		for _, rule := range set {
			rn := p.node()
			writeRule(rn, rule)
			sn.offset16(p.intern(rn))
		}
		nodes[i] = p.intern(sn)
	}
	return nodes
}

func writeSequenceRule(n *packNode, rule SequenceRule) {
	n.u16(uint16(len(rule.Input) + 1))
	n.u16(uint16(len(rule.Records)))
	n.u16s(rule.Input)
	n.sequenceLookups(rule.Records)
}

func writeChainedSequenceRule(n *packNode, rule ChainedSequenceRule) {
	n.u16(uint16(len(rule.Backtrack)))
	n.u16s(rule.Backtrack)
	n.u16(uint16(len(rule.Input) + 1))
	n.u16s(rule.Input)
	n.u16(uint16(len(rule.Lookahead)))
	n.u16s(rule.Lookahead)
	n.u16(uint16(len(rule.Records)))
	n.sequenceLookups(rule.Records)
}

// sortedRuleSets sorts a format 1 coverage together with its rule sets.
func sortedRuleSets[R any](coverage []GlyphIndex, sets [][]R) ([]GlyphIndex, [][]R, error) {
	if len(coverage) != len(sets) {
		return nil, nil, fmt.Errorf("%d rule sets for %d covered glyphs", len(sets), len(coverage))
	}
	type pair struct {
		glyph GlyphIndex
		set   []R
	}
	pairs := make([]pair, len(coverage))
	for i := range coverage {
		pairs[i] = pair{coverage[i], sets[i]}
	}
	slices.SortStableFunc(pairs, func(a, b pair) int { return cmp.Compare(a.glyph, b.glyph) })
	cov, rs := make([]GlyphIndex, len(pairs)), make([][]R, len(pairs))
	for i, pr := range pairs {
		cov[i], rs[i] = pr.glyph, pr.set
	}
	return cov, rs, nil
}

func sortedCoverage(glyphs []GlyphIndex) []GlyphIndex {
	return slices.Compact(slices.Sorted(slices.Values(glyphs)))
}

func (p *packer) coverageNodes(list [][]GlyphIndex) []*packNode {
	nodes := make([]*packNode, len(list))
	for i, cov := range list {
		nodes[i] = p.coverageNode(sortedCoverage(cov))
	}
	return nodes
}

func (p *packer) contextNode(st *ContextSubst) (*packNode, error) {
	n := p.node()
	n.u16(st.Format)
	switch st.Format {
	case 1:
		cov, sets, err := sortedRuleSets(st.Coverage, st.RuleSets)
		if err != nil {
			return nil, err
		}
		n.offset16(p.coverageNode(cov))
		n.u16(uint16(len(sets)))
		for _, sn := range ruleSetNodes(p, sets, writeSequenceRule) {
			n.offset16(sn)
		}
	case 2:
		n.offset16(p.coverageNode(sortedCoverage(st.Coverage)))
		n.offset16(p.classDefNode(st.ClassDef))
		n.u16(uint16(len(st.RuleSets)))
		for _, sn := range ruleSetNodes(p, st.RuleSets, writeSequenceRule) {
			n.offset16(sn)
		}
	case 3:
		n.u16(uint16(len(st.InputCoverages)))
		n.u16(uint16(len(st.Records)))
		for _, cn := range p.coverageNodes(st.InputCoverages) {
			n.offset16(cn)
		}
		n.sequenceLookups(st.Records)
	default:
		return nil, fmt.Errorf("unsupported context substitution format %d", st.Format)
	}
	return p.intern(n), nil
}

func (p *packer) chainContextNode(st *ChainContextSubst) (*packNode, error) {
	n := p.node()
	n.u16(st.Format)
	switch st.Format {
	case 1:
		cov, sets, err := sortedRuleSets(st.Coverage, st.RuleSets)
		if err != nil {
			return nil, err
		}
		n.offset16(p.coverageNode(cov))
		n.u16(uint16(len(sets)))
		for _, sn := range ruleSetNodes(p, sets, writeChainedSequenceRule) {
			n.offset16(sn)
		}
	case 2:
		n.offset16(p.coverageNode(sortedCoverage(st.Coverage)))
		n.offset16(p.classDefNode(st.BacktrackClassDef))
		n.offset16(p.classDefNode(st.InputClassDef))
		n.offset16(p.classDefNode(st.LookaheadClassDef))
		n.u16(uint16(len(st.RuleSets)))
		for _, sn := range ruleSetNodes(p, st.RuleSets, writeChainedSequenceRule) {
			n.offset16(sn)
		}
	case 3:
		for _, list := range [][][]GlyphIndex{st.BacktrackCoverages, st.InputCoverages, st.LookaheadCoverages} {
			n.u16(uint16(len(list)))
			for _, cn := range p.coverageNodes(list) {
				n.offset16(cn)
			}
		}
		n.u16(uint16(len(st.Records)))
		n.sequenceLookups(st.Records)
	default:
		return nil, fmt.Errorf("unsupported chained context substitution format %d", st.Format)
	}
	return p.intern(n), nil
}

func (p *packer) reverseChainNode(st *ReverseChainSubst) *packNode {
	n := p.node()
	n.u16(1)
	n.offset16(p.coverageNode(sortedCoverage(st.Coverage)))
	for _, list := range [][][]GlyphIndex{st.BacktrackCoverages, st.LookaheadCoverages} {
		n.u16(uint16(len(list)))
		for _, cn := range p.coverageNodes(list) {
			n.offset16(cn)
		}
	}
	n.u16(uint16(len(st.Substitutes)))
	n.glyphs(st.Substitutes)
	return p.intern(n)
}

func (p *packer) featureVariationsNode(records []*FeatureVariationRecord) *packNode {
	n := p.node()
	n.u16(1)
	n.u16(0)
	n.u32(uint32(len(records)))
	for _, rec := range records {
		conds := p.node()
		conds.u16(uint16(len(rec.Conditions)))
		for _, c := range rec.Conditions {
			cn := p.node()
			cn.raw(c)
			conds.offset32(p.intern(cn))
		}
		substs := p.node()
		substs.u16(1)
		substs.u16(0)
		substs.u16(uint16(len(rec.Substitutions)))
		for _, s := range rec.Substitutions {
			substs.u16(s.FeatureIndex)
			// alternates are not shared with the features of the feature list
			substs.offset32(p.unique(p.featureTable(s.Alternate, false)))
		}
		n.offset32(p.intern(conds))
		n.offset32(p.intern(substs))
	}
	return p.intern(n)
}
