/*
Package otgsub inserts alternate-glyph rules into the GSUB table of a font.

Rules are of the form "for feature F, glyph A may be replaced by X, Y, …".
They are stored in single substitution lookups (type 1) as long as each
glyph has a single replacement, and in alternate substitution lookups (type
3) otherwise. Lookups wrapped in extension subtables (type 7) are supported.

The Editor follows a simple policy: every feature receiving rules references
exactly one lookup. Features are created if necessary and made visible in
every language system of the font. New lookups are appended to the lookup
list; ReorderLookups moves them in front of trailing lookups for vertical
writing, which some applications expect to come last.
*/
package otgsub

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/npillmayer/addglyph/ot"
	"github.com/npillmayer/addglyph/report"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'addglyph.gsub'
func tracer() tracing.Trace {
	return tracing.Select("addglyph.gsub")
}

// ErrInvariantViolation is returned for GSUB structures the editor cannot
// add rules to without breaking its policy, e.g. a feature with multiple
// lookups.
var ErrInvariantViolation = errors.New("GSUB invariant violation")

// ErrUnsupportedFormat is returned for subtables of an unknown format.
var ErrUnsupportedFormat = errors.New("unsupported GSUB subtable format")

// LangSysTag selects a language system of a script. Lang "dflt" denotes the
// script's default language system.
type LangSysTag struct {
	Script ot.Tag
	Lang   ot.Tag
}

// DefaultLangSys is the language system used if none is configured.
var DefaultLangSys = LangSysTag{Script: ot.T("DFLT"), Lang: ot.T("dflt")}

func (l LangSysTag) String() string {
	return l.Script.String() + "/" + l.Lang.String()
}

// ParseLangSys parses a language system in the form "SCRIPT/lang", e.g.
// "DFLT/dflt" or "hani/JAN ". Tags shorter than four characters are padded
// with spaces.
func ParseLangSys(s string) (LangSysTag, error) {
	script, lang, ok := strings.Cut(s, "/")
	if !ok || !validTag(script) || !validTag(lang) {
		return LangSysTag{}, fmt.Errorf("invalid language system %q, expected SCRIPT/lang", s)
	}
	return LangSysTag{Script: ot.T(script), Lang: ot.T(lang)}, nil
}

func validTag(s string) bool {
	if len(s) == 0 || len(s) > 4 {
		return false
	}
	for _, c := range []byte(s) {
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}

// GlyphNamer names glyphs in reports. *ot.Font is a GlyphNamer.
type GlyphNamer interface {
	GlyphName(ot.GlyphIndex) string
}

type indexNames struct{}

func (indexNames) GlyphName(gid ot.GlyphIndex) string {
	return fmt.Sprintf("\\%d", gid)
}

// Editor adds rules to a GSUB table.
type Editor struct {
	gsub           *ot.GSubTable
	sink           report.Sink
	names          GlyphNamer
	canonical      *ot.LangSys
	features       map[ot.Tag][]uint16 // feature indices per tag
	initialLookups int
}

// NewEditor prepares a GSUB table for adding rules. Every language system of
// langSystems is created if it does not exist. New features are attached to
// the default language system of script 'DFLT' if present, else to the
// first of langSystems, and from there propagated to every other language
// system. An empty langSystems selects DefaultLangSys.
//
// names is used for reporting rules and may be nil.
func NewEditor(gsub *ot.GSubTable, langSystems []LangSysTag, names GlyphNamer, sink report.Sink) (*Editor, error) {
	if gsub == nil {
		return nil, errors.New("GSUB table is nil")
	}
	if len(langSystems) == 0 {
		langSystems = []LangSysTag{DefaultLangSys}
	}
	if names == nil {
		names = indexNames{}
	}
	e := &Editor{
		gsub:           gsub,
		sink:           sink,
		names:          names,
		features:       make(map[ot.Tag][]uint16),
		initialLookups: len(gsub.Lookups),
	}
	for _, lst := range langSystems {
		e.ensureLangSys(lst)
	}
	if dflt := gsub.Script(ot.T("DFLT")); dflt != nil && dflt.DefaultLangSys != nil {
		e.canonical = dflt.DefaultLangSys
	} else {
		first := langSystems[0]
		e.canonical = gsub.Script(first.Script).LangSys(first.Lang)
	}
	if e.canonical == nil {
		return nil, fmt.Errorf("%w: no language system for new features", ErrInvariantViolation)
	}
	return e, nil
}

func newLangSys() *ot.LangSys {
	return &ot.LangSys{RequiredFeature: ot.None[uint16]()}
}

// ensureLangSys creates a script and language system, keeping scripts and
// language system records sorted by tag.
func (e *Editor) ensureLangSys(lst LangSysTag) {
	script := e.gsub.Script(lst.Script)
	if script == nil {
		script = &ot.Script{Tag: lst.Script}
		e.gsub.Scripts = append(e.gsub.Scripts, script)
		slices.SortStableFunc(e.gsub.Scripts, func(a, b *ot.Script) int {
			return compareTags(a.Tag, b.Tag)
		})
		e.sink.Notice("script '%s' created", lst.Script)
	}
	if lst.Lang == ot.T("dflt") {
		if script.DefaultLangSys == nil {
			script.DefaultLangSys = newLangSys()
			e.sink.Notice("default langsys for script '%s' created", lst.Script)
		}
		return
	}
	if script.LangSys(lst.Lang) != nil {
		return
	}
	script.LangSystems = append(script.LangSystems, ot.LangSysRecord{Tag: lst.Lang, LangSys: newLangSys()})
	slices.SortStableFunc(script.LangSystems, func(a, b ot.LangSysRecord) int {
		return compareTags(a.Tag, b.Tag)
	})
	e.sink.Notice("langsys '%s' for script '%s' created", lst.Lang, lst.Script)
}

func compareTags(a, b ot.Tag) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// featureIndices returns the indices of all features with a given tag which
// are reachable from a language system. If the canonical language system
// has no such feature, it is created. Every language system without a
// feature for tag receives the canonical one.
func (e *Editor) featureIndices(tag ot.Tag) []uint16 {
	if indices, ok := e.features[tag]; ok {
		return indices
	}
	gsub := e.gsub
	i := slices.IndexFunc(e.canonical.FeatureIndices, func(inx uint16) bool {
		return int(inx) < len(gsub.Features) && gsub.Features[inx].Tag == tag
	})
	var fi uint16
	if i >= 0 {
		fi = e.canonical.FeatureIndices[i]
	} else {
		fi = uint16(len(gsub.Features))
		gsub.Features = append(gsub.Features, &ot.Feature{Tag: tag})
		e.canonical.FeatureIndices = append(e.canonical.FeatureIndices, fi)
		e.sink.Notice("feature '%s' created", tag)
	}
	for _, ls := range gsub.AllLangSys() {
		if !gsub.HasFeature(ls, tag) {
			ls.FeatureIndices = append(ls.FeatureIndices, fi)
		}
	}
	var indices []uint16
	for _, ls := range gsub.AllLangSys() {
		for _, inx := range ls.FeatureIndices {
			if int(inx) < len(gsub.Features) && gsub.Features[inx].Tag == tag && !slices.Contains(indices, inx) {
				indices = append(indices, inx)
			}
		}
	}
	slices.Sort(indices)
	e.features[tag] = indices
	return indices
}

// AddRule adds alternates for a glyph to every feature with a given tag.
// Duplicate replacements are ignored. AddRule fails with
// ErrInvariantViolation if a feature does not have exactly one lookup of type
// 1 or 3 (possibly wrapped in an extension), or no lookup at all. In this
// case the font is not modified.
func (e *Editor) AddRule(tag ot.Tag, target ot.GlyphIndex, replacements []ot.GlyphIndex) error {
	replacements = mergeAlternates(nil, replacements)
	if len(replacements) == 0 {
		return nil
	}
	indices := e.featureIndices(tag)
	for _, fi := range indices {
		if err := e.checkFeature(fi); err != nil {
			return err
		}
	}
	var done []*ot.Lookup
	for _, fi := range indices {
		l := e.featureLookup(fi, len(replacements))
		if slices.Contains(done, l) {
			continue
		}
		done = append(done, l)
		r := rule{tag: tag, target: target, replacements: replacements}
		if e.tryAdd(l, r) {
			continue
		}
		upgrade(l)
		tracer().Debugf("lookup of feature '%s' upgraded to alternate substitution", tag)
		if !e.tryAdd(l, r) {
			panic(fmt.Sprintf("rule %s: %d rejected after upgrade of lookup", tag, target))
		}
	}
	return nil
}

// checkFeature verifies that a feature can receive rules.
func (e *Editor) checkFeature(fi uint16) error {
	f := e.gsub.Features[fi]
	switch len(f.LookupIndices) {
	case 0:
		return nil
	case 1:
	default:
		return fmt.Errorf("%w: feature '%s' has multiple lookups: %v", ErrInvariantViolation, f.Tag, f.LookupIndices)
	}
	li := int(f.LookupIndices[0])
	if li >= len(e.gsub.Lookups) {
		return fmt.Errorf("%w: feature '%s' references lookup %d of %d", ErrInvariantViolation, f.Tag, li, len(e.gsub.Lookups))
	}
	l := e.gsub.Lookups[li]
	typ, err := editableType(l)
	if err != nil {
		return fmt.Errorf("feature '%s': %w", f.Tag, err)
	}
	tracer().Debugf("feature '%s' uses lookup %d of type %d", f.Tag, li, typ)
	return nil
}

// editableType returns the effective type of a lookup, which has to be
// single or alternate substitution. All subtables have to agree on the
// type. An extension lookup without subtables counts as single
// substitution.
func editableType(l *ot.Lookup) (uint16, error) {
	typ := l.Type
	if typ == ot.GSubLookupTypeExtensionSubs {
		typ = ot.GSubLookupTypeSingle
		if len(l.Subtables) > 0 {
			typ = l.EffectiveType()
		}
	}
	if typ != ot.GSubLookupTypeSingle && typ != ot.GSubLookupTypeAlternate {
		return typ, fmt.Errorf("%w: lookup of unsupported type: %d", ErrInvariantViolation, typ)
	}
	for _, st := range l.Subtables {
		if ext, ok := st.(*ot.ExtensionSubst); ok {
			st = ext.Subtable
		}
		if st == nil || st.LookupType() != typ {
			return typ, fmt.Errorf("%w: lookup mixes subtables of different types", ErrInvariantViolation)
		}
	}
	return typ, nil
}

// featureLookup returns the single lookup of a feature, creating it if the
// feature has none.
func (e *Editor) featureLookup(fi uint16, n int) *ot.Lookup {
	f := e.gsub.Features[fi]
	if len(f.LookupIndices) > 0 {
		return e.gsub.Lookups[f.LookupIndices[0]]
	}
	l := &ot.Lookup{Type: ot.GSubLookupTypeSingle, MarkFilteringSet: ot.None[uint16]()}
	if n > 1 {
		l.Type = ot.GSubLookupTypeAlternate
	}
	f.LookupIndices = []uint16{uint16(len(e.gsub.Lookups))}
	e.gsub.Lookups = append(e.gsub.Lookups, l)
	tracer().Debugf("lookup %d created for feature '%s'", len(e.gsub.Lookups)-1, f.Tag)
	return l
}

type rule struct {
	tag          ot.Tag
	target       ot.GlyphIndex
	replacements []ot.GlyphIndex
}

func (e *Editor) subject(r rule, glyphs []ot.GlyphIndex) string {
	names := make([]string, len(glyphs))
	for i, g := range glyphs {
		names[i] = e.names.GlyphName(g)
	}
	return fmt.Sprintf("%s: %s -> %s", r.tag, e.names.GlyphName(r.target), strings.Join(names, ", "))
}

// subtables returns the (unwrapped) subtables of an editable lookup.
func subtables(l *ot.Lookup) []ot.Subtable {
	sts := make([]ot.Subtable, len(l.Subtables))
	for i, st := range l.Subtables {
		if ext, ok := st.(*ot.ExtensionSubst); ok {
			st = ext.Subtable
		}
		sts[i] = st
	}
	return sts
}

// appendSubtable adds a subtable to a lookup, wrapping it for extension
// lookups.
func appendSubtable(l *ot.Lookup, st ot.Subtable) {
	if l.Type == ot.GSubLookupTypeExtensionSubs {
		st = &ot.ExtensionSubst{Type: st.LookupType(), Subtable: st}
	}
	l.Subtables = append(l.Subtables, st)
}

func effectiveType(l *ot.Lookup) uint16 {
	if l.Type == ot.GSubLookupTypeExtensionSubs && len(l.Subtables) == 0 {
		return ot.GSubLookupTypeSingle
	}
	return l.EffectiveType()
}

// tryAdd merges a rule into a lookup. It returns false if a single
// substitution lookup cannot hold the rule.
func (e *Editor) tryAdd(l *ot.Lookup, r rule) bool {
	if effectiveType(l) == ot.GSubLookupTypeAlternate {
		e.addAlternates(l, r)
		return true
	}
	return e.addSingle(l, r)
}

func (e *Editor) addSingle(l *ot.Lookup, r rule) bool {
	if len(r.replacements) > 1 {
		return false
	}
	sts := subtables(l)
	for _, st := range sts {
		single := st.(*ot.SingleSubst)
		existing, ok := single.Mapping[r.target]
		if !ok {
			continue
		}
		merged := mergeAlternates([]ot.GlyphIndex{existing}, r.replacements)
		if len(merged) > 1 {
			return false
		}
		e.sink.AlreadyPresent(e.subject(r, merged))
		return true
	}
	var single *ot.SingleSubst
	if len(sts) > 0 {
		single = sts[0].(*ot.SingleSubst)
	} else {
		single = &ot.SingleSubst{Mapping: make(map[ot.GlyphIndex]ot.GlyphIndex)}
		appendSubtable(l, single)
	}
	if single.Mapping == nil {
		single.Mapping = make(map[ot.GlyphIndex]ot.GlyphIndex)
	}
	single.Mapping[r.target] = r.replacements[0]
	e.sink.Added(e.subject(r, r.replacements))
	return true
}

func (e *Editor) addAlternates(l *ot.Lookup, r rule) {
	sts := subtables(l)
	for _, st := range sts {
		alt := st.(*ot.AlternateSubst)
		existing, ok := alt.Alternates[r.target]
		if !ok {
			continue
		}
		merged := mergeAlternates(existing, r.replacements)
		if len(merged) == len(existing) {
			e.sink.AlreadyPresent(e.subject(r, merged))
			return
		}
		alt.Alternates[r.target] = merged
		e.sink.Added(e.subject(r, merged))
		return
	}
	var alt *ot.AlternateSubst
	if len(sts) > 0 {
		alt = sts[0].(*ot.AlternateSubst)
	} else {
		alt = &ot.AlternateSubst{}
		appendSubtable(l, alt)
	}
	if alt.Alternates == nil {
		alt.Alternates = make(map[ot.GlyphIndex][]ot.GlyphIndex)
	}
	alt.Alternates[r.target] = slices.Clone(r.replacements)
	e.sink.Added(e.subject(r, r.replacements))
}

// upgrade turns a single substitution lookup into an alternate substitution
// lookup with one subtable. If a glyph is mapped by more than one subtable,
// the first subtable wins. Lookup flags and mark filtering set are kept.
func upgrade(l *ot.Lookup) {
	alternates := make(map[ot.GlyphIndex][]ot.GlyphIndex)
	for _, st := range subtables(l) {
		for target, g := range st.(*ot.SingleSubst).Mapping {
			if _, exists := alternates[target]; !exists {
				alternates[target] = []ot.GlyphIndex{g}
			}
		}
	}
	alt := &ot.AlternateSubst{Alternates: alternates}
	if l.Type == ot.GSubLookupTypeExtensionSubs {
		l.Subtables = []ot.Subtable{&ot.ExtensionSubst{Type: ot.GSubLookupTypeAlternate, Subtable: alt}}
		return
	}
	l.Type = ot.GSubLookupTypeAlternate
	l.Subtables = []ot.Subtable{alt}
}

// mergeAlternates appends glyphs of right to left which are not already
// contained, keeping the order.
func mergeAlternates(left, right []ot.GlyphIndex) []ot.GlyphIndex {
	merged := slices.Clone(left)
	for _, g := range right {
		if !slices.Contains(merged, g) {
			merged = append(merged, g)
		}
	}
	return merged
}
