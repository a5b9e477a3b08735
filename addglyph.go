/*
Package addglyph extends the glyph repertoire of TrueType fonts.

It adds blank glyphs for characters and variation sequences, and rules for
alternate glyphs to table GSUB. Blank glyphs have no outline, but they make
a font claim support for a character, which is what input methods and
fallback font selection look at. Alternate glyph rules let applications
offer glyph variants through OpenType features such as 'aalt' or 'jp78'.

Run performs a complete session: it loads a font, applies every request,
updates table OS/2 and saves the font under a new name. Items already
contained in the font are left alone, which makes runs idempotent.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package addglyph

import (
	"errors"
	"fmt"
	"slices"

	"github.com/npillmayer/addglyph/ot"
	"github.com/npillmayer/addglyph/otcmap"
	"github.com/npillmayer/addglyph/otglyph"
	"github.com/npillmayer/addglyph/otgsub"
	"github.com/npillmayer/addglyph/otinput"
	"github.com/npillmayer/addglyph/report"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'addglyph'
func tracer() tracing.Trace {
	return tracing.Select("addglyph")
}

// ErrLoad is returned if the input font cannot be loaded or edited.
var ErrLoad = errors.New("error while loading font file")

// ErrSave is returned if the output font cannot be written.
var ErrSave = errors.New("error while saving font file")

// ErrGSubUnreadable flags rules for a font with a GSUB table which could not
// be decoded.
var ErrGSubUnreadable = errors.New("GSUB table cannot be decoded")

// Request lists everything to add to a font.
type Request struct {
	Font      string                      // path of the input font
	Chars     []rune                      // characters
	Sequences []otinput.VariationSequence // variation sequences
	Rules     []otinput.Rule              // alternate glyph rules
}

// Result summarizes a run.
type Result struct {
	GlyphsAdded    int
	Added          int // added items, including items without new glyphs
	AlreadyPresent int
	Skipped        int
	OutputPath     string
}

type config struct {
	sink        report.Sink
	langSystems []otgsub.LangSysTag
	output      string
}

// Option configures a run.
type Option func(*config)

// WithReporter sets the sink receiving the outcome of every item. The
// default sink writes to the trace.
func WithReporter(sink report.Sink) Option {
	return func(c *config) {
		c.sink = sink
	}
}

// WithLangSys sets the language systems new features are registered for.
// The default is DFLT/dflt.
func WithLangSys(lst ...otgsub.LangSysTag) Option {
	return func(c *config) {
		c.langSystems = lst
	}
}

// WithOutput sets the path of the output font. The default is derived from
// the input font with OutputPath.
func WithOutput(path string) Option {
	return func(c *config) {
		c.output = path
	}
}

// OutputPath derives the default output path from the path of an input
// font: "font.ttf" becomes "font_new.ttf".
func OutputPath(fontPath string) string {
	if len(fontPath) < 4 {
		return fontPath + "_new"
	}
	n := len(fontPath) - 4
	return fontPath[:n] + "_new" + fontPath[n:]
}

// session holds the editors for one font.
type session struct {
	otf    *ot.Font
	sink   report.Sink
	chars  *otcmap.CharMap
	vs     *otcmap.VariationMap
	glyphs *otglyph.Synthesizer
	noGlyf error // set if glyphs cannot be added
}

// Run adds characters, variation sequences and alternate glyph rules to a
// font and saves the result. Single items which cannot be added are
// reported as skipped. Run returns an error only if the font cannot be
// loaded, repaired or saved; in this case nothing has been written.
func Run(req Request, opts ...Option) (*Result, error) {
	cfg := config{sink: report.Trace()}
	for _, opt := range opts {
		opt(&cfg)
	}
	res := &Result{OutputPath: cfg.output}
	if res.OutputPath == "" {
		res.OutputPath = OutputPath(req.Font)
	}
	sink := report.Tee(res.count, cfg.sink)

	otf, err := loadFont(req.Font)
	if err != nil {
		return nil, err
	}
	s := &session{otf: otf, sink: sink}
	if s.chars, err = otcmap.NewCharMap(otf, sink); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	if s.glyphs, err = otglyph.New(otf); err != nil {
		s.noGlyf = err
	}

	s.addChars(req.Chars)
	if len(req.Sequences) > 0 {
		s.addSequences(req.Sequences)
	}
	if len(req.Rules) > 0 {
		if err := s.addRules(req.Rules, cfg.langSystems); err != nil {
			return nil, err
		}
	}
	if err := s.finish(len(req.Sequences) > 0); err != nil {
		return nil, err
	}
	if s.glyphs != nil {
		res.GlyphsAdded = s.glyphs.Added()
	}
	sink.Notice("%d glyphs added!", res.GlyphsAdded)
	sink.Notice("saving...")
	if err := saveFont(otf, res.OutputPath); err != nil {
		return nil, err
	}
	sink.Notice("saved successfully: %s", res.OutputPath)
	return res, nil
}

func (res *Result) count(e report.Event) {
	switch e.Outcome {
	case report.Added:
		res.Added++
	case report.AlreadyPresent:
		res.AlreadyPresent++
	case report.Skipped:
		res.Skipped++
	}
}

func (s *session) newGlyph(name string) (ot.GlyphIndex, error) {
	if s.noGlyf != nil {
		return 0, s.noGlyf
	}
	return s.glyphs.AddBlankGlyph(name)
}

func codepoint(r rune) string {
	return fmt.Sprintf("U+%04X", r)
}

func (s *session) addChars(chars []rune) {
	chars = slices.Clone(chars)
	slices.Sort(chars)
	for _, r := range slices.Compact(chars) {
		if _, ok := s.chars.Lookup(r); ok {
			s.sink.AlreadyPresent(codepoint(r))
			continue
		}
		gid, err := s.newGlyph(otglyph.CodepointName(r))
		if err != nil {
			s.sink.Skipped(codepoint(r), err)
			continue
		}
		s.chars.Add(r, gid)
		s.sink.Added(codepoint(r))
	}
}

func (s *session) variations() *otcmap.VariationMap {
	if s.vs == nil {
		s.vs = otcmap.NewVariationMap(s.chars, s.sink)
	}
	return s.vs
}

func (s *session) addSequences(seqs []otinput.VariationSequence) {
	vm := s.variations()
	seqs = slices.Clone(seqs)
	slices.SortStableFunc(seqs, func(a, b otinput.VariationSequence) int {
		return a.Sequence.Compare(b.Sequence)
	})
	for _, seq := range seqs {
		base, sel := seq.Base, seq.Selector
		if vm.Has(base, sel) {
			s.sink.AlreadyPresent(seq.Sequence.String())
			continue
		}
		if !seq.Default {
			gid, err := s.newGlyph(otglyph.SequenceName(base, sel))
			if err != nil {
				s.sink.Skipped(seq.Sequence.String(), err)
				continue
			}
			vm.Add(base, sel, gid)
			s.sink.Added(seq.Sequence.String() + " as non-default")
			continue
		}
		gid, ok := s.chars.Lookup(base)
		if !ok {
			var err error
			if gid, err = s.newGlyph(otglyph.CodepointName(base)); err != nil {
				s.sink.Skipped(seq.Sequence.String(), err)
				continue
			}
			s.chars.Add(base, gid)
			s.sink.Notice("added base character: %s", codepoint(base))
		}
		vm.Add(base, sel, gid)
		s.sink.Added(seq.Sequence.String() + " as default")
	}
}

// ruleGroup collects the alternates of an input glyph for a feature.
type ruleGroup struct {
	tag        ot.Tag
	input      otinput.GlyphSpec
	alternates []otinput.GlyphSpec
}

func groupRules(rules []otinput.Rule) []*ruleGroup {
	type key struct {
		tag   ot.Tag
		input otinput.GlyphSpec
	}
	var groups []*ruleGroup
	index := make(map[key]*ruleGroup)
	for _, r := range rules {
		k := key{r.Tag, r.Input}
		g, ok := index[k]
		if !ok {
			g = &ruleGroup{tag: r.Tag, input: r.Input}
			index[k] = g
			groups = append(groups, g)
		}
		g.alternates = append(g.alternates, r.Alternate)
	}
	return groups
}

// resolve finds the glyph a spec refers to. Characters and sequences have to
// be mapped by the font.
func (s *session) resolve(spec otinput.GlyphSpec) (ot.GlyphIndex, error) {
	switch spec.Kind {
	case otinput.ByIndex:
		if int(spec.Glyph) >= s.otf.NumGlyphs() {
			return 0, fmt.Errorf("glyph index out of range: %d", spec.Glyph)
		}
		return spec.Glyph, nil
	case otinput.BySequence:
		if gid, ok := s.variations().Lookup(spec.Char, spec.Selector); ok {
			return gid, nil
		}
		return 0, fmt.Errorf("variation sequence not in font: %s", spec)
	}
	if gid, ok := s.chars.Lookup(spec.Char); ok {
		return gid, nil
	}
	return 0, fmt.Errorf("character not in font: %s", spec)
}

func (s *session) addRules(rules []otinput.Rule, langSystems []otgsub.LangSysTag) error {
	gsub := s.otf.GSub()
	if gsub == nil && s.otf.Table(ot.T("GSUB")) != nil {
		for _, g := range groupRules(rules) {
			s.sink.Skipped(fmt.Sprintf("%s: %s", g.tag, g.input), ErrGSubUnreadable)
		}
		return nil
	}
	if gsub == nil {
		gsub = ot.NewGSubTable()
		s.otf.SetTable(gsub)
		s.sink.Notice("GSUB table created")
	}
	if otgsub.RemoveLegacyWorkaround(gsub) {
		s.sink.Notice("legacy workaround removed")
	}
	editor, err := otgsub.NewEditor(gsub, langSystems, s.otf, s.sink)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoad, err)
	}
	for _, g := range groupRules(rules) {
		subject := fmt.Sprintf("%s: %s", g.tag, g.input)
		target, err := s.resolve(g.input)
		if err != nil {
			s.sink.Skipped(subject, err)
			continue
		}
		var replacements []ot.GlyphIndex
		for _, alt := range g.alternates {
			gid, err := s.resolve(alt)
			if err != nil {
				s.sink.Skipped(fmt.Sprintf("%s -> %s", subject, alt), err)
				continue
			}
			replacements = append(replacements, gid)
		}
		if len(replacements) == 0 {
			continue
		}
		if err := editor.AddRule(g.tag, target, replacements); err != nil {
			s.sink.Skipped(subject, err)
		}
	}
	if err := editor.ReorderLookups(); err != nil {
		s.sink.Skipped("lookup reordering", err)
	}
	return nil
}

// finish updates the OS/2 range bits and prepares variation sequences for
// platforms without support for default sequences.
func (s *session) finish(sequences bool) error {
	os2 := s.otf.OS2()
	if os2 != nil && otcmap.UpdateOS2(os2, s.chars.Codepoints()) {
		tracer().Debugf("OS/2 range bits updated")
	}
	if !sequences {
		return nil
	}
	vm := s.variations()
	vm.CheckRequirements()
	if err := vm.RepairDefaults(); err != nil {
		return fmt.Errorf("%w: %w", ErrLoad, err)
	}
	if os2 != nil {
		otcmap.SetUnicodeRangeBit(os2, otcmap.NonPlane0Bit)
	}
	return nil
}
