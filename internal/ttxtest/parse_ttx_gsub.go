package ttxtest

import (
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ParseTTXGSUBFile parses a GSUB TTX dump from a file.
func ParseTTXGSUBFile(path string) (*ExpectedGSUB, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTTXGSUB(data)
}

// ParseTTXGSUB parses a GSUB TTX dump into an ExpectedGSUB model. Supported
// subtables are single, alternate and ligature substitutions, plain or
// wrapped in extension subtables.
func ParseTTXGSUB(data []byte) (*ExpectedGSUB, error) {
	var font ttxFont
	if err := xml.Unmarshal(data, &font); err != nil {
		return nil, err
	}
	if font.GSUB == nil {
		return nil, fmt.Errorf("ttx: missing GSUB")
	}
	exp := &ExpectedGSUB{}
	if sl := font.GSUB.ScriptList; sl != nil {
		for _, rec := range sl.Records {
			script, err := normalizeScript(rec)
			if err != nil {
				return nil, err
			}
			exp.Scripts = append(exp.Scripts, script)
		}
	}
	if fl := font.GSUB.FeatureList; fl != nil {
		for _, rec := range fl.Records {
			f := ExpectedFeature{Tag: rec.Tag.Value}
			for _, l := range rec.Feature.Lookups {
				f.Lookups = append(f.Lookups, l.Value)
			}
			exp.Features = append(exp.Features, f)
		}
	}
	if ll := font.GSUB.LookupList; ll != nil {
		for _, lk := range ll.Lookups {
			l, err := normalizeLookup(lk)
			if err != nil {
				return nil, err
			}
			exp.Lookups = append(exp.Lookups, l)
		}
	}
	return exp, nil
}

func normalizeScript(rec ttxScriptRecord) (ExpectedScript, error) {
	script := ExpectedScript{Tag: rec.Tag.Value}
	if rec.Script.Default != nil {
		ls, err := normalizeLangSys(*rec.Script.Default)
		if err != nil {
			return script, err
		}
		script.Default = &ls
	}
	for _, lsr := range rec.Script.Records {
		ls, err := normalizeLangSys(lsr.LangSys)
		if err != nil {
			return script, err
		}
		script.LangSys = append(script.LangSys, ExpectedLangSysRecord{Tag: lsr.Tag.Value, LangSys: ls})
	}
	return script, nil
}

func normalizeLangSys(ls ttxLangSys) (ExpectedLangSys, error) {
	exp := ExpectedLangSys{Required: NoRequiredFeature}
	if ls.Required.Value != "" {
		n, err := ls.Required.Int()
		if err != nil {
			return exp, fmt.Errorf("ttx: invalid ReqFeatureIndex: %w", err)
		}
		exp.Required = n
	}
	for _, f := range ls.Features {
		exp.Features = append(exp.Features, f.Value)
	}
	return exp, nil
}

func normalizeLookup(lk ttxLookup) (ExpectedLookup, error) {
	lt, err := lk.LookupType.Int()
	if err != nil {
		return ExpectedLookup{}, fmt.Errorf("ttx: invalid LookupType: %w", err)
	}
	var lf uint16
	if lk.LookupFlag.Value != "" {
		n, err := lk.LookupFlag.Int()
		if err != nil {
			return ExpectedLookup{}, fmt.Errorf("ttx: invalid LookupFlag: %w", err)
		}
		lf = uint16(n)
	}
	exp := ExpectedLookup{Index: lk.Index, Type: lt, Flag: lf}
	plain := ttxSubtables{lk.SingleSubst, lk.AlternateSubst, lk.LigatureSubst}
	subs, err := plain.normalize(lt)
	if err != nil {
		return exp, err
	}
	exp.Subtables = subs
	for _, ext := range lk.ExtensionSubst {
		et, err := ext.Type.Int()
		if err != nil {
			return exp, fmt.Errorf("ttx: invalid ExtensionLookupType: %w", err)
		}
		wrapped := ttxSubtables{ext.SingleSubst, ext.AlternateSubst, ext.LigatureSubst}
		subs, err := wrapped.normalize(et)
		if err != nil {
			return exp, err
		}
		for _, sub := range subs {
			sub.Extension = true
			exp.Subtables = append(exp.Subtables, sub)
		}
	}
	return exp, nil
}

func (s ttxSubtables) normalize(lookupType int) ([]ExpectedSubtable, error) {
	var subs []ExpectedSubtable
	for _, st := range s.SingleSubst {
		sub, err := normalizeSingleSubst(lookupType, st)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	for _, st := range s.AlternateSubst {
		sub, err := normalizeAlternateSubst(lookupType, st)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	for _, st := range s.LigatureSubst {
		sub, err := normalizeLigatureSubst(lookupType, st)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func normalizeSingleSubst(lookupType int, st ttxSingleSubst) (ExpectedSubtable, error) {
	if lookupType != 1 {
		return ExpectedSubtable{}, fmt.Errorf("ttx: unsupported lookup type %d with SingleSubst", lookupType)
	}
	subst := make(map[string]string)
	var coverage []string
	for _, s := range st.Substitutions {
		if s.In == "" || s.Out == "" {
			continue
		}
		if _, seen := subst[s.In]; !seen {
			coverage = append(coverage, s.In)
		}
		subst[s.In] = s.Out
	}
	return ExpectedSubtable{Type: 1, Coverage: coverage, SingleSubst: subst}, nil
}

func normalizeAlternateSubst(lookupType int, st ttxAlternateSubst) (ExpectedSubtable, error) {
	if lookupType != 3 {
		return ExpectedSubtable{}, fmt.Errorf("ttx: unsupported lookup type %d with AlternateSubst", lookupType)
	}
	alts := make(map[string][]string)
	var coverage []string
	for _, set := range st.AlternateSet {
		g := strings.TrimSpace(set.Glyph)
		if g == "" {
			continue
		}
		var list []string
		for _, a := range set.Alternates {
			if a.Glyph != "" {
				list = append(list, a.Glyph)
			}
		}
		alts[g] = list
		coverage = append(coverage, g)
	}
	return ExpectedSubtable{Type: 3, Coverage: coverage, Alternates: alts}, nil
}

func normalizeLigatureSubst(lookupType int, st ttxLigatureSubst) (ExpectedSubtable, error) {
	if lookupType != 4 {
		return ExpectedSubtable{}, fmt.Errorf("ttx: unsupported lookup type %d with LigatureSubst", lookupType)
	}
	ligs := make(map[string][]ExpectedLigature)
	var coverage []string
	for _, set := range st.LigatureSet {
		first := strings.TrimSpace(set.Glyph)
		if first == "" {
			continue
		}
		var list []ExpectedLigature
		for _, lig := range set.Ligatures {
			if lig.Glyph == "" {
				continue
			}
			list = append(list, ExpectedLigature{
				Components: splitGlyphList(lig.Components),
				Glyph:      lig.Glyph,
			})
		}
		ligs[first] = list
		coverage = append(coverage, first)
	}
	return ExpectedSubtable{Type: 4, Coverage: coverage, Ligatures: ligs}, nil
}

func splitGlyphList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

type ttxFont struct {
	GSUB *ttxGSUB `xml:"GSUB"`
}

type ttxGSUB struct {
	ScriptList  *ttxScriptList  `xml:"ScriptList"`
	FeatureList *ttxFeatureList `xml:"FeatureList"`
	LookupList  *ttxLookupList  `xml:"LookupList"`
}

type ttxScriptList struct {
	Records []ttxScriptRecord `xml:"ScriptRecord"`
}

type ttxScriptRecord struct {
	Tag    ttxValue  `xml:"ScriptTag"`
	Script ttxScript `xml:"Script"`
}

type ttxScript struct {
	Default *ttxLangSys        `xml:"DefaultLangSys"`
	Records []ttxLangSysRecord `xml:"LangSysRecord"`
}

type ttxLangSysRecord struct {
	Tag     ttxValue   `xml:"LangSysTag"`
	LangSys ttxLangSys `xml:"LangSys"`
}

type ttxLangSys struct {
	Required ttxValue        `xml:"ReqFeatureIndex"`
	Features []ttxIndexValue `xml:"FeatureIndex"`
}

type ttxFeatureList struct {
	Records []ttxFeatureRecord `xml:"FeatureRecord"`
}

type ttxFeatureRecord struct {
	Tag     ttxValue `xml:"FeatureTag"`
	Feature struct {
		Lookups []ttxIndexValue `xml:"LookupListIndex"`
	} `xml:"Feature"`
}

type ttxLookupList struct {
	Lookups []ttxLookup `xml:"Lookup"`
}

// ttxSubtables collects the subtables of a lookup or an extension.
type ttxSubtables struct {
	SingleSubst    []ttxSingleSubst
	AlternateSubst []ttxAlternateSubst
	LigatureSubst  []ttxLigatureSubst
}

type ttxLookup struct {
	Index          int                 `xml:"index,attr"`
	LookupType     ttxValue            `xml:"LookupType"`
	LookupFlag     ttxValue            `xml:"LookupFlag"`
	SingleSubst    []ttxSingleSubst    `xml:"SingleSubst"`
	AlternateSubst []ttxAlternateSubst `xml:"AlternateSubst"`
	LigatureSubst  []ttxLigatureSubst  `xml:"LigatureSubst"`
	ExtensionSubst []ttxExtensionSubst `xml:"ExtensionSubst"`
}

type ttxExtensionSubst struct {
	Type           ttxValue            `xml:"ExtensionLookupType"`
	SingleSubst    []ttxSingleSubst    `xml:"SingleSubst"`
	AlternateSubst []ttxAlternateSubst `xml:"AlternateSubst"`
	LigatureSubst  []ttxLigatureSubst  `xml:"LigatureSubst"`
}

type ttxSingleSubst struct {
	Substitutions []ttxSingleSubstitution `xml:"Substitution"`
}

type ttxSingleSubstitution struct {
	In  string `xml:"in,attr"`
	Out string `xml:"out,attr"`
}

type ttxAlternateSubst struct {
	AlternateSet []ttxAlternateSet `xml:"AlternateSet"`
}

type ttxAlternateSet struct {
	Glyph      string         `xml:"glyph,attr"`
	Alternates []ttxAlternate `xml:"Alternate"`
}

type ttxAlternate struct {
	Glyph string `xml:"glyph,attr"`
}

type ttxLigatureSubst struct {
	LigatureSet []ttxLigatureSet `xml:"LigatureSet"`
}

type ttxLigatureSet struct {
	Glyph     string        `xml:"glyph,attr"`
	Ligatures []ttxLigature `xml:"Ligature"`
}

type ttxLigature struct {
	Components string `xml:"components,attr"`
	Glyph      string `xml:"glyph,attr"`
}

type ttxIndexValue struct {
	Index int `xml:"index,attr"`
	Value int `xml:"value,attr"`
}

type ttxValue struct {
	Value string `xml:"value,attr"`
}

func (v ttxValue) Int() (int, error) {
	if v.Value == "" {
		return 0, fmt.Errorf("missing value")
	}
	if strings.HasPrefix(v.Value, "0x") || strings.HasPrefix(v.Value, "0X") {
		n, err := strconv.ParseInt(v.Value[2:], 16, 32)
		return int(n), err
	}
	n, err := strconv.Atoi(v.Value)
	return n, err
}
