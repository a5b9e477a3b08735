package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/npillmayer/addglyph/ot"
	"github.com/npillmayer/addglyph/otcmap"
	"github.com/pterm/pterm"
)

// parseCodepoint accepts "U+4E00", "0x4E00", "4E00" or a single character.
func parseCodepoint(token string) (rune, error) {
	if r, size := utf8.DecodeRuneInString(token); size == len(token) && r != utf8.RuneError {
		return r, nil
	}
	hex := token
	switch {
	case strings.HasPrefix(hex, "U+"), strings.HasPrefix(hex, "u+"):
		hex = hex[2:]
	case strings.HasPrefix(hex, "0x"), strings.HasPrefix(hex, "0X"):
		hex = hex[2:]
	}
	u, err := strconv.ParseUint(hex, 16, 32)
	if err != nil || u > utf8.MaxRune {
		return 0, fmt.Errorf("invalid codepoint: %s", token)
	}
	return rune(u), nil
}

func codepoint(r rune) string {
	return fmt.Sprintf("U+%04X", r)
}

func (intp *Intp) describeGlyph(gid ot.GlyphIndex) string {
	return fmt.Sprintf("glyph %d (%s)", gid, intp.font.GlyphName(gid))
}

// describeChar tells which glyph a character is mapped to.
func (intp *Intp) describeChar(r rune) (string, error) {
	if intp.chars == nil {
		return "", errNoCMap
	}
	gid, ok := intp.chars.Lookup(r)
	if !ok {
		return fmt.Sprintf("%s is not mapped", codepoint(r)), nil
	}
	return fmt.Sprintf("%s -> %s", codepoint(r), intp.describeGlyph(gid)), nil
}

// describeSequence tells which glyph a variation sequence is mapped to.
func (intp *Intp) describeSequence(base, sel rune) (string, error) {
	if intp.vs == nil {
		return "", errNoCMap
	}
	seq := otcmap.Sequence{Base: base, Selector: sel}
	gid, ok := intp.vs.Lookup(base, sel)
	switch {
	case ok:
		return fmt.Sprintf("%s -> %s", seq, intp.describeGlyph(gid)), nil
	case intp.vs.Has(base, sel):
		return fmt.Sprintf("%s is a default sequence, base character not mapped", seq), nil
	}
	return fmt.Sprintf("%s is not mapped", seq), nil
}

func cmapOp(intp *Intp, op *Op) (error, bool) {
	if len(op.args) != 1 {
		return errors.New("usage: cmap U+XXXX"), false
	}
	r, err := parseCodepoint(op.args[0])
	if err != nil {
		return err, false
	}
	s, err := intp.describeChar(r)
	if err != nil {
		return err, false
	}
	pterm.Println(s)
	if intp.sfnt != nil {
		if gid, err := intp.sfnt.GlyphIndex(r); err == nil {
			pterm.Printf("sfnt: %s -> glyph %d\n", codepoint(r), gid)
		}
	}
	return nil, false
}

func vsOp(intp *Intp, op *Op) (error, bool) {
	if len(op.args) != 2 {
		return errors.New("usage: vs U+XXXX U+YYYY"), false
	}
	base, err := parseCodepoint(op.args[0])
	if err != nil {
		return err, false
	}
	sel, err := parseCodepoint(op.args[1])
	if err != nil {
		return err, false
	}
	s, err := intp.describeSequence(base, sel)
	if err != nil {
		return err, false
	}
	pterm.Println(s)
	return nil, false
}

func scriptsOp(intp *Intp, op *Op) (error, bool) {
	gsub, err := intp.gsub()
	if err != nil {
		return err, false
	}
	pterm.Printf("GSUB ScriptList has %d entries\n", len(gsub.Scripts))
	return render(scriptRows(gsub)), false
}

func featuresOp(intp *Intp, op *Op) (error, bool) {
	gsub, err := intp.gsub()
	if err != nil {
		return err, false
	}
	pterm.Printf("GSUB FeatureList has %d entries\n", len(gsub.Features))
	return render(featureRows(gsub)), false
}

func lookupsOp(intp *Intp, op *Op) (error, bool) {
	gsub, err := intp.gsub()
	if err != nil {
		return err, false
	}
	pterm.Printf("GSUB LookupList has %d entries\n", len(gsub.Lookups))
	return render(lookupRows(gsub)), false
}

func lookupOp(intp *Intp, op *Op) (error, bool) {
	gsub, err := intp.gsub()
	if err != nil {
		return err, false
	}
	i, err := intp.index(op, len(gsub.Lookups))
	if err != nil {
		return err, false
	}
	l := gsub.Lookups[i]
	pterm.Printf("Lookup %d: type=%s flags=%s subtables=%d\n",
		i, formatLookup(l), formatLookupFlags(l), len(l.Subtables))
	return render(subtableRows(l)), false
}

func glyphOp(intp *Intp, op *Op) (error, bool) {
	i, err := intp.index(op, intp.font.NumGlyphs())
	if err != nil {
		return err, false
	}
	gid := ot.GlyphIndex(i)
	pterm.Println(intp.describeGlyph(gid))
	if intp.chars != nil {
		var chars []string
		for _, r := range intp.chars.Codepoints() {
			if g, _ := intp.chars.Lookup(r); g == gid {
				chars = append(chars, codepoint(r))
			}
		}
		if len(chars) > 0 {
			pterm.Printf("mapped from %s\n", strings.Join(chars, " "))
		}
	}
	if intp.sfnt != nil {
		if adv, err := intp.sfnt.Advance(i); err == nil {
			pterm.Printf("advance width %d\n", adv)
		}
	}
	return nil, false
}

// index reads a numeric argument in the range [0,n).
func (intp *Intp) index(op *Op, n int) (int, error) {
	if len(op.args) != 1 {
		return 0, fmt.Errorf("usage: %s N", op.name)
	}
	i, err := strconv.Atoi(op.args[0])
	if err != nil {
		return 0, fmt.Errorf("index not numeric: %s", op.args[0])
	}
	if i < 0 || i >= n {
		return 0, fmt.Errorf("index out of range: %d", i)
	}
	return i, nil
}

func render(data [][]string) error {
	if len(data) <= 1 {
		return nil
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
