package main

import (
	"strings"

	"github.com/pterm/pterm"
)

func helpOp(intp *Intp, op *Op) (error, bool) {
	topic := ""
	if len(op.args) > 0 {
		topic = op.args[0]
	}
	help(topic)
	return nil, false
}

func help(topic string) {
	tracer().Debugf("help %v", topic)
	switch strings.ToLower(topic) {
	case "cmap", "vs":
		pterm.Info.Println("cmap / vs")
		pterm.Println(`
	cmap U+XXXX          glyph a character is mapped to
	vs U+XXXX U+YYYY     glyph a variation sequence is mapped to

	Characters are looked up in the Unicode subtables (3,10,12) and (3,1,4),
	sequences in subtable (0,5,14). Default sequences resolve to the glyph
	of their base character. Codepoints may be given as U+XXXX, 0xXXXX, XXXX
	or as a single character.
	`)
	case "script", "scripts", "lang", "langsys":
		pterm.Info.Println("ScriptList / LangSys")
		pterm.Println(`
	The ScriptList of GSUB maps script tags to Script tables. A Script table
	has an optional default LangSys and a list of LangSys records:
	+--------------+-----------------+
	| Language Tag | Link to LangSys |
	+--------------+-----------------+
	A LangSys lists the features to activate, as indices into the
	FeatureList. New features are registered for every language system.
	`)
	case "feature", "features", "lookup", "lookups":
		pterm.Info.Println("FeatureList / LookupList")
		pterm.Println(`
	features             list all features with their lookup indices
	lookups              list all lookups with type, flags and users
	lookup N             list the subtables of lookup N

	A feature references lookups by index. Alternate glyph rules live in
	lookups of type Single (one alternate) or Alternate (several).
	`)
	case "glyph":
		pterm.Info.Println("glyph")
		pterm.Println(`
	glyph N              name, characters and advance width of glyph N
	`)
	default:
		pterm.Info.Println("Commands")
		pterm.Println(`
	cmap U+XXXX          vs U+XXXX U+YYYY
	scripts              features
	lookups              lookup N
	glyph N              help [topic]
	quit
	`)
	}
}
