/*
Package ttxtest compares GSUB tables against TTX dumps.

TTX is the XML format of fontTools ('ttx -t GSUB font.ttf'). Tests state
the expected outcome of an edit as a TTX snippet, which is easy to check
against the output of real-world tools. Both the snippet and the edited
table are normalized into an ExpectedGSUB, with glyphs given by name.
*/
package ttxtest

// ExpectedGSUB is a normalized model of a GSUB table as derived from TTX.
// It only covers the subset of fields addglyph edits.
type ExpectedGSUB struct {
	Scripts  []ExpectedScript
	Features []ExpectedFeature
	Lookups  []ExpectedLookup
}

// ExpectedScript is a script record with its language systems.
type ExpectedScript struct {
	Tag     string
	Default *ExpectedLangSys
	LangSys []ExpectedLangSysRecord
}

// ExpectedLangSysRecord is a language system of a script.
type ExpectedLangSysRecord struct {
	Tag     string
	LangSys ExpectedLangSys
}

// ExpectedLangSys lists feature indices. Required is 65535 if the language
// system has no required feature.
type ExpectedLangSys struct {
	Required int
	Features []int
}

// NoRequiredFeature is the TTX value of a missing required feature.
const NoRequiredFeature = 0xFFFF

// ExpectedFeature is a feature record.
type ExpectedFeature struct {
	Tag     string
	Lookups []int
}

// ExpectedLookup represents a GSUB lookup with its subtables.
type ExpectedLookup struct {
	Index     int
	Type      int
	Flag      uint16
	Subtables []ExpectedSubtable
}

// ExpectedSubtable holds type-specific GSUB subtable expectations. Type is
// the type of the (unwrapped) subtable; Extension is set for subtables
// wrapped in an extension subtable.
type ExpectedSubtable struct {
	Type      int
	Extension bool

	// Coverage lists the glyph names in glyph order.
	Coverage []string

	// SingleSubst maps input glyph name to output glyph name.
	SingleSubst map[string]string

	// Alternates maps input glyph name to alternate glyph names.
	Alternates map[string][]string

	// Ligatures maps first-component glyph name to ligatures.
	Ligatures map[string][]ExpectedLigature
}

// ExpectedLigature describes a GSUB-4 ligature definition. Components
// excludes the first component.
type ExpectedLigature struct {
	Components []string
	Glyph      string
}
