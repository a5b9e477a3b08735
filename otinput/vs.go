package otinput

import (
	"maps"
	"slices"
	"strings"

	"github.com/npillmayer/addglyph/otcmap"
)

// VariationSequence is a requested variation sequence. Default sequences
// share the glyph of their base character.
type VariationSequence struct {
	otcmap.Sequence
	Default bool
}

// ReadVS returns the variation sequences listed in VS files, ordered by
// base character and selector. If a sequence is listed more than once, the
// last entry wins.
func ReadVS(files ...string) ([]VariationSequence, error) {
	requested := make(map[otcmap.Sequence]bool)
	for _, path := range files {
		err := forEachLine(path, func(line string) error {
			vs, ok, err := parseVSLine(line)
			if ok {
				requested[vs.Sequence] = vs.Default
			}
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	seqs := slices.SortedFunc(maps.Keys(requested), otcmap.Sequence.Compare)
	result := make([]VariationSequence, len(seqs))
	for i, seq := range seqs {
		result[i] = VariationSequence{Sequence: seq, Default: requested[seq]}
	}
	tracer().Debugf("%d variation sequences requested by %d VS files", len(result), len(files))
	return result, nil
}

// parseVSLine parses a line of a VS file. Empty lines yield false.
func parseVSLine(line string) (VariationSequence, bool, error) {
	cols := strings.Fields(line)
	for i, col := range cols {
		cols[i] = DecodeEntities(col)
	}
	var seq, option string
	switch len(cols) {
	case 0:
		return VariationSequence{}, false, nil
	case 1:
		seq = cols[0]
	case 2:
		seq, option = cols[0], cols[1]
	default:
		return VariationSequence{}, false, syntaxError("invalid number of columns: %d", len(cols))
	}
	runes := []rune(seq)
	if len(runes) != 2 {
		return VariationSequence{}, false, syntaxError("invalid variation sequence length: %d", len(runes))
	}
	vs := VariationSequence{Sequence: otcmap.Sequence{Base: runes[0], Selector: runes[1]}}
	switch option {
	case "D":
		vs.Default = true
	case "":
	default:
		return VariationSequence{}, false, syntaxError("invalid default variation sequence option: %s", option)
	}
	return vs, true, nil
}
