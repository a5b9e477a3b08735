package otinput

import (
	"github.com/emirpasic/gods/sets/treeset"
	"github.com/emirpasic/gods/utils"
)

// ReadText returns the characters contained in text files, in ascending
// order and without duplicates. Tabs and line breaks are ignored.
func ReadText(files ...string) ([]rune, error) {
	chars := treeset.NewWith(utils.RuneComparator)
	for _, path := range files {
		err := forEachLine(path, func(line string) error {
			for _, r := range DecodeEntities(line) {
				if r != '\t' && r != '\r' && r != '\n' {
					chars.Add(r)
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	runes := make([]rune, 0, chars.Size())
	for _, v := range chars.Values() {
		runes = append(runes, v.(rune))
	}
	tracer().Debugf("%d characters requested by %d text files", len(runes), len(files))
	return runes, nil
}
