package addglyph

import (
	"fmt"
	"os"

	"github.com/npillmayer/addglyph/internal/fontload"
	"github.com/npillmayer/addglyph/ot"
)

// loadFont reads and decodes a font. Problems the parser could work around
// are traced, but do not prevent loading.
func loadFont(path string) (*ot.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	otf, err := ot.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, path, err)
	}
	for _, e := range otf.Errors() {
		tracer().Errorf("%s: %v", path, e)
	}
	for _, w := range otf.Warnings() {
		tracer().Debugf("%s: %v", path, w)
	}
	name := path
	if sf, err := fontload.ParseOpenTypeFont(data); err == nil && sf.Fontname != "" {
		name = sf.Fontname
	}
	tracer().Infof("loaded font %s with %d glyphs", name, otf.NumGlyphs())
	return otf, nil
}

// saveFont writes a font and reads it back with an independent parser.
// A failed read-back is traced, but does not count as a failed save, as
// the second parser does not support every font the first one does.
func saveFont(otf *ot.Font, path string) error {
	if err := otf.Save(path); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSave, path, err)
	}
	sf, err := fontload.LoadOpenTypeFont(path)
	if err != nil {
		tracer().Errorf("saved font cannot be verified: %v", err)
		return nil
	}
	if n := sf.NumGlyphs(); n != otf.NumGlyphs() {
		tracer().Errorf("saved font has %d glyphs, expected %d", n, otf.NumGlyphs())
	}
	return nil
}
