/*
Package otinput reads the input files of addglyph.

There are three kinds of input files, all of them UTF-8 encoded text with an
optional byte order mark:

Text files list characters to add to a font. Every character is requested,
except tabs and line breaks.

VS files list variation sequences, one per line: a base character directly
followed by a variation selector, optionally followed by a column "D" which
requests a default sequence.

	葛󠄀 D
	葛󠄁

GSUB files list alternate glyphs, one rule per line: a feature tag, an input
glyph and one or more alternate glyphs.

	jp78 辻 辻󠄀
	aalt \1234 \1235\1236

In every kind of file, characters may be given as numeric character
references (&#x8FBB; or &#36795;).
*/
package otinput

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/npillmayer/schuko/tracing"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// tracer traces with key 'addglyph.input'
func tracer() tracing.Trace {
	return tracing.Select("addglyph.input")
}

// SyntaxError is a malformed line of an input file.
type SyntaxError struct {
	File string
	Line int // 1-based
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.File == "" {
		return e.Msg
	}
	return fmt.Sprintf("file '%s', line %d: %s", e.File, e.Line, e.Msg)
}

func syntaxError(format string, args ...any) *SyntaxError {
	return &SyntaxError{Msg: fmt.Sprintf(format, args...)}
}

var entity = regexp.MustCompile(`(?i)&#(?:x([0-9a-f]+)|([0-9]+));`)

// DecodeEntities replaces numeric character references by the characters
// they denote. References outside the range of Unicode and references to
// surrogates are kept.
func DecodeEntities(s string) string {
	return entity.ReplaceAllStringFunc(s, func(ref string) string {
		if r, ok := decodeEntity(ref); ok {
			return string(r)
		}
		return ref
	})
}

func decodeEntity(ref string) (rune, bool) {
	m := entity.FindStringSubmatch(ref)
	if m == nil {
		return 0, false
	}
	var n uint64
	var err error
	if m[1] != "" {
		n, err = strconv.ParseUint(m[1], 16, 32)
	} else {
		n, err = strconv.ParseUint(m[2], 10, 32)
	}
	if err != nil || n > utf8.MaxRune || n >= 0xD800 && n <= 0xDFFF {
		return 0, false
	}
	return rune(n), true
}

// readLines reads a file as UTF-8, dropping a byte order mark. Files
// starting with a UTF-16 byte order mark are decoded as UTF-16.
func readLines(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !hasUTF16BOM(raw) && !utf8.Valid(raw) {
		return nil, fmt.Errorf("decoding '%s': invalid UTF-8", path)
	}
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	data, _, err := transform.Bytes(dec, raw)
	if err != nil {
		return nil, fmt.Errorf("decoding '%s': %w", path, err)
	}
	lines := strings.Split(string(data), "\n")
	tracer().Debugf("read %d lines from '%s'", len(lines), path)
	return lines, nil
}

func hasUTF16BOM(b []byte) bool {
	return len(b) >= 2 && (b[0] == 0xFE && b[1] == 0xFF || b[0] == 0xFF && b[1] == 0xFE)
}

// forEachLine calls fn for every line of a file and attaches the position
// to syntax errors.
func forEachLine(path string, fn func(line string) error) error {
	lines, err := readLines(path)
	if err != nil {
		return err
	}
	for i, line := range lines {
		if err := fn(line); err != nil {
			var serr *SyntaxError
			if errors.As(err, &serr) {
				serr.File, serr.Line = path, i+1
			}
			return err
		}
	}
	return nil
}

// Files holds input file names by kind.
type Files struct {
	Fonts []string
	Text  []string
	VS    []string
}

// Classify sorts files by kind: files with extension .ttf or .otf are
// fonts, files with a name starting with "vs" are VS files, and all others
// are text files. Case is ignored.
func Classify(files []string) Files {
	var fs Files
	for _, f := range files {
		ext := strings.ToLower(filepath.Ext(f))
		switch {
		case ext == ".ttf" || ext == ".otf":
			fs.Fonts = append(fs.Fonts, f)
		case strings.HasPrefix(strings.ToLower(filepath.Base(f)), "vs"):
			fs.VS = append(fs.VS, f)
		default:
			fs.Text = append(fs.Text, f)
		}
	}
	return fs
}
