package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/flopp/go-findfont"
	"github.com/npillmayer/addglyph"
	"github.com/npillmayer/addglyph/otgsub"
	"github.com/npillmayer/addglyph/otinput"
	"github.com/npillmayer/schuko/tracing"
	"github.com/thatisuday/commando"
)

var (
	errNoFont  = errors.New("no font file given")
	errNoInput = errors.New("no text, VS or GSUB file given")
)

// unset is the default value of optional string flags and arguments.
const unset = "-"

// rawArgs holds the command line as strings, as delivered by commando.
type rawArgs struct {
	files   string
	font    string
	text    string
	vs      string
	gsub    string
	output  string
	langsys string
	trace   string
	quiet   bool
}

// invocation is a checked command line.
type invocation struct {
	font        string
	text        []string
	vs          []string
	gsub        []string
	output      string
	langSystems []otgsub.LangSysTag
	quiet       bool
	traceLevel  tracing.TraceLevel
}

func parseInvocation(args map[string]commando.ArgValue, flags map[string]commando.FlagValue) (*invocation, error) {
	raw := rawArgs{files: args["files"].Value}
	var err error
	for name, dst := range map[string]*string{
		"font":    &raw.font,
		"text":    &raw.text,
		"vs":      &raw.vs,
		"gsub":    &raw.gsub,
		"output":  &raw.output,
		"langsys": &raw.langsys,
		"trace":   &raw.trace,
	} {
		if *dst, err = flags[name].GetString(); err != nil {
			return nil, fmt.Errorf("invalid --%s flag: %w", name, err)
		}
	}
	if raw.quiet, err = flags["quiet"].GetBool(); err != nil {
		return nil, fmt.Errorf("invalid --quiet flag: %w", err)
	}
	return newInvocation(raw)
}

func newInvocation(raw rawArgs) (*invocation, error) {
	positional := otinput.Classify(splitList(raw.files))
	fonts := append(splitList(raw.font), positional.Fonts...)
	inv := &invocation{
		text:   append(splitList(raw.text), positional.Text...),
		vs:     append(splitList(raw.vs), positional.VS...),
		gsub:   splitList(raw.gsub),
		output: optional(raw.output),
		quiet:  raw.quiet,
	}
	switch len(fonts) {
	case 0:
		return nil, errNoFont
	case 1:
		inv.font = fonts[0]
	default:
		return nil, fmt.Errorf("more than one font file given: %s", strings.Join(fonts, ", "))
	}
	if len(inv.text)+len(inv.vs)+len(inv.gsub) == 0 {
		return nil, errNoInput
	}
	var err error
	if inv.langSystems, err = parseLangSystems(raw.langsys); err != nil {
		return nil, err
	}
	if inv.traceLevel, err = traceLevel(raw.trace); err != nil {
		return nil, err
	}
	if inv.quiet {
		inv.traceLevel = tracing.LevelError
	}
	return inv, nil
}

// request reads the input files and locates the font.
func (inv *invocation) request() (addglyph.Request, error) {
	var req addglyph.Request
	path, system, err := locateFont(inv.font)
	if err != nil {
		return req, err
	}
	req.Font = path
	if system && inv.output == "" {
		// never write next to a system font
		inv.output = filepath.Base(addglyph.OutputPath(path))
	}
	if len(inv.text) > 0 {
		if req.Chars, err = otinput.ReadText(inv.text...); err != nil {
			return req, err
		}
	}
	if len(inv.vs) > 0 {
		if req.Sequences, err = otinput.ReadVS(inv.vs...); err != nil {
			return req, err
		}
	}
	if len(inv.gsub) > 0 {
		if req.Rules, err = otinput.ReadGSUB(inv.gsub...); err != nil {
			return req, err
		}
	}
	tracer().Infof("%d characters, %d variation sequences, %d rules requested",
		len(req.Chars), len(req.Sequences), len(req.Rules))
	return req, nil
}

// locateFont returns the path of a font file. Names which are not an
// existing file are looked up among the fonts installed on the system.
func locateFont(name string) (path string, system bool, err error) {
	if _, err := os.Stat(name); err == nil {
		return name, false, nil
	}
	path, err = findfont.Find(name)
	if err != nil {
		return "", false, fmt.Errorf("font not found: %s", name)
	}
	tracer().Infof("using system font %s", path)
	return path, true, nil
}

func optional(s string) string {
	if s = strings.TrimSpace(s); s == unset {
		return ""
	}
	return s
}

// splitList splits a comma-separated list. Commando joins variadic
// arguments with commas as well.
func splitList(s string) []string {
	s = optional(s)
	if s == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" && item != unset {
			items = append(items, item)
		}
	}
	return items
}

func parseLangSystems(s string) ([]otgsub.LangSysTag, error) {
	items := splitList(s)
	if len(items) == 0 {
		return []otgsub.LangSysTag{otgsub.DefaultLangSys}, nil
	}
	lst := make([]otgsub.LangSysTag, 0, len(items))
	for _, item := range items {
		l, err := otgsub.ParseLangSys(item)
		if err != nil {
			return nil, err
		}
		lst = append(lst, l)
	}
	return lst, nil
}

func traceLevel(s string) (tracing.TraceLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return tracing.LevelDebug, nil
	case "info":
		return tracing.LevelInfo, nil
	case "error", "", unset:
		return tracing.LevelError, nil
	}
	return tracing.LevelError, fmt.Errorf("invalid trace level: %s", s)
}
