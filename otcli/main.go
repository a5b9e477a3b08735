package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/npillmayer/addglyph/internal/fontload"
	"github.com/npillmayer/addglyph/ot"
	"github.com/npillmayer/addglyph/otcmap"
	"github.com/npillmayer/addglyph/report"
	"github.com/npillmayer/schuko/schukonf/testconfig"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
	"github.com/npillmayer/schuko/tracing/trace2go"
	"github.com/pterm/pterm"
)

// tracer traces with key 'addglyph'
func tracer() tracing.Trace {
	return tracing.Select("addglyph")
}

func main() {
	initDisplay()

	// set up logging
	tracing.RegisterTraceAdapter("go", gologadapter.GetAdapter(), false)
	conf := testconfig.Conf{
		"tracing.adapter": "go",
		"trace.addglyph":  "Info",
	}
	if err := trace2go.ConfigureRoot(conf, "trace", trace2go.ReplaceTracers(true)); err != nil {
		fmt.Printf("error configuring tracing")
		os.Exit(1)
	}
	tracing.SetTraceSelector(trace2go.Selector())

	// command line flags
	tlevel := flag.String("trace", "Error", "Trace level [Debug|Info|Error]")
	fontname := flag.String("font", "", "Font to load")
	flag.Parse()
	tracer().SetTraceLevel(tracing.LevelError) // will set the correct level later
	pterm.Info.Println("Welcome to the addglyph font inspector")
	//
	// set up REPL
	repl, err := readline.New("font > ")
	if err != nil {
		tracer().Errorf(err.Error())
		os.Exit(3)
	}
	intp := &Intp{repl: repl}
	//
	// load font to inspect
	if err := intp.loadFont(*fontname); err != nil {
		pterm.Error.Println(err)
		os.Exit(4)
	}
	//
	// start receiving commands
	pterm.Info.Println("Quit with <ctrl>D, get help with 'help'")
	switch *tlevel {
	case "Debug":
		tracer().SetTraceLevel(tracing.LevelDebug)
	case "Info":
		tracer().SetTraceLevel(tracing.LevelInfo)
	case "Error":
		tracer().SetTraceLevel(tracing.LevelError)
	default:
		pterm.Error.Printf("Invalid trace level: %s\n", *tlevel)
		os.Exit(5)
	}
	intp.REPL() // go into interactive mode
}

// We use pterm for moderately fancy output.
func initDisplay() {
	pterm.EnableDebugMessages()
	pterm.Info.Prefix = pterm.Prefix{
		Text:  " !  ",
		Style: pterm.NewStyle(pterm.BgCyan, pterm.FgBlack),
	}
	pterm.Error.Prefix = pterm.Prefix{
		Text:  " Error",
		Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack),
	}
}

// Intp is our interpreter object
type Intp struct {
	font  *ot.Font
	sfnt  *fontload.ScalableFont // second view on the font, may be nil
	chars *otcmap.CharMap        // nil for fonts without a Unicode cmap
	vs    *otcmap.VariationMap
	repl  *readline.Instance
}

// REPL starts interactive mode.
func (intp *Intp) REPL() {
	for {
		line, err := intp.repl.Readline()
		if err != nil { // io.EOF
			break
		}
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		cmd := parseCommand(line)
		err, quit := intp.execute(cmd)
		if err != nil {
			pterm.Error.Println(err)
			continue
		}
		if quit {
			break
		}
	}
	pterm.Info.Println("Good bye!")
}

// Op is a parsed command line: an op-code and its arguments.
type Op struct {
	code int
	name string
	args []string
}

const (
	QUIT int = iota
	HELP
	CMAP
	VS
	SCRIPTS
	FEATURES
	LOOKUPS
	LOOKUP
	GLYPH
)

var opMap = map[string]int{
	"quit":     QUIT,
	"help":     HELP,
	"cmap":     CMAP,
	"vs":       VS,
	"scripts":  SCRIPTS,
	"features": FEATURES,
	"lookups":  LOOKUPS,
	"lookup":   LOOKUP,
	"glyph":    GLYPH,
}

// parseCommand splits a line into command and arguments. Unknown commands
// show the help text.
func parseCommand(line string) *Op {
	fields := strings.Fields(line)
	op := &Op{name: strings.ToLower(fields[0]), args: fields[1:]}
	code, ok := opMap[op.name]
	if !ok {
		code = HELP
		op.args = nil
	}
	op.code = code
	tracer().Debugf("parsed command: %s %v", op.name, op.args)
	return op
}

var commandFn = map[int]func(*Intp, *Op) (error, bool){
	QUIT:     quitOp,
	HELP:     helpOp,
	CMAP:     cmapOp,
	VS:       vsOp,
	SCRIPTS:  scriptsOp,
	FEATURES: featuresOp,
	LOOKUPS:  lookupsOp,
	LOOKUP:   lookupOp,
	GLYPH:    glyphOp,
}

func (intp *Intp) execute(op *Op) (err error, stop bool) {
	f, ok := commandFn[op.code]
	if !ok {
		return fmt.Errorf("unknown command code: %d", op.code), false
	}
	return f(intp, op)
}

func quitOp(intp *Intp, op *Op) (error, bool) {
	return nil, true
}

// --- Font Loading -----------------------------------------------------

func (intp *Intp) loadFont(path string) error {
	if path == "" {
		return errors.New("no font given, use flag -font")
	}
	otf, err := ot.Load(path)
	if err != nil {
		return err
	}
	intp.font = otf
	if intp.sfnt, err = fontload.LoadOpenTypeFont(path); err != nil {
		tracer().Infof("font cannot be read with sfnt: %v", err)
	}
	if intp.chars, err = otcmap.NewCharMap(otf, report.Discard); err != nil {
		pterm.Warning.Println(err)
	} else {
		intp.vs = otcmap.NewVariationMap(intp.chars, report.Discard)
	}
	pterm.Printf("font tables: %v\n", otf.TableTags())
	pterm.Printf("%d glyphs\n", otf.NumGlyphs())
	return nil
}

var errNoCMap = errors.New("font has no Unicode cmap subtable")
var errNoGSub = errors.New("font has no readable GSUB table")

func (intp *Intp) gsub() (*ot.GSubTable, error) {
	if gsub := intp.font.GSub(); gsub != nil {
		return gsub, nil
	}
	return nil, errNoGSub
}
