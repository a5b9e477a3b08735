package main

import (
	"fmt"
	"os"

	"github.com/chzyer/readline"
	"github.com/npillmayer/addglyph"
	"github.com/npillmayer/addglyph/report"
	"github.com/npillmayer/schuko/schukonf/testconfig"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
	"github.com/npillmayer/schuko/tracing/trace2go"
	"github.com/pterm/pterm"
	"github.com/thatisuday/commando"
	"golang.org/x/term"
)

// tracer traces with key 'addglyph'
func tracer() tracing.Trace {
	return tracing.Select("addglyph")
}

// Exit codes
const (
	exitOK       = 0
	exitInternal = 1 // recovered panic
	exitUser     = 2 // bad arguments, bad input files, unreadable or unwritable font
)

func main() {
	initDisplay()
	commando.
		SetExecutableName("addglyph").
		SetVersion("v1.0.0").
		SetDescription("Add blank glyphs for characters and variation sequences, and alternate glyph rules, to a TrueType font.")

	commando.
		Register(nil).
		AddArgument("files...", "font, text, and VS files (VS files start with 'vs')", "-").
		AddFlag("font,f", "font file (.ttf/.otf) or name of a system font", commando.String, "-").
		AddFlag("text,t", "comma-separated list of text files", commando.String, "-").
		AddFlag("vs,v", "comma-separated list of variation sequence files", commando.String, "-").
		AddFlag("gsub,g", "comma-separated list of GSUB rule files", commando.String, "-").
		AddFlag("output,o", "output font file (default: input with suffix '_new')", commando.String, "-").
		AddFlag("langsys,l", "comma-separated SCRIPT/langsys pairs for new features", commando.String, "DFLT/dflt").
		AddFlag("quiet,q", "report errors only", commando.Bool, nil).
		AddFlag("batch,b", "do not wait for <Enter> before exiting", commando.Bool, nil).
		AddFlag("trace", "trace level [Debug|Info|Error]", commando.String, "Error").
		SetAction(runAddGlyph)

	commando.Parse(nil)
}

// We use pterm for moderately fancy output.
func initDisplay() {
	pterm.Info.Prefix = pterm.Prefix{
		Text:  " !  ",
		Style: pterm.NewStyle(pterm.BgCyan, pterm.FgBlack),
	}
	pterm.Error.Prefix = pterm.Prefix{
		Text:  " Error",
		Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack),
	}
}

func runAddGlyph(args map[string]commando.ArgValue, flags map[string]commando.FlagValue) {
	batch, _ := flags["batch"].GetBool()
	code := run(args, flags)
	pause(batch)
	os.Exit(code)
}

// run executes the command. Internal errors surface as panics and are
// turned into exit code exitInternal.
func run(args map[string]commando.ArgValue, flags map[string]commando.FlagValue) (code int) {
	defer func() {
		if r := recover(); r != nil {
			pterm.Error.Printf("internal error: %v\n", r)
			code = exitInternal
		}
	}()
	inv, err := parseInvocation(args, flags)
	if err != nil {
		pterm.Error.Println(err)
		return exitUser
	}
	if err := setupTracing(inv.traceLevel); err != nil {
		pterm.Error.Println(err)
		return exitUser
	}
	req, err := inv.request()
	if err != nil {
		pterm.Error.Println(err)
		return exitUser
	}
	opts := []addglyph.Option{
		addglyph.WithReporter(printer(inv.quiet)),
		addglyph.WithLangSys(inv.langSystems...),
	}
	if inv.output != "" {
		opts = append(opts, addglyph.WithOutput(inv.output))
	}
	if _, err := addglyph.Run(req, opts...); err != nil {
		pterm.Error.Println(err)
		return exitUser
	}
	return exitOK
}

// printer is the sink for the terminal. Skipped items are always shown.
func printer(quiet bool) report.Sink {
	return func(e report.Event) {
		switch e.Outcome {
		case report.Skipped:
			pterm.Warning.Println(e.String())
		case report.Added:
			if !quiet {
				pterm.Success.Println(e.String())
			}
		default:
			if !quiet {
				pterm.Info.Println(e.String())
			}
		}
	}
}

var traceKeys = []string{
	"addglyph",
	"addglyph.ot",
	"addglyph.cmap",
	"addglyph.gsub",
	"addglyph.input",
}

func setupTracing(level tracing.TraceLevel) error {
	tracing.RegisterTraceAdapter("go", gologadapter.GetAdapter(), false)
	conf := testconfig.Conf{
		"tracing.adapter": "go",
		"trace.addglyph":  level.String(),
	}
	if err := trace2go.ConfigureRoot(conf, "trace", trace2go.ReplaceTracers(true)); err != nil {
		return fmt.Errorf("error configuring tracing: %w", err)
	}
	tracing.SetTraceSelector(trace2go.Selector())
	for _, key := range traceKeys {
		tracing.Select(key).SetTraceLevel(level)
	}
	tracer().Debugf("trace level is %s", level)
	return nil
}

// pause keeps a console window open until the user presses <Enter>. It
// does nothing in batch mode or if stdin is not a terminal.
func pause(batch bool) {
	if batch || !term.IsTerminal(int(os.Stdin.Fd())) {
		return
	}
	rl, err := readline.New("press <Enter> to exit ")
	if err != nil {
		return
	}
	defer rl.Close()
	_, _ = rl.Readline()
}
