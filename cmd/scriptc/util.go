package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/hokaccha/go-prettyjson"
	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/deepnoodle-ai/scriptc"
)

var (
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()

	logger = zerolog.Nop()
)

// exitError carries a process exit status without printing anything more.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func fatal(err error) {
	if e, ok := err.(*exitError); ok {
		os.Exit(e.code)
	}
	fmt.Fprintf(os.Stderr, "%s\n", red(err.Error()))
	os.Exit(1)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Reads global flags from Viper and adjusts the environment accordingly.
func processGlobalFlags() error {
	if viper.GetBool("no-color") || !isTerminal(os.Stdout) {
		color.NoColor = true
		pterm.DisableColor()
	}
	level, err := zerolog.ParseLevel(strings.ToLower(viper.GetString("log-level")))
	if err != nil {
		return fmt.Errorf("invalid log level %q", viper.GetString("log-level"))
	}
	logger = zerolog.New(zerolog.ConsoleWriter{
		Out:     os.Stderr,
		NoColor: color.NoColor || !isTerminal(os.Stderr),
	}).Level(level).With().Timestamp().Logger()
	return nil
}

func newCompiler() *scriptc.Compiler {
	return scriptc.New(scriptc.WithLogger(logger))
}

// readTerminated reads a file and appends the zero terminator the
// compiler expects. An empty path yields nil.
func readTerminated(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return append(data, 0), nil
}

// printJSON writes v as indented JSON, colorized unless colors are off.
func printJSON(v any) error {
	f := prettyjson.NewFormatter()
	f.DisabledColor = color.NoColor
	out, err := f.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func formatDiagnostic(d scriptc.Diagnostic) string {
	text := d.String()
	switch d.Severity {
	case "error":
		return red(text)
	case "warning":
		return yellow(text)
	default:
		return text
	}
}
