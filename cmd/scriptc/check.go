package main

import (
	"fmt"
	"path/filepath"

	"github.com/jdbaldry/go-language-server-protocol/lsp/protocol"
	"github.com/spf13/cobra"

	"github.com/deepnoodle-ai/scriptc"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Report diagnostics without producing bytecode",
		Args:  cobra.ExactArgs(1),
		RunE:  checkHandler,
	}
	cmd.Flags().String("source-map", "", "Source map for the script")
	cmd.Flags().String("url", "", "Source URL recorded in diagnostics")
	cmd.Flags().StringP("format", "f", "text", "Output format (text, json, lsp)")
	return cmd
}

func checkHandler(cmd *cobra.Command, args []string) error {
	path := args[0]
	format, _ := cmd.Flags().GetString("format")
	url, _ := cmd.Flags().GetString("url")
	if url == "" {
		url = filepath.ToSlash(path)
	}
	mapPath, _ := cmd.Flags().GetString("source-map")

	source, err := readTerminated(path)
	if err != nil {
		return err
	}
	sourceMap, err := readTerminated(mapPath)
	if err != nil {
		return err
	}
	diags, err := newCompiler().Check(cmd.Context(), scriptc.Request{
		Source:    source,
		SourceURL: url,
		SourceMap: sourceMap,
	})
	if err != nil {
		return err
	}

	switch format {
	case "text":
		for _, d := range diags {
			fmt.Println(formatDiagnostic(d))
		}
	case "json":
		if diags == nil {
			diags = []scriptc.Diagnostic{}
		}
		if err := printJSON(diags); err != nil {
			return err
		}
	case "lsp":
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		if err := printJSON(lspDiagnostics(abs, diags)); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
	for _, d := range diags {
		if d.Severity == "error" {
			return &exitError{code: 1}
		}
	}
	return nil
}

// lspDiagnostics converts diagnostics to a publishDiagnostics payload.
// LSP positions are 0-based.
func lspDiagnostics(path string, diags []scriptc.Diagnostic) protocol.PublishDiagnosticsParams {
	params := protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentURI("file://" + filepath.ToSlash(path)),
		Diagnostics: []protocol.Diagnostic{},
	}
	for _, d := range diags {
		pos := protocol.Position{Line: zeroBased(d.Line), Character: zeroBased(d.Column)}
		severity := protocol.SeverityError
		switch d.Severity {
		case "warning":
			severity = protocol.SeverityWarning
		case "note":
			severity = protocol.SeverityInformation
		}
		params.Diagnostics = append(params.Diagnostics, protocol.Diagnostic{
			Range:    protocol.Range{Start: pos, End: pos},
			Severity: severity,
			Source:   "scriptc",
			Message:  d.Message,
		})
	}
	return params
}

func zeroBased(n int) uint32 {
	if n <= 0 {
		return 0
	}
	return uint32(n - 1)
}
