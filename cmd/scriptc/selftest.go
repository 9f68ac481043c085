package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/deepnoodle-ai/scriptc"
)

const selftestMap = `{
  "version": 3,
  "file": "x.js",
  "sourceRoot": "",
  "sources": ["test.js"],
  "names": [],
  "mappings": "AAKA,SAAS,OAAO,CAAC,MAAc;IAC3B,OAAO,SAAS,GAAG,MAAM,CAAC,SAAS,GAAG,GAAG,GAAG,MAAM,CAAC,QAAQ,CAAC;AAChE,CAAC;AAED,IAAI,IAAI,GAAG,EAAE,SAAS,EAAE,MAAM,EAAE,QAAQ,EAAE,MAAM,EAAE,CAAC;AACnD,OAAO,CAAC,GAAG,CAAC,OAAO,CAAC,IAAI,CAAC,CAAC,CAAC"
}`

func newSelftestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "selftest",
		Short: "Compile a valid and an invalid script with a source map",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return selftest(cmd.Context(), newCompiler(), cmd.OutOrStdout())
		},
	}
}

func selftest(ctx context.Context, compiler *scriptc.Compiler, out io.Writer) error {
	sourceMap := append([]byte(selftestMap), 0)

	ok := compiler.Compile(ctx, scriptc.Request{
		Source:    []byte("var x = 1; print(x);\x00"),
		SourceURL: "x.js",
		SourceMap: sourceMap,
	})
	defer ok.Free()
	if err := ok.Err(); err != nil {
		return fmt.Errorf("success expected: %w", err)
	}
	fmt.Fprintf(out, "Generated %d bytecode bytes\n", ok.Size())

	bad := compiler.Compile(ctx, scriptc.Request{
		Source:    []byte("var x = 1 + ;\x00"),
		SourceURL: "x.js",
		SourceMap: sourceMap,
	})
	defer bad.Free()
	msg, failed := bad.ErrorMessage()
	if !failed {
		return errors.New("error expected")
	}
	fmt.Fprintf(out, "Error %s\n", msg)
	return nil
}
