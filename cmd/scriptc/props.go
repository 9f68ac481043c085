package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/hokaccha/go-prettyjson"
	"github.com/spf13/cobra"

	"github.com/deepnoodle-ai/scriptc/hbc"
)

func newPropsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "props",
		Short: "Print the bytecode format descriptor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := prettyjson.NewFormatter()
			f.DisabledColor = color.NoColor
			out, err := f.Format([]byte(hbc.Properties()))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
