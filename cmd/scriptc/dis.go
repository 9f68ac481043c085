package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/deepnoodle-ai/scriptc"
	"github.com/deepnoodle-ai/scriptc/bytecode"
	"github.com/deepnoodle-ai/scriptc/dis"
	"github.com/deepnoodle-ai/scriptc/hbc"
)

func newDisCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dis <file>",
		Short: "Disassemble a script or a bytecode file",
		Long: "Disassemble a bytecode file (.hbc), or compile a script and " +
			"disassemble the result.",
		Args: cobra.ExactArgs(1),
		RunE: disHandler,
	}
	cmd.Flags().String("func", "", "Function to disassemble")
	return cmd
}

func disHandler(cmd *cobra.Command, args []string) error {
	module, err := loadModule(cmd, args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	// If a function name was provided, disassemble its code only
	if funcName, _ := cmd.Flags().GetString("func"); funcName != "" {
		for i := 0; i < module.FunctionCount(); i++ {
			fn := module.FunctionAt(i)
			if fn.Name() != funcName {
				continue
			}
			instructions, err := dis.Disassemble(module, fn)
			if err != nil {
				return err
			}
			return dis.Print(instructions, out)
		}
		return fmt.Errorf("function %q not found", funcName)
	}
	return dis.Module(module, out)
}

// loadModule reads a bytecode file, or compiles a script, into a module.
func loadModule(cmd *cobra.Command, path string) (*bytecode.Module, error) {
	if filepath.Ext(path) == ".hbc" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		f, err := hbc.Read(data)
		if err != nil {
			return nil, err
		}
		return f.Module, nil
	}
	source, err := readTerminated(path)
	if err != nil {
		return nil, err
	}
	res := newCompiler().Compile(cmd.Context(), scriptc.Request{
		Source:    source,
		SourceURL: filepath.ToSlash(path),
	})
	defer res.Free()
	if err := res.Err(); err != nil {
		return nil, err
	}
	f, err := hbc.Read(res.Bytecode())
	if err != nil {
		return nil, err
	}
	return f.Module, nil
}
