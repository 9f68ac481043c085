package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "unknown"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "scriptc",
		Short:         "Compile scripts to bytecode",
		Version:       version + " (" + commit + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return processGlobalFlags()
		},
	}
	root.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().Bool("no-color", false, "Disable colored output")
	viper.BindPFlag("log-level", root.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("no-color", root.PersistentFlags().Lookup("no-color"))

	root.AddCommand(
		newBuildCmd(),
		newCheckCmd(),
		newPropsCmd(),
		newInspectCmd(),
		newDisCmd(),
		newSelftestCmd(),
	)
	return root
}

func main() {
	viper.SetEnvPrefix("scriptc")
	viper.AutomaticEnv()
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fatal(err)
	}
}
