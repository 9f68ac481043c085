package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/deepnoodle-ai/scriptc"
	"github.com/deepnoodle-ai/scriptc/artifact"
	"github.com/deepnoodle-ai/scriptc/config"
)

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [file]",
		Short: "Compile a script, or every target of a scriptc.toml manifest",
		Args:  cobra.MaximumNArgs(1),
		RunE:  buildHandler,
	}
	cmd.Flags().StringP("output", "o", "", "Output file (single file builds)")
	cmd.Flags().String("source-map", "", "Source map for the script")
	cmd.Flags().String("url", "", "Source URL recorded in diagnostics and debug info")
	cmd.Flags().StringP("manifest", "m", "", "Manifest path (default: search upward for scriptc.toml)")
	cmd.Flags().StringSlice("store", nil, "Artifact store URL to publish to (repeatable)")
	viper.BindPFlag("store", cmd.Flags().Lookup("store"))
	return cmd
}

type buildOutcome struct {
	target config.Target
	size   int
	digest string
	refs   []artifact.Ref
	err    error
}

func buildHandler(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	manifest, err := loadBuildManifest(cmd, args)
	if err != nil {
		return err
	}
	stores, err := openStores(ctx, append(manifest.Stores, viper.GetStringSlice("store")...))
	if err != nil {
		return err
	}
	defer closeStores(ctx, stores)

	compiler := newCompiler()
	var outcomes []buildOutcome
	failed := 0
	for _, target := range manifest.Targets {
		outcome := buildTarget(ctx, compiler, target, stores)
		if outcome.err != nil {
			failed++
			fmt.Fprintln(os.Stderr, red(outcome.err.Error()))
		}
		outcomes = append(outcomes, outcome)
	}
	if err := printSummary(outcomes); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d targets failed", failed, len(outcomes))
	}
	return nil
}

// loadBuildManifest returns the manifest to build: a synthesized one for a
// single file argument, otherwise the configured or discovered manifest.
func loadBuildManifest(cmd *cobra.Command, args []string) (*config.Manifest, error) {
	if len(args) == 1 {
		source := args[0]
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = strings.TrimSuffix(source, filepath.Ext(source)) + ".hbc"
		}
		url, _ := cmd.Flags().GetString("url")
		if url == "" {
			url = filepath.ToSlash(source)
		}
		sourceMap, _ := cmd.Flags().GetString("source-map")
		return &config.Manifest{
			Name: filepath.Base(source),
			Targets: []config.Target{{
				Name:      filepath.Base(source),
				Source:    source,
				SourceMap: sourceMap,
				URL:       url,
				Output:    output,
			}},
		}, nil
	}
	path, _ := cmd.Flags().GetString("manifest")
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		if path, err = config.Find(wd); err != nil {
			return nil, err
		}
	}
	logger.Debug().Str("manifest", path).Msg("loading manifest")
	return config.Load(path)
}

func openStores(ctx context.Context, urls []string) ([]artifact.Store, error) {
	var stores []artifact.Store
	for _, u := range urls {
		store, err := artifact.Open(ctx, u)
		if err != nil {
			closeStores(ctx, stores)
			return nil, fmt.Errorf("store %s: %w", u, err)
		}
		stores = append(stores, store)
	}
	return stores, nil
}

func closeStores(ctx context.Context, stores []artifact.Store) {
	for _, store := range stores {
		if err := artifact.Close(ctx, store); err != nil {
			logger.Warn().Err(err).Msg("closing artifact store")
		}
	}
}

func buildTarget(ctx context.Context, compiler *scriptc.Compiler, target config.Target, stores []artifact.Store) buildOutcome {
	outcome := buildOutcome{target: target}
	source, err := readTerminated(target.Source)
	if err != nil {
		outcome.err = err
		return outcome
	}
	sourceMap, err := readTerminated(target.SourceMap)
	if err != nil {
		outcome.err = err
		return outcome
	}
	res := compiler.Compile(ctx, scriptc.Request{
		Source:    source,
		SourceURL: target.URL,
		SourceMap: sourceMap,
	})
	defer res.Free()
	if err := res.Err(); err != nil {
		outcome.err = fmt.Errorf("%s: %w", target.Name, err)
		return outcome
	}

	data := res.Bytecode()
	outcome.size = len(data)
	outcome.digest = artifact.Digest(data)
	if dir := filepath.Dir(target.Output); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			outcome.err = err
			return outcome
		}
	}
	if err := os.WriteFile(target.Output, data, 0o644); err != nil {
		outcome.err = err
		return outcome
	}
	for _, store := range stores {
		ref, err := store.Put(ctx, target.Name, data)
		if err != nil {
			outcome.err = fmt.Errorf("%s: %w", target.Name, err)
			return outcome
		}
		logger.Info().Str("target", target.Name).Str("location", ref.Location).Msg("published")
		outcome.refs = append(outcome.refs, ref)
	}
	return outcome
}

func printSummary(outcomes []buildOutcome) error {
	data := pterm.TableData{{"TARGET", "STATUS", "SIZE", "DIGEST", "OUTPUT", "PUBLISHED"}}
	for _, o := range outcomes {
		status := green("ok")
		if o.err != nil {
			status = red("failed")
		}
		var published []string
		for _, ref := range o.refs {
			published = append(published, ref.Location)
		}
		data = append(data, []string{
			o.target.Name, status, strconv.Itoa(o.size), o.digest,
			o.target.Output, strings.Join(published, ", "),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
