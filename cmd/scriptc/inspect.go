package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/deepnoodle-ai/scriptc/artifact"
	"github.com/deepnoodle-ai/scriptc/hbc"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <file.hbc>",
		Short: "Verify a bytecode file and print its header and function table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			info, err := inspect(data)
			if err != nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printJSON(info)
			}
			return printInspection(info)
		},
	}
	cmd.Flags().Bool("json", false, "Print as JSON")
	return cmd
}

type inspection struct {
	Digest     string         `json:"digest"`
	Size       int            `json:"size"`
	Version    uint32         `json:"version"`
	SourceHash string         `json:"source_hash"`
	DebugInfo  bool           `json:"debug_info"`
	SourceMap  bool           `json:"source_map"`
	Strings    int            `json:"strings"`
	Files      []string       `json:"files"`
	Functions  []functionInfo `json:"functions"`
}

type functionInfo struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	Offset    uint32 `json:"offset"`
	Words     uint32 `json:"words"`
	Params    uint32 `json:"params"`
	Frame     uint32 `json:"frame"`
	Constants uint32 `json:"constants"`
}

func inspect(data []byte) (*inspection, error) {
	f, err := hbc.Read(data)
	if err != nil {
		return nil, err
	}
	info := &inspection{
		Digest:     artifact.Digest(data),
		Size:       len(data),
		Version:    f.Header.Version,
		SourceHash: hex.EncodeToString(f.Header.SourceHash[:]),
		DebugInfo:  f.Header.HasDebugInfo(),
		SourceMap:  f.Header.HasSourceMap(),
		Strings:    int(f.Header.StringCount),
		Files:      []string{},
	}
	for i := 0; i < f.Module.FileCount(); i++ {
		info.Files = append(info.Files, f.Module.FileAt(i))
	}
	for i, e := range f.Functions {
		info.Functions = append(info.Functions, functionInfo{
			Index:     i,
			Name:      f.Module.StringAt(int(e.NameID)),
			Offset:    e.Offset,
			Words:     e.WordCount,
			Params:    e.ParamCount,
			Frame:     e.FrameSize,
			Constants: e.ConstantCount,
		})
	}
	return info, nil
}

func printInspection(info *inspection) error {
	header := pterm.TableData{
		{"digest", info.Digest},
		{"size", strconv.Itoa(info.Size)},
		{"version", strconv.Itoa(int(info.Version))},
		{"source hash", info.SourceHash},
		{"debug info", strconv.FormatBool(info.DebugInfo)},
		{"source map", strconv.FormatBool(info.SourceMap)},
		{"strings", strconv.Itoa(info.Strings)},
	}
	for i, file := range info.Files {
		header = append(header, []string{fmt.Sprintf("file %d", i), file})
	}
	if err := pterm.DefaultTable.WithData(header).Render(); err != nil {
		return err
	}
	fmt.Println()
	funcs := pterm.TableData{{"#", "NAME", "OFFSET", "WORDS", "PARAMS", "FRAME", "CONSTANTS"}}
	for _, fn := range info.Functions {
		funcs = append(funcs, []string{
			strconv.Itoa(fn.Index), bold(fn.Name),
			fmt.Sprint(fn.Offset), fmt.Sprint(fn.Words), fmt.Sprint(fn.Params),
			fmt.Sprint(fn.Frame), fmt.Sprint(fn.Constants),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(funcs).Render()
}
