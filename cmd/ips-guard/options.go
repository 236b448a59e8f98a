package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"ips-guard/internal/plugin"
	"ips-guard/internal/utils"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var optionsFormat string

var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "List registered rule option and logger kinds",
	Long:  "Display every registered kind with its parameter table",
	RunE:  runOptions,
}

func init() {
	optionsCmd.Flags().StringVar(&optionsFormat, "format", "table", "Output format: table, json")
}

type kindParam struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Range   string `json:"range,omitempty"`
	Default string `json:"default,omitempty"`
	Help    string `json:"help,omitempty"`
}

type kindInfo struct {
	Name      string      `json:"name"`
	Type      string      `json:"type"`
	Help      string      `json:"help"`
	Protocols string      `json:"protocols,omitempty"`
	Params    []kindParam `json:"params"`
}

func describeKinds(reg *plugin.Registry) []kindInfo {
	var out []kindInfo
	for _, e := range reg.Entries() {
		info := kindInfo{Name: e.Base.Name, Type: e.Base.Type.String(), Help: e.Base.Help}
		if e.Ips != nil {
			info.Protocols = e.Ips.Protocols.String()
		}

		m := e.Base.ModCtor()
		for _, p := range m.Params() {
			info.Params = append(info.Params, kindParam{Name: p.Name, Type: p.Type.String(), Range: p.Range, Default: p.Default, Help: p.Help})
		}
		e.Base.ModDtor(m)

		out = append(out, info)
	}
	return out
}

func runOptions(cmd *cobra.Command, args []string) error {
	level := logLevel
	if level == "" {
		level = "warn"
	}
	kinds := describeKinds(newRegistry(utils.NewLogger(level, "text")))

	switch optionsFormat {
	case "json":
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(kinds)
	case "table":
		return outputKindsTable(cmd, kinds)
	default:
		return fmt.Errorf("unknown output format: %s", optionsFormat)
	}
}

func outputKindsTable(cmd *cobra.Command, kinds []kindInfo) error {
	out := cmd.OutOrStdout()
	heading := color.New(color.Bold, color.FgHiWhite)

	for _, k := range kinds {
		heading.Fprintf(out, "%s", k.Name)
		fmt.Fprintf(out, " (%s", k.Type)
		if k.Protocols != "" {
			fmt.Fprintf(out, ", %s", k.Protocols)
		}
		fmt.Fprintf(out, ") %s\n", k.Help)

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, p := range k.Params {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n", color.HiGreenString(p.Name), p.Type, p.Range, p.Default, p.Help)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}
	return nil
}
