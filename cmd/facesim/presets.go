package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-face/pkg/expression"
	"github.com/teslashibe/go-face/pkg/rig"
)

// errInvalidPresets is returned by presets validate when any file fails.
var errInvalidPresets = errors.New("invalid presets")

func newPresetsCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "Inspect expression presets",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the built-in and custom presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, cfg, _, err := g.load(cmd, map[string]string{"preset.dir": "dir"})
			if err != nil {
				return err
			}
			r := expression.NewRegistry(rig.SimSpace())
			if err := r.LoadBuiltIn(); err != nil {
				return err
			}
			if cfg.Preset.Dir != "" {
				if err := r.LoadCustomDir(cfg.Preset.Dir); err != nil {
					return err
				}
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCATEGORIES\tISSUES\tDEFAULT")
			for _, name := range r.List() {
				p, err := r.Get(name)
				if err != nil {
					return err
				}
				mark := ""
				if name == cfg.Preset.Name {
					mark = "*"
				}
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", name, len(p.Categories()), len(p.Issues()), mark)
			}
			return w.Flush()
		},
	}
	list.Flags().String("dir", "", "directory of extra presets")

	var strict bool
	validate := &cobra.Command{
		Use:   "validate FILE...",
		Short: "Check preset files against the simulated head",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			space := rig.SimSpace()
			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				p, err := expression.LoadFile(path, space)
				if err != nil {
					failed++
					fmt.Fprintf(out, "FAIL  %s: %v\n", path, err)
					continue
				}
				issues := p.Issues()
				if len(issues) > 0 && strict {
					failed++
					fmt.Fprintf(out, "FAIL  %s: %d rejected values\n", path, len(issues))
				} else {
					fmt.Fprintf(out, "ok    %s (%s, %d categories)\n", path, p.Name, len(p.Categories()))
				}
				for _, issue := range issues {
					fmt.Fprintf(out, "      %v\n", issue)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%w: %d of %d", errInvalidPresets, failed, len(args))
			}
			return nil
		},
	}
	validate.Flags().BoolVar(&strict, "strict", false, "treat rejected values as failures")

	cmd.AddCommand(list, validate)
	return cmd
}
