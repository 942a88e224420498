package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/ensemble/hook"
)

func hooksCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hooks",
		Short: "Inspect and fire lifecycle hooks of a case",
	}
	cmd.AddCommand(hooksListCmd(c))
	cmd.AddCommand(hooksRunCmd(c))
	cmd.AddCommand(hooksLegacyRunCmd(c))
	return cmd
}

func hooksListCmd(c *cli) *cobra.Command {
	var casePath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List hooks in firing order",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := c.app.LoadDispatcher(casePath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if d.Size() == 0 {
				fmt.Fprintln(out, "No hooks configured.")
				return nil
			}
			for i := 0; i < d.Size(); i++ {
				e := d.Get(i)
				fmt.Fprintf(out, "%3d  %-16s %-24s %s\n", i, e.Phase(), e.Workflow().Name(), e.Workflow().Path())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&casePath, "case", "", "Case configuration file")
	_ = cmd.MarkFlagRequired("case")
	return cmd
}

func hooksRunCmd(c *cli) *cobra.Command {
	var (
		casePath string
		target   string
		inputs   map[string]string
	)

	cmd := &cobra.Command{
		Use:       "run PHASE",
		Short:     "Run every hook registered for a lifecycle phase",
		Args:      cobra.ExactArgs(1),
		ValidArgs: phaseNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			phase, err := hook.ParsePhase(args[0])
			if err != nil {
				return err
			}

			if err := c.app.ConnectNATS(); err != nil {
				return err
			}
			d, err := c.app.LoadDispatcher(casePath)
			if err != nil {
				return err
			}

			keys := make([]string, 0, len(inputs))
			for k := range inputs {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				d.AddInputContext(k, inputs[k])
			}

			var t any
			if target != "" {
				t = target
			}
			fired := d.Dispatch(cmd.Context(), phase, t)
			fmt.Fprintf(cmd.OutOrStdout(), "Fired %d hook workflow(s) for %s.\n", fired, phase)
			return nil
		},
	}

	cmd.Flags().StringVar(&casePath, "case", "", "Case configuration file")
	cmd.Flags().StringVar(&target, "target", "", "Run description passed to workflows as ENSEMBLE_TARGET")
	cmd.Flags().StringToStringVar(&inputs, "context", nil, "Input context values (key=value)")
	_ = cmd.MarkFlagRequired("case")
	return cmd
}

func hooksLegacyRunCmd(c *cli) *cobra.Command {
	var (
		casePath     string
		workflowName string
	)

	cmd := &cobra.Command{
		Use:        "legacy-run",
		Short:      "Run a single post hook workflow directly",
		Deprecated: "register the workflow with HOOK_WORKFLOW at POST_SIMULATION and use 'hooks run POST_SIMULATION'",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := c.app.LoadDispatcher(casePath)
			if err != nil {
				return err
			}

			if workflowName != "" {
				wf, err := c.app.catalog.Workflow(workflowName)
				if err != nil {
					return err
				}
				d.SetLegacyPostHookWorkflow(wf)
			}

			ok, err := d.RunLegacyPostHookWorkflow(cmd.Context(), nil)
			if err != nil {
				return err
			}
			if !ok {
				if lastErr := c.app.interpreter.LastError(); lastErr != nil {
					return lastErr
				}
				return fmt.Errorf("legacy post hook workflow failed")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Legacy post hook workflow completed.")
			return nil
		},
	}

	cmd.Flags().StringVar(&casePath, "case", "", "Case configuration file")
	cmd.Flags().StringVar(&workflowName, "workflow", "", "Catalog workflow to run as the legacy post hook")
	_ = cmd.MarkFlagRequired("case")
	return cmd
}

func runpathCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runpath",
		Short: "Manage the runpath list of a case",
	}

	var (
		casePath string
		entries  []string
	)

	export := &cobra.Command{
		Use:   "export",
		Short: "Write the runpath list file read by workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := c.app.LoadDispatcher(casePath)
			if err != nil {
				return err
			}

			list := d.RunpathList()
			if list == nil {
				return fmt.Errorf("case %s has no runpath list", casePath)
			}
			for _, entry := range entries {
				member, iteration, runpath, basename, err := parseRunpathEntry(entry)
				if err != nil {
					return err
				}
				list.Add(member, iteration, runpath, basename)
			}

			if err := d.ExportRunpathList(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d runpath(s) to %s\n", list.Size(), d.RunpathExportFile())
			return nil
		},
	}

	export.Flags().StringVar(&casePath, "case", "", "Case configuration file")
	export.Flags().StringArrayVar(&entries, "runpath", nil, "Runpath entry as member:iteration:path:basename (repeatable)")
	_ = export.MarkFlagRequired("case")

	cmd.AddCommand(export)
	return cmd
}

// parseRunpathEntry splits "member:iteration:path:basename". The path may
// not contain ':'.
func parseRunpathEntry(s string) (member, iteration int, runpath, basename string, err error) {
	parts := strings.SplitN(s, ":", 4)
	if len(parts) != 4 {
		return 0, 0, "", "", fmt.Errorf("runpath entry %q: expected member:iteration:path:basename", s)
	}
	if member, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, "", "", fmt.Errorf("runpath entry %q: invalid member: %w", s, err)
	}
	if iteration, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, "", "", fmt.Errorf("runpath entry %q: invalid iteration: %w", s, err)
	}
	return member, iteration, parts[2], parts[3], nil
}

func phaseNames() []string {
	phases := hook.Phases()
	names := make([]string, len(phases))
	for i, p := range phases {
		names[i] = p.String()
	}
	return names
}
