package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Station-Manager/dbinit/internal/plan"
)

func newPlanCmd(a *app) *cobra.Command {
	var (
		file   string
		output string
	)
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Resolve the activation order of the components in a plan file",
		Long: `Resolve the activation order of the components described in a YAML plan.

Examples:
  # Print the activation order as a table
  dbinit plan -f plan.yaml

  # Emit the resolved plan as YAML
  dbinit plan -f plan.yaml -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := plan.Load(file)
			if err != nil {
				return err
			}
			manifest, err := a.manifest()
			if err != nil {
				return err
			}

			res, err := p.Run(plan.Options{Manifest: manifest, Tracer: a.provider.Tracer()})
			if err != nil {
				return err
			}

			switch output {
			case "yaml":
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				if err := enc.Encode(res); err != nil {
					return err
				}
				return enc.Close()
			case "text", "":
				return writeTable(cmd.OutOrStdout(), res)
			default:
				return fmt.Errorf("unsupported output format %q", output)
			}
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "plan file")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or yaml")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func writeTable(w io.Writer, res *plan.Result) error {
	byID := make(map[string]plan.ComponentResult, len(res.Components))
	for _, c := range res.Components {
		byID[c.ID] = c
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tCOMPONENT\tDETECTED BY\tDEPENDS ON")
	for i, id := range res.Order {
		c := byID[id]
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, id, orDash(c.DetectedBy), orDash(strings.Join(c.DependsOn, ",")))
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
