package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Station-Manager/dbinit"
	_ "github.com/Station-Manager/dbinit/detectors"
)

func newDetectorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detectors",
		Short: "List the detectors registered in the default catalog",
		Long: `List the detectors registered in the default catalog as YAML, keyed by
capability in the same shape as a YAML manifest.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat := dbinit.DefaultCatalog()
			listed := map[string][]string{
				dbinit.InitializerDetectorKey: cat.InitializerDetectorNames(),
				dbinit.DependentDetectorKey:   cat.DependentDetectorNames(),
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(listed); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
