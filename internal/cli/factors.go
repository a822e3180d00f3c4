package cli

import (
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/scope3-tracker/internal/factors"
)

func newFactorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "factors",
		Short: "Print the emission factors in effect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return writeJSON(c.Out, factors.Load(c.Config.Pipeline.FactorsPath, c.Logger))
		},
	}
}
