package cli

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"quizdesk/internal/catalog"
)

// NewCatalogCmd prints the bundled quiz types.
func NewCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the bundled quizzes",
		RunE: func(cmd *cobra.Command, args []string) error {
			bundled, err := catalog.New()
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()
			return enc.Encode(bundled.Types())
		},
	}
}
