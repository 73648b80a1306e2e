package cli

import (
	"github.com/spf13/cobra"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Import the remote dataset into the server's store",
		Long: `import asks the server to fetch its configured dataset and insert every
entry in one transaction. Each run appends a full copy with new ids.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result ImportResult
			if err := client.Post(cmd.Context(), "/records/import", nil, &result); err != nil {
				return err
			}
			output(cmd).Print(result)
			return nil
		},
	}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result HealthResult
			if err := client.Get(cmd.Context(), "/healthz", &result); err != nil {
				return err
			}
			output(cmd).Print(result)
			return nil
		},
	}
}
