package cli

import (
	"github.com/spf13/cobra"

	"github.com/shaiso/leadmailer/internal/config"
)

// NewRootCmd собирает корневую команду leadmailer.
//
// serve, run-once и migrate работают напрямую с инфраструктурой из
// конфигурации окружения. cycle и lead обращаются к ops API запущенного
// serve по --ops-url.
func NewRootCmd(version string) *cobra.Command {
	var opsURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "leadmailer",
		Short:         "leadmailer — delayed email dispatch for qualified leads",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opsURL, "ops-url", "http://localhost:"+config.DefaultOpsPort, "Ops API URL of a running serve")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *Client { return NewClient(opsURL) }
	outputFn := func() *Output { return NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		NewServeCmd(config.Load),
		NewRunOnceCmd(config.Load, outputFn),
		NewMigrateCmd(config.Load),
		NewCycleCmd(clientFn, outputFn),
		NewLeadCmd(clientFn, outputFn),
	)

	return rootCmd
}
