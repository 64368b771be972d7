package cli

import (
	"github.com/spf13/cobra"
)

// NewCycleCmd создаёт группу команд для циклов диспетчера на сервере.
func NewCycleCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Trigger and inspect dispatch cycles on a running server",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "trigger",
			Short: "Run a dispatch cycle now",
			RunE: func(cmd *cobra.Command, args []string) error {
				report, err := clientFn().TriggerCycle()
				if err != nil {
					return err
				}
				outputFn().Report(report)
				return reportError(report)
			},
		},
		&cobra.Command{
			Use:   "last",
			Short: "Show the last finished cycle",
			RunE: func(cmd *cobra.Command, args []string) error {
				report, err := clientFn().LastCycle()
				if err != nil {
					return err
				}
				outputFn().Report(report)
				return nil
			},
		},
	)

	return cmd
}
