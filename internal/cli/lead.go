package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewLeadCmd создаёт группу команд для квалификации лидов на сервере.
func NewLeadCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lead",
		Short: "Qualify leads for delayed sending",
	}

	cmd.AddCommand(
		newLeadQualifyCmd(clientFn, outputFn),
		newLeadRearmCmd(clientFn, outputFn),
	)

	return cmd
}

func newLeadQualifyCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "qualify LEAD_ID",
		Short: "Mark a lead eligible and schedule its email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseLeadID(args[0])
			if err != nil {
				return err
			}

			lead, err := clientFn().QualifyLead(id)
			if err != nil {
				return err
			}

			out := outputFn()
			out.Lead(lead)
			out.Success(fmt.Sprintf("Lead %d qualified", lead.ID))
			return nil
		},
	}
}

func newLeadRearmCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var req RearmRequest

	cmd := &cobra.Command{
		Use:   "rearm LEAD_ID",
		Short: "Schedule another email for a lead with a new delay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseLeadID(args[0])
			if err != nil {
				return err
			}

			lead, err := clientFn().RearmLead(id, req)
			if err != nil {
				return err
			}

			out := outputFn()
			out.Lead(lead)
			out.Success(fmt.Sprintf("Lead %d rearmed", lead.ID))
			return nil
		},
	}

	cmd.Flags().IntVar(&req.Value, "value", 1, "Delay value")
	cmd.Flags().StringVar(&req.Unit, "unit", "days", "Delay unit (hours, days, weeks)")
	cmd.Flags().StringVar(&req.TargetTime, "target-time", "", "Local send time HH:MM (default 12:00)")

	return cmd
}

func parseLeadID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid lead id %q", s)
	}
	return id, nil
}
