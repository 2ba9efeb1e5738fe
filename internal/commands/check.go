package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/recon/internal/model"
)

func newCheckCommand() *cobra.Command {
	var flags projectFlags
	var strict bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the compliance rules only and print the findings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			in, err := p.loadInput(cmd.Context())
			if err != nil {
				return err
			}
			issues, err := p.engine().Compliance(in)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			high := 0
			for _, is := range issues {
				if is.Severity == model.SeverityHigh {
					high++
				}
				fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", is.Severity, is.IssueType, is.InvoiceID, is.Description)
			}
			fmt.Fprintf(out, "%d compliance issues (%d high)\n", len(issues), high)

			if strict && high > 0 {
				return fmt.Errorf("%d high severity compliance issues", high)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any high severity issue is found")

	return cmd
}
