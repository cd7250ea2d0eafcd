package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/telekom/bulkmail/pkg/output"
	"github.com/telekom/bulkmail/pkg/recipients"
)

func NewRecipientsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "recipients FILE",
		Short: "Load a recipient list and print the unique addresses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			format, err := rt.OutputFormat()
			if err != nil {
				return err
			}
			list, err := recipients.LoadFile(args[0])
			if err != nil {
				return err
			}
			if format != output.FormatTable {
				return output.WriteObject(rt.Writer(), format, list)
			}
			_, _ = fmt.Fprintf(rt.Writer(), "%d email addresses loaded\n\n", len(list))
			output.WriteRecipientTable(rt.Writer(), list)
			return nil
		},
	}
}
