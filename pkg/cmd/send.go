package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/telekom/bulkmail/pkg/bulk"
	"github.com/telekom/bulkmail/pkg/output"
	"github.com/telekom/bulkmail/pkg/recipients"
)

type sendResult struct {
	Summary bulk.Summary `json:"summary" yaml:"summary"`
	Outcome bulk.Outcome `json:"outcome" yaml:"outcome"`
}

func NewSendCommand() *cobra.Command {
	var (
		recipientsPath string
		templatePath   string
		subject        string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send the template to every address in the recipient list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			format, err := rt.OutputFormat()
			if err != nil {
				return err
			}
			log, err := rt.Logger()
			if err != nil {
				return err
			}

			var list recipients.List
			if recipientsPath != "" {
				if list, err = recipients.LoadFile(recipientsPath); err != nil {
					return err
				}
			}
			var tmpl []byte
			if templatePath != "" {
				if tmpl, err = os.ReadFile(templatePath); err != nil {
					return fmt.Errorf("failed to read template: %w", err)
				}
			}
			relay, err := rt.cfg.Relay(rt.password)
			if err != nil {
				return err
			}

			runner := bulk.NewRunnerWithFactory(log.Sugar(), rt.senderFactory)
			summary, runErr := runner.Run(bulk.Request{
				Relay:      relay,
				Subject:    subject,
				Template:   tmpl,
				Recipients: list,
			})
			if runErr != nil {
				return runErr
			}

			outcome := bulk.Describe(nil)
			if format == output.FormatTable {
				output.WriteSummaryTable(rt.Writer(), summary, outcome)
				return nil
			}
			return output.WriteObject(rt.Writer(), format, sendResult{Summary: summary, Outcome: outcome})
		},
	}

	cmd.Flags().StringVarP(&recipientsPath, "recipients", "r", "", "Recipient list (.csv or .xlsx) with an 'email' column")
	cmd.Flags().StringVarP(&templatePath, "template", "t", "", "HTML template file")
	cmd.Flags().StringVarP(&subject, "subject", "s", "", "Message subject")

	return cmd
}
