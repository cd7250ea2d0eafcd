package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/telekom/bulkmail/pkg/output"
	"github.com/telekom/bulkmail/pkg/version"
)

// versionReport adds the X-Mailer value stamped on every sent message.
type versionReport struct {
	version.BuildInfo `yaml:",inline"`
	Mailer            string `json:"mailer" yaml:"mailer"`
}

// NewVersionCommand prints build metadata in the global --output format.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show bulkmail version and the X-Mailer header it sends",
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

			report := versionReport{BuildInfo: version.GetBuildInfo(), Mailer: version.Mailer()}
			if format != output.FormatTable {
				return output.WriteObject(rt.Writer(), format, report)
			}
			w := rt.Writer()
			_, _ = fmt.Fprintf(w, "%s %s (commit: %s, built: %s)\n", version.Name, report.Version, report.GitCommit, report.BuildDate)
			_, _ = fmt.Fprintf(w, "X-Mailer: %s\n", report.Mailer)
			_, _ = fmt.Fprintf(w, "%s %s\n", report.GoVersion, report.Platform)
			return nil
		},
	}
}
