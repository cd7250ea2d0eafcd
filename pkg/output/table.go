/*
SPDX-FileCopyrightText: 2026 Deutsche Telekom AG

SPDX-License-Identifier: Apache-2.0
*/

package output

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/telekom/bulkmail/pkg/bulk"
	"github.com/telekom/bulkmail/pkg/recipients"
)

func WriteRecipientTable(w io.Writer, list recipients.List) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "#\tEMAIL")
	for i, addr := range list {
		_, _ = fmt.Fprintf(tw, "%d\t%s\n", i+1, addr)
	}
	_ = tw.Flush()
}

func WriteSummaryTable(w io.Writer, summary bulk.Summary, outcome bulk.Outcome) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RUN\tHOST\tRECIPIENTS\tTEMPLATE_BYTES\tCOMPACT_BYTES\tRESULT")
	_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
		dash(summary.RunID), dash(summary.Host), summary.Recipients,
		summary.TemplateBytes, summary.CompactBytes, outcome.Message)
	_ = tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
