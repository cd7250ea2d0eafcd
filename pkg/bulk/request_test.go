// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
// SPDX-License-Identifier: Apache-2.0

package bulk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telekom/bulkmail/pkg/config"
	"github.com/telekom/bulkmail/pkg/recipients"
)

func validRequest() Request {
	return Request{
		Relay: config.Relay{
			Host:     "smtp.example.com",
			Port:     587,
			Sender:   "news@example.com",
			Password: "app-password",
		},
		Subject:    "Hello",
		Template:   []byte("<p>Hi</p>"),
		Recipients: recipients.List{"a@example.com"},
	}
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *Request)
		missing []string
	}{
		{
			name:   "complete",
			mutate: func(r *Request) {},
		},
		{
			name:   "empty uploaded template counts as provided",
			mutate: func(r *Request) { r.Template = []byte{} },
		},
		{
			name:    "no template uploaded",
			mutate:  func(r *Request) { r.Template = nil },
			missing: []string{"HTML template"},
		},
		{
			name:    "empty subject",
			mutate:  func(r *Request) { r.Subject = "" },
			missing: []string{"subject"},
		},
		{
			name:    "no sender or password",
			mutate: func(r *Request) {
				r.Relay.Sender = ""
				r.Relay.Password = ""
			},
			missing: []string{"sender address", "password"},
		},
		{
			name:    "no list uploaded",
			mutate:  func(r *Request) { r.Recipients = nil },
			missing: []string{"recipient list"},
		},
		{
			name:    "list without addresses",
			mutate:  func(r *Request) { r.Recipients = recipients.List{} },
			missing: []string{"recipient list"},
		},
		{
			name:    "port out of range",
			mutate:  func(r *Request) { r.Relay.Port = 70000 },
			missing: []string{"SMTP port"},
		},
		{
			name:    "everything missing",
			mutate:  func(r *Request) { *r = Request{} },
			missing: []string{"SMTP server", "SMTP port", "sender address", "password", "subject", "HTML template", "recipient list"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			err := req.Validate()
			if len(tt.missing) == 0 {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrIncompleteInput)
			for _, field := range tt.missing {
				assert.Contains(t, err.Error(), field)
			}
		})
	}
}

func TestRequestValidateNeverLeaksPassword(t *testing.T) {
	req := validRequest()
	req.Subject = ""
	err := req.Validate()
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "app-password")
}
