// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
// SPDX-License-Identifier: Apache-2.0

package bulk

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/telekom/bulkmail/pkg/config"
	"github.com/telekom/bulkmail/pkg/recipients"
)

// ErrIncompleteInput is returned when a required input is missing. Nothing
// has been sent when it is returned.
var ErrIncompleteInput = errors.New("please fill all required fields")

var validate = validator.New()

// Request is everything one bulk send needs.
type Request struct {
	Relay   config.Relay
	Subject string `validate:"required"`
	// Template holds the uploaded template bytes. nil means no template was
	// uploaded; an empty upload counts as provided.
	Template   []byte          `validate:"required"`
	Recipients recipients.List `validate:"required,min=1"`
}

var fieldLabels = map[string]string{
	"Relay.Host":     "SMTP server",
	"Relay.Port":     "SMTP port",
	"Relay.Sender":   "sender address",
	"Relay.Password": "password",
	"Subject":        "subject",
	"Template":       "HTML template",
	"Recipients":     "recipient list",
}

// Validate reports every missing field at once, wrapped in
// ErrIncompleteInput.
func (r Request) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrIncompleteInput, err)
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, fieldLabel(fe))
	}
	return fmt.Errorf("%w: missing %s", ErrIncompleteInput, strings.Join(missing, ", "))
}

func fieldLabel(fe validator.FieldError) string {
	ns := strings.TrimPrefix(fe.StructNamespace(), "Request.")
	if label, ok := fieldLabels[ns]; ok {
		return label
	}
	return ns
}
