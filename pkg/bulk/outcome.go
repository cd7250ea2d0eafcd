// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
// SPDX-License-Identifier: Apache-2.0

package bulk

import (
	"errors"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

const (
	MessageSuccess    = "Emails sent successfully"
	MessageIncomplete = "Please fill all required fields"
)

// Outcome is the user-visible result of a run.
type Outcome struct {
	Level   Level  `json:"level" yaml:"level"`
	Message string `json:"message" yaml:"message"`
}

func (o Outcome) OK() bool {
	return o.Level == LevelSuccess
}

// Describe turns the result of Run into a message. A run that failed after
// some messages were accepted reads the same as one that sent nothing.
func Describe(err error) Outcome {
	switch {
	case err == nil:
		return Outcome{Level: LevelSuccess, Message: MessageSuccess}
	case errors.Is(err, ErrIncompleteInput):
		return Outcome{Level: LevelWarning, Message: MessageIncomplete}
	default:
		return Outcome{Level: LevelError, Message: "Error: " + err.Error()}
	}
}
