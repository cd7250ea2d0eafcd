// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
// SPDX-License-Identifier: Apache-2.0

// Package recipients loads the recipient list for a bulk send from a
// comma-separated or spreadsheet file containing an "email" column.
package recipients
