// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
// SPDX-License-Identifier: Apache-2.0

// Package bulk runs one bulk send end to end: it checks that every required
// input is present, decodes and compacts the template, hands the list to a
// relay dispatcher and turns the result into a message for the user.
package bulk
