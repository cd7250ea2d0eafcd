// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
// SPDX-License-Identifier: Apache-2.0

// Package web serves the interactive form for bulk sends: relay settings in a
// sidebar, subject and file uploads in the main area and the result of the
// last action below them.
package web
