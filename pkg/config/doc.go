// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
// SPDX-License-Identifier: Apache-2.0

// Package config handles bulkmail configuration: the YAML config file, the
// BULKMAIL_* environment overlay, and resolution of the relay secret from
// flags, environment, files, or the OS keyring.
package config
