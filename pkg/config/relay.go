// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/zalando/go-keyring"
)

// Relay holds the credentials for one bulk send. It is passed by value and
// only lives as long as the send that uses it.
type Relay struct {
	Host     string `validate:"required"`
	Port     int    `validate:"required,min=1,max=65535"`
	Sender   string `validate:"required"`
	Password string `validate:"required"`
}

func (r Relay) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// String keeps the secret out of logs and %v output.
func (r Relay) String() string {
	secret := ""
	if r.Password != "" {
		secret = "***"
	}
	return fmt.Sprintf("Relay{Host:%s Port:%d Sender:%s Password:%s}", r.Host, r.Port, r.Sender, secret)
}

// Relay builds the relay credentials from the config, resolving the secret.
// An explicit password wins over every configured source.
func (c *Config) Relay(password string) (Relay, error) {
	secret, err := c.SMTP.ResolvePassword(password)
	if err != nil {
		return Relay{}, err
	}
	return Relay{
		Host:     c.SMTP.Host,
		Port:     c.SMTP.Port,
		Sender:   c.SMTP.Sender,
		Password: secret,
	}, nil
}

// ResolvePassword looks the secret up in order: explicit value, the
// environment variable named by PasswordEnv, PasswordFile, and finally the OS
// keyring under KeyringService with the sender address as user. An empty
// result with a nil error means no source had a secret. Nothing is stored.
func (s SMTP) ResolvePassword(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	envName := s.PasswordEnv
	if envName == "" {
		envName = DefaultPasswordEnv
	}
	if v := os.Getenv(envName); v != "" {
		return v, nil
	}
	if s.PasswordFile != "" {
		content, err := os.ReadFile(s.PasswordFile)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		if v := strings.TrimRight(string(content), "\r\n"); v != "" {
			return v, nil
		}
	}
	if s.KeyringService != "" && s.Sender != "" {
		v, err := keyring.Get(s.KeyringService, s.Sender)
		switch {
		case errors.Is(err, keyring.ErrNotFound):
		case err != nil:
			return "", fmt.Errorf("failed to read keyring service %q: %w", s.KeyringService, err)
		default:
			return v, nil
		}
	}
	return "", nil
}
