package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telekom/bulkmail/pkg/config"
)

func TestConfigInitWritesConfig(t *testing.T) {
	buf := &bytes.Buffer{}
	path := configPathForTest(t)

	root := newTestRoot(t, buf, nil, path)
	root.SetArgs([]string{"config", "init", "--smtp-host", "mail.example.com", "--sender", "news@example.com", "--keyring-service", "bulkmail"})
	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "Initialized config at "+path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mail.example.com", cfg.SMTP.Host)
	assert.Equal(t, config.DefaultSMTPPort, cfg.SMTP.Port)
	assert.Equal(t, "news@example.com", cfg.SMTP.Sender)
	assert.Equal(t, "bulkmail", cfg.SMTP.KeyringService)
}

func TestConfigInitRefusesToOverwrite(t *testing.T) {
	path := configPathForTest(t)

	root := newTestRoot(t, &bytes.Buffer{}, nil, path)
	root.SetArgs([]string{"config", "init"})
	require.NoError(t, root.Execute())

	root = newTestRoot(t, &bytes.Buffer{}, nil, path)
	root.SetArgs([]string{"config", "init"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config already exists")

	root = newTestRoot(t, &bytes.Buffer{}, nil, path)
	root.SetArgs([]string{"config", "init", "--force", "--smtp-port", "465"})
	require.NoError(t, root.Execute())

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 465, cfg.SMTP.Port)
}

func TestConfigView(t *testing.T) {
	path := configPathForTest(t)
	cfg := config.DefaultConfig()
	cfg.SMTP.Sender = "news@example.com"
	require.NoError(t, config.Save(path, &cfg))

	buf := &bytes.Buffer{}
	root := newTestRoot(t, buf, nil, path)
	root.SetArgs([]string{"config", "view"})
	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "host: smtp.gmail.com")
	assert.Contains(t, buf.String(), "sender: news@example.com")

	buf.Reset()
	root = newTestRoot(t, buf, nil, path)
	root.SetArgs([]string{"config", "view", "-o", "json", "--smtp-host", "mail.example.com"})
	require.NoError(t, root.Execute())
	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Contains(t, buf.String(), "mail.example.com")
}
