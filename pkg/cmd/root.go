package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/telekom/bulkmail/pkg/bulk"
	"github.com/telekom/bulkmail/pkg/config"
	"github.com/telekom/bulkmail/pkg/output"
	"github.com/telekom/bulkmail/pkg/system"
)

type Config struct {
	ConfigPath   string
	OutputWriter io.Writer
	// Logger replaces the process logger built from --debug.
	Logger *zap.Logger
	// SenderFactory replaces the SMTP dispatcher for send and serve.
	SenderFactory bulk.SenderFactory
}

type runtimeState struct {
	configPath    string
	cfg           *config.Config
	outputFormat  string
	smtpHost      string
	smtpPort      int
	sender        string
	password      string
	debug         bool
	writer        io.Writer
	logger        *zap.Logger
	senderFactory bulk.SenderFactory
}

type runtimeKey struct{}

func DefaultConfig() Config {
	return Config{
		ConfigPath:   config.DefaultConfigPath(),
		OutputWriter: os.Stdout,
	}
}

func NewRootCommand(cfg Config) *cobra.Command {
	rt := &runtimeState{
		configPath:    cfg.ConfigPath,
		writer:        cfg.OutputWriter,
		logger:        cfg.Logger,
		senderFactory: cfg.SenderFactory,
	}

	root := &cobra.Command{
		Use:           "bulkmail",
		Short:         "Send one HTML message to every address in a list",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if rt.writer == nil {
				rt.writer = os.Stdout
			}
			if rt.configPath == "" {
				rt.configPath = config.DefaultConfigPath()
			}

			// Skip config loading for commands that don't need it
			if cmd.Name() == "init" && cmd.Parent() != nil && cmd.Parent().Name() == "config" {
				return nil
			}
			if cmd.Name() == "version" || cmd.Name() == "completion" || cmd.Name() == "compact" {
				return nil
			}
			return rt.EnsureConfigLoaded()
		},
	}

	root.PersistentFlags().StringVar(&rt.configPath, "config", rt.configPath, "Path to config file")
	root.PersistentFlags().StringVarP(&rt.outputFormat, "output", "o", "", "Output format: table, json, yaml")
	root.PersistentFlags().StringVar(&rt.smtpHost, "smtp-host", "", "SMTP server override")
	root.PersistentFlags().IntVar(&rt.smtpPort, "smtp-port", 0, "SMTP port override")
	root.PersistentFlags().StringVar(&rt.sender, "sender", "", "Sender address override")
	root.PersistentFlags().StringVar(&rt.password, "password", "", "Sender password (prefer "+config.DefaultPasswordEnv+" or a password file)")
	root.PersistentFlags().BoolVar(&rt.debug, "debug", false, "Enable debug logging")

	root.SetContext(context.WithValue(context.Background(), runtimeKey{}, rt))

	root.AddCommand(
		NewSendCommand(),
		NewRecipientsCommand(),
		NewCompactCommand(),
		NewServeCommand(),
		NewConfigCommand(),
		NewCompletionCommand(),
		NewVersionCommand(),
	)

	return root
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

// EnsureConfigLoaded loads the config file, applies the flag overrides and
// validates the result.
func (rt *runtimeState) EnsureConfigLoaded() error {
	if rt.cfg != nil {
		return nil
	}
	cfg, err := config.Load(rt.configPathValue())
	if err != nil {
		return err
	}
	rt.applyOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	rt.cfg = cfg
	return nil
}

func (rt *runtimeState) applyOverrides(cfg *config.Config) {
	if rt.smtpHost != "" {
		cfg.SMTP.Host = rt.smtpHost
	}
	if rt.smtpPort != 0 {
		cfg.SMTP.Port = rt.smtpPort
	}
	if rt.sender != "" {
		cfg.SMTP.Sender = rt.sender
	}
	if rt.debug {
		cfg.Settings.Debug = true
	}
}

func (rt *runtimeState) OutputFormat() (output.Format, error) {
	if rt.outputFormat != "" {
		return output.ParseFormat(rt.outputFormat)
	}
	if rt.cfg != nil && rt.cfg.Settings.OutputFormat != "" {
		return output.ParseFormat(rt.cfg.Settings.OutputFormat)
	}
	return output.FormatTable, nil
}

func (rt *runtimeState) Writer() io.Writer {
	if rt.writer != nil {
		return rt.writer
	}
	return os.Stdout
}

// Logger returns the process logger, building it on first use.
func (rt *runtimeState) Logger() (*zap.Logger, error) {
	if rt.logger != nil {
		return rt.logger, nil
	}
	debug := rt.debug || (rt.cfg != nil && rt.cfg.Settings.Debug)
	logger, err := system.NewLogger(debug)
	if err != nil {
		return nil, err
	}
	rt.logger = logger
	return logger, nil
}

func (rt *runtimeState) configPathValue() string {
	if rt.configPath == "" {
		return config.DefaultConfigPath()
	}
	return rt.configPath
}

// Report writes the user-facing message for err. Missing inputs are listed on
// a second line.
func Report(w io.Writer, err error) {
	if err == nil {
		return
	}
	outcome := bulk.Describe(err)
	_, _ = fmt.Fprintln(w, outcome.Message)
	if outcome.Level == bulk.LevelWarning {
		_, _ = fmt.Fprintf(w, "  %v\n", err)
	}
}
