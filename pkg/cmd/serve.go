package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/telekom/bulkmail/pkg/bulk"
	"github.com/telekom/bulkmail/pkg/web"
)

func NewServeCommand() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web form for bulk sends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			log, err := rt.Logger()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			cfg := *rt.cfg
			if listen != "" {
				cfg.Web.ListenAddress = listen
			}

			runner := bulk.NewRunnerWithFactory(log.Sugar(), rt.senderFactory)
			server, err := web.NewServer(log, cfg, runner)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default from config, 127.0.0.1:8501)")

	return cmd
}
