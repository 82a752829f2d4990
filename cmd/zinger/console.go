package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/antoniostano/zinger/internal/app"
	"github.com/antoniostano/zinger/internal/console"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Chat with the assistant in the terminal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		controller, _, _, err := app.BuildController(ctx, cfg, logger, nil)
		if err != nil {
			logger.Fatal("startup failed", zap.Error(err))
		}
		return console.Run(ctx, controller, os.Stdin, cmd.OutOrStdout(), logger)
	},
}
