package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/opportunity-matcher/internal/api"
	"github.com/spigell/opportunity-matcher/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the matching HTTP API",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l, config := setup()
	defer l.Sync()

	l.Info("starting the opportunity-matcher api", zap.String("version", version), zap.String("addr", config.Server.Addr))

	repo, err := openStore(ctx, config, l)
	if err != nil {
		l.Fatal("opening the store", zap.Error(err))
	}
	defer repo.Close()

	scorer, err := newScorer(config)
	if err != nil {
		l.Fatal("building the scorer", zap.Error(err))
	}

	service := newAutoApply(ctx, config, repo, scorer, false, l)

	server := api.NewServer(config.Server, repo, service, scorer, logger.Component(l, "api"))
	if err := server.ListenAndServe(ctx); err != nil {
		l.Fatal("serving", zap.Error(err))
	}

	l.Info("stopped")
}
