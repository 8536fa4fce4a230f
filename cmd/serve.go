package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/workhive/internal/chat"
	"github.com/spigell/workhive/internal/escrow"
	"github.com/spigell/workhive/internal/httpapi"
	"github.com/spigell/workhive/internal/marketplace"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the marketplace HTTP API",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (overrides http.addr)")
	viper.BindPFlag("http.addr", serveCmd.Flags().Lookup("addr"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := newLogger(false)
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the workhive api", zap.String("version", version))

	var done cleanup
	defer done.run()

	if err := applyLocale(config.Locale); err != nil {
		logger.Fatal("setting locale", zap.Error(err))
	}

	catalog, err := marketplace.LoadCatalog(config.Matching.Catalog)
	if err != nil {
		logger.Fatal("loading catalog", zap.Error(err))
	}
	logger.Info("catalog loaded", zap.Int("freelancers", catalog.Len()))

	gen, err := newGenerator(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("building gemini client", zap.Error(err))
	}

	results := newResultCache(ctx, config.Redis, logger, &done)
	matcher := newMatchingService(config.Matching, results, newMatcher(gen, config.AI, logger), logger)

	profiles, err := newProfileStore(ctx, config.Profiles, logger, &done)
	if err != nil {
		logger.Fatal("opening profile store", zap.Error(err))
	}

	identitySvc, tokens, err := newIdentity(config, profiles, logger)
	if err != nil {
		logger.Fatal("building identity service", zap.Error(err))
	}

	gateway, err := newGateway(config.Payments, logger)
	if err != nil {
		logger.Fatal("building payment gateway", zap.Error(err))
	}

	chats := newChatManager(newAssistant(gen, logger), config.Chat, logger)
	janitor := chat.NewJanitor(chats, config.Chat.Sweep, logger)
	if err := janitor.Start(); err != nil {
		logger.Fatal("starting chat janitor", zap.Error(err))
	}
	done.add(janitor.Stop)

	flows := escrow.NewRegistry(gateway, logger)
	flowJanitor := escrow.NewJanitor(flows, config.Payments.Sweep, config.Payments.FlowTTL, logger)
	if err := flowJanitor.Start(); err != nil {
		logger.Fatal("starting escrow janitor", zap.Error(err))
	}
	done.add(flowJanitor.Stop)

	var cachePinger httpapi.Pinger
	if results != nil {
		cachePinger = results
	}

	handler, err := httpapi.NewHandler(httpapi.Deps{
		Identity: identitySvc,
		Tokens:   tokens,
		Profiles: profiles,
		Matching: matcher,
		Catalog:  catalog,
		Chat:     chats,
		Escrow:   flows,
		Cache:    cachePinger,
	}, logger)
	if err != nil {
		logger.Fatal("building http handler", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              config.HTTP.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", zap.Error(err))
		}
		return
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Duration("timeout", config.HTTP.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown incomplete", zap.Error(err))
	}
}
