package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/slexs/whale-of-fortune/internal/config"
	"github.com/slexs/whale-of-fortune/internal/disburse"
	"github.com/slexs/whale-of-fortune/internal/engine"
	"github.com/slexs/whale-of-fortune/internal/logger"
	"github.com/slexs/whale-of-fortune/internal/oracle"
	"github.com/slexs/whale-of-fortune/internal/treasury"
	"github.com/slexs/whale-of-fortune/pkg/kvstore"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "fortune",
		Short: "Whale of Fortune wagering engine",
	}

	var configPath string
	var debug bool

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the wagering engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, debug)
		},
	}
	serveCmd.Flags().StringVar(&configPath, "config", "configs/config.yaml", "Path to configuration file")
	serveCmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logs")

	var dumpDir string
	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Print every stored game record",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(dumpDir)
		},
	}
	dumpCmd.Flags().StringVar(&dumpDir, "dir", "data", "Badger data directory")

	var tailURL, tailSubject string
	tailCmd := &cobra.Command{
		Use:   "tail",
		Short: "Print engine events from a NATS subject",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTail(tailURL, tailSubject)
		},
	}
	tailCmd.Flags().StringVar(&tailURL, "nats-url", nats.DefaultURL, "NATS server URL")
	tailCmd.Flags().StringVar(&tailSubject, "subject", "engine.disbursement", "Subject to subscribe to")

	rootCmd.AddCommand(serveCmd, dumpCmd, tailCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(configPath string, debug bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger.Init(&logger.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	})
	logger.Info("config loaded", "storage", cfg.Storage.Directory)

	store, err := kvstore.NewBadgerStore(cfg.Storage.Directory)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	conn, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer conn.Close()

	oracleClient := oracle.NewClient(conn, cfg.NATS.RequestSubject, cfg.NATS.CallbackSubject)
	treasuryClient := treasury.NewClient(conn, cfg.NATS.TreasurySubject)
	disburser := disburse.NewEmitter(conn, cfg.NATS.DisburseSubject)

	eng, err := engine.New(cfg, engine.NewStore(store), treasuryClient, oracleClient, disburser)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	sub, err := oracleClient.SubscribeCallbacks(func(cb oracle.Callback) {
		if _, err := eng.FulfillRandomness(cb.Sender, cb.Requester, cb.Entropy, cb.Token); err != nil {
			logger.Warn("entropy callback rejected", "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe oracle callbacks: %w", err)
	}
	defer sub.Unsubscribe()

	mux := http.NewServeMux()
	NewEngineHTTPHandler(version, eng).Register(mux)

	server := &http.Server{Addr: cfg.Engine.HTTPListen, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "err", err)
		}
	}()

	logger.Info("engine is running... Press Ctrl+C to stop", "listen", cfg.Engine.HTTPListen)
	waitForShutdown()

	server.Close()
	logger.Info("engine stopped")
	return nil
}

func runDump(dir string) error {
	store, err := kvstore.NewBadgerStore(dir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	pairs, err := store.List("game:")
	if err != nil {
		return err
	}
	for _, pair := range pairs {
		fmt.Printf("%s\t%s\n", pair.Key, pair.Value)
	}
	fmt.Printf("%d games\n", len(pairs))
	return nil
}

func runTail(natsURL, subject string) error {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer conn.Close()

	sub, err := conn.Subscribe(subject, func(msg *nats.Msg) {
		fmt.Printf("[%s] %s\n", msg.Subject, string(msg.Data))
	})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	fmt.Printf("Subscribed to subject: %s\n", subject)
	waitForShutdown()
	return nil
}

func waitForShutdown() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}
