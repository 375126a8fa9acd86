package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"promptledger/config"
	"promptledger/core"
	"promptledger/metadata"
	"promptledger/observability/logging"
	"promptledger/rpc"
	"promptledger/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger := logging.Setup("promptd", cfg.NetworkName)

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	store, err := metadata.Open(cfg.MetadataPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to open metadata store: %v", err))
	}
	defer store.Close()

	admin, platform, treasury, err := cfg.Addresses()
	if err != nil {
		panic(fmt.Sprintf("Failed to decode operator addresses: %v", err))
	}

	node, err := core.NewNode(db, core.NodeConfig{
		Admin:         admin,
		Platform:      platform,
		Treasury:      treasury,
		PausedModules: cfg.PausedModules,
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to create node: %v", err))
	}
	node.SetLogger(logger)

	server := rpc.NewServer(node, store, rpc.ServerConfig{
		JWTSecret:          cfg.JWTSecret,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	server.SetLogger(logger)

	logger.Info("ledger node initialised",
		slog.String("admin", cfg.AdminAddress),
		slog.String("rpc", cfg.RPCAddress))

	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server terminated", slog.Any("error", err))
		os.Exit(1)
	}
}
