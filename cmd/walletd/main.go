package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/lisanmuaddib/wallet-go/pkg/app"
	"github.com/lisanmuaddib/wallet-go/pkg/db"
	"github.com/lisanmuaddib/wallet-go/pkg/gas"
	"github.com/lisanmuaddib/wallet-go/pkg/history"
	"github.com/lisanmuaddib/wallet-go/pkg/logging"
	"github.com/lisanmuaddib/wallet-go/pkg/wallet"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// Only log warning since .env is optional
		logrus.WithError(err).Warn("Error loading .env file")
	}

	// Initialize logger
	log := logrus.New()
	log.SetFormatter(logging.NewColoredJSONFormatter())

	// Get log level from environment
	logLevel := os.Getenv("LOG_LEVEL")
	if level, err := logrus.ParseLevel(logLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.SetLevel(logrus.InfoLevel)
		log.WithFields(logrus.Fields{
			"attempted_level": logLevel,
			"default_level":   "INFO",
		}).Warn("Invalid log level specified, defaulting to INFO")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Resolve network configuration
	networkConfig, err := resolveNetworkConfig()
	if err != nil {
		log.WithError(err).Fatal("Failed to resolve network configuration")
	}

	// Connect to the node
	node, err := wallet.Dial(ctx, log, networkConfig)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to node")
	}
	defer node.Close()

	// Initialize signing
	keys, err := wallet.NewKeyManager(os.Getenv("WALLET_PRIVATE_KEY"))
	if err != nil {
		log.WithError(err).Fatal("Failed to load wallet key")
	}

	signer, err := wallet.NewLocalSigner(ctx, log, keys, node, networkConfig.Type)
	if err != nil {
		log.WithError(err).Fatal("Failed to create signer")
	}

	// Initialize gas price store with oracle fallback
	gasStore, err := gas.NewStore(gas.StoreConfig{
		Primary:     gas.NewGasNowOracle(os.Getenv("GASNOW_URL"), log),
		Secondary:   gas.NewGasStationOracle(os.Getenv("GASSTATION_URL"), log),
		Network:     networkConfig.Type,
		MaxGasPrice: networkConfig.MaxGasPrice,
		Logger:      log,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to create gas price store")
	}

	// Initialize transaction history store
	store, err := setupHistoryStore(log)
	if err != nil {
		log.WithError(err).Fatal("Failed to set up transaction store")
	}

	// Initialize event emitter
	emitter := setupEmitter(log)
	defer emitter.Close()

	// Resolve the account the watcher tracks
	account, err := resolveWatchAccount(networkConfig.Type, keys)
	if err != nil {
		log.WithError(err).Fatal("Invalid watch account")
	}

	// Assemble and start the wallet services
	services, err := app.New(app.Config{
		Node:    node,
		Signer:  signer,
		Gas:     gasStore,
		History: store,
		Emitter: emitter,
		Account: account,
		Network: networkConfig.Type,
		Logger:  log,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to assemble wallet services")
	}
	services.Start(ctx)
	defer services.Stop()

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Info("Received shutdown signal")
		cancel()
	}()

	log.WithFields(logrus.Fields{
		"network": networkConfig.Type,
		"account": account.Hex(),
	}).Info("Wallet daemon running")

	<-ctx.Done()
	log.Info("Wallet daemon shutdown complete")
}

// resolveNetworkConfig picks the configured network's defaults and applies
// the RPC endpoint from the environment.
func resolveNetworkConfig() (wallet.NetworkConfig, error) {
	networkName := os.Getenv("NETWORK")
	if networkName == "" {
		networkName = string(wallet.ETH)
	}

	for _, config := range wallet.DefaultNetworkConfigs() {
		if config.Type == wallet.NetworkType(networkName) {
			config.RPCURL = os.Getenv("RPC_URL")
			if config.RPCURL == "" {
				return config, wallet.NewWalletError(wallet.ErrCodeInvalidNetwork, "RPC_URL is not set", nil, config.Type)
			}
			return config, nil
		}
	}
	return wallet.NetworkConfig{}, wallet.NewWalletError(wallet.ErrCodeInvalidNetwork, "unsupported network: "+networkName, nil, wallet.NetworkType(networkName))
}

// resolveWatchAccount picks the account the watcher tracks: WATCH_ACCOUNT
// from the environment when set, the signing key's address otherwise.
func resolveWatchAccount(network wallet.NetworkType, keys *wallet.KeyManager) (common.Address, error) {
	raw := os.Getenv("WATCH_ACCOUNT")
	if raw == "" {
		return keys.GetAddress(), nil
	}
	if err := wallet.ValidateAddress(network, raw); err != nil {
		return common.Address{}, err
	}
	return common.HexToAddress(raw), nil
}

// setupHistoryStore returns a database-backed store when DB_HOST is
// configured, falling back to the in-memory store otherwise.
func setupHistoryStore(log *logrus.Logger) (history.Store, error) {
	if os.Getenv("DB_HOST") == "" {
		log.Info("DB_HOST not set, using in-memory transaction store")
		return history.NewMemoryStore(), nil
	}

	gormDB, err := db.SetupDatabase(log)
	if err != nil {
		return nil, err
	}
	return history.NewGormStore(log, gormDB), nil
}

// setupEmitter returns a Kafka emitter when a broker is configured, a no-op
// emitter otherwise.
func setupEmitter(log *logrus.Logger) history.Emitter {
	broker := os.Getenv("KAFKA_BROKER")
	if broker == "" {
		log.Info("KAFKA_BROKER not set, transaction events disabled")
		return history.NopEmitter{}
	}

	topic := os.Getenv("KAFKA_TOPIC")
	if topic == "" {
		topic = "wallet.transactions"
	}
	return history.NewKafkaEmitter(log, broker, topic)
}
