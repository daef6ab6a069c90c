package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"meta-anchor/conf"
	"meta-anchor/database"
	"meta-anchor/indexer"
	"meta-anchor/ledger"
	"meta-anchor/metrics"
	"meta-anchor/service/anchor_service"
	"meta-anchor/service/health_service"
	"meta-anchor/service/token_service"
	"meta-anchor/service/user_service"
	"meta-anchor/storage"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/prometheus/client_golang/prometheus"
)

// app every component of the service, wired from conf.Cfg
type app struct {
	db         database.Database
	client     *ethclient.Client
	contract   *ledger.TokenContract
	signer     *ledger.Signer
	transactor *ledger.Transactor
	store      storage.ContentStore
	resolver   *indexer.ProvenanceResolver
	tokens     *token_service.TokenService
	users      *user_service.UserService
	anchors    *anchor_service.AnchorService
	health     *health_service.HealthService
	metrics    *metrics.Metrics
}

// newApp connects to the ledger, database and content store. Any dependency that
// cannot be reached fails startup.
func newApp(ctx context.Context) (*app, error) {
	a := &app{metrics: metrics.New(prometheus.DefaultRegisterer)}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	db, err := initDatabase()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.db = db
	log.Printf("Database initialized: type=%s", conf.Cfg.Database.Type)

	// Initialize Redis (optional, won't fail if disabled or unavailable)
	if err := database.InitRedis(ctx); err != nil {
		log.Printf("⚠️  Redis initialization failed (cache will be disabled): %v", err)
	}

	a.client, err = ledger.Dial(ctx, conf.Cfg.Ledger.RpcUrl)
	if err != nil {
		return nil, err
	}
	log.Printf("✅ Connected to ledger node %s", conf.Cfg.Ledger.RpcUrl)

	a.contract, err = ledger.LoadTokenContract(conf.Cfg.Ledger.ContractAddress, conf.Cfg.Ledger.ContractAddressFile, conf.Cfg.Ledger.AbiFile)
	if err != nil {
		return nil, err
	}
	log.Printf("Token contract at %s", a.contract.Address.Hex())

	a.signer, err = ledger.NewSigner(conf.Cfg.Ledger.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid service private key: %w", err)
	}
	log.Printf("Service account %s", a.signer.Address().Hex())

	a.transactor, err = ledger.NewTransactor(ctx, a.client, ledger.TransactorConfig{
		GasLimit:     conf.Cfg.Ledger.GasLimit,
		PollInterval: time.Duration(conf.Cfg.Ledger.PollIntervalMs) * time.Millisecond,
		MaxAttempts:  conf.Cfg.Ledger.MaxAttempts,
		Metrics:      a.metrics,
	})
	if err != nil {
		return nil, err
	}

	a.store, err = storage.NewContentStore()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize content store: %w", err)
	}
	storeID, err := a.store.ID(ctx)
	if err != nil {
		return nil, fmt.Errorf("content store not reachable: %w", err)
	}
	log.Printf("✅ Content store ready: type=%s, id=%s", conf.Cfg.Storage.Type, storeID)

	a.resolver = indexer.NewProvenanceResolver(a.client, a.contract, conf.Cfg.Indexer.ScanWindow)
	a.resolver.SetMetrics(a.metrics)
	if database.IsRedisEnabled() {
		a.resolver.SetCache(database.RedisResultCache{Prefix: "resolve:"})
	}

	rewardAmount, err := ledger.ParseAmount(conf.Cfg.Reward.RewardAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid reward amount: %w", err)
	}
	initialAmount, err := ledger.ParseGrantAmount(conf.Cfg.Reward.InitialAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid initial amount: %w", err)
	}
	if initialAmount.IsZero() {
		log.Printf("Initial grant disabled (initial_amount is 0)")
	}
	a.tokens = token_service.NewTokenService(a.db, a.transactor, a.contract, a.signer, token_service.TokenConfig{
		RewardAmount:  rewardAmount,
		InitialAmount: initialAmount,
		HistoryWindow: conf.Cfg.Indexer.HistoryWindow,
	})
	a.users = user_service.NewUserService(a.db, a.tokens)
	a.tokens.SetAuthorizer(a.users)

	a.anchors = anchor_service.NewAnchorService(a.users, a.store, a.transactor, a.contract, a.signer, a.tokens, a.resolver)
	a.anchors.SetMetrics(a.metrics)

	a.health = health_service.NewHealthService(a.client, a.store)
	a.health.SetMetrics(a.metrics)

	ok = true
	return a, nil
}

// initDatabase initialize database based on configuration
func initDatabase() (database.Database, error) {
	dbType := database.DBType(conf.Cfg.Database.Type)

	switch dbType {
	case database.DBTypeSQLite:
		return database.NewDatabase(dbType, &database.SQLiteConfig{
			DSN: conf.Cfg.Database.Dsn,
		})

	case database.DBTypePebble:
		return database.NewDatabase(dbType, &database.PebbleConfig{
			DataDir: conf.Cfg.Database.DataDir,
		})

	default:
		if dbType != database.DBTypeMySQL {
			log.Printf("Database type %q not supported, defaulting to MySQL", conf.Cfg.Database.Type)
		}
		return database.NewDatabase(database.DBTypeMySQL, &database.MySQLConfig{
			DSN:          conf.Cfg.Database.Dsn,
			MaxOpenConns: conf.Cfg.Database.MaxOpenConns,
			MaxIdleConns: conf.Cfg.Database.MaxIdleConns,
		})
	}
}

// close release connections; safe on a partially built app
func (a *app) close() {
	if a.health != nil {
		a.health.Stop()
	}
	if a.client != nil {
		a.client.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	}
	if err := database.CloseRedis(); err != nil {
		log.Printf("Failed to close Redis: %v", err)
	}
}
