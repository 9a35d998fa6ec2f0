package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/soumik404/basecast/internal/blob/s3"
	"github.com/soumik404/basecast/internal/cache/redis"
	"github.com/soumik404/basecast/internal/chain/ethereum"
	"github.com/soumik404/basecast/internal/config"
	"github.com/soumik404/basecast/internal/crypto"
	"github.com/soumik404/basecast/internal/domain"
	"github.com/soumik404/basecast/internal/notify"
	"github.com/soumik404/basecast/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Chain
	Chain *ethereum.Client

	// Stores
	PredictionStore  domain.PredictionStore
	BetStore         domain.BetStore
	ProposalStore    domain.ProposalStore
	VerifierStore    domain.VerifierStore
	LeaderboardStore domain.LeaderboardStore
	AuditStore       domain.AuditStore

	// Caches
	PredictionCache  domain.PredictionCache
	LeaderboardCache domain.LeaderboardCache
	RateLimiter      domain.RateLimiter
	LockManager      domain.LockManager
	SignalBus        domain.SignalBus

	// Blob storage
	Archiver domain.SnapshotArchiver

	// Notifications
	Notifier *notify.Notifier

	// Health pings
	PingPostgres func(ctx context.Context) error
	PingRedis    func(ctx context.Context) error
	PingS3       func(ctx context.Context) error
}

// needsWallet reports whether the mode submits transactions. Reconciliation
// only reads the chain; the signing key is optional there.
func needsWallet(mode string) bool {
	return mode == "serve"
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Wallet key ---
	keyHex, err := crypto.LoadKey(crypto.KeyConfig{
		RawPrivateKey:    cfg.Wallet.PrivateKey,
		EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      cfg.Wallet.KeyPassword,
	})
	if err != nil && needsWallet(cfg.Mode) {
		return nil, nil, fmt.Errorf("wire: wallet key: %w", err)
	}

	// --- Chain client ---
	chainClient, err := ethereum.New(ctx, ethereum.Config{
		RPCURL:          cfg.Chain.RPCURL,
		ChainID:         cfg.Chain.ChainID,
		ContractAddress: cfg.Chain.ContractAddress,
		TokenAddress:    cfg.Chain.TokenAddress,
		PrivateKeyHex:   keyHex,
		ConfirmTimeout:  cfg.Chain.ConfirmTimeout.Duration,
		GasLimit:        cfg.Chain.GasLimit,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: chain: %w", err)
	}
	closers = append(closers, chainClient.Close)
	deps.Chain = chainClient

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.PredictionStore = postgres.NewPredictionStore(pool)
	deps.BetStore = postgres.NewBetStore(pool)
	deps.ProposalStore = postgres.NewProposalStore(pool)
	deps.VerifierStore = postgres.NewVerifierStore(pool)
	deps.LeaderboardStore = postgres.NewLeaderboardStore(pool)
	deps.AuditStore = postgres.NewAuditStore(pool)
	deps.PingPostgres = pgClient.Ping

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.PredictionCache = redis.NewPredictionCache(redisClient)
	deps.LeaderboardCache = redis.NewLeaderboardCache(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)
	deps.PingRedis = redisClient.Ping

	// --- S3 snapshot archive (optional) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = s3blob.NewSnapshotArchiver(s3blob.NewWriter(s3Client), deps.AuditStore)
		deps.PingS3 = s3Client.Health
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
