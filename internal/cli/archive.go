package cli

import (
	"context"
	"fmt"

	"github.com/aretw0/conductor/internal/config"
	"github.com/aretw0/conductor/pkg/adapters/memory"
	"github.com/aretw0/conductor/pkg/adapters/redis"
	"github.com/aretw0/conductor/pkg/persistence/middleware"
	"github.com/aretw0/conductor/pkg/ports"
)

// Archive is the configured transcript store.
// Store is nil when archiving is disabled.
type Archive struct {
	Store  ports.TranscriptStore
	Locker ports.DistributedLocker
	close  func() error
}

// Close releases the backend connection, if any.
func (a *Archive) Close() error {
	if a.close == nil {
		return nil
	}
	return a.close()
}

// OpenArchive builds the store selected by cfg, wrapped in the PII and
// encryption middleware when enabled. PII is masked before encryption.
func OpenArchive(ctx context.Context, cfg config.StoreConfig) (*Archive, error) {
	a := &Archive{}
	var base ports.TranscriptStore

	switch cfg.Backend {
	case config.StoreNone:
		return a, nil
	case config.StoreRedis:
		rs := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithPrefix(cfg.Redis.Prefix+"run:"),
			redis.WithTTL(cfg.TTL),
		)
		if err := rs.Client().Ping(ctx).Err(); err != nil {
			_ = rs.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		base = rs
		a.Locker = redis.NewLocker(rs.Client(), cfg.Redis.Prefix)
		a.close = rs.Close
	default:
		base = memory.NewStore()
	}

	var mws []middleware.Middleware
	if cfg.RedactPII {
		mws = append(mws, middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns))
	}
	if cfg.EncryptionKey != "" {
		enc, err := encryptionConfig(cfg)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(enc))
	}
	a.Store = middleware.Chain(base, mws...)
	return a, nil
}

func encryptionConfig(cfg config.StoreConfig) (middleware.EncryptionConfig, error) {
	active, err := middleware.ParseKey(cfg.EncryptionKey)
	if err != nil {
		return middleware.EncryptionConfig{}, err
	}
	out := middleware.EncryptionConfig{ActiveKey: active}
	for _, k := range cfg.FallbackKeys {
		key, err := middleware.ParseKey(k)
		if err != nil {
			return middleware.EncryptionConfig{}, err
		}
		out.FallbackKeys = append(out.FallbackKeys, key)
	}
	return out, nil
}
