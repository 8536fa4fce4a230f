package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/workhive/internal/ai"
	"github.com/spigell/workhive/internal/ai/gemini"
	"github.com/spigell/workhive/internal/cache"
	"github.com/spigell/workhive/internal/chat"
	"github.com/spigell/workhive/internal/escrow"
	"github.com/spigell/workhive/internal/i18n"
	"github.com/spigell/workhive/internal/identity"
	"github.com/spigell/workhive/internal/logger"
	"github.com/spigell/workhive/internal/matching"
	"github.com/spigell/workhive/internal/profile"
	"github.com/spigell/workhive/internal/secrets"
)

const (
	backendMemory   = "memory"
	backendPostgres = "postgres"
	backendSupabase = "supabase"

	providerLocal = "local"
)

// cleanup collects shutdown steps and runs them in reverse order.
type cleanup []func()

func (c *cleanup) add(fn func()) { *c = append(*c, fn) }

func (c cleanup) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

// newGenerator returns nil when AI is disabled or no credential is set; the
// scorer and the chat then run in their mock and demo modes.
func newGenerator(ctx context.Context, cfg *AIConfig, log *zap.Logger) (*gemini.Generator, error) {
	if cfg == nil || !cfg.Enabled || cfg.Gemini == nil {
		log.Info("ai disabled, using mock scores and demo chat")
		return nil, nil
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, ok, err := secrets.Optional(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Warn("gemini api key missing, using mock scores and demo chat",
			zap.String("hint", "set ai.gemini.api-key-file or WORKHIVE_AI_GEMINI_API_KEY"),
		)
		return nil, nil
	}

	genLogger := logger.WithCommonFields(log, "gemini", cfg.Gemini.Model).
		With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries))

	return gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
}

func newMatcher(gen *gemini.Generator, cfg *AIConfig, log *zap.Logger) ai.Matcher {
	if gen == nil {
		return nil
	}
	return gemini.NewMatcher(gen, cfg.Gemini.MaxLogLength, logger.WithCommonFields(log, "gemini", gen.Model()))
}

func newAssistant(gen *gemini.Generator, log *zap.Logger) ai.Assistant {
	if gen == nil {
		return nil
	}
	return gemini.NewAssistant(gen, logger.WithCommonFields(log, "gemini", gen.Model()))
}

// newResultCache connects to Redis when it is enabled. A nil cache means
// match results are not cached.
func newResultCache(ctx context.Context, cfg *RedisConfig, log *zap.Logger, done *cleanup) *cache.Redis {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	r := cache.NewRedis(ctx, cache.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		Prefix:   cfg.Prefix,
	}, log)
	done.add(func() { _ = r.Close() })
	return r
}

func newMatchingService(cfg *MatchingConfig, results *cache.Redis, matcher ai.Matcher, log *zap.Logger) *matching.Service {
	opts := matching.Options{
		Concurrency: cfg.Concurrency,
		CacheTTL:    cfg.CacheTTL,
	}

	var resultCache matching.ResultCache
	if results != nil {
		resultCache = results
	}

	return matching.NewService(matching.NewScorer(matcher, log), resultCache, opts, log)
}

// newProfileStore opens the configured backend. The postgres store also gets
// a listener goroutine that lives as long as ctx.
func newProfileStore(ctx context.Context, cfg *ProfilesConfig, log *zap.Logger, done *cleanup) (profile.Store, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	log = log.With(zap.String("profiles_backend", backend))

	switch backend {
	case "", backendMemory:
		store := profile.NewMemoryStore(log)
		done.add(store.Close)
		return store, nil

	case backendPostgres:
		if cfg.Postgres == nil || strings.TrimSpace(cfg.Postgres.DSN) == "" {
			return nil, errors.New("profiles.postgres.dsn is required for the postgres backend")
		}
		store, err := profile.ConnectPostgres(ctx, cfg.Postgres.DSN, log)
		if err != nil {
			return nil, err
		}
		listenCtx, cancel := context.WithCancel(ctx)
		go func() {
			if err := store.Listen(listenCtx); err != nil {
				log.Error("profile listener stopped", zap.Error(err))
			}
		}()
		done.add(func() {
			cancel()
			store.Close()
		})
		return store, nil

	case backendSupabase:
		key, err := supabaseKey(cfg.Supabase)
		if err != nil {
			return nil, err
		}
		store, err := profile.NewSupabaseStore(cfg.Supabase.URL, key, cfg.Supabase.PollInterval, log)
		if err != nil {
			return nil, err
		}
		done.add(store.Close)
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported profiles backend: %s", cfg.Backend)
	}
}

func supabaseKey(cfg *SupabaseConfig) (string, error) {
	if cfg == nil || strings.TrimSpace(cfg.URL) == "" {
		return "", errors.New("profiles.supabase.url is required")
	}
	return secrets.Load(secrets.Source{Name: "supabase key", Value: cfg.Key, File: cfg.KeyFile})
}

func newTokens(cfg *JWTConfig, log *zap.Logger) (*identity.Tokens, error) {
	secret, ok, err := secrets.Optional(secrets.Source{
		Name:  "jwt secret",
		Value: cfg.Secret,
		File:  cfg.SecretFile,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		// Tokens issued with an ephemeral secret stop validating after a restart.
		log.Warn("jwt secret missing, generated an ephemeral one",
			zap.String("hint", "set identity.jwt.secret-file or WORKHIVE_IDENTITY_JWT_SECRET"),
		)
		secret = uuid.NewString() + uuid.NewString()
	}
	return identity.NewTokens(secret, cfg.TTL)
}

func newIdentity(config *Config, profiles profile.Store, log *zap.Logger) (*identity.Service, *identity.Tokens, error) {
	tokens, err := newTokens(config.Identity.JWT, log)
	if err != nil {
		return nil, nil, err
	}

	var provider identity.Provider
	switch p := strings.ToLower(strings.TrimSpace(config.Identity.Provider)); p {
	case "", providerLocal:
		provider = identity.NewLocalProvider()
	case backendSupabase:
		key, err := supabaseKey(config.Profiles.Supabase)
		if err != nil {
			return nil, nil, fmt.Errorf("supabase identity: %w", err)
		}
		sp, err := identity.NewSupabaseProvider(config.Profiles.Supabase.URL, key)
		if err != nil {
			return nil, nil, err
		}
		provider = sp
	default:
		return nil, nil, fmt.Errorf("unsupported identity provider: %s", config.Identity.Provider)
	}

	return identity.NewService(provider, profiles, tokens, config.Identity.Timeout, log), tokens, nil
}

// newGateway uses Razorpay when both keys are configured and the demo
// gateway otherwise.
func newGateway(cfg *PaymentsConfig, log *zap.Logger) (escrow.Gateway, error) {
	rp := cfg.Razorpay
	if rp == nil {
		rp = &RazorpayConfig{}
	}

	secret, ok, err := secrets.Optional(secrets.Source{
		Name:  "razorpay key secret",
		Value: rp.KeySecret,
		File:  rp.KeySecretFile,
	})
	if err != nil {
		return nil, err
	}
	if !ok || strings.TrimSpace(rp.KeyID) == "" {
		log.Warn("razorpay keys missing, using demo payment gateway")
		return escrow.Demo{KeyID: rp.KeyID, Merchant: cfg.MerchantName}, nil
	}

	return escrow.NewRazorpay(escrow.RazorpayConfig{
		KeyID:     rp.KeyID,
		KeySecret: secret,
		APIURL:    rp.APIURL,
		Merchant:  cfg.MerchantName,
	}, log)
}

func newChatManager(assistant ai.Assistant, cfg *ChatConfig, log *zap.Logger) *chat.Manager {
	return chat.NewManager(assistant, cfg.IdleTTL, log)
}

func applyLocale(locale string) error {
	l, err := i18n.ParseLocale(locale)
	if err != nil {
		return err
	}
	return i18n.Set(l)
}
