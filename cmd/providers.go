package cmd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-alerter/internal/ai"
	"github.com/spigell/job-alerter/internal/ai/gemini"
	"github.com/spigell/job-alerter/internal/ai/huggingface"
	"github.com/spigell/job-alerter/internal/cache"
	"github.com/spigell/job-alerter/internal/metrics"
	"github.com/spigell/job-alerter/internal/secrets"
)

const (
	providerHuggingFace         = huggingface.Provider
	providerHuggingFaceZeroShot = "huggingface_zeroshot"
	providerGemini              = gemini.Provider

	cacheMemory = "memory"
	cacheRedis  = "redis"
	cacheNone   = "none"

	redisClassifyPrefix = app + ":classify:"
	redisEntitiesPrefix = app + ":entities:"
)

type aiCaches struct {
	scores   cache.Cache[[]ai.Score]
	entities cache.Cache[ai.Entities]
	close    func()
}

func newCaches(ctx context.Context, cfg CacheConfig, logger *zap.Logger) (*aiCaches, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	switch backend {
	case "", cacheMemory:
		size := cfg.MaxEntries
		if size <= 0 {
			size = cache.DefaultMaxEntries
		}
		return &aiCaches{
			scores:   cache.NewMemory[[]ai.Score](size),
			entities: cache.NewMemory[ai.Entities](size),
			close:    func() {},
		}, nil
	case cacheRedis:
		client, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		cacheLogger := logger.With(zap.String("cache", cacheRedis))
		return &aiCaches{
			scores:   cache.NewRedis[[]ai.Score](client, redisClassifyPrefix, cfg.Redis.TTL, cacheLogger),
			entities: cache.NewRedis[ai.Entities](client, redisEntitiesPrefix, cfg.Redis.TTL, cacheLogger),
			close:    func() { _ = client.Close() },
		}, nil
	case cacheNone:
		return &aiCaches{
			scores:   cache.Nop[[]ai.Score]{},
			entities: cache.Nop[ai.Entities]{},
			close:    func() {},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.Backend)
	}
}

// newAI builds the classifier and entity extractor of the configured
// provider. A missing credential is an error.
func newAI(ctx context.Context, cfg AIConfig, caches *aiCaches, m *metrics.Metrics, logger *zap.Logger) (ai.Classifier, ai.Extractor, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case "", providerHuggingFace, providerHuggingFaceZeroShot:
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "hugging face api key",
			Value: cfg.HuggingFace.APIKey,
			File:  cfg.HuggingFace.APIKeyFile,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("%w (set ai.huggingface.api-key-file or HF_API_KEY)", err)
		}

		client, err := huggingface.New(huggingface.Config{
			APIKey:            apiKey,
			APIURL:            cfg.HuggingFace.APIURL,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
		}, logger, m)
		if err != nil {
			return nil, nil, err
		}

		return huggingface.NewZeroShot(client, cfg.HuggingFace.Model, caches.scores),
			huggingface.NewNER(client, cfg.HuggingFace.NERModel, caches.entities),
			nil
	case providerGemini:
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			Value: cfg.Gemini.APIKey,
			File:  cfg.Gemini.APIKeyFile,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY)", err)
		}

		genLogger := logger.With(
			zap.String("provider", providerGemini),
			zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries),
		)
		generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
		if err != nil {
			return nil, nil, err
		}

		return gemini.NewClassifier(generator, caches.scores, m, cfg.Gemini.MaxLogLength, logger),
			gemini.NewExtractor(generator, caches.entities, m, logger),
			nil
	default:
		return nil, nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}
