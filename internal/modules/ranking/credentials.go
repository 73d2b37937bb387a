package ranking

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/mx-space/memory-explorer/internal/pkg/kv"
	"go.uber.org/zap"
)

// Credentials resolves the provider API key: the configured key first,
// then the secrets file, then the key persisted in the store. A key read
// from the secrets file is persisted so later lookups survive the file
// going away.
type Credentials struct {
	configured  string
	secretsFile string
	store       kv.Store
	logger      *zap.Logger

	mu     sync.Mutex
	cached string
}

func NewCredentials(configured, secretsFile string, store kv.Store, logger *zap.Logger) *Credentials {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Credentials{
		configured:  strings.TrimSpace(configured),
		secretsFile: strings.TrimSpace(secretsFile),
		store:       store,
		logger:      logger,
	}
}

// Resolve returns the API key or "" when none is available.
func (c *Credentials) Resolve(ctx context.Context) string {
	if c.configured != "" {
		return c.configured
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cached != "" {
		return c.cached
	}

	if key := c.readSecretsFile(); key != "" {
		c.cached = key
		if c.store != nil {
			if err := c.store.Set(ctx, kv.KeyAPIKey, key); err != nil {
				c.logger.Warn("persist api key failed", zap.Error(err))
			}
		}
		return key
	}

	if c.store == nil {
		return ""
	}
	key, ok, err := c.store.Get(ctx, kv.KeyAPIKey)
	if err != nil {
		c.logger.Warn("read persisted api key failed", zap.Error(err))
		return ""
	}
	if ok {
		c.cached = strings.TrimSpace(key)
	}
	return c.cached
}

// Remember persists a key supplied at runtime.
func (c *Credentials) Remember(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("api key is empty")
	}
	c.mu.Lock()
	c.cached = key
	c.mu.Unlock()
	if c.store == nil {
		return nil
	}
	return c.store.Set(ctx, kv.KeyAPIKey, key)
}

func (c *Credentials) readSecretsFile() string {
	if c.secretsFile == "" {
		return ""
	}
	data, err := os.ReadFile(c.secretsFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("read secrets file failed", zap.String("path", c.secretsFile), zap.Error(err))
		}
		return ""
	}
	var secrets struct {
		OpenAIAPIKey string `json:"openai_api_key"`
		OpenAIKey    string `json:"openaiKey"`
	}
	if err := json.Unmarshal(data, &secrets); err != nil {
		c.logger.Warn("secrets file is not valid JSON", zap.String("path", c.secretsFile), zap.Error(err))
		return ""
	}
	if key := strings.TrimSpace(secrets.OpenAIAPIKey); key != "" {
		return key
	}
	return strings.TrimSpace(secrets.OpenAIKey)
}
