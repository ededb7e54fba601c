package embedclient

import (
	"fmt"
	"time"

	"github.com/opennote/semindex/internal/config"
	"github.com/opennote/semindex/internal/pkg/apperr"
)

// FromConfig constructs the configured provider variant and wraps it in the
// memoization decorator, mirroring the teacher's internal/ai.NewProvider
// dispatch-by-kind factory.
func FromConfig(cfg config.ProviderConfig, model string, cacheSize int, cacheTTL time.Duration) (Client, error) {
	var client Client
	var err error
	switch cfg.Kind {
	case "hosted":
		client, err = NewHosted(HostedConfig{APIKey: cfg.APIKey, Model: model})
	case "local":
		client, err = NewLocal(LocalConfig{BaseURL: cfg.BaseURL, Model: model})
	case "compatible":
		client, err = NewCompatible(CompatibleConfig{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: model})
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider kind %q", apperr.ErrConfig, cfg.Kind)
	}
	if err != nil {
		return nil, err
	}
	if cacheSize <= 0 {
		return client, nil
	}
	return WithMemoization(client, cacheSize, cacheTTL), nil
}
