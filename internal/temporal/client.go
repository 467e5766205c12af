package temporal

import (
	"github.com/rentwise/rentwise/internal/config"
	"github.com/rentwise/rentwise/internal/logger"
	"go.temporal.io/sdk/client"
)

// TemporalClient wraps the Temporal SDK client for application use.
type TemporalClient struct {
	Client client.Client
}

// NewTemporalClient creates a new Temporal client using the given configuration.
func NewTemporalClient(cfg *config.Configuration, log *logger.Logger) (*TemporalClient, error) {
	log.Infow("creating temporal client",
		"address", cfg.Temporal.Address,
		"namespace", cfg.Temporal.Namespace,
	)

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.Address,
		Namespace: cfg.Temporal.Namespace,
		Logger:    log.GetTemporalLogger(),
	})
	if err != nil {
		log.Errorw("failed to create temporal client", "error", err)
		return nil, err
	}

	return &TemporalClient{Client: c}, nil
}

// Close closes the temporal client
func (c *TemporalClient) Close() {
	if c != nil && c.Client != nil {
		c.Client.Close()
	}
}
