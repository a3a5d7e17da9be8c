package ntp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/beevik/ntp"
	"github.com/korthochain/korthoattest/pkg/logger"
	"go.uber.org/zap"
)

const (
	defaultInterval = 30 * time.Minute
	queryTimeout    = 3 * time.Second
)

// DefaultServers is the pool queried when no servers are configured.
var DefaultServers = []string{
	"pool.ntp.org",
	"time.cloudflare.com",
	"time.google.com",
	"time.apple.com",
	"time.windows.com",
}

type queryFunc func(host string) (time.Duration, error)

// Clock is the local clock corrected by the offset last reported by an NTP server.
// It never changes the system time.
type Clock struct {
	servers  []string
	interval time.Duration
	query    queryFunc

	mu     sync.RWMutex
	offset time.Duration
}

func NewClock(servers []string, interval time.Duration) *Clock {
	if len(servers) == 0 {
		servers = DefaultServers
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Clock{servers: servers, interval: interval, query: queryOffset}
}

func queryOffset(host string) (time.Duration, error) {
	resp, err := ntp.QueryWithOptions(host, ntp.QueryOptions{Timeout: queryTimeout, TTL: 30})
	if err != nil {
		return 0, err
	}
	if err := resp.Validate(); err != nil {
		return 0, err
	}
	return resp.ClockOffset, nil
}

// Now returns the corrected time.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Now().Add(c.offset)
}

func (c *Clock) Offset() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offset
}

// Sync asks the servers in order and keeps the first offset obtained.
func (c *Clock) Sync(ctx context.Context) error {
	var lastErr error
	for _, host := range c.servers {
		if err := ctx.Err(); err != nil {
			return err
		}

		offset, err := c.query(host)
		if err != nil {
			logger.Debug("ntp query failed", zap.String("server", host), zap.Error(err))
			lastErr = err
			continue
		}

		c.mu.Lock()
		c.offset = offset
		c.mu.Unlock()
		logger.Info("clock offset updated", zap.String("server", host), zap.Duration("offset", offset))
		return nil
	}
	return fmt.Errorf("no ntp server answered: %w", lastErr)
}

// Run syncs immediately and then on every interval until ctx is done.
func (c *Clock) Run(ctx context.Context) {
	if err := c.Sync(ctx); err != nil {
		logger.Warn("ntp sync", zap.Error(err))
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Sync(ctx); err != nil {
				logger.Warn("ntp sync", zap.Error(err))
			}
		}
	}
}
