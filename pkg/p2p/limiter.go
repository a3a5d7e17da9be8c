package p2p

import (
	"sync"
	"time"

	"github.com/bluele/gcache"
	"golang.org/x/time/rate"
)

const (
	limiterCacheSize = 1000
	limiterExpire    = 24 * time.Hour
)

// senderLimiter keeps one token bucket per sending node.
type senderLimiter struct {
	cache gcache.Cache
	mu    sync.Mutex
	r     rate.Limit
	b     int
}

func newSenderLimiter(r rate.Limit, b int) *senderLimiter {
	return &senderLimiter{
		cache: gcache.New(limiterCacheSize).LRU().Build(),
		r:     r,
		b:     b,
	}
}

func (s *senderLimiter) getLimiter(sender string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	limiter, err := s.cache.Get(sender)
	if err == nil {
		return limiter.(*rate.Limiter)
	}

	l := rate.NewLimiter(s.r, s.b)
	s.cache.SetWithExpire(sender, l, limiterExpire)
	return l
}

func (s *senderLimiter) allow(sender string) bool {
	return s.getLimiter(sender).Allow()
}
