package cache

import (
	"context"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

// Sweeper runs periodic expiry sweeps over the durable tier.
type Sweeper struct {
	cache    *ResponseCache
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewSweeper builds a sweeper for the cache. Call Start to begin sweeping.
func NewSweeper(cache *ResponseCache, interval time.Duration) *Sweeper {
	return &Sweeper{
		cache:    cache,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop in a background goroutine.
func (s *Sweeper) Start() {
	fiberlog.Infof("CacheSweeper: starting (interval: %v)", s.interval)

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runSweep()
			case <-s.stop:
				fiberlog.Info("CacheSweeper: stopped")
				return
			}
		}
	}()
}

// Stop signals the loop to exit and waits for it to finish.
func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Sweeper) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.cache.Sweep(ctx); err != nil {
		fiberlog.Errorf("CacheSweeper: sweep failed: %v", err)
	}
}
