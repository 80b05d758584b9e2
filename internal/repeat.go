package internal

import (
	"context"
	"math/rand"
	"time"

	log "github.com/sirupsen/logrus"
)

// Repeat runs tick at a fixed interval until the context is done.
// The first tick fires immediately.
func Repeat(operation string, tick func(), interval time.Duration, ctx context.Context) {
	tick()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tick()
		case <-ctx.Done():
			log.Debugf("Stopping repeating operation %s...", operation)
			return
		}
	}
}

// RepeatRandom runs tick with a wait sampled uniformly from
// [min, max] before every iteration, until the context is done.
// The sampling uses the caller's generator so each looper can own
// independent random state.
func RepeatRandom(operation string, tick func(), min, max time.Duration, r *rand.Rand, ctx context.Context) {
	for {
		wait := min
		if max > min {
			wait += time.Duration(r.Int63n(int64(max - min + 1)))
		}

		select {
		case <-time.After(wait):
			tick()
		case <-ctx.Done():
			log.Debugf("Stopping repeating operation %s...", operation)
			return
		}
	}
}
