package simple

import (
	"time"

	"github.com/mohammed-shakir/earthpixel/internal/decision"
	"github.com/mohammed-shakir/earthpixel/internal/hotness"
)

// maxTTLFactor caps how far a very hot key can stretch BaseTTL.
const maxTTLFactor = 4

type Engine struct {
	Hot       hotness.Interface
	Threshold float64
	BaseTTL   time.Duration
}

var _ decision.Interface = (*Engine)(nil)

// returns true if any key's current score reaches the threshold
func (e *Engine) ShouldCache(keys []string) bool {
	if len(keys) == 0 || e.Hot == nil {
		return false
	}
	for _, k := range keys {
		if e.Hot.Score(k) >= e.Threshold {
			return true
		}
	}
	return false
}

// TTL grows linearly with score/threshold, between BaseTTL and
// maxTTLFactor*BaseTTL.
func (e *Engine) TTL(key string) time.Duration {
	base := e.BaseTTL
	if base <= 0 {
		base = time.Hour
	}
	if e.Hot == nil || e.Threshold <= 0 {
		return base
	}
	f := e.Hot.Score(key) / e.Threshold
	if f < 1 {
		f = 1
	}
	if f > maxTTLFactor {
		f = maxTTLFactor
	}
	return time.Duration(float64(base) * f)
}
