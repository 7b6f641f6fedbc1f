package simple

import (
	"sync"
	"testing"
	"time"

	"github.com/mohammed-shakir/earthpixel/internal/decision"
	"github.com/mohammed-shakir/earthpixel/internal/hotness"
)

type fakeHot struct {
	mu sync.Mutex
	m  map[string]float64
}

func newFakeHot() *fakeHot { return &fakeHot{m: make(map[string]float64)} }

func (f *fakeHot) Inc(key string) {
	f.mu.Lock()
	f.m[key]++
	f.mu.Unlock()
}

func (f *fakeHot) Score(key string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.m[key]
}

func (f *fakeHot) Reset(keys ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(keys) == 0 {
		f.m = make(map[string]float64)
		return
	}
	for _, k := range keys {
		delete(f.m, k)
	}
}

var (
	_ hotness.Interface  = (*fakeHot)(nil)
	_ decision.Interface = (*Engine)(nil)
)

func TestShouldCache_AnyKeyCrossesThreshold(t *testing.T) {
	h := newFakeHot()
	e := &Engine{Hot: h, Threshold: 2.0}

	keys := []string{"168-b4-168", "168-b4-196", "168-b3-166"}

	h.m[keys[0]] = 1.5
	h.m[keys[1]] = 0.0
	h.m[keys[2]] = 1.9
	if e.ShouldCache(keys) {
		t.Fatalf("expected ShouldCache=false when all scores < threshold")
	}

	h.m[keys[2]] = 2.0
	if !e.ShouldCache(keys) {
		t.Fatalf("expected ShouldCache=true when any score >= threshold")
	}
}

func TestShouldCache_EmptyOrNoTracker(t *testing.T) {
	if (&Engine{Hot: newFakeHot()}).ShouldCache(nil) {
		t.Fatal("no keys must not cache")
	}
	if (&Engine{}).ShouldCache([]string{"2-0-1"}) {
		t.Fatal("nil tracker must not cache")
	}
}

func TestTTL_ScalesWithScoreAndIsCapped(t *testing.T) {
	h := newFakeHot()
	e := &Engine{Hot: h, Threshold: 5, BaseTTL: time.Minute}

	if got := e.TTL("cold"); got != time.Minute {
		t.Fatalf("cold TTL=%v want 1m", got)
	}
	h.m["warm"] = 10
	if got := e.TTL("warm"); got != 2*time.Minute {
		t.Fatalf("warm TTL=%v want 2m", got)
	}
	h.m["blazing"] = 1000
	if got := e.TTL("blazing"); got != maxTTLFactor*time.Minute {
		t.Fatalf("capped TTL=%v want %v", got, maxTTLFactor*time.Minute)
	}
	if got := (&Engine{}).TTL("x"); got != time.Hour {
		t.Fatalf("default TTL=%v want 1h", got)
	}
}
