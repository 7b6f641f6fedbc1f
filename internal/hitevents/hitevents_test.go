package hitevents

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/earthpixel/internal/core/observability"
)

func TestPublish_WritesKeyedJSON(t *testing.T) {
	cfg := mocks.NewTestConfig()
	prod := mocks.NewAsyncProducer(t, cfg)

	var got Event
	prod.ExpectInputWithMessageCheckerFunctionAndSucceed(func(m *sarama.ProducerMessage) error {
		k, _ := m.Key.Encode()
		if string(k) != "168-b4-196" {
			return errors.New("message not keyed by pixel key")
		}
		if m.Topic != "pixel-hits" {
			return errors.New("wrong topic " + m.Topic)
		}
		v, _ := m.Value.Encode()
		return json.Unmarshal(v, &got)
	})

	p := newWithProducer(prod, "pixel-hits", 4, nil)
	p.Publish(Event{Op: "get", Key: "168-b4-196", Lat: 0.1, Lon: 23.1})
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if got.Key != "168-b4-196" || got.Op != "get" || got.TS.IsZero() {
		t.Fatalf("unexpected event: %+v", got)
	}
}

type stuckProducer struct {
	sarama.AsyncProducer
	in   chan *sarama.ProducerMessage
	errs chan *sarama.ProducerError
}

func (s *stuckProducer) Input() chan<- *sarama.ProducerMessage { return s.in }
func (s *stuckProducer) Errors() <-chan *sarama.ProducerError  { return s.errs }
func (s *stuckProducer) Close() error {
	close(s.errs)
	return nil
}

func TestPublish_DropsWhenQueueFull(t *testing.T) {
	sp := &stuckProducer{
		in:   make(chan *sarama.ProducerMessage), // never read: publisher goroutine blocks
		errs: make(chan *sarama.ProducerError),
	}
	p := newWithProducer(sp, "t", 1, nil)

	reg := prometheus.NewRegistry()
	observability.Init(reg, true)
	before := droppedCount(t, reg)
	done := make(chan struct{})
	go func() {
		for range 10 {
			p.Publish(Event{Key: "2-0-1"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full queue")
	}
	if after := droppedCount(t, reg); after-before < 1 {
		t.Fatalf("expected drops to be counted, before=%v after=%v", before, after)
	}

	// unblock the worker so it can exit
	go func() {
		for range sp.in {
		}
	}()
	_ = p.Close()
	close(sp.in)
}

func droppedCount(t *testing.T, reg *prometheus.Registry) float64 {
	t.Helper()
	rr := httptest.NewRecorder()
	promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	for ln := range strings.SplitSeq(rr.Body.String(), "\n") {
		if v, ok := strings.CutPrefix(ln, `hit_events_total{result="dropped"} `); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				t.Fatalf("parse %q: %v", ln, err)
			}
			return f
		}
	}
	return 0
}
