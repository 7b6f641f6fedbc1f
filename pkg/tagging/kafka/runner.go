// Package kafka tags raw location events from one topic with their pixel key
// and center, and writes them to another topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mohammed-shakir/earthpixel/internal/core/observability"
	"github.com/mohammed-shakir/earthpixel/pkg/earthpixel"
)

// Tagger resolves a location to its pixel.
type Tagger interface {
	Get(loc earthpixel.Location) (earthpixel.Pixel, error)
}

type Runner struct {
	log      *slog.Logger
	cfg      Config
	tagger   Tagger
	prod     sarama.SyncProducer
	ms       *metricSet
	ids      *idDedupe
	assigned atomic.Bool
	assignMu sync.RWMutex
	assign   map[int32]struct{}
	wg       sync.WaitGroup
	cancel   context.CancelFunc
}

type Options struct {
	Logger   *slog.Logger
	Register prometheus.Registerer
	// Producer overrides the sync producer built from Config.Brokers.
	Producer sarama.SyncProducer
}

func New(cfg Config, t Tagger, opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &Runner{
		log:    opts.Logger.With("component", "tagging"),
		cfg:    cfg,
		tagger: t,
		prod:   opts.Producer,
		ms:     newMetricSet(opts.Register),
		ids:    newIDDedupe(cfg.DedupeSize),
		assign: map[int32]struct{}{},
	}
}

func (r *Runner) saramaConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Consumer.Group.Session.Timeout = r.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = r.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = r.cfg.RebalanceTimeout
	if r.cfg.InitialOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	return cfg
}

func (r *Runner) Start(ctx context.Context) error {
	if !r.cfg.Enabled {
		r.log.Info("tagging runner disabled")
		return nil
	}
	if r.tagger == nil {
		return errors.New("kafka runner: tagger dependency is required")
	}

	scfg := r.saramaConfig()
	if r.prod == nil {
		p, err := sarama.NewSyncProducer(r.cfg.Brokers, scfg)
		if err != nil {
			return fmt.Errorf("sync producer: %w", err)
		}
		r.prod = p
	}

	group, err := sarama.NewConsumerGroup(r.cfg.Brokers, r.cfg.GroupID, scfg)
	if err != nil {
		_ = r.prod.Close()
		return fmt.Errorf("consumer group: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	h := &groupHandler{
		setup:   r.onAssign,
		cleanup: r.onRevoke,
		process: r.handleMessage,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if err := group.Close(); err != nil {
				r.log.Error("kafka consumer group close", "err", err)
			}
		}()

		for {
			if err := group.Consume(ctx, []string{r.cfg.InputTopic}, h); err != nil {
				r.log.Error("kafka consume error", "err", err)
				select {
				case <-time.After(2 * time.Second):
				case <-ctx.Done():
					return
				}
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for err := range group.Errors() {
			r.log.Error("kafka group error", "err", err)
		}
	}()

	r.log.Info("kafka tagging runner started",
		"input", r.cfg.InputTopic, "output", r.cfg.OutputTopic,
		"group", r.cfg.GroupID, "brokers", r.cfg.Brokers)
	return nil
}

func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	if r.prod != nil {
		if err := r.prod.Close(); err != nil {
			r.log.Warn("kafka producer close", "err", err)
		}
	}
	r.log.Info("kafka tagging runner stopped")
}

func (r *Runner) onAssign(sess sarama.ConsumerGroupSession) {
	r.assignMu.Lock()
	defer r.assignMu.Unlock()
	r.assigned.Store(true)
	r.assign = map[int32]struct{}{}
	for _, parts := range sess.Claims() {
		for _, p := range parts {
			r.assign[p] = struct{}{}
		}
	}
}

func (r *Runner) onRevoke(sarama.ConsumerGroupSession) {
	r.assignMu.Lock()
	defer r.assignMu.Unlock()
	r.assigned.Store(false)
	r.assign = map[int32]struct{}{}
}

func (r *Runner) Readiness() (ready bool, partitions []int32) {
	if !r.assigned.Load() {
		return false, nil
	}
	r.assignMu.RLock()
	defer r.assignMu.RUnlock()
	for p := range r.assign {
		partitions = append(partitions, p)
	}
	return true, partitions
}

func (r *Runner) Name() string { return "tagging" }

// Ready adapts Readiness to a health check.
func (r *Runner) Ready(context.Context) error {
	if ok, _ := r.Readiness(); !ok {
		return errors.New("no partitions assigned")
	}
	return nil
}

// handleMessage returns an error only when the tagged event could not be
// produced; undecodable and invalid events are counted and skipped.
func (r *Runner) handleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	start := time.Now()
	if !msg.Timestamp.IsZero() {
		observability.SetTaggingLagSeconds(time.Since(msg.Timestamp).Seconds())
	}

	out, key, id, result := r.tag(msg.Value)
	if out == nil {
		r.observe(result, start)
		if result != "duplicate" {
			r.log.WarnContext(ctx, "skipping location event",
				"result", result, "partition", msg.Partition, "offset", msg.Offset)
		}
		return nil
	}

	_, _, err := r.prod.SendMessage(&sarama.ProducerMessage{
		Topic: r.cfg.OutputTopic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(out),
	})
	if err != nil {
		r.observe("produce_error", start)
		return fmt.Errorf("produce tagged event: %w", err)
	}
	r.ids.mark(id)
	r.observe("tagged", start)
	return nil
}

// tag returns the encoded output, the pixel key and the event id, or a nil
// output plus the reason the event is skipped.
func (r *Runner) tag(raw []byte) (out []byte, key, id, result string) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, "", "", "decode_error"
	}
	var in InputEvent
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, "", "", "decode_error"
	}
	if in.Latitude == nil || in.Longitude == nil {
		return nil, "", in.ID, "invalid_location"
	}
	if r.ids.seen(in.ID) {
		return nil, "", in.ID, "duplicate"
	}

	px, err := r.tagger.Get(earthpixel.Location{Latitude: *in.Latitude, Longitude: *in.Longitude})
	if err != nil {
		if errors.Is(err, earthpixel.ErrInvalidLocation) {
			return nil, "", in.ID, "invalid_location"
		}
		return nil, "", in.ID, "error"
	}

	add := TaggedEvent{Key: px.Key, CenterLatitude: px.Latitude, CenterLongitude: px.Longitude}
	for k, v := range map[string]any{
		"key":              add.Key,
		"center_latitude":  add.CenterLatitude,
		"center_longitude": add.CenterLongitude,
	} {
		b, _ := json.Marshal(v)
		fields[k] = b
	}
	out, err = json.Marshal(fields)
	if err != nil {
		return nil, "", in.ID, "error"
	}
	return out, px.Key, in.ID, "tagged"
}

func (r *Runner) observe(result string, start time.Time) {
	observability.IncTagging(result)
	r.ms.proc.WithLabelValues(result).Observe(time.Since(start).Seconds())
}

type groupHandler struct {
	setup   func(sarama.ConsumerGroupSession)
	cleanup func(sarama.ConsumerGroupSession)
	process func(context.Context, *sarama.ConsumerMessage) error
}

func (h *groupHandler) Setup(sess sarama.ConsumerGroupSession) error {
	if h.setup != nil {
		h.setup(sess)
	}
	return nil
}

func (h *groupHandler) Cleanup(sess sarama.ConsumerGroupSession) error {
	if h.cleanup != nil {
		h.cleanup(sess)
	}
	return nil
}

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()
	for msg := range claim.Messages() {
		if err := h.process(ctx, msg); err != nil {
			return err
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}
