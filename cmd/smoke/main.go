// Command smoke checks that the local Redis, Kafka and earthpixel-server are
// reachable before a load run.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/redis/go-redis/v9"

	"github.com/mohammed-shakir/earthpixel/pkg/earthpixel"
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func testRedis(ctx context.Context, addr string) error {
	fmt.Println("Redis test")
	client := redis.NewClient(&redis.Options{Addr: addr, DialTimeout: 2 * time.Second})
	defer func() { _ = client.Close() }()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	if err := client.Set(ctx, "earthpixel:smoke", "ok", 30*time.Second).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	val, err := client.Get(ctx, "earthpixel:smoke").Result()
	if err != nil {
		return fmt.Errorf("redis get: %w", err)
	}
	fmt.Println("redis GET earthpixel:smoke:", val)
	return nil
}

func testServer(ctx context.Context, baseURL string) error {
	fmt.Println("earthpixel-server test")
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/v1/pixel?lat=59.3293&lon=18.0686")
	if err != nil {
		return fmt.Errorf("bad server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("http get pixel: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pixel status %d: %s", resp.StatusCode, string(body))
	}
	fmt.Println("pixel:", strings.TrimSpace(string(body)))
	return nil
}

func testKafka(brokers []string, topic string) error {
	fmt.Println("Kafka test")

	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Version = sarama.V3_6_0_0
	prod, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return fmt.Errorf("producer create: %w", err)
	}
	defer func() { _ = prod.Close() }()

	payload, _ := json.Marshal(map[string]any{
		"id":        "smoke-" + time.Now().UTC().Format("150405.000"),
		"latitude":  59.3293,
		"longitude": 18.0686,
		"ts":        time.Now().UTC().Format(time.RFC3339Nano),
	})
	if _, _, err = prod.SendMessage(&sarama.ProducerMessage{Topic: topic, Value: sarama.ByteEncoder(payload)}); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	fmt.Println("produced one message")

	consumer, err := sarama.NewConsumer(brokers, cfg)
	if err != nil {
		return fmt.Errorf("consumer create: %w", err)
	}
	defer func() { _ = consumer.Close() }()

	pc, err := consumer.ConsumePartition(topic, 0, sarama.OffsetOldest)
	if err != nil {
		return fmt.Errorf("consume partition: %w", err)
	}
	defer func() { _ = pc.Close() }()

	select {
	case m := <-pc.Messages():
		fmt.Println("consumed:", string(m.Value))
	case <-time.After(5 * time.Second):
		fmt.Println("no message consumed (timeout)")
	}
	return nil
}

func demoGrid(width string, unit string) error {
	fmt.Println("Grid demo")
	u, err := earthpixel.ParseUnit(unit)
	if err != nil {
		return err
	}
	g, err := earthpixel.NewFromString(width, u)
	if err != nil {
		return err
	}
	px, err := g.Get(earthpixel.Location{Latitude: 59.3293, Longitude: 18.0686})
	if err != nil {
		return err
	}
	fmt.Printf("grid %s: Stockholm -> %s center=(%.6f, %.6f)\n", g, px.Key, px.Latitude, px.Longitude)
	return nil
}

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	steps := []struct {
		name string
		fn   func() error
	}{
		{"Grid", func() error { return demoGrid(getenv("PIXEL_WIDTH", "1000"), getenv("PIXEL_UNIT", "meters")) }},
		{"Redis", func() error { return testRedis(ctx, getenv("REDIS_ADDR", "localhost:6379")) }},
		{"Kafka", func() error {
			return testKafka(strings.Split(getenv("KAFKA_BROKERS", "localhost:9092"), ","), getenv("TAGGING_INPUT_TOPIC", "locations"))
		}},
		{"Server", func() error { return testServer(ctx, getenv("EARTHPIXEL_URL", "http://localhost:8090")) }},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			fmt.Println(s.name, "error:", err)
			os.Exit(1)
		}
	}
	fmt.Println("All tests completed")
}
