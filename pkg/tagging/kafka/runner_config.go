package kafka

import "time"

type Config struct {
	Enabled bool

	Brokers     []string
	InputTopic  string
	OutputTopic string
	GroupID     string

	SessionTimeout   time.Duration
	Heartbeat        time.Duration
	RebalanceTimeout time.Duration
	InitialOldest    bool

	// DedupeSize bounds the LRU of recently tagged event ids.
	DedupeSize int
}

func (c Config) withDefaults() Config {
	if c.InputTopic == "" {
		c.InputTopic = "locations"
	}
	if c.OutputTopic == "" {
		c.OutputTopic = "locations-tagged"
	}
	if c.GroupID == "" {
		c.GroupID = "earthpixel-tagger"
	}
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = 30 * time.Second
	}
	if c.Heartbeat <= 0 {
		c.Heartbeat = 3 * time.Second
	}
	if c.RebalanceTimeout <= 0 {
		c.RebalanceTimeout = 30 * time.Second
	}
	if c.DedupeSize <= 0 {
		c.DedupeSize = 8192
	}
	return c
}
