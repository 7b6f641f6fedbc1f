package kafka

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// idDedupe remembers recently tagged event ids. The LRU is internally locked.
type idDedupe struct {
	lru *lru.Cache[string, struct{}]
}

func newIDDedupe(size int) *idDedupe {
	if size <= 0 {
		size = 4096
	}
	c, _ := lru.New[string, struct{}](size)
	return &idDedupe{lru: c}
}

func (d *idDedupe) seen(id string) bool {
	if id == "" {
		return false
	}
	return d.lru.Contains(id)
}

func (d *idDedupe) mark(id string) {
	if id == "" {
		return
	}
	d.lru.Add(id, struct{}{})
}
