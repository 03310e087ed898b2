// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package testutil

import (
	"sync"
	"time"

	"github.com/ManuGH/recstudio/internal/heartbeat"
)

// FakeClock implements heartbeat.Clock with a settable now and
// manually fired tickers, keyed by their requested interval.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*FakeTicker
}

func NewFakeClock() *FakeClock {
	return &FakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward without firing any ticker.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *FakeClock) NewTicker(d time.Duration) heartbeat.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &FakeTicker{ch: make(chan time.Time, 1), interval: d}
	c.tickers = append(c.tickers, t)
	return t
}

// Ticker returns the first ticker created with interval d, or nil.
func (c *FakeClock) Ticker(d time.Duration) *FakeTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.tickers {
		if t.interval == d {
			return t
		}
	}
	return nil
}

// WaitTicker blocks until a ticker with interval d exists.
func (c *FakeClock) WaitTicker(d time.Duration) *FakeTicker {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if t := c.Ticker(d); t != nil {
			return t
		}
		time.Sleep(time.Millisecond)
	}
	return nil
}

// FakeTicker is fired by the test.
type FakeTicker struct {
	ch       chan time.Time
	interval time.Duration
}

func (t *FakeTicker) C() <-chan time.Time { return t.ch }
func (t *FakeTicker) Stop()               {}

// Fire delivers one tick, blocking until the consumer picks it up or
// buffers it.
func (t *FakeTicker) Fire() {
	t.ch <- time.Now()
}
