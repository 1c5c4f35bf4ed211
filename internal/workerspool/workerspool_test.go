// Copyright 2026 The Helios Authors. SPDX-License-Identifier: Apache-2.0

package workerspool

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolBoundsParallelism(t *testing.T) {
	const limit = 3
	p := NewWithParallelism(limit)

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		p.WaitToStart(func() {
			defer wg.Done()
			cur := running.Add(1)
			for {
				old := peak.Load()
				if cur <= old || peak.CompareAndSwap(old, cur) {
					break
				}
			}
			running.Add(-1)
		})
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(limit))
}

func TestTryStart(t *testing.T) {
	p := NewWithParallelism(1)
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	assert.True(t, p.TryStart(func() { <-release; wg.Done() }))
	assert.False(t, p.TryStart(func() {}), "pool is full")
	close(release)
	wg.Wait()
}

func TestInlineWhenDisabled(t *testing.T) {
	p := NewWithParallelism(0)
	ran := false
	p.WaitToStart(func() { ran = true })
	assert.True(t, ran, "disabled pool runs inline before returning")
}
