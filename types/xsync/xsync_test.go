// Copyright 2026 The Helios Authors. SPDX-License-Identifier: Apache-2.0

package xsync

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLatch(t *testing.T) {
	l := NewLatch()
	assert.False(t, l.Test())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Wait()
		}()
	}
	l.Trigger()
	l.Trigger() // Idempotent.
	wg.Wait()
	assert.True(t, l.Test())

	select {
	case <-l.WaitChan():
	default:
		t.Fatal("WaitChan must be closed after trigger")
	}
}

func TestLatchWithValue(t *testing.T) {
	l := NewLatchWithValue[int]()
	go l.Trigger(42)
	assert.Equal(t, 42, l.Wait())
	l.Trigger(7) // Discarded: first trigger wins.
	assert.Equal(t, 42, l.Wait())
}
