// Copyright 2026 The Helios Authors. SPDX-License-Identifier: Apache-2.0

// Package workerspool implements the bounded pool of worker goroutines the
// executor dispatches sub-function runs on.
package workerspool

import (
	"runtime"
	"sync"
)

// Pool bounds the number of concurrently running tasks. It creates no
// goroutines of its own until tasks are submitted.
type Pool struct {
	// maxParallelism is the limit of concurrently running tasks.
	// 0 disables parallelism (tasks run inline), negative means unlimited.
	maxParallelism int

	mu         sync.Mutex
	cond       sync.Cond // Signaled whenever numRunning decreases.
	numRunning int
}

// New returns a Pool with the default parallelism (runtime.NumCPU()).
func New() *Pool {
	p := &Pool{maxParallelism: runtime.NumCPU()}
	p.cond = sync.Cond{L: &p.mu}
	return p
}

// NewWithParallelism returns a Pool limited to n concurrent tasks. n == 0
// disables parallelism, n < 0 removes the limit.
func NewWithParallelism(n int) *Pool {
	p := New()
	p.maxParallelism = n
	return p
}

// MaxParallelism returns the concurrency limit.
func (p *Pool) MaxParallelism() int { return p.maxParallelism }

// IsUnlimited reports whether the pool has no concurrency limit.
func (p *Pool) IsUnlimited() bool { return p.maxParallelism < 0 }

// lockedIsFull reports whether all workers are busy. Callers must hold p.mu.
func (p *Pool) lockedIsFull() bool {
	if p.maxParallelism == 0 {
		return true
	}
	if p.maxParallelism < 0 {
		return false
	}
	return p.numRunning >= p.maxParallelism
}

// WaitToStart blocks until a worker is free, then runs the task on it and
// returns (without waiting for the task to finish). With parallelism
// disabled the task runs inline, which can deadlock code relying on
// concurrency.
func (p *Pool) WaitToStart(task func()) {
	if p.IsUnlimited() {
		go task()
		return
	}
	if p.maxParallelism == 0 {
		task()
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for p.lockedIsFull() {
		p.cond.Wait()
	}
	p.lockedStart(task)
}

// TryStart runs the task on a worker if one is free, returning whether it
// did.
func (p *Pool) TryStart(task func()) bool {
	if p.IsUnlimited() {
		go task()
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lockedIsFull() {
		return false
	}
	p.lockedStart(task)
	return true
}

// lockedStart launches the task and keeps tabs on numRunning. Callers must
// hold p.mu.
func (p *Pool) lockedStart(task func()) {
	p.numRunning++
	go func() {
		task()
		p.mu.Lock()
		p.numRunning--
		p.cond.Signal()
		p.mu.Unlock()
	}()
}
