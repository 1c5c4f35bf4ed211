// Copyright 2026 The Helios Authors. SPDX-License-Identifier: Apache-2.0

package hostmanager

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"k8s.io/klog/v2"
)

// Keys of the exported device memory counters, aggregated across all
// devices.
const (
	DeviceMemoryUsedKey      = "glow.devices.used_memory.total"
	DeviceMemoryAvailableKey = "glow.devices.available_memory.total"
	DeviceMemoryMaxKey       = "glow.devices.maximum_memory.total"
)

var meter = otel.Meter("helios.hostmanager")

// hostMetrics publishes the aggregate device memory gauges and keeps the
// latest values for the snapshot accessor.
type hostMetrics struct {
	initOnce sync.Once

	usedGauge      metric.Int64Gauge
	availableGauge metric.Int64Gauge
	maximumGauge   metric.Int64Gauge

	mu       sync.Mutex
	snapshot map[string]uint64
}

// init lazily creates the instruments; a metric creation failure degrades to
// snapshot-only counters.
func (m *hostMetrics) init() {
	m.initOnce.Do(func() {
		var err error
		if m.usedGauge, err = meter.Int64Gauge(DeviceMemoryUsedKey,
			metric.WithDescription("Bytes of device memory in use, summed across devices"),
			metric.WithUnit("By")); err != nil {
			klog.Warningf("creating gauge %s: %v", DeviceMemoryUsedKey, err)
		}
		if m.availableGauge, err = meter.Int64Gauge(DeviceMemoryAvailableKey,
			metric.WithDescription("Bytes of device memory still free, summed across devices"),
			metric.WithUnit("By")); err != nil {
			klog.Warningf("creating gauge %s: %v", DeviceMemoryAvailableKey, err)
		}
		if m.maximumGauge, err = meter.Int64Gauge(DeviceMemoryMaxKey,
			metric.WithDescription("Total bytes of device memory, summed across devices"),
			metric.WithUnit("By")); err != nil {
			klog.Warningf("creating gauge %s: %v", DeviceMemoryMaxKey, err)
		}
	})
}

func (m *hostMetrics) record(used, available, maximum uint64) {
	m.init()
	ctx := context.Background()
	if m.usedGauge != nil {
		m.usedGauge.Record(ctx, int64(used))
	}
	if m.availableGauge != nil {
		m.availableGauge.Record(ctx, int64(available))
	}
	if m.maximumGauge != nil {
		m.maximumGauge.Record(ctx, int64(maximum))
	}
	m.mu.Lock()
	m.snapshot = map[string]uint64{
		DeviceMemoryUsedKey:      used,
		DeviceMemoryAvailableKey: available,
		DeviceMemoryMaxKey:       maximum,
	}
	m.mu.Unlock()
}

func (m *hostMetrics) values() map[string]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]uint64, len(m.snapshot))
	for k, v := range m.snapshot {
		out[k] = v
	}
	return out
}

// exportMemoryCounters publishes the aggregate memory usage of all devices.
func (hm *HostManager) exportMemoryCounters() {
	var used, available, maximum uint64
	for _, dm := range hm.devices {
		used += dm.UsedMemory()
		available += dm.AvailableMemory()
		maximum += dm.MaximumMemory()
	}
	hm.metrics.record(used, available, maximum)
}

// MemoryCounters returns the latest exported memory counters, keyed by the
// DeviceMemory*Key constants.
func (hm *HostManager) MemoryCounters() map[string]uint64 {
	return hm.metrics.values()
}
