// Package arena manages the pixel memory behind graphics buffer handles as
// size-class pools carved out of one contiguous block, so that buffer
// reallocation never fragments the shared mapping. Instrumented with
// OpenTelemetry metrics and tracing when a Meter/Tracer is supplied.
package arena

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ErrExhausted is returned when no slice of the requested class is free.
var ErrExhausted = errors.New("arena: no free slice for requested size")

// SizeClass describes one pool: Count slices of Size bytes each.
type SizeClass struct {
	Size  uint32
	Count uint32
}

// Config holds arena creation parameters.
type Config struct {
	// Mem is the backing block. When nil, a heap block large enough for the
	// layout is allocated.
	Mem []byte
	// Layout lists the size classes, smallest first.
	Layout []SizeClass
	// Meter and Tracer are optional OTel instrumentation hooks.
	Meter  metric.Meter
	Tracer trace.Tracer
}

// Slice is one allocation from the arena.
type Slice struct {
	Data   []byte
	Offset uint32
	class  uint32
	used   bool
}

// Arena hands out fixed-size slices from per-class free lists.
type Arena struct {
	mu     sync.Mutex
	pools  map[uint32][]*Slice
	layout []SizeClass

	tracer trace.Tracer
	allocs metric.Int64Counter
	fails  metric.Int64Counter
}

// New builds an arena from cfg. Classes that do not fit the backing block
// are truncated.
func New(cfg Config) *Arena {
	mem := cfg.Mem
	if mem == nil {
		var total int
		for _, c := range cfg.Layout {
			total += int(c.Size) * int(c.Count)
		}
		mem = make([]byte, total)
	}
	a := &Arena{
		pools:  make(map[uint32][]*Slice, len(cfg.Layout)),
		layout: cfg.Layout,
		tracer: cfg.Tracer,
	}
	if cfg.Meter != nil {
		a.allocs, _ = cfg.Meter.Int64Counter("surface_arena_allocs",
			metric.WithDescription("Slices handed out by the pixel arena."))
		a.fails, _ = cfg.Meter.Int64Counter("surface_arena_alloc_failures",
			metric.WithDescription("Arena allocation failures."))
	}
	offset := 0
	for _, c := range cfg.Layout {
		for i := uint32(0); i < c.Count; i++ {
			if offset+int(c.Size) > len(mem) {
				break
			}
			a.pools[c.Size] = append(a.pools[c.Size], &Slice{
				Data:   mem[offset : offset+int(c.Size) : offset+int(c.Size)],
				Offset: uint32(offset),
				class:  c.Size,
			})
			offset += int(c.Size)
		}
	}
	return a
}

// Alloc returns a free slice of the smallest class holding size bytes.
func (a *Arena) Alloc(ctx context.Context, size uint32) (*Slice, error) {
	if a.tracer != nil {
		var span trace.Span
		ctx, span = a.tracer.Start(ctx, "arena.Alloc")
		defer span.End()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, c := range a.layout {
		if c.Size < size {
			continue
		}
		for _, s := range a.pools[c.Size] {
			if !s.used {
				s.used = true
				if a.allocs != nil {
					a.allocs.Add(ctx, 1)
				}
				return s, nil
			}
		}
	}
	if a.fails != nil {
		a.fails.Add(ctx, 1)
	}
	return nil, ErrExhausted
}

// Recycle returns a slice to its pool. Recycling twice is a no-op.
func (a *Arena) Recycle(s *Slice) {
	if s == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	s.used = false
}

// Stats returns the number of free slices per size class.
func (a *Arena) Stats() map[uint32]int {
	a.mu.Lock()
	defer a.mu.Unlock()
	stats := make(map[uint32]int, len(a.pools))
	for size, pool := range a.pools {
		free := 0
		for _, s := range pool {
			if !s.used {
				free++
			}
		}
		stats[size] = free
	}
	return stats
}
