package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/solstream/swapd/internal/core/ports"
)

// windowGate is a fixed-window admission gate: it counts admissions per
// wall-clock minute and rejects once the count exceeds the limit. The
// counter resets when the window rolls over.
type windowGate struct {
	limit  int
	window time.Duration

	lock      *sync.Mutex
	windowKey int64
	count     int

	now func() time.Time
}

func NewWindowGate(limit int) (ports.AdmissionGate, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be a positive number")
	}

	return &windowGate{
		limit:  limit,
		window: time.Minute,
		lock:   &sync.Mutex{},
		now:    time.Now,
	}, nil
}

func (g *windowGate) TryAdmit() ports.Admission {
	g.lock.Lock()
	defer g.lock.Unlock()

	key := g.now().Unix() / int64(g.window/time.Second)
	if key != g.windowKey {
		g.windowKey = key
		g.count = 0
	}
	g.count++

	return ports.Admission{
		Allowed: g.count <= g.limit,
		Count:   g.count,
		Limit:   g.limit,
	}
}
