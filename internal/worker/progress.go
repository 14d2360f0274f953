package worker

import (
	"sync"

	"github.com/amankumarsingh77/pixiescale/internal/encoder"
)

// ProgressTracker keeps the latest progress line of every running encode.
type ProgressTracker struct {
	mu   sync.RWMutex
	last map[string]encoder.Progress
}

func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{last: make(map[string]encoder.Progress)}
}

// Observe is an encoder.ProgressFunc.
func (p *ProgressTracker) Observe(pr encoder.Progress) {
	p.mu.Lock()
	p.last[pr.TaskID] = pr
	p.mu.Unlock()
}

func (p *ProgressTracker) Get(taskID string) (encoder.Progress, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pr, ok := p.last[taskID]
	return pr, ok
}

func (p *ProgressTracker) Forget(taskID string) {
	p.mu.Lock()
	delete(p.last, taskID)
	p.mu.Unlock()
}
