package session

import (
	"sync"

	"github.com/aretw0/basiceq/pkg/domain"
)

// Snapshot is the observable state of a Session.
type Snapshot struct {
	Selected  domain.Preset           `json:"selected"`
	Displayed domain.GainMap          `json:"displayed"`
	Settled   bool                    `json:"settled"`
	Presets   domain.PresetCollection `json:"presets"`
}

// observers fans snapshots out to subscribers.
type observers struct {
	mu   sync.RWMutex
	subs map[chan Snapshot]struct{}
}

func newObservers() *observers {
	return &observers{subs: make(map[chan Snapshot]struct{})}
}

func (o *observers) subscribe(buffer int) (<-chan Snapshot, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Snapshot, buffer)

	o.mu.Lock()
	o.subs[ch] = struct{}{}
	o.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			delete(o.subs, ch)
			close(ch)
		})
	}
}

func (o *observers) empty() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.subs) == 0
}

// broadcast never blocks. A subscriber whose buffer is full loses its
// oldest pending snapshot so the latest state always gets through.
func (o *observers) broadcast(snap Snapshot) int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	dropped := 0
	for ch := range o.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		select {
		case <-ch:
			dropped++
		default:
		}
		select {
		case ch <- snap:
		default:
			dropped++
		}
	}
	return dropped
}
