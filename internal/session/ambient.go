package session

import (
	"context"
	"sync"
)

// Ambient tracks whether audio is playing over the lock surface.
type Ambient struct {
	mu      sync.Mutex
	playing bool
	subs    map[uint64]chan bool
	nextID  uint64
}

func NewAmbient() *Ambient {
	return &Ambient{subs: map[uint64]chan bool{}}
}

func (a *Ambient) Set(playing bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.playing == playing {
		return
	}
	a.playing = playing
	for _, ch := range a.subs {
		select {
		case <-ch:
		default:
		}
		ch <- playing
	}
}

func (a *Ambient) Playing() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.playing
}

// Subscribe returns a latest-value channel primed with the current state.
func (a *Ambient) Subscribe(ctx context.Context) <-chan bool {
	ch := make(chan bool, 1)
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.subs[id] = ch
	ch <- a.playing
	a.mu.Unlock()

	go func() {
		<-ctx.Done()
		a.mu.Lock()
		delete(a.subs, id)
		a.mu.Unlock()
		close(ch)
	}()
	return ch
}
