package snapshot

import "sync"

// updates carries new ETags to one subscriber.
type updates = chan string

var (
	subsMu sync.Mutex
	subs   = make(map[updates]struct{})
)

// Subscribe registers a listener and returns its channel and an unsubscribe
// func. The channel holds one pending ETag; older ones are dropped.
func Subscribe() (updates, func()) {
	ch := make(updates, 1)
	subsMu.Lock()
	subs[ch] = struct{}{}
	subsMu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			subsMu.Lock()
			delete(subs, ch)
			close(ch)
			subsMu.Unlock()
		})
	}
	return ch, unsub
}

// Subscribers returns the number of registered listeners.
func Subscribers() int {
	subsMu.Lock()
	defer subsMu.Unlock()
	return len(subs)
}

// publishUpdate notifies all listeners without blocking on slow ones.
func publishUpdate(etag string) {
	subsMu.Lock()
	defer subsMu.Unlock()
	for ch := range subs {
		select {
		case ch <- etag:
		default:
		}
	}
}
