package client

// WatchState returns a channel of connection-state snapshots and a stop func.
// UI code subscribes on mount and calls stop on unmount; stop is idempotent
// and closes the channel. Snapshots are dropped, not queued, when the
// consumer lags.
func (c *Client) WatchState() (<-chan State, func()) {
	ch := make(chan State, 16)

	c.wmu.Lock()
	c.wseq++
	id := c.wseq
	c.watchers[id] = ch
	c.wmu.Unlock()

	// Seed with the current snapshot so the consumer needs no separate read.
	c.mu.Lock()
	current := c.state
	c.mu.Unlock()
	ch <- current

	stop := func() {
		c.wmu.Lock()
		defer c.wmu.Unlock()
		if existing, ok := c.watchers[id]; ok {
			delete(c.watchers, id)
			close(existing)
		}
	}
	return ch, stop
}

func (c *Client) notifyWatchers() {
	c.mu.Lock()
	current := c.state
	c.mu.Unlock()

	c.wmu.Lock()
	defer c.wmu.Unlock()
	for _, ch := range c.watchers {
		select {
		case ch <- current:
		default:
		}
	}
}
