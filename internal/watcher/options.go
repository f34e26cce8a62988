package watcher

import "time"

// DefaultSettleDelay is how long a file must stay unchanged before an
// EventChanged is emitted.
const DefaultSettleDelay = 250 * time.Millisecond

// Options configures the file watcher behavior.
type Options struct {
	SettleDelay time.Duration
}

func (o *Options) setDefaults() {
	if o.SettleDelay <= 0 {
		o.SettleDelay = DefaultSettleDelay
	}
}
