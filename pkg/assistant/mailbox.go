package assistant

import "sync/atomic"

// Mailbox is a single-slot signal between the listener's sampling
// goroutine and the main loop. Post never blocks; posting twice before
// a Take collapses into one delivery, which matches the cooldown
// semantics of wake detection.
type Mailbox struct {
	flag atomic.Bool
}

// Post raises the signal.
func (m *Mailbox) Post() {
	m.flag.Store(true)
}

// Take returns whether the signal was raised and clears it.
func (m *Mailbox) Take() bool {
	return m.flag.Swap(false)
}
