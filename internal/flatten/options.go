package flatten

import "time"

type config struct {
	timeout   time.Duration
	observers []Observer
}

// Option configures a Flattener at construction.
type Option func(*config)

// WithTimeout sets a per-inner-stream deadline, measured from the moment
// the inner stream is opened. On expiry the engine synthesizes a timeout
// fault into the normal inner-error path; the policy is consulted as usual,
// but a resume decision is coerced to abandon since a timed-out stream
// cannot be pulled further. Zero or negative disables the deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithObserver subscribes o to the run's transitions and consultations.
// May be given multiple times; observers are notified in subscription order.
func WithObserver(o Observer) Option {
	return func(c *config) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}
