package form

import "time"

// Option configures a Controller.
type Option func(*Controller)

// WithScheduler overrides the scheduler used to debounce availability lookups.
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) {
		if s != nil {
			c.scheduler = s
		}
	}
}

// WithDebounce sets the quiet window before an availability lookup is issued.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.debounce = d
		}
	}
}

// WithUniqueField names the field whose value is looked up for availability
// after each change. Empty disables lookups.
func WithUniqueField(name string) Option {
	return func(c *Controller) {
		c.uniqueField = name
	}
}

// WithMessages overrides the success and failure messages. Empty values keep
// the defaults.
func WithMessages(success, failure string) Option {
	return func(c *Controller) {
		if success != "" {
			c.successMessage = success
		}
		if failure != "" {
			c.failureMessage = failure
		}
	}
}
