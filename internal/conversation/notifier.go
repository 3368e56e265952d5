// ABOUTME: TaskRefreshNotifier signal and its error boundary
// ABOUTME: Fired after a mutating exchange; a faulty consumer cannot corrupt the session

package conversation

// TaskRefreshNotifier is a zero-argument signal that the caller's task view
// may now be stale and should be reloaded from its own source of truth.
// It fires after the exchange whose response carried tool calls has been
// fully applied to history, and the controller learns nothing about the
// call's outcome.
type TaskRefreshNotifier interface {
	TasksChanged()
}

// NotifierFunc adapts a plain function to the TaskRefreshNotifier interface.
type NotifierFunc func()

// TasksChanged calls f.
func (f NotifierFunc) TasksChanged() {
	f()
}

// notifyTaskRefresh invokes the notifier fire-and-forget. A panic inside the
// consumer is caught and discarded here so it can neither corrupt
// conversation state nor leave the controller stuck outside idle.
func (c *Controller) notifyTaskRefresh() {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("task refresh notifier panicked", "panic", r)
		}
	}()
	c.notifier.TasksChanged()
}
