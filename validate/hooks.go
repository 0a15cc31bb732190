package validate

import "sync/atomic"

// FailureHook observes every failed struct validation.
type FailureHook func(value any, failures *Errors)

var failureHook atomic.Pointer[FailureHook]

// OnFailure installs hook, replacing any previous one; nil removes it.
func OnFailure(hook FailureHook) {
	if hook == nil {
		failureHook.Store(nil)
		return
	}
	failureHook.Store(&hook)
}

func notify(value any, failures *Errors) {
	if hook := failureHook.Load(); hook != nil {
		(*hook)(value, failures)
	}
}
