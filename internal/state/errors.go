package state

import (
	"git.home.luguber.info/inful/fitstate/internal/foundation/errors"
)

// Sentinel errors returned by the store. Compare with errors.Is.
var (
	ErrInvalidPath           = errors.ValidationError("invalid state path").Build()
	ErrNilListener           = errors.ValidationError("listener must not be nil").Build()
	ErrStoreDisposed         = errors.StateError("state store is disposed").Build()
	ErrDispatchDepthExceeded = errors.StateError("dispatch depth exceeded").Build()
	ErrNestedWriteRejected   = errors.StateError("nested write rejected").Build()
	ErrDispatchTimeout       = errors.StateError("timed out waiting for dispatch").Build()
	ErrDispatchCanceled      = errors.StateError("canceled while waiting for dispatch").Build()
	ErrListenerPanic         = errors.ListenerError("listener panicked").Build()
)
