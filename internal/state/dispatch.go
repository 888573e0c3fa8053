package state

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"git.home.luguber.info/inful/fitstate/internal/logfields"
	"git.home.luguber.info/inful/fitstate/internal/metrics"
)

type depthKey struct{}

// DispatchDepth reports how many listener invocations enclose ctx. It is zero
// outside of a listener.
func DispatchDepth(ctx context.Context) int {
	if ctx == nil {
		return 0
	}
	d, _ := ctx.Value(depthKey{}).(int)
	return d
}

func withDepth(ctx context.Context, depth int) context.Context {
	return context.WithValue(ctx, depthKey{}, depth)
}

// Set writes value at p, records a history entry and synchronously notifies
// observers and then the subscribers of exactly p. The write is visible to every
// listener it triggers.
//
// Set fails without touching state when the store is disposed, when p is the zero
// Path, when a nested write exceeds the dispatch policy, or when a top-level write
// cannot take the dispatch slot before ctx ends or the dispatch timeout. When one or more
// listeners panic, the write and all other deliveries still happen and Set returns
// an error matching ErrListenerPanic.
func (s *Store) Set(ctx context.Context, p Path, value any) (err error) {
	ctx = contextOrBackground(ctx)
	depth := DispatchDepth(ctx)

	ctx, span := s.tracer.Start(ctx, "state.set", trace.WithAttributes(
		attribute.String("state.path", p.s),
		attribute.Int("state.depth", depth),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if p.IsZero() {
		return ErrInvalidPath.WithContext("reason", "zero path")
	}

	kind := metrics.WriteTopLevel
	if depth > 0 {
		kind = metrics.WriteNested
		if s.nested == NestedReject {
			s.recorder.IncRejectedWrite(metrics.RejectNested)
			return ErrNestedWriteRejected.WithContext("path", p.s)
		}
		if depth > s.maxDepth {
			s.recorder.IncRejectedWrite(metrics.RejectDepthExceeded)
			s.logger.WarnContext(ctx, "Nested write exceeds dispatch depth",
				logfields.Path(p.s), logfields.Depth(depth))
			return ErrDispatchDepthExceeded.
				WithContext("path", p.s).
				WithContext("depth", depth).
				WithContext("max_depth", s.maxDepth)
		}
	} else {
		if err := s.acquireDispatch(ctx); err != nil {
			s.recorder.IncRejectedWrite(metrics.RejectDispatchWait)
			s.logger.WarnContext(ctx, "Write gave up waiting for dispatch",
				logfields.Path(p.s), logfields.Error(err))
			return err
		}
		defer func() { <-s.dispatch }()
		start := time.Now()
		defer func() { s.recorder.ObserveDispatchDuration(time.Since(start)) }()
	}

	entry, subs, observers, err := s.commit(p, value, depth)
	if err != nil {
		s.recorder.IncRejectedWrite(metrics.RejectDisposed)
		return err
	}
	s.recorder.IncWrite(kind)
	span.SetAttributes(attribute.Int64("state.sequence", int64(entry.Sequence)))
	s.logger.DebugContext(ctx, "State set",
		logfields.Path(p.s),
		logfields.Sequence(entry.Sequence),
		logfields.Depth(depth))

	s.notifyChange(observers, entry)

	change := Change{
		Path:        p,
		Value:       entry.Value,
		Previous:    entry.Previous,
		HadPrevious: entry.HadPrevious,
		Sequence:    entry.Sequence,
	}
	listenerCtx := withDepth(ctx, depth+1)

	var panics []error
	for _, sub := range subs {
		if !sub.active.Load() {
			continue
		}
		delivered := change
		delivered.Value = cloneValue(change.Value)
		delivered.Previous = cloneValue(change.Previous)
		if perr := s.invoke(listenerCtx, sub, delivered); perr != nil {
			panics = append(panics, perr)
		}
	}
	if len(panics) > 0 {
		return ErrListenerPanic.
			WithCause(stderrors.Join(panics...)).
			WithContext("path", p.s).
			WithContext("count", len(panics))
	}
	return nil
}

// acquireDispatch takes the dispatch slot for a top-level write. It gives up when
// ctx is done or the dispatch timeout elapses. A listener that writes with a context
// not derived from its own lands here and times out instead of deadlocking.
func (s *Store) acquireDispatch(ctx context.Context) error {
	select {
	case s.dispatch <- struct{}{}:
		return nil
	default:
	}

	timer := time.NewTimer(s.dispatchTimeout)
	defer timer.Stop()
	select {
	case s.dispatch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ErrDispatchCanceled.WithCause(ctx.Err())
	case <-timer.C:
		return ErrDispatchTimeout.WithContext("timeout", s.dispatchTimeout.String())
	}
}

// invoke runs one listener and converts a panic into an error.
func (s *Store) invoke(ctx context.Context, sub *subscription, change Change) (err error) {
	sub.deliveries.Add(1)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener %s on %s: %v", sub.name(), sub.path.s, r)
			s.recorder.IncListenerResult(metrics.ResultPanic)
			s.logger.ErrorContext(ctx, "Listener panicked",
				logfields.Path(sub.path.s),
				logfields.SubscriptionID(sub.id),
				logfields.Listener(sub.name()),
				logfields.Error(err))
		}
	}()
	sub.listener(ctx, change)
	s.recorder.IncListenerResult(metrics.ResultSuccess)
	return nil
}
