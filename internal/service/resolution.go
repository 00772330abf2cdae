package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/errors"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/model"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/processor"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/resolve"
)

const (
	eventCacheAnnounced   = "resolve_cache_announced"
	eventStorageAnnounced = "resolve_storage_announced"
)

type answer struct {
	processor string
	outcome   resolve.Outcome
	err       *errors.Error
	hint      resolve.LoggingHint
}

// running is one resolution processor started for a request
type running struct {
	base *processor.Base
	done func()
}

func (s *GatewayService) start(
	ctx context.Context,
	t processor.RequestType,
	name string,
	req *resolve.Request,
	answers chan<- answer,
) *running {
	r := &running{
		base: processor.NewBase(name, slotOf(name), s.logger),
		done: s.activate(t, name),
	}
	s.resolver.Resolve(ctx, req, r.base,
		func(o resolve.Outcome) { answers <- answer{processor: name, outcome: o} },
		func(err *errors.Error, hint resolve.LoggingHint) {
			answers <- answer{processor: name, err: err, hint: hint}
		})
	return r
}

func (r *running) stop() {
	r.base.Cancel()
	r.base.ReleaseAll()
	r.done()
}

func newResolveRequest(req *ResolveRequest, policy model.CachePolicy) *resolve.Request {
	return &resolve.Request{
		Candidates:      req.Candidates,
		Fields:          req.Fields,
		AccSubstitution: req.AccSubstitution,
		CachePolicy:     policy,
	}
}

// single runs one resolution with the request's cache policy
func (s *GatewayService) single(ctx context.Context, t processor.RequestType, req *ResolveRequest) (*resolve.Outcome, error) {
	answers := make(chan answer, 1)
	r := s.start(ctx, t, ProcessorResolve, newResolveRequest(req, req.CachePolicy), answers)
	defer r.stop()

	select {
	case a := <-answers:
		return s.finish(t, a)
	case <-ctx.Done():
		return nil, errors.From(ctx.Err())
	}
}

// race runs a cache-only and a storage-only resolution side by side. The
// storage processor announces only after the cache processor did, so a
// cache answer always wins when there is one; the loser is canceled.
func (s *GatewayService) race(ctx context.Context, t processor.RequestType, req *ResolveRequest) (*resolve.Outcome, error) {
	barrier := processor.NewBarrier(2)
	answers := make(chan answer, 2)

	cacheReq := newResolveRequest(req, model.CacheOnly)
	cacheReq.Barrier = barrier
	cacheReq.LockEvent = eventCacheAnnounced

	storageReq := newResolveRequest(req, model.DBOnly)
	storageReq.Barrier = barrier
	storageReq.LockEvent = eventStorageAnnounced
	storageReq.WaitEvent = eventCacheAnnounced

	procs := map[string]*running{
		ProcessorResolveCache: s.start(ctx, t, ProcessorResolveCache, cacheReq, answers),
	}
	procs[ProcessorResolveStorage] = s.start(ctx, t, ProcessorResolveStorage, storageReq, answers)
	defer func() {
		for _, r := range procs {
			r.stop()
		}
	}()

	var last *answer
	for pending := len(procs); pending > 0; pending-- {
		select {
		case a := <-answers:
			if a.err == nil {
				s.metrics.RecordRaceWinner(a.processor)
				s.logger.Debug("Race won",
					zap.String("processor", a.processor),
					zap.Stringer("result", a.outcome.Result))
				return s.finish(t, a)
			}
			// the storage error wins over the cache-only one
			if last == nil || a.processor == ProcessorResolveStorage {
				last = &a
			}
		case <-ctx.Done():
			return nil, errors.From(ctx.Err())
		}
	}
	return s.finish(t, *last)
}

func (s *GatewayService) finish(t processor.RequestType, a answer) (*resolve.Outcome, error) {
	if a.err == nil {
		outcome := a.outcome
		return &outcome, nil
	}

	fields := []zap.Field{
		zap.Stringer("request_type", t),
		zap.String("processor", a.processor),
		zap.Int("status", a.err.Status),
		zap.Error(a.err),
	}
	if a.hint == resolve.LogAsNotFound {
		s.logger.Debug("Seq_id not resolved", fields...)
	} else {
		s.logger.Warn("Resolution failed", fields...)
	}
	return nil, a.err
}
