// Package resolve turns candidate seq_ids into a bioseq record by walking
// the cache and storage tiers one candidate at a time.
package resolve

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/cache"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/errors"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/fetch"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/metrics"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/model"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/processor"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/selection"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/seqid"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/storage"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/util/workerpool"
)

// Config holds resolver settings
type Config struct {
	AnnounceTimeout time.Duration
}

// Request describes one resolution
type Request struct {
	Candidates      []model.CandidateID
	Fields          model.IncludeFlags
	AccSubstitution model.AccSubstitution
	CachePolicy     model.CachePolicy

	// Set when several processors race on the same request. LockEvent is
	// locked at start and unlocked after delivery; WaitEvent is waited on
	// before delivery.
	Barrier   *processor.Barrier
	LockEvent string
	WaitEvent string
}

// FinishedFunc receives a successful resolution
type FinishedFunc func(Outcome)

// ErrorFunc receives the combined error once every candidate failed
type ErrorFunc func(*errors.Error, LoggingHint)

// Resolver runs resolutions against a cache lookup and a storage tier.
// Either tier may be nil.
type Resolver struct {
	lookup  *cache.Lookup
	store   storage.Store
	pool    *workerpool.Pool
	metrics *metrics.Metrics
	config  Config
	logger  *zap.Logger
}

// NewResolver creates a resolver
func NewResolver(
	lookup *cache.Lookup,
	store storage.Store,
	pool *workerpool.Pool,
	m *metrics.Metrics,
	cfg Config,
	logger *zap.Logger,
) *Resolver {
	if cfg.AnnounceTimeout <= 0 {
		cfg.AnnounceTimeout = 5 * time.Second
	}
	return &Resolver{
		lookup:  lookup,
		store:   store,
		pool:    pool,
		metrics: m,
		config:  cfg,
		logger:  logger,
	}
}

// Resolve starts resolving req on behalf of base. Exactly one of onFinished
// or onError is called, possibly before Resolve returns when the cache
// answers; nothing is called if base is canceled first.
func (r *Resolver) Resolve(ctx context.Context, req *Request, base *processor.Base, onFinished FinishedFunc, onError ErrorFunc) {
	st := &run{
		r:          r,
		ctx:        ctx,
		req:        req,
		base:       base,
		onFinished: onFinished,
		onError:    onError,
		logger:     base.Logger(),
	}
	st.start()
}

type stage int

const (
	stageInit stage = iota
	stagePrimary
	stageSecondary
	stageAsIs
	stageConfirm
	stageFinished
)

var stageNames = [...]string{"init", "primary", "secondary", "as_is", "confirm", "finished"}

func (s stage) String() string { return stageNames[s] }

// run is the state of one Resolve call. Only one goroutine advances it at a
// time: either the caller or the worker delivering the pending fetch.
type run struct {
	r          *Resolver
	ctx        context.Context
	req        *Request
	base       *processor.Base
	onFinished FinishedFunc
	onError    ErrorFunc
	logger     *zap.Logger

	next      int
	candidate model.CandidateID
	comp      seqid.Composition
	secIdx    int
	tried     map[model.Si2csiKey]bool
	accMark   int
	acc       errors.Accumulator
	queries   int
	outcome   Outcome
	stage     stage
	delivered bool
}

type bioseqAnswer struct {
	found     bool
	fromCache bool
	record    model.BioseqRecord
	err       *errors.Error
}

type si2csiAnswer struct {
	found     bool
	fromCache bool
	record    model.Si2csiRecord
	err       *errors.Error
}

func (s *run) start() {
	if s.req.Barrier != nil && s.req.LockEvent != "" {
		if err := s.req.Barrier.Lock(s.req.LockEvent); err != nil {
			s.logger.Error("Cannot lock announce event", zap.Error(err))
		}
	}
	s.nextCandidate()
}

func (s *run) enter(st stage) {
	s.stage = st
	s.logger.Debug("Resolution stage",
		zap.String("seq_id", s.candidate.Text),
		zap.Stringer("stage", st),
		zap.Int("query_count", s.queries))
}

// stopped ends the run silently on cancellation and reports a done context
func (s *run) stopped() bool {
	if s.base.IsCanceled() {
		s.unlock()
		return true
	}
	if err := s.ctx.Err(); err != nil {
		s.finishError(errors.From(err))
		return true
	}
	return false
}

func (s *run) nextCandidate() {
	if s.next >= len(s.req.Candidates) {
		s.finishError(s.acc.Combined("no seq_id could be resolved"))
		return
	}
	s.candidate = s.req.Candidates[s.next]
	s.next++
	s.outcome = Outcome{QueryCount: s.queries}
	s.secIdx = 0
	s.tried = make(map[model.Si2csiKey]bool)
	s.accMark = s.acc.Len()
	s.init()
}

func (s *run) init() {
	s.enter(stageInit)

	s.comp = seqid.Compose(s.candidate.Text, s.candidate.Type)
	switch {
	case !s.comp.OK:
		if s.comp.Err != nil {
			s.acc.AddError(errors.ParseFailed(s.candidate.Text, s.comp.Err))
		}
		s.asIs()
	case s.comp.IsPrecise():
		s.precise()
	case s.comp.Primary == nil:
		s.secondary()
	default:
		s.primary()
	}
}

// precise confirms a fully specified accession directly; a miss ends the
// candidate without trying aliases.
func (s *run) precise() {
	s.enter(stageConfirm)
	s.lookupBioseq(*s.comp.Primary, func(a bioseqAnswer) {
		if s.stopped() {
			return
		}
		if a.found {
			s.found(primaryKind(a.fromCache), a.record, false)
			return
		}
		s.keep(a.err)
		s.candidateExhausted()
	})
}

func (s *run) primary() {
	s.enter(stagePrimary)
	s.lookupBioseq(*s.comp.Primary, func(a bioseqAnswer) {
		if s.stopped() {
			return
		}
		if a.found {
			s.found(primaryKind(a.fromCache), a.record, false)
			return
		}
		s.keep(a.err)
		s.secondary()
	})
}

func (s *run) secondary() {
	s.enter(stageSecondary)
	if s.secIdx >= len(s.comp.Secondary) {
		s.asIs()
		return
	}
	form := s.comp.Secondary[s.secIdx]
	s.secIdx++
	s.lookupSi2csi(form.Si2csiKey(), func(a si2csiAnswer) {
		s.onSecondary(a, s.secondary)
	})
}

func (s *run) asIs() {
	s.enter(stageAsIs)
	text := seqid.CapitalizeAsIs(s.candidate.Text)
	key := model.Si2csiKey{SecSeqID: text, SecSeqIDType: s.candidate.Type}

	if text == "" || s.tried[key] || (s.comp.Primary != nil && s.comp.Primary.Text == text) {
		s.candidateExhausted()
		return
	}
	s.lookupSi2csi(key, func(a si2csiAnswer) {
		s.onSecondary(a, s.candidateExhausted)
	})
}

func (s *run) onSecondary(a si2csiAnswer, miss func()) {
	if s.stopped() {
		return
	}
	s.keep(a.err)
	if !a.found {
		miss()
		return
	}

	partial := a.record.PartialRecord()
	if selection.CanSkipFullRecordRetrieval(s.req.Fields, partial) {
		s.found(secondaryKind(a.fromCache), partial, true)
		return
	}
	s.confirm(a.record)
}

// confirm fetches the full record named by a secondary hit. Anything but
// exactly one record is a data inconsistency and ends the candidate.
func (s *run) confirm(sec model.Si2csiRecord) {
	s.enter(stageConfirm)
	key := sec.BioseqKey()
	policy := s.req.CachePolicy

	if policy.UsesCache() && s.r.lookup != nil {
		s.queries++
		res, n := s.r.lookup.LookupExact(s.ctx, key)
		s.r.metrics.RecordCacheLookup("bioseq_info", res.Outcome.String())
		if res.Outcome == cache.Hit {
			s.found(FoundInSecondaryCache, res.Record, false)
			return
		}
		if !s.usesStorage() {
			if res.Outcome == cache.Failure {
				s.acc.AddError(res.Err)
			} else {
				s.acc.AddError(s.inconsistent(sec, n))
			}
			s.candidateExhausted()
			return
		}
	}
	if !s.usesStorage() {
		s.acc.AddError(s.inconsistent(sec, 0))
		s.candidateExhausted()
		return
	}

	s.queryBioseq(key, func(recs []model.BioseqRecord, err *errors.Error) {
		if s.stopped() {
			return
		}
		switch {
		case err != nil:
			s.acc.AddError(err)
		case len(recs) == 1:
			s.found(FoundInSecondaryStorage, recs[0], false)
			return
		default:
			s.acc.AddError(s.inconsistent(sec, len(recs)))
		}
		s.candidateExhausted()
	})
}

func (s *run) inconsistent(sec model.Si2csiRecord, n int) *errors.Error {
	return errors.DataInconsistency(fmt.Sprintf(
		"si2csi maps %s to %s.%d (type %s, gi %d) but bioseq_info has %d matching records",
		sec.SecSeqID, sec.Accession, sec.Version, sec.SeqIDType, sec.GI, n))
}

func (s *run) candidateExhausted() {
	s.enter(stageFinished)
	if s.acc.Len() == s.accMark {
		s.acc.Add(fmt.Sprintf("seq_id %q not found", s.candidate.Text), errors.StatusNotFound)
	}
	s.nextCandidate()
}

// keep accumulates a stage failure; plain misses only drive the machine
func (s *run) keep(err *errors.Error) {
	if err != nil && err.Kind != errors.KindNotFound {
		s.acc.AddError(err)
	}
}

func (s *run) found(kind ResultKind, rec model.BioseqRecord, partial bool) {
	if err := s.outcome.setFound(kind, rec); err != nil {
		s.logger.Error("Logic error", zap.Error(err))
		s.acc.AddError(err)
		s.candidateExhausted()
		return
	}
	s.outcome.Partial = partial
	s.outcome.SeqID = s.candidate
	s.outcome.QueryCount = s.queries

	adj := s.outcome.AdjustAccession(s.req.Fields, s.req.AccSubstitution)
	s.r.metrics.RecordAdjustment(adj.String())
	if adj.Failed() {
		adjErr := errors.DataInconsistency(s.outcome.Adjustment.Err)
		if adj == AdjustmentLogicError {
			adjErr = errors.Logic(s.outcome.Adjustment.Err)
			s.logger.Error("Logic error", zap.Error(adjErr))
		}
		s.acc.AddError(adjErr)
		s.candidateExhausted()
		return
	}

	outcome := s.outcome
	s.deliver(func() {
		s.r.metrics.RecordResolution(outcome.Result.String(), outcome.QueryCount)
		s.logger.Debug("Resolved",
			zap.String("seq_id", outcome.SeqID.Text),
			zap.Stringer("result", outcome.Result),
			zap.String("accession", outcome.Record.Accession),
			zap.Int16("version", outcome.Record.Version),
			zap.Int("query_count", outcome.QueryCount))
		s.base.MarkComplete()
		s.onFinished(outcome)
	})
}

func (s *run) finishError(err *errors.Error) {
	hint := LogAsError
	if err.Status == errors.StatusNotFound {
		hint = LogAsNotFound
	}
	s.deliver(func() {
		s.r.metrics.RecordResolution(NotResolved.String(), s.queries)
		s.base.ReportStatus(err.Status)
		s.base.MarkComplete()
		s.onError(err, hint)
	})
}

// deliver announces the terminal result once, after the racing processor
// holding WaitEvent is done.
func (s *run) deliver(announce func()) {
	if s.delivered {
		return
	}
	s.delivered = true

	if s.req.Barrier == nil || s.req.WaitEvent == "" {
		s.announce(announce)
		return
	}
	go func() {
		err := s.req.Barrier.WaitFor(s.ctx, s.req.WaitEvent, s.r.config.AnnounceTimeout)
		s.continueResolution(err, announce)
	}()
}

// continueResolution re-enters after the cross-processor wait
func (s *run) continueResolution(waitErr error, announce func()) {
	if waitErr != nil {
		if errors.KindOf(waitErr) == errors.KindTimeout {
			s.logger.Warn("Announce wait timed out", zap.Error(waitErr))
		} else {
			s.logger.Error("Announce wait failed", zap.Error(waitErr))
		}
	}
	if s.base.IsCanceled() {
		s.unlock()
		return
	}
	s.announce(announce)
}

func (s *run) announce(fn func()) {
	fn()
	s.unlock()
}

func (s *run) unlock() {
	if s.req.Barrier != nil && s.req.LockEvent != "" {
		s.req.Barrier.Unlock(s.req.LockEvent)
	}
}

func (s *run) usesStorage() bool {
	return s.req.CachePolicy.UsesDB() && s.r.store != nil
}

func (s *run) usesCache() bool {
	return s.req.CachePolicy.UsesCache() && s.r.lookup != nil
}

// lookupBioseq runs the primary cascade: cache first, then storage with the
// INSDC type-agnostic retry and record selection.
func (s *run) lookupBioseq(form seqid.Form, cont func(bioseqAnswer)) {
	key := form.BioseqKey()
	if s.usesCache() {
		s.queries++
		lookup := s.r.lookup.LookupPrimary
		if form.Guessed {
			lookup = s.r.lookup.LookupGuessed
		}
		res := lookup(s.ctx, key)
		s.r.metrics.RecordCacheLookup("bioseq_info", res.Outcome.String())
		switch res.Outcome {
		case cache.Hit:
			cont(bioseqAnswer{found: true, fromCache: true, record: res.Record})
			return
		case cache.Failure:
			if !s.usesStorage() {
				cont(bioseqAnswer{err: res.Err})
				return
			}
		}
	}
	if !s.usesStorage() {
		cont(bioseqAnswer{})
		return
	}

	s.queryBioseq(key, func(recs []model.BioseqRecord, err *errors.Error) {
		if err != nil {
			cont(bioseqAnswer{err: err})
			return
		}
		if len(recs) == 0 && key.SeqIDType.IsINSDC() {
			s.retryAnyINSDC(key, form.Guessed, cont)
			return
		}
		cont(pick(recs, key.Version))
	})
}

func (s *run) retryAnyINSDC(key model.BioseqKey, anyType bool, cont func(bioseqAnswer)) {
	if s.stopped() {
		return
	}
	key.SeqIDType = model.SeqIDTypeUnknown
	s.queryBioseq(key, func(recs []model.BioseqRecord, err *errors.Error) {
		if err != nil {
			cont(bioseqAnswer{err: err})
			return
		}
		cont(pick(cache.KeepINSDC(recs, anyType), key.Version))
	})
}

func pick(recs []model.BioseqRecord, version int16) bioseqAnswer {
	switch len(recs) {
	case 0:
		return bioseqAnswer{}
	case 1:
		return bioseqAnswer{found: true, record: recs[0]}
	}
	d := selection.DecideINSDC(recs, version)
	if d.Err != nil {
		return bioseqAnswer{err: d.Err}
	}
	return bioseqAnswer{found: true, record: recs[d.Index]}
}

// lookupSi2csi runs the secondary cascade. Several different mappings in
// storage are an ambiguity; in the cache they defer to storage.
func (s *run) lookupSi2csi(key model.Si2csiKey, cont func(si2csiAnswer)) {
	s.tried[key] = true

	if s.usesCache() {
		s.queries++
		res := s.r.lookup.LookupSecondary(s.ctx, key)
		s.r.metrics.RecordCacheLookup("si2csi", res.Outcome.String())
		switch res.Outcome {
		case cache.Hit:
			cont(si2csiAnswer{found: true, fromCache: true, record: res.Record})
			return
		case cache.Failure:
			if !s.usesStorage() {
				cont(si2csiAnswer{err: res.Err})
				return
			}
		}
		if res.Ambiguous && !s.usesStorage() {
			cont(si2csiAnswer{err: errors.Ambiguous(fmt.Sprintf("si2csi has several mappings for %q", key.SecSeqID))})
			return
		}
	}
	if !s.usesStorage() {
		cont(si2csiAnswer{})
		return
	}

	s.queries++
	var task *fetch.FetchTask[[]model.Si2csiRecord]
	task = fetch.New("si2csi",
		func(ctx context.Context) ([]model.Si2csiRecord, error) {
			return s.r.store.QuerySi2csi(ctx, key)
		},
		func(recs []model.Si2csiRecord) {
			s.base.Finish(task.ID())
			s.r.metrics.RecordStorageQuery("si2csi", "ok")
			recs = cache.DedupSi2csi(recs)
			switch len(recs) {
			case 0:
				cont(si2csiAnswer{})
			case 1:
				cont(si2csiAnswer{found: true, record: recs[0]})
			default:
				cont(si2csiAnswer{err: errors.Ambiguous(
					fmt.Sprintf("si2csi has %d different mappings for %q", len(recs), key.SecSeqID))})
			}
		},
		s.base.ErrorHandler(func(err *errors.Error) {
			s.base.Finish(task.ID())
			s.r.metrics.RecordStorageQuery("si2csi", err.Kind.String())
			cont(si2csiAnswer{err: err})
		}),
	)
	s.startTask(task, func(err *errors.Error) { cont(si2csiAnswer{err: err}) })
}

// queryBioseq issues one bioseq_info storage query
func (s *run) queryBioseq(key model.BioseqKey, cont func([]model.BioseqRecord, *errors.Error)) {
	s.queries++
	var task *fetch.FetchTask[[]model.BioseqRecord]
	task = fetch.New("bioseq_info",
		func(ctx context.Context) ([]model.BioseqRecord, error) {
			return s.r.store.QueryBioseqInfo(ctx, key)
		},
		func(recs []model.BioseqRecord) {
			s.base.Finish(task.ID())
			s.r.metrics.RecordStorageQuery("bioseq_info", "ok")
			cont(recs, nil)
		},
		s.base.ErrorHandler(func(err *errors.Error) {
			s.base.Finish(task.ID())
			s.r.metrics.RecordStorageQuery("bioseq_info", err.Kind.String())
			cont(nil, err)
		}),
	)
	s.startTask(task, func(err *errors.Error) { cont(nil, err) })
}

type startable interface {
	fetch.Task
	Start(context.Context, *workerpool.Pool) error
}

func (s *run) startTask(task startable, onSubmitErr func(*errors.Error)) {
	s.base.Add(task)
	if s.base.IsCanceled() {
		s.base.Finish(task.ID())
		s.unlock()
		return
	}
	if err := task.Start(s.ctx, s.r.pool); err != nil {
		s.base.Finish(task.ID())
		e := errors.From(err)
		s.base.ReportStatus(e.Status)
		onSubmitErr(e)
	}
}

func primaryKind(fromCache bool) ResultKind {
	if fromCache {
		return FoundInPrimaryCache
	}
	return FoundInPrimaryStorage
}

func secondaryKind(fromCache bool) ResultKind {
	if fromCache {
		return FoundInSecondaryCache
	}
	return FoundInSecondaryStorage
}
