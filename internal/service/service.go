// Package service admits client requests and runs their processors.
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/blob"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/errors"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/metrics"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/model"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/processor"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/resolve"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/seqid"
)

// Processor names, highest priority first
const (
	ProcessorResolve        = "resolve"
	ProcessorResolveCache   = "resolve_cache"
	ProcessorResolveStorage = "resolve_storage"
	ProcessorBlob           = "blob"
)

// Processors lists the processor names in registry slot order
func Processors() []string {
	return []string{ProcessorResolve, ProcessorResolveCache, ProcessorResolveStorage, ProcessorBlob}
}

// Config holds gateway service settings
type Config struct {
	MaxActivePerType int
	RaceTiers        bool
	RequestTimeout   time.Duration
}

// ResolveRequest is a client resolve request
type ResolveRequest struct {
	Candidates      []model.CandidateID
	Fields          model.IncludeFlags
	AccSubstitution model.AccSubstitution
	CachePolicy     model.CachePolicy
}

// BlobRequest asks for the blob of a sequence on behalf of a client
type BlobRequest struct {
	Resolve  ResolveRequest
	ClientID string
}

// BlobResponse carries the resolved record (when resolved) and the blob
type BlobResponse struct {
	Outcome *resolve.Outcome
	Blob    blob.Result
}

// GatewayService serves resolve and blob requests
type GatewayService struct {
	resolver  *resolve.Resolver
	blobs     *blob.Fetcher
	registry  *processor.Registry
	admission map[processor.RequestType]*semaphore.Weighted
	metrics   *metrics.Metrics
	config    Config
	logger    *zap.Logger
}

// NewGatewayService creates the service. registry must be created with
// Processors().
func NewGatewayService(
	resolver *resolve.Resolver,
	blobs *blob.Fetcher,
	registry *processor.Registry,
	m *metrics.Metrics,
	cfg Config,
	logger *zap.Logger,
) *GatewayService {
	if cfg.MaxActivePerType <= 0 {
		cfg.MaxActivePerType = 256
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	admission := make(map[processor.RequestType]*semaphore.Weighted)
	for _, t := range processor.RequestTypes() {
		admission[t] = semaphore.NewWeighted(int64(cfg.MaxActivePerType))
	}

	return &GatewayService{
		resolver:  resolver,
		blobs:     blobs,
		registry:  registry,
		admission: admission,
		metrics:   m,
		config:    cfg,
		logger:    logger,
	}
}

// Registry returns the active/backlog counters
func (s *GatewayService) Registry() *processor.Registry {
	return s.registry
}

// admit waits for a processor slot of the request type, counting the
// request in the backlog while it waits
func (s *GatewayService) admit(ctx context.Context, t processor.RequestType) (func(), error) {
	sem, ok := s.admission[t]
	if !ok {
		return nil, errors.Logic(fmt.Sprintf("unhandled request type %s", t))
	}

	if sem.TryAcquire(1) {
		return func() { sem.Release(1) }, nil
	}

	if err := s.registry.IncBacklog(t); err != nil {
		return nil, err
	}
	err := sem.Acquire(ctx, 1)
	if decErr := s.registry.DecBacklog(t); decErr != nil {
		s.logger.Error("Logic error", zap.Error(decErr))
	}
	if err != nil {
		return nil, errors.From(err)
	}
	return func() { sem.Release(1) }, nil
}

// Resolve resolves the request's candidates to a bioseq record
func (s *GatewayService) Resolve(ctx context.Context, req *ResolveRequest) (*resolve.Outcome, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	outcome, err := s.resolveRequest(ctx, processor.RequestResolve, req)
	s.record(processor.RequestResolve, start, err)
	return outcome, err
}

func (s *GatewayService) resolveRequest(ctx context.Context, t processor.RequestType, req *ResolveRequest) (*resolve.Outcome, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	release, err := s.admit(ctx, t)
	if err != nil {
		return nil, err
	}
	defer release()

	return s.resolveAdmitted(ctx, t, req)
}

func (s *GatewayService) resolveAdmitted(ctx context.Context, t processor.RequestType, req *ResolveRequest) (*resolve.Outcome, error) {
	if s.config.RaceTiers && req.CachePolicy == model.CacheAndDB {
		return s.race(ctx, t, req)
	}
	return s.single(ctx, t, req)
}

// GetBlobBySeqID resolves the sequence and retrieves its blob
func (s *GatewayService) GetBlobBySeqID(ctx context.Context, req *BlobRequest) (*BlobResponse, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	resp, err := s.blobBySeqID(ctx, req)
	s.record(processor.RequestBlobBySeqID, start, err)
	return resp, err
}

func (s *GatewayService) blobBySeqID(ctx context.Context, req *BlobRequest) (*BlobResponse, error) {
	t := processor.RequestBlobBySeqID
	resolveReq := req.Resolve
	if err := validate(&resolveReq); err != nil {
		return nil, err
	}
	resolveReq.Fields |= model.IncludeBlobID | model.IncludeCanonicalID | model.IncludeSeqIDs

	release, err := s.admit(ctx, t)
	if err != nil {
		return nil, err
	}
	defer release()

	outcome, err := s.resolveAdmitted(ctx, t, &resolveReq)
	if err != nil {
		return nil, err
	}
	res, err := s.fetchBlob(ctx, t, req.ClientID, outcome.Record.BlobID())
	if err != nil {
		return nil, err
	}
	return &BlobResponse{Outcome: outcome, Blob: res}, nil
}

// GetBlobByID retrieves a blob addressed by sat and sat_key
func (s *GatewayService) GetBlobByID(ctx context.Context, clientID string, id model.BlobID) (*BlobResponse, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	resp, err := s.blobByID(ctx, clientID, id)
	s.record(processor.RequestBlobByID, start, err)
	return resp, err
}

func (s *GatewayService) blobByID(ctx context.Context, clientID string, id model.BlobID) (*BlobResponse, error) {
	release, err := s.admit(ctx, processor.RequestBlobByID)
	if err != nil {
		return nil, err
	}
	defer release()

	res, err := s.fetchBlob(ctx, processor.RequestBlobByID, clientID, id)
	if err != nil {
		return nil, err
	}
	return &BlobResponse{Blob: res}, nil
}

func (s *GatewayService) fetchBlob(ctx context.Context, t processor.RequestType, clientID string, id model.BlobID) (blob.Result, error) {
	done := s.activate(t, ProcessorBlob)
	defer done()

	base := processor.NewBase(ProcessorBlob, slotOf(ProcessorBlob), s.logger)
	defer base.ReleaseAll()

	type answer struct {
		res blob.Result
		err *errors.Error
	}
	ch := make(chan answer, 1)
	s.blobs.Fetch(ctx, clientID, id, base,
		func(r blob.Result) { ch <- answer{res: r} },
		func(err *errors.Error) { ch <- answer{err: err} })

	select {
	case a := <-ch:
		if a.err != nil {
			return blob.Result{}, a.err
		}
		return a.res, nil
	case <-ctx.Done():
		base.Cancel()
		return blob.Result{}, errors.From(ctx.Err())
	}
}

// activate counts one running processor until the returned func is called
func (s *GatewayService) activate(t processor.RequestType, name string) func() {
	slot, err := s.registry.Slot(name)
	if err == nil {
		err = s.registry.IncActive(t, slot)
	}
	if err != nil {
		s.logger.Error("Logic error", zap.Error(err))
		return func() {}
	}
	return func() {
		if err := s.registry.DecActive(t, slot); err != nil {
			s.logger.Error("Logic error", zap.Error(err))
		}
	}
}

func (s *GatewayService) record(t processor.RequestType, start time.Time, err error) {
	status := errors.StatusOf(err)
	s.metrics.RecordRequest(t.String(), fmt.Sprint(status), time.Since(start).Seconds())
	if errors.IsHardError(err) {
		s.metrics.RecordError(t.String(), errors.KindOf(err).String())
	}
}

func validate(req *ResolveRequest) error {
	if len(req.Candidates) == 0 {
		return errors.InvalidArgument("at least one seq_id is required")
	}
	for _, c := range req.Candidates {
		if c.Text == "" {
			return errors.InvalidArgument("seq_id must not be empty")
		}
	}
	if req.Fields == 0 {
		req.Fields = model.IncludeAllFields
	}
	req.Candidates = seqid.SortCandidates(req.Candidates)
	return nil
}

func slotOf(name string) int {
	for i, p := range Processors() {
		if p == name {
			return i
		}
	}
	return -1
}
