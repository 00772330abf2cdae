// Package blob retrieves the blob of a resolved sequence, at most once per
// client at a time.
package blob

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/errors"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/exclude"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/fetch"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/metrics"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/model"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/processor"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/storage"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/util/workerpool"
)

// Result of one blob retrieval. Excluded results carry no payload: the
// client already has the blob or is receiving it on another request.
type Result struct {
	BlobID   model.BlobID
	Props    model.BlobProps
	Chunks   []model.BlobChunk
	Excluded bool
	Claim    exclude.Result
}

// Size returns the payload length
func (r Result) Size() int {
	n := 0
	for _, c := range r.Chunks {
		n += len(c.Data)
	}
	return n
}

// Fetcher runs blob retrievals against storage
type Fetcher struct {
	store   storage.Store
	pool    *workerpool.Pool
	exclude *exclude.Cache
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewFetcher creates a blob fetcher. ex may be nil to disable deduplication.
func NewFetcher(
	store storage.Store,
	pool *workerpool.Pool,
	ex *exclude.Cache,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Fetcher {
	return &Fetcher{
		store:   store,
		pool:    pool,
		exclude: ex,
		metrics: m,
		logger:  logger,
	}
}

// Fetch retrieves the props and chunks of id for clientID. Exactly one of
// onDone or onError is called unless base is canceled first. The exclude
// slot is owned by the props task: it is marked completed on success and
// removed when base.ReleaseAll destroys the task, on every path.
func (f *Fetcher) Fetch(
	ctx context.Context,
	clientID string,
	id model.BlobID,
	base *processor.Base,
	onDone func(Result),
	onError func(*errors.Error),
) {
	logger := base.Logger().With(zap.String("client_id", clientID), zap.Stringer("blob_id", id))

	fail := func(err *errors.Error) {
		base.ReportStatus(err.Status)
		base.MarkComplete()
		f.metrics.RecordBlob(err.Kind.String())
		onError(err)
	}

	if !id.IsValid() {
		fail(errors.InvalidArgument(fmt.Sprintf("invalid blob id %s", id)))
		return
	}

	if f.exclude != nil && clientID != "" {
		claim := f.exclude.AddIfAbsent(clientID, id)
		f.metrics.RecordExcludeClaim(claim.String())
		if claim != exclude.Added {
			logger.Debug("Blob excluded", zap.Stringer("claim", claim))
			base.MarkComplete()
			f.metrics.RecordBlob("excluded")
			onDone(Result{BlobID: id, Excluded: true, Claim: claim})
			return
		}
	}

	var props *fetch.FetchTask[[]model.BlobProps]
	finish := func(res Result) {
		if f.exclude != nil && clientID != "" {
			f.exclude.MarkCompleted(clientID, id)
		}
		base.Finish(props.ID())
		base.MarkComplete()
		f.metrics.RecordBlob("ok")
		logger.Debug("Blob sent", zap.Int32("chunks", res.Props.NChunks), zap.Int("bytes", res.Size()))
		onDone(res)
	}
	abort := func(err *errors.Error) {
		base.Finish(props.ID())
		fail(err)
	}

	props = fetch.New("blob_props",
		func(ctx context.Context) ([]model.BlobProps, error) {
			return f.store.QueryBlobProps(ctx, id)
		},
		func(all []model.BlobProps) {
			if base.IsCanceled() {
				return
			}
			if len(all) == 0 {
				abort(errors.NotFound(fmt.Sprintf("blob %s not found", id)))
				return
			}
			f.fetchChunks(ctx, id, all[0], base, finish, abort)
		},
		base.ErrorHandler(abort),
	)
	props.OnRelease(func() {
		if f.exclude != nil && clientID != "" {
			f.exclude.Remove(clientID, id)
		}
	})

	base.Add(props)
	if base.IsCanceled() {
		base.Finish(props.ID())
		return
	}
	if err := props.Start(ctx, f.pool); err != nil {
		abort(errors.From(err))
	}
}

func (f *Fetcher) fetchChunks(
	ctx context.Context,
	id model.BlobID,
	props model.BlobProps,
	base *processor.Base,
	finish func(Result),
	abort func(*errors.Error),
) {
	var chunks *fetch.FetchTask[[]model.BlobChunk]
	chunks = fetch.New("blob_chunks",
		func(ctx context.Context) ([]model.BlobChunk, error) {
			return f.store.QueryBlobChunks(ctx, id, props.NChunks)
		},
		func(got []model.BlobChunk) {
			base.Finish(chunks.ID())
			if base.IsCanceled() {
				return
			}
			if int32(len(got)) != props.NChunks {
				abort(errors.DataInconsistency(fmt.Sprintf(
					"blob %s has %d chunks, props announce %d", id, len(got), props.NChunks)))
				return
			}
			for i, c := range got {
				if c.Index != int32(i) {
					abort(errors.DataInconsistency(fmt.Sprintf("blob %s is missing chunk %d", id, i)))
					return
				}
			}
			finish(Result{BlobID: id, Props: props, Chunks: got})
		},
		base.ErrorHandler(func(err *errors.Error) {
			base.Finish(chunks.ID())
			abort(err)
		}),
	)

	base.Add(chunks)
	if base.IsCanceled() {
		base.Finish(chunks.ID())
		return
	}
	if err := chunks.Start(ctx, f.pool); err != nil {
		base.Finish(chunks.ID())
		abort(errors.From(err))
	}
}
