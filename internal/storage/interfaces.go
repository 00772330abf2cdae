// Package storage is the remote storage tier queried when the cache misses.
package storage

import (
	"context"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/model"
)

// Store is the query contract of the remote storage driver. Calls are
// synchronous; fetch tasks run them off the caller's goroutine.
type Store interface {
	QueryBioseqInfo(ctx context.Context, key model.BioseqKey) ([]model.BioseqRecord, error)
	QuerySi2csi(ctx context.Context, key model.Si2csiKey) ([]model.Si2csiRecord, error)
	QueryBlobProps(ctx context.Context, id model.BlobID) ([]model.BlobProps, error)
	QueryBlobChunks(ctx context.Context, id model.BlobID, nChunks int32) ([]model.BlobChunk, error)
	Ping(ctx context.Context) error
	Close()
}
