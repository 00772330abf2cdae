package model

import "fmt"

// BlobID is the storage-tier key of a blob: the satellite and the key within it
type BlobID struct {
	Sat    int32 `json:"sat" yaml:"sat"`
	SatKey int32 `json:"sat_key" yaml:"sat_key"`
}

// String formats the id as "sat.sat_key"
func (b BlobID) String() string {
	return fmt.Sprintf("%d.%d", b.Sat, b.SatKey)
}

// IsValid reports whether the id addresses a real blob
func (b BlobID) IsValid() bool {
	return b.Sat >= 0 && b.SatKey > 0
}

// BlobProps describes a stored blob
type BlobProps struct {
	BlobID       BlobID `json:"blob_id" yaml:"blob_id"`
	LastModified int64  `json:"last_modified" yaml:"last_modified"`
	Size         int64  `json:"size" yaml:"size"`
	NChunks      int32  `json:"n_chunks" yaml:"n_chunks"`
	Flags        int64  `json:"flags" yaml:"flags"`
}

// BlobChunk is one piece of a blob payload
type BlobChunk struct {
	BlobID BlobID `json:"blob_id" yaml:"blob_id"`
	Index  int32  `json:"index" yaml:"index"`
	Data   []byte `json:"data" yaml:"data"`
}
