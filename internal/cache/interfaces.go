// Package cache is the local cache tier consulted before remote storage.
package cache

import (
	"context"
	"encoding/binary"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/model"
)

// Tier is a synchronous key-value cache of bioseq_info and si2csi records.
// Fetch returns every record matching the specified key fields; an error
// means the backend itself failed, not a miss.
type Tier interface {
	FetchBioseqInfo(ctx context.Context, key model.BioseqKey) ([]model.BioseqRecord, error)
	FetchSi2csi(ctx context.Context, key model.Si2csiKey) ([]model.Si2csiRecord, error)
	PutBioseqInfo(ctx context.Context, rec model.BioseqRecord) error
	PutSi2csi(ctx context.Context, rec model.Si2csiRecord) error
	Ping(ctx context.Context) error
	Close() error
}

// Key layout shared by the byte-oriented tiers: the lookup field, a zero
// separator, then fixed width big-endian key fields so a prefix scan on the
// lookup field finds every version.

func bioseqPrefix(accession string) []byte {
	return append([]byte(accession), 0)
}

func bioseqKey(rec model.BioseqRecord) []byte {
	k := bioseqPrefix(rec.Accession)
	k = binary.BigEndian.AppendUint16(k, uint16(rec.Version))
	k = binary.BigEndian.AppendUint16(k, uint16(rec.SeqIDType))
	return binary.BigEndian.AppendUint64(k, uint64(rec.GI))
}

func si2csiPrefix(secSeqID string) []byte {
	return append([]byte(secSeqID), 0)
}

func si2csiKey(rec model.Si2csiRecord) []byte {
	k := si2csiPrefix(rec.SecSeqID)
	k = binary.BigEndian.AppendUint16(k, uint16(rec.SecSeqIDType))
	k = append(k, rec.Accession...)
	k = append(k, 0)
	k = binary.BigEndian.AppendUint16(k, uint16(rec.Version))
	k = binary.BigEndian.AppendUint16(k, uint16(rec.SeqIDType))
	return binary.BigEndian.AppendUint64(k, uint64(rec.GI))
}
