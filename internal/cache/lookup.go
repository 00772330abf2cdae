package cache

import (
	"context"

	"go.uber.org/zap"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/errors"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/model"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/selection"
)

// Outcome of one cache lookup
type Outcome int

const (
	Miss Outcome = iota
	Hit
	Failure
)

func (o Outcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case Failure:
		return "failure"
	default:
		return "miss"
	}
}

// BioseqResult is the answer of LookupPrimary
type BioseqResult struct {
	Outcome Outcome
	Record  model.BioseqRecord
	Err     *errors.Error // set on Failure
}

// Si2csiResult is the answer of LookupSecondary. Ambiguous is set when the
// index holds several different mappings for the id.
type Si2csiResult struct {
	Outcome   Outcome
	Record    model.Si2csiRecord
	Ambiguous bool
	Err       *errors.Error
}

// Lookup is the read-through cascade over a cache tier
type Lookup struct {
	tier   Tier
	logger *zap.Logger
}

// NewLookup creates a cascade over tier
func NewLookup(tier Tier, logger *zap.Logger) *Lookup {
	return &Lookup{tier: tier, logger: logger}
}

// LookupPrimary looks up a bioseq_info record by its key fields.
// Several hits with a requested version are a miss so storage decides;
// without a version the highest version wins and a tie is a miss.
func (l *Lookup) LookupPrimary(ctx context.Context, key model.BioseqKey) BioseqResult {
	return l.lookupPrimary(ctx, key, false)
}

// LookupGuessed is LookupPrimary for a key whose type was inferred from the
// accession shape: when no INSDC record matches, a record of any type does.
func (l *Lookup) LookupGuessed(ctx context.Context, key model.BioseqKey) BioseqResult {
	return l.lookupPrimary(ctx, key, true)
}

func (l *Lookup) lookupPrimary(ctx context.Context, key model.BioseqKey, anyType bool) BioseqResult {
	recs, err := l.tier.FetchBioseqInfo(ctx, key)
	if err != nil {
		return l.failure("fetch bioseq_info", key.Accession, err)
	}

	if len(recs) == 0 && key.SeqIDType.IsINSDC() {
		return l.lookupAnyINSDC(ctx, key, anyType)
	}

	switch {
	case len(recs) == 0:
		return BioseqResult{Outcome: Miss}
	case len(recs) == 1:
		return BioseqResult{Outcome: Hit, Record: recs[0]}
	case key.Version != model.VersionUnknown:
		l.logger.Debug("Ambiguous versioned cache hit",
			zap.String("accession", key.Accession),
			zap.Int16("version", key.Version),
			zap.Int("records", len(recs)))
		return BioseqResult{Outcome: Miss}
	}

	d := selection.DecideINSDC(recs, model.VersionUnknown)
	if !d.OK() {
		return BioseqResult{Outcome: Miss}
	}
	return BioseqResult{Outcome: Hit, Record: recs[d.Index]}
}

// lookupAnyINSDC retries with the type left out: the same accession may be
// stored under any INSDC member type.
func (l *Lookup) lookupAnyINSDC(ctx context.Context, key model.BioseqKey, anyType bool) BioseqResult {
	key.SeqIDType = model.SeqIDTypeUnknown
	recs, err := l.tier.FetchBioseqInfo(ctx, key)
	if err != nil {
		return l.failure("fetch bioseq_info", key.Accession, err)
	}

	insdc := KeepINSDC(recs, anyType)
	if len(insdc) == 0 {
		return BioseqResult{Outcome: Miss}
	}
	d := selection.DecideINSDC(insdc, key.Version)
	if !d.OK() {
		return BioseqResult{Outcome: Miss}
	}
	return BioseqResult{Outcome: Hit, Record: insdc[d.Index]}
}

// KeepINSDC filters recs down to INSDC records. With anyType set and no
// INSDC record present, every record is kept.
func KeepINSDC(recs []model.BioseqRecord, anyType bool) []model.BioseqRecord {
	insdc := recs[:0:0]
	for _, rec := range recs {
		if rec.SeqIDType.IsINSDC() {
			insdc = append(insdc, rec)
		}
	}
	if len(insdc) == 0 && anyType {
		return recs
	}
	return insdc
}

// LookupSecondary looks up the si2csi index
func (l *Lookup) LookupSecondary(ctx context.Context, key model.Si2csiKey) Si2csiResult {
	recs, err := l.tier.FetchSi2csi(ctx, key)
	if err != nil {
		r := l.failure("fetch si2csi", key.SecSeqID, err)
		return Si2csiResult{Outcome: Failure, Err: r.Err}
	}

	recs = DedupSi2csi(recs)
	switch len(recs) {
	case 0:
		return Si2csiResult{Outcome: Miss}
	case 1:
		return Si2csiResult{Outcome: Hit, Record: recs[0]}
	default:
		return Si2csiResult{Outcome: Miss, Ambiguous: true}
	}
}

func (l *Lookup) failure(op, id string, err error) BioseqResult {
	l.logger.Warn("Cache lookup failed",
		zap.String("operation", op),
		zap.String("seq_id", id),
		zap.Error(err))
	return BioseqResult{Outcome: Failure, Err: errors.CacheFailed(op, err)}
}

// DedupSi2csi drops exact duplicates, keeping first occurrences in order
func DedupSi2csi(recs []model.Si2csiRecord) []model.Si2csiRecord {
	if len(recs) < 2 {
		return recs
	}
	out := make([]model.Si2csiRecord, 0, len(recs))
	seen := make(map[model.Si2csiRecord]struct{}, len(recs))
	for _, rec := range recs {
		if _, ok := seen[rec]; ok {
			continue
		}
		seen[rec] = struct{}{}
		out = append(out, rec)
	}
	return out
}

// LookupExact fetches by a fully specified key without retries or
// selection. It reports Hit only for exactly one record; n is the number
// of records found so callers can tell zero from several.
func (l *Lookup) LookupExact(ctx context.Context, key model.BioseqKey) (res BioseqResult, n int) {
	recs, err := l.tier.FetchBioseqInfo(ctx, key)
	if err != nil {
		return l.failure("fetch bioseq_info", key.Accession, err), 0
	}
	if len(recs) == 1 {
		return BioseqResult{Outcome: Hit, Record: recs[0]}, 1
	}
	return BioseqResult{Outcome: Miss}, len(recs)
}
