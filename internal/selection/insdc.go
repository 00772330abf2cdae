// Package selection picks one bioseq record out of several returned by a tier.
package selection

import (
	"fmt"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/errors"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/model"
)

// Decision is the result of choosing among INSDC records
type Decision struct {
	Index int
	Err   *errors.Error
}

// OK reports whether a record was picked
func (d Decision) OK() bool {
	return d.Err == nil && d.Index >= 0
}

// DecideINSDC picks one record for the requested version.
//
// With a version: exactly one record carrying it wins; two or more is an
// ambiguity naming both; none is not found. Without a version the highest
// version wins, and a tie at the maximum is an ambiguity.
func DecideINSDC(records []model.BioseqRecord, version int16) Decision {
	if len(records) == 0 {
		return Decision{Index: -1, Err: errors.NotFound("no bioseq_info records")}
	}
	if version != model.VersionUnknown {
		return decideVersion(records, version)
	}
	return decideLatest(records)
}

func decideVersion(records []model.BioseqRecord, version int16) Decision {
	found := -1
	for i, rec := range records {
		if rec.Version != version {
			continue
		}
		if found >= 0 {
			return Decision{Index: -1, Err: duplicate("duplicate version", records[found], rec)}
		}
		found = i
	}
	if found < 0 {
		return Decision{Index: -1, Err: errors.NotFound(
			fmt.Sprintf("no bioseq_info record with version %d", version))}
	}
	return Decision{Index: found}
}

func decideLatest(records []model.BioseqRecord) Decision {
	best := 0
	conflict := -1
	for i := 1; i < len(records); i++ {
		switch {
		case records[i].Version > records[best].Version:
			best = i
			conflict = -1
		case records[i].Version == records[best].Version:
			if conflict < 0 {
				conflict = i
			}
		}
	}
	if conflict >= 0 {
		return Decision{Index: best, Err: duplicate("duplicate max version", records[best], records[conflict])}
	}
	return Decision{Index: best}
}

func duplicate(what string, a, b model.BioseqRecord) *errors.Error {
	return errors.Ambiguous(fmt.Sprintf("%s: %s and %s", what, describe(a), describe(b))).
		WithDetail("version", a.Version)
}

func describe(r model.BioseqRecord) string {
	return fmt.Sprintf("%s.%d (type %s, gi %d)", r.Accession, r.Version, r.SeqIDType, r.GI)
}
