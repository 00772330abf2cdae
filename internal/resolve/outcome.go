package resolve

import (
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/errors"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/model"
)

// ResultKind says where a resolution found its record
type ResultKind int

const (
	NotResolved ResultKind = iota
	FoundInSecondaryCache
	FoundInSecondaryStorage
	FoundInPrimaryCache
	FoundInPrimaryStorage
)

func (k ResultKind) String() string {
	switch k {
	case FoundInSecondaryCache:
		return "found_in_secondary_cache"
	case FoundInSecondaryStorage:
		return "found_in_secondary_storage"
	case FoundInPrimaryCache:
		return "found_in_primary_cache"
	case FoundInPrimaryStorage:
		return "found_in_primary_storage"
	default:
		return "not_resolved"
	}
}

// IsFound reports whether the kind is terminal
func (k ResultKind) IsFound() bool {
	return k != NotResolved
}

// AdjustmentOutcome is the result of the accession adjustment
type AdjustmentOutcome int

const (
	AdjustmentNotTried AdjustmentOutcome = iota
	AdjustmentNotRequired
	AdjustedWithGI
	AdjustedWithAny
	AdjustmentSeqIDsEmpty
	AdjustmentLogicError
)

func (a AdjustmentOutcome) String() string {
	switch a {
	case AdjustmentNotRequired:
		return "not_required"
	case AdjustedWithGI:
		return "adjusted_with_gi"
	case AdjustedWithAny:
		return "adjusted_with_any"
	case AdjustmentSeqIDsEmpty:
		return "seq_ids_empty"
	case AdjustmentLogicError:
		return "logic_error"
	default:
		return "not_tried"
	}
}

// Failed reports whether the adjustment left the record unusable
func (a AdjustmentOutcome) Failed() bool {
	return a == AdjustmentSeqIDsEmpty || a == AdjustmentLogicError
}

// Adjustment is the memoized accession adjustment state
type Adjustment struct {
	Tried   bool
	Outcome AdjustmentOutcome
	Err     string
}

// Outcome is the result of resolving one candidate. Primary kinds come from
// a bioseq_info lookup of the id itself, secondary kinds from the si2csi
// index; the tier is the one that supplied Record. Partial is set when
// Record only carries the key fields of a secondary hit.
type Outcome struct {
	Result     ResultKind
	Record     model.BioseqRecord
	Partial    bool
	QueryCount int
	SeqID      model.CandidateID // the candidate that produced Result
	Err        *errors.Error
	Adjustment Adjustment
}

// setFound moves the outcome to a terminal result; it never moves back
func (o *Outcome) setFound(kind ResultKind, rec model.BioseqRecord) error {
	if o.Result.IsFound() {
		return errors.Logic("resolution result set twice: " + o.Result.String() + " then " + kind.String())
	}
	o.Result = kind
	o.Record = rec.Clone()
	return nil
}

// LoggingHint tells the error callback how loudly to log
type LoggingHint int

const (
	LogAsError LoggingHint = iota
	LogAsNotFound
)
