package resolve

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/model"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/selection"
)

// AdjustAccession normalizes the resolved record's primary accession.
// The first call decides and the result is memoized; later calls return it
// unchanged.
func (o *Outcome) AdjustAccession(fields model.IncludeFlags, sub model.AccSubstitution) AdjustmentOutcome {
	if o.Adjustment.Tried {
		return o.Adjustment.Outcome
	}
	o.Adjustment.Tried = true
	o.Adjustment.Outcome, o.Adjustment.Err = o.adjust(fields, sub)
	return o.Adjustment.Outcome
}

func (o *Outcome) adjust(fields model.IncludeFlags, sub model.AccSubstitution) (AdjustmentOutcome, string) {
	rec := &o.Record

	switch {
	case !o.Result.IsFound():
		return AdjustmentLogicError, "accession adjustment requested for an unresolved seq_id"
	case selection.CanSkipFullRecordRetrieval(fields, *rec):
		return AdjustmentNotRequired, ""
	case sub == model.AccSubstitutionNever:
		return AdjustmentNotRequired, ""
	case rec.Version == 0 && versionlessType(rec.SeqIDType) && sub == model.AccSubstitutionDefault:
		return AdjustmentNotRequired, ""
	case sub == model.AccSubstitutionLimited && rec.SeqIDType != model.SeqIDTypeGI:
		return AdjustmentNotRequired, ""
	}

	for i, id := range rec.SeqIDs {
		if id.Type == model.SeqIDTypeGI {
			substitute(rec, i)
			return AdjustedWithGI, ""
		}
	}
	if len(rec.SeqIDs) > 0 {
		substitute(rec, 0)
		return AdjustedWithAny, ""
	}
	return AdjustmentSeqIDsEmpty, fmt.Sprintf(
		"bioseq_info record %s.%d has no seq_ids to substitute its accession",
		rec.Accession, rec.Version)
}

// versionlessType lists types whose accessions legitimately have version 0
func versionlessType(t model.SeqIDType) bool {
	return t == model.SeqIDTypePDB || t == model.SeqIDTypePIR || t == model.SeqIDTypePRF
}

// substitute promotes SeqIDs[i] to the primary accession. The displaced
// primary goes back to SeqIDs unless it was a GI.
func substitute(rec *model.BioseqRecord, i int) {
	promoted := rec.SeqIDs[i]
	rest := make([]model.SeqIDEntry, 0, len(rec.SeqIDs))
	rest = append(rest, rec.SeqIDs[:i]...)
	rest = append(rest, rec.SeqIDs[i+1:]...)

	if rec.SeqIDType != model.SeqIDTypeGI {
		displaced := rec.Accession
		if rec.Version > 0 {
			displaced = fmt.Sprintf("%s.%d", rec.Accession, rec.Version)
		}
		rest = append(rest, model.SeqIDEntry{Type: rec.SeqIDType, Value: displaced})
	}

	rec.Accession, rec.Version = splitVersion(promoted.Value)
	rec.SeqIDType = promoted.Type
	rec.SeqIDs = rest
}

// splitVersion splits "ACC.VER"; values without a numeric suffix get version 0
func splitVersion(value string) (string, int16) {
	i := strings.LastIndexByte(value, '.')
	if i <= 0 {
		return value, 0
	}
	v, err := strconv.ParseInt(value[i+1:], 10, 16)
	if err != nil || v < 0 {
		return value, 0
	}
	return value[:i], int16(v)
}
