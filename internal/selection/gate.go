package selection

import "github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/model"

// CanSkipFullRecordRetrieval reports whether the key fields of a secondary
// index hit already answer every field the caller asked for.
func CanSkipFullRecordRetrieval(fields model.IncludeFlags, rec model.BioseqRecord) bool {
	if fields.OnlyWithin(model.IncludeCanonicalID) {
		return true
	}
	if rec.Version > 0 && rec.SeqIDType != model.SeqIDTypeGI &&
		fields.OnlyWithin(model.IncludeCanonicalID|model.IncludeGI) {
		return true
	}
	return fields.OnlyWithin(model.IncludeGI)
}
