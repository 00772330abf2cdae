package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/model"
)

func found(rec model.BioseqRecord) *Outcome {
	return &Outcome{Result: FoundInPrimaryStorage, Record: rec}
}

func TestAdjustAccession(t *testing.T) {
	pdb := model.BioseqRecord{Accession: "1ABC_A", Version: 0, SeqIDType: model.SeqIDTypePDB,
		SeqIDs: []model.SeqIDEntry{{Type: model.SeqIDTypeGI, Value: "555"}}}
	genbank := model.BioseqRecord{Accession: "AB123456", Version: 1, SeqIDType: model.SeqIDTypeGenbank,
		SeqIDs: []model.SeqIDEntry{{Type: model.SeqIDTypeEMBL, Value: "X1"}, {Type: model.SeqIDTypeGI, Value: "12345"}}}
	giOnly := model.BioseqRecord{Accession: "12345", Version: 0, SeqIDType: model.SeqIDTypeGI,
		SeqIDs: []model.SeqIDEntry{{Type: model.SeqIDTypeOther, Value: "NM_000001.1"}}}
	bare := model.BioseqRecord{Accession: "12345", Version: 0, SeqIDType: model.SeqIDTypeGI}

	tests := []struct {
		name    string
		outcome *Outcome
		fields  model.IncludeFlags
		sub     model.AccSubstitution
		want    AdjustmentOutcome
	}{
		{"unresolved", &Outcome{Record: genbank}, model.IncludeAllFields, model.AccSubstitutionDefault, AdjustmentLogicError},
		{"skip gate", found(genbank), model.IncludeCanonicalID, model.AccSubstitutionDefault, AdjustmentNotRequired},
		{"never", found(genbank), model.IncludeAllFields, model.AccSubstitutionNever, AdjustmentNotRequired},
		{"versionless pdb", found(pdb), model.IncludeAllFields, model.AccSubstitutionDefault, AdjustmentNotRequired},
		{"limited non gi", found(genbank), model.IncludeAllFields, model.AccSubstitutionLimited, AdjustmentNotRequired},
		{"gi present", found(genbank), model.IncludeAllFields, model.AccSubstitutionDefault, AdjustedWithGI},
		{"limited gi record", found(giOnly), model.IncludeAllFields, model.AccSubstitutionLimited, AdjustedWithAny},
		{"pdb limited falls through", found(pdb), model.IncludeAllFields, model.AccSubstitutionLimited, AdjustmentNotRequired},
		{"empty seq_ids", found(bare), model.IncludeAllFields, model.AccSubstitutionDefault, AdjustmentSeqIDsEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.outcome.AdjustAccession(tt.fields, tt.sub))
			assert.True(t, tt.outcome.Adjustment.Tried)
			assert.Equal(t, tt.want.Failed(), tt.outcome.Adjustment.Err != "")
		})
	}
}

func TestAdjustAccession_SwapsGI(t *testing.T) {
	o := found(model.BioseqRecord{
		Accession: "AB123456", Version: 1, SeqIDType: model.SeqIDTypeGenbank,
		SeqIDs: []model.SeqIDEntry{{Type: model.SeqIDTypeEMBL, Value: "X1"}, {Type: model.SeqIDTypeGI, Value: "12345"}},
	})

	assert.Equal(t, AdjustedWithGI, o.AdjustAccession(model.IncludeAllFields, model.AccSubstitutionDefault))
	assert.Equal(t, "12345", o.Record.Accession)
	assert.Equal(t, int16(0), o.Record.Version)
	assert.Equal(t, model.SeqIDTypeGI, o.Record.SeqIDType)
	assert.Equal(t, []model.SeqIDEntry{
		{Type: model.SeqIDTypeEMBL, Value: "X1"},
		{Type: model.SeqIDTypeGenbank, Value: "AB123456.1"},
	}, o.Record.SeqIDs)
}

func TestAdjustAccession_GIRecordNotMovedBack(t *testing.T) {
	o := found(model.BioseqRecord{
		Accession: "12345", Version: 0, SeqIDType: model.SeqIDTypeGI,
		SeqIDs: []model.SeqIDEntry{{Type: model.SeqIDTypeOther, Value: "NM_000001.1"}},
	})

	assert.Equal(t, AdjustedWithAny, o.AdjustAccession(model.IncludeAllFields, model.AccSubstitutionDefault))
	assert.Equal(t, "NM_000001", o.Record.Accession)
	assert.Equal(t, int16(1), o.Record.Version)
	assert.Equal(t, model.SeqIDTypeOther, o.Record.SeqIDType)
	assert.Empty(t, o.Record.SeqIDs)
}

func TestAdjustAccession_Memoized(t *testing.T) {
	o := found(model.BioseqRecord{
		Accession: "AB123456", Version: 1, SeqIDType: model.SeqIDTypeGenbank,
		SeqIDs: []model.SeqIDEntry{{Type: model.SeqIDTypeGI, Value: "12345"}},
	})

	first := o.AdjustAccession(model.IncludeAllFields, model.AccSubstitutionDefault)
	rec := o.Record.Clone()
	second := o.AdjustAccession(model.IncludeAllFields, model.AccSubstitutionNever)

	assert.Equal(t, first, second)
	assert.Equal(t, rec, o.Record, "repeated calls do not touch the record")
}
