package selection

import (
	"testing"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/errors"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func records(versions ...int16) []model.BioseqRecord {
	out := make([]model.BioseqRecord, len(versions))
	for i, v := range versions {
		out[i] = model.BioseqRecord{
			Accession: "AB123456",
			Version:   v,
			SeqIDType: model.SeqIDTypeGenbank,
			GI:        int64(100 + i),
		}
	}
	return out
}

func TestDecideINSDC(t *testing.T) {
	tests := []struct {
		name     string
		versions []int16
		version  int16
		index    int
		kind     errors.Kind
		wantErr  bool
	}{
		{name: "requested duplicate", versions: []int16{2, 3, 3}, version: 3, index: -1, kind: errors.KindAmbiguousResult, wantErr: true},
		{name: "requested missing", versions: []int16{2, 3, 3}, version: 5, index: -1, kind: errors.KindNotFound, wantErr: true},
		{name: "requested unique", versions: []int16{2, 3, 3}, version: 2, index: 0},
		{name: "latest tie", versions: []int16{2, 3, 3}, version: -1, index: 1, kind: errors.KindAmbiguousResult, wantErr: true},
		{name: "latest", versions: []int16{1, 4}, version: -1, index: 1},
		{name: "latest equal", versions: []int16{4, 4}, version: -1, index: 0, kind: errors.KindAmbiguousResult, wantErr: true},
		{name: "lower tie superseded", versions: []int16{2, 2, 7}, version: -1, index: 2},
		{name: "empty", versions: nil, version: -1, index: -1, kind: errors.KindNotFound, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DecideINSDC(records(tt.versions...), tt.version)
			assert.Equal(t, tt.index, d.Index)
			if !tt.wantErr {
				require.Nil(t, d.Err)
				assert.True(t, d.OK())
				return
			}
			require.NotNil(t, d.Err)
			assert.False(t, d.OK())
			assert.Equal(t, tt.kind, d.Err.Kind)
		})
	}
}

func TestDecideINSDC_NamesBothRecords(t *testing.T) {
	d := DecideINSDC(records(2, 3, 3), 3)
	require.NotNil(t, d.Err)
	assert.Contains(t, d.Err.Message, "gi 101")
	assert.Contains(t, d.Err.Message, "gi 102")
	assert.Equal(t, errors.StatusInternalError, d.Err.Status)
}

func TestDecideINSDC_Deterministic(t *testing.T) {
	in := records(3, 1, 3, 2)
	first := DecideINSDC(in, -1)
	for i := 0; i < 10; i++ {
		again := DecideINSDC(in, -1)
		assert.Equal(t, first.Index, again.Index)
		assert.Equal(t, first.Err.Message, again.Err.Message)
	}
}

func TestCanSkipFullRecordRetrieval(t *testing.T) {
	versioned := model.BioseqRecord{Accession: "AB123456", Version: 1, SeqIDType: model.SeqIDTypeGenbank}
	unversioned := model.BioseqRecord{Accession: "AB123456", Version: 0, SeqIDType: model.SeqIDTypeGenbank}

	tests := []struct {
		name   string
		fields model.IncludeFlags
		rec    model.BioseqRecord
		want   bool
	}{
		{"canonical only", model.IncludeCanonicalID, unversioned, true},
		{"canonical and gi versioned", model.IncludeCanonicalID | model.IncludeGI, versioned, true},
		{"canonical and gi unversioned", model.IncludeCanonicalID | model.IncludeGI, unversioned, false},
		{"gi only", model.IncludeGI, unversioned, true},
		{"gi typed record", model.IncludeCanonicalID | model.IncludeGI, model.BioseqRecord{Version: 1, SeqIDType: model.SeqIDTypeGI}, false},
		{"length needs record", model.IncludeCanonicalID | model.IncludeLength, versioned, false},
		{"all fields", model.IncludeAllFields, versioned, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanSkipFullRecordRetrieval(tt.fields, tt.rec))
		})
	}
}
