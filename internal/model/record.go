package model

// Unspecified values used in lookup keys and records
const (
	VersionUnknown int16 = -1
	GIUnknown      int64 = -1
)

// SeqIDEntry is one auxiliary identifier attached to a bioseq record
type SeqIDEntry struct {
	Type  SeqIDType `json:"type" yaml:"type"`
	Value string    `json:"value" yaml:"value"`
}

// BioseqRecord is the canonical metadata record of a sequence
type BioseqRecord struct {
	Accession   string       `json:"accession" yaml:"accession"`
	Version     int16        `json:"version" yaml:"version"`
	SeqIDType   SeqIDType    `json:"seq_id_type" yaml:"seq_id_type"`
	GI          int64        `json:"gi" yaml:"gi"`
	Name        string       `json:"name,omitempty" yaml:"name"`
	SeqIDs      []SeqIDEntry `json:"seq_ids,omitempty" yaml:"seq_ids"`
	Mol         int8         `json:"mol" yaml:"mol"`
	State       int8         `json:"state" yaml:"state"`
	Length      int64        `json:"length" yaml:"length"`
	TaxID       int64        `json:"tax_id" yaml:"tax_id"`
	Hash        int64        `json:"hash" yaml:"hash"`
	DateChanged int64        `json:"date_changed" yaml:"date_changed"`
	Sat         int32        `json:"sat" yaml:"sat"`
	SatKey      int32        `json:"sat_key" yaml:"sat_key"`
}

// Clone returns a deep copy so adjustments never alias tier-owned data
func (r BioseqRecord) Clone() BioseqRecord {
	out := r
	if r.SeqIDs != nil {
		out.SeqIDs = make([]SeqIDEntry, len(r.SeqIDs))
		copy(out.SeqIDs, r.SeqIDs)
	}
	return out
}

// BlobID returns the storage-tier key of the record's sequence blob
func (r BioseqRecord) BlobID() BlobID {
	return BlobID{Sat: r.Sat, SatKey: r.SatKey}
}

// BioseqKey addresses the bioseq_info table; unknown fields match anything
type BioseqKey struct {
	Accession string
	Version   int16
	SeqIDType SeqIDType
	GI        int64
}

// NewBioseqKey returns a key with only the accession set
func NewBioseqKey(accession string) BioseqKey {
	return BioseqKey{
		Accession: accession,
		Version:   VersionUnknown,
		SeqIDType: SeqIDTypeUnknown,
		GI:        GIUnknown,
	}
}

// Matches reports whether rec satisfies every specified field of the key
func (k BioseqKey) Matches(rec BioseqRecord) bool {
	if rec.Accession != k.Accession {
		return false
	}
	if k.Version != VersionUnknown && rec.Version != k.Version {
		return false
	}
	if k.SeqIDType != SeqIDTypeUnknown && rec.SeqIDType != k.SeqIDType {
		return false
	}
	if k.GI != GIUnknown && rec.GI != k.GI {
		return false
	}
	return true
}

// Si2csiRecord maps a secondary identifier to the key fields of a bioseq record
type Si2csiRecord struct {
	SecSeqID     string    `json:"sec_seq_id" yaml:"sec_seq_id"`
	SecSeqIDType SeqIDType `json:"sec_seq_id_type" yaml:"sec_seq_id_type"`
	Accession    string    `json:"accession" yaml:"accession"`
	Version      int16     `json:"version" yaml:"version"`
	SeqIDType    SeqIDType `json:"seq_id_type" yaml:"seq_id_type"`
	GI           int64     `json:"gi" yaml:"gi"`
}

// BioseqKey returns the key used to confirm the secondary hit
func (r Si2csiRecord) BioseqKey() BioseqKey {
	return BioseqKey{
		Accession: r.Accession,
		Version:   r.Version,
		SeqIDType: r.SeqIDType,
		GI:        r.GI,
	}
}

// PartialRecord builds a bioseq record carrying only the key fields
func (r Si2csiRecord) PartialRecord() BioseqRecord {
	return BioseqRecord{
		Accession: r.Accession,
		Version:   r.Version,
		SeqIDType: r.SeqIDType,
		GI:        r.GI,
	}
}

// Si2csiKey addresses the si2csi secondary index; unknown type matches anything
type Si2csiKey struct {
	SecSeqID     string
	SecSeqIDType SeqIDType
}

// Matches reports whether rec satisfies the key
func (k Si2csiKey) Matches(rec Si2csiRecord) bool {
	if rec.SecSeqID != k.SecSeqID {
		return false
	}
	return k.SecSeqIDType == SeqIDTypeUnknown || rec.SecSeqIDType == k.SecSeqIDType
}
