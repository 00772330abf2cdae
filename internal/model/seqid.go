package model

import "strings"

// SeqIDType is the "database of origin" tag of a sequence identifier
type SeqIDType int16

const (
	SeqIDTypeUnknown         SeqIDType = -1 // Not specified by the caller
	SeqIDTypeNotSet          SeqIDType = 0
	SeqIDTypeLocal           SeqIDType = 1
	SeqIDTypeGibbsq          SeqIDType = 2
	SeqIDTypeGibbmt          SeqIDType = 3
	SeqIDTypeGiim            SeqIDType = 4
	SeqIDTypeGenbank         SeqIDType = 5
	SeqIDTypeEMBL            SeqIDType = 6
	SeqIDTypePIR             SeqIDType = 7
	SeqIDTypeSwissProt       SeqIDType = 8
	SeqIDTypePatent          SeqIDType = 9
	SeqIDTypeOther           SeqIDType = 10 // RefSeq
	SeqIDTypeGeneral         SeqIDType = 11
	SeqIDTypeGI              SeqIDType = 12
	SeqIDTypeDDBJ            SeqIDType = 13
	SeqIDTypePRF             SeqIDType = 14
	SeqIDTypePDB             SeqIDType = 15
	SeqIDTypeTPG             SeqIDType = 16
	SeqIDTypeTPE             SeqIDType = 17
	SeqIDTypeTPD             SeqIDType = 18
	SeqIDTypeGpipe           SeqIDType = 19
	SeqIDTypeNamedAnnotTrack SeqIDType = 20
)

var seqIDTypeTags = map[SeqIDType]string{
	SeqIDTypeLocal:           "lcl",
	SeqIDTypeGibbsq:          "bbs",
	SeqIDTypeGibbmt:          "bbm",
	SeqIDTypeGiim:            "gim",
	SeqIDTypeGenbank:         "gb",
	SeqIDTypeEMBL:            "emb",
	SeqIDTypePIR:             "pir",
	SeqIDTypeSwissProt:       "sp",
	SeqIDTypePatent:          "pat",
	SeqIDTypeOther:           "ref",
	SeqIDTypeGeneral:         "gnl",
	SeqIDTypeGI:              "gi",
	SeqIDTypeDDBJ:            "dbj",
	SeqIDTypePRF:             "prf",
	SeqIDTypePDB:             "pdb",
	SeqIDTypeTPG:             "tpg",
	SeqIDTypeTPE:             "tpe",
	SeqIDTypeTPD:             "tpd",
	SeqIDTypeGpipe:           "gpp",
	SeqIDTypeNamedAnnotTrack: "nat",
}

var seqIDTypesByTag = func() map[string]SeqIDType {
	m := make(map[string]SeqIDType, len(seqIDTypeTags))
	for t, tag := range seqIDTypeTags {
		m[tag] = t
	}
	return m
}()

// String returns the FASTA tag of the type, or a placeholder for unknown values
func (t SeqIDType) String() string {
	if tag, ok := seqIDTypeTags[t]; ok {
		return tag
	}
	if t == SeqIDTypeUnknown {
		return "unknown"
	}
	return "not_set"
}

// IsKnown reports whether the type was specified
func (t SeqIDType) IsKnown() bool {
	return t != SeqIDTypeUnknown
}

// IsINSDC reports whether the type belongs to the INSDC-like set that
// participates in the type-agnostic retry
func (t SeqIDType) IsINSDC() bool {
	switch t {
	case SeqIDTypeGenbank, SeqIDTypeEMBL, SeqIDTypeDDBJ,
		SeqIDTypeTPG, SeqIDTypeTPE, SeqIDTypeTPD:
		return true
	default:
		return false
	}
}

// HasAccession reports whether identifiers of this type carry an accession
func (t SeqIDType) HasAccession() bool {
	switch t {
	case SeqIDTypeGenbank, SeqIDTypeEMBL, SeqIDTypeDDBJ, SeqIDTypePIR,
		SeqIDTypeSwissProt, SeqIDTypeOther, SeqIDTypePRF, SeqIDTypePDB,
		SeqIDTypeTPG, SeqIDTypeTPE, SeqIDTypeTPD, SeqIDTypeGpipe:
		return true
	default:
		return false
	}
}

// SeqIDTypeFromTag maps a FASTA tag ("gb", "ref", "gi", ...) to its type
func SeqIDTypeFromTag(tag string) (SeqIDType, bool) {
	t, ok := seqIDTypesByTag[strings.ToLower(tag)]
	return t, ok
}

// CandidateID is one entry of the resolution queue
type CandidateID struct {
	Type SeqIDType
	Text string
}

// NewCandidateID builds a candidate with an unknown type
func NewCandidateID(text string) CandidateID {
	return CandidateID{Type: SeqIDTypeUnknown, Text: text}
}
