package seqid

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/model"
)

// Form is one lookup candidate derived from an identifier
type Form struct {
	Text      string
	Type      model.SeqIDType
	Accession string
	Version   int16
	Guessed   bool // Type is a guess; the record may carry any type
}

// BioseqKey returns the primary lookup key of an accession form
func (f Form) BioseqKey() model.BioseqKey {
	return model.BioseqKey{
		Accession: f.Accession,
		Version:   f.Version,
		SeqIDType: f.Type,
		GI:        model.GIUnknown,
	}
}

// Si2csiKey returns the secondary index key of the form
func (f Form) Si2csiKey() model.Si2csiKey {
	return model.Si2csiKey{SecSeqID: f.Text, SecSeqIDType: f.Type}
}

// Composition is the normalizer output for one candidate
type Composition struct {
	Parsed    Parsed
	Primary   *Form
	Secondary []Form
	OK        bool
	Err       error
}

// Compose expands text into a primary form and secondary alias forms.
// When the declared type disagrees with the parsed one, or anything fails,
// OK is false and the caller may only try the as-typed form.
func Compose(text string, declared model.SeqIDType) (c Composition) {
	defer func() {
		if r := recover(); r != nil {
			c = Composition{OK: false, Err: fmt.Errorf("composing %q: %v", text, r)}
		}
	}()

	p, err := Parse(text)
	if err != nil {
		return Composition{OK: false, Err: err}
	}
	p, err = reconcile(p, declared)
	if err != nil {
		return Composition{Parsed: p, OK: false, Err: err}
	}

	c = Composition{Parsed: p, OK: true}
	if p.Accession != "" {
		primary := Form{
			Text:      p.Accession,
			Type:      p.Type,
			Accession: p.Accession,
			Version:   p.Version,
			Guessed:   p.Guessed,
		}
		if p.Version != model.VersionUnknown {
			primary.Text = fmt.Sprintf("%s.%d", p.Accession, p.Version)
		}
		c.Primary = &primary
	}

	if p.GI > 0 {
		c.Secondary = append(c.Secondary, Form{
			Text:    strconv.FormatInt(p.GI, 10),
			Type:    model.SeqIDTypeGI,
			Version: model.VersionUnknown,
		})
	}
	if p.Name != "" {
		c.Secondary = append(c.Secondary, Form{
			Text:    strings.ToUpper(p.Name),
			Type:    p.Type,
			Version: model.VersionUnknown,
		})
	}
	if p.Local != "" {
		c.Secondary = append(c.Secondary, Form{
			Text:    p.Local,
			Type:    model.SeqIDTypeLocal,
			Version: model.VersionUnknown,
		})
	}
	if p.DB != "" {
		c.Secondary = append(c.Secondary, Form{
			Text:    strings.ToUpper(p.DB) + "|" + p.Tag,
			Type:    model.SeqIDTypeGeneral,
			Version: model.VersionUnknown,
		})
	}
	return c
}

// reconcile applies the declared type to an identifier whose type was only guessed
func reconcile(p Parsed, declared model.SeqIDType) (Parsed, error) {
	if !declared.IsKnown() {
		return p, nil
	}
	if declared == p.Type {
		p.Guessed = false
		return p, nil
	}
	if p.Explicit {
		return p, fmt.Errorf("declared seq_id_type %s conflicts with %s", declared, p.Type)
	}

	switch {
	case p.Type == model.SeqIDTypeGI && declared == model.SeqIDTypeLocal:
		p.Local = strconv.FormatInt(p.GI, 10)
		p.GI = model.GIUnknown
	case p.Accession != "" && declared.HasAccession():
	case p.Accession != "" && declared == model.SeqIDTypeLocal:
		p.Local = p.Accession
		if p.Version != model.VersionUnknown {
			p.Local = fmt.Sprintf("%s.%d", p.Accession, p.Version)
		}
		p.Accession = ""
		p.Version = model.VersionUnknown
	default:
		return p, fmt.Errorf("declared seq_id_type %s conflicts with %s", declared, p.Type)
	}
	p.Type = declared
	p.Guessed = false
	return p, nil
}

// CapitalizeAsIs cleans the identifier as the user typed it
func CapitalizeAsIs(text string) string {
	return strings.ToUpper(strings.TrimSpace(text))
}

// IsPrecise reports whether the composition names one bioseq exactly:
// a versioned accession of a type that never needs the secondary index
func (c Composition) IsPrecise() bool {
	if !c.OK || c.Primary == nil || !c.Parsed.Explicit {
		return false
	}
	if c.Primary.Version <= 0 {
		return false
	}
	return c.Primary.Type.IsINSDC() || c.Primary.Type == model.SeqIDTypeOther
}

func candidateRank(c model.CandidateID) int {
	p, err := Parse(c.Text)
	if err != nil {
		return 3
	}
	switch {
	case p.Accession != "":
		return 0
	case p.GI > 0:
		return 1
	default:
		return 2
	}
}

// SortCandidates orders the resolution queue most-likely-to-resolve first.
// The sort is stable so equally ranked ids keep the caller's order.
func SortCandidates(ids []model.CandidateID) []model.CandidateID {
	type ranked struct {
		id   model.CandidateID
		rank int
	}
	rs := make([]ranked, len(ids))
	for i, c := range ids {
		rs[i] = ranked{id: c, rank: candidateRank(c)}
	}
	sort.SliceStable(rs, func(a, b int) bool { return rs[a].rank < rs[b].rank })

	out := make([]model.CandidateID, len(rs))
	for i, r := range rs {
		out[i] = r.id
	}
	return out
}
