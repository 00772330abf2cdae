// Package seqid turns user supplied sequence identifiers into the lookup
// forms used by the resolution state machine.
package seqid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/model"
)

var (
	accessionRe = regexp.MustCompile(`^([A-Za-z]{1,6}_?[0-9]{1,9})(\.([0-9]{1,5}))?$`)
	giRe        = regexp.MustCompile(`^[0-9]{1,18}$`)
	pdbMolRe    = regexp.MustCompile(`^[0-9][A-Za-z0-9]{3}$`)
)

// Parsed is the structured form of an identifier
type Parsed struct {
	Type      model.SeqIDType
	Explicit  bool // type came from a FASTA tag
	Guessed   bool // type inferred from the accession shape
	Accession string
	Version   int16
	Name      string
	GI        int64
	Local     string
	DB        string // general ids only
	Tag       string // general ids only
}

// Parse parses bare accessions, GIs and FASTA style "tag|field|field" ids
func Parse(text string) (Parsed, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Parsed{}, fmt.Errorf("empty seq_id")
	}
	if strings.Contains(text, "|") {
		return parseFasta(text)
	}

	p := Parsed{Type: model.SeqIDTypeUnknown, Version: model.VersionUnknown, GI: model.GIUnknown}
	if giRe.MatchString(text) {
		gi, err := strconv.ParseInt(text, 10, 64)
		if err != nil || gi <= 0 {
			return Parsed{}, fmt.Errorf("invalid gi %q", text)
		}
		p.Type = model.SeqIDTypeGI
		p.GI = gi
		return p, nil
	}

	acc, ver, err := splitAccession(text)
	if err != nil {
		return Parsed{}, err
	}
	p.Accession = acc
	p.Version = ver
	p.Type = guessAccessionType(acc)
	p.Guessed = true
	return p, nil
}

func parseFasta(text string) (Parsed, error) {
	parts := strings.Split(text, "|")
	t, ok := model.SeqIDTypeFromTag(parts[0])
	if !ok {
		return Parsed{}, fmt.Errorf("unknown seq_id type tag %q", parts[0])
	}
	field := func(i int) string {
		if i < len(parts) {
			return strings.TrimSpace(parts[i])
		}
		return ""
	}

	p := Parsed{Type: t, Explicit: true, Version: model.VersionUnknown, GI: model.GIUnknown}
	switch {
	case t == model.SeqIDTypeGI:
		gi, err := strconv.ParseInt(field(1), 10, 64)
		if err != nil || gi <= 0 {
			return Parsed{}, fmt.Errorf("invalid gi %q", field(1))
		}
		p.GI = gi
	case t == model.SeqIDTypeLocal:
		if field(1) == "" {
			return Parsed{}, fmt.Errorf("empty local id")
		}
		p.Local = field(1)
	case t == model.SeqIDTypeGeneral:
		if field(1) == "" || field(2) == "" {
			return Parsed{}, fmt.Errorf("general id needs db and tag")
		}
		p.DB = field(1)
		p.Tag = field(2)
	case t == model.SeqIDTypePDB:
		mol := field(1)
		if !pdbMolRe.MatchString(mol) {
			return Parsed{}, fmt.Errorf("invalid pdb molecule %q", mol)
		}
		p.Accession = strings.ToUpper(mol)
		if chain := field(2); chain != "" {
			p.Accession += "_" + chain
		}
	case t.HasAccession():
		if acc := field(1); acc != "" {
			a, v, err := splitAccession(acc)
			if err != nil {
				return Parsed{}, err
			}
			p.Accession = a
			p.Version = v
		}
		p.Name = field(2)
		if p.Accession == "" && p.Name == "" {
			return Parsed{}, fmt.Errorf("seq_id %q has neither accession nor name", text)
		}
	default:
		return Parsed{}, fmt.Errorf("unsupported seq_id type %s", t)
	}
	return p, nil
}

func splitAccession(text string) (string, int16, error) {
	m := accessionRe.FindStringSubmatch(text)
	if m == nil {
		return "", 0, fmt.Errorf("malformed accession %q", text)
	}
	acc := strings.ToUpper(m[1])
	if m[3] == "" {
		return acc, model.VersionUnknown, nil
	}
	v, err := strconv.ParseInt(m[3], 10, 16)
	if err != nil {
		return "", 0, fmt.Errorf("version out of range in %q", text)
	}
	return acc, int16(v), nil
}

// guessAccessionType treats underscore accessions as RefSeq and everything
// else as INSDC. The type-agnostic retry covers EMBL/DDBJ prefixes and, for
// guessed types, every other accession based type.
func guessAccessionType(acc string) model.SeqIDType {
	if strings.Contains(acc, "_") {
		return model.SeqIDTypeOther
	}
	return model.SeqIDTypeGenbank
}
