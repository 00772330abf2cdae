package model

import (
	"fmt"
	"strings"
)

// IncludeFlags selects the bioseq fields a caller is interested in
type IncludeFlags uint32

const (
	IncludeCanonicalID IncludeFlags = 1 << iota
	IncludeSeqIDs
	IncludeMoleculeType
	IncludeLength
	IncludeState
	IncludeBlobID
	IncludeTaxID
	IncludeHash
	IncludeDateChanged
	IncludeGI
	IncludeName

	IncludeAllFields = IncludeCanonicalID | IncludeSeqIDs | IncludeMoleculeType |
		IncludeLength | IncludeState | IncludeBlobID | IncludeTaxID | IncludeHash |
		IncludeDateChanged | IncludeGI | IncludeName
)

var includeFlagNames = map[string]IncludeFlags{
	"canonical_id": IncludeCanonicalID,
	"seq_ids":      IncludeSeqIDs,
	"mol_type":     IncludeMoleculeType,
	"length":       IncludeLength,
	"state":        IncludeState,
	"blob_id":      IncludeBlobID,
	"tax_id":       IncludeTaxID,
	"hash":         IncludeHash,
	"date_changed": IncludeDateChanged,
	"gi":           IncludeGI,
	"name":         IncludeName,
	"all":          IncludeAllFields,
}

// OnlyWithin reports whether every requested field is in allowed
func (f IncludeFlags) OnlyWithin(allowed IncludeFlags) bool {
	return f&^allowed == 0
}

// ParseIncludeFlags parses a comma separated list of field names
func ParseIncludeFlags(s string) (IncludeFlags, error) {
	if strings.TrimSpace(s) == "" {
		return IncludeAllFields, nil
	}
	var flags IncludeFlags
	for _, name := range strings.Split(s, ",") {
		f, ok := includeFlagNames[strings.TrimSpace(strings.ToLower(name))]
		if !ok {
			return 0, fmt.Errorf("unknown field %q", name)
		}
		flags |= f
	}
	return flags, nil
}

// AccSubstitution controls the accession adjustment of a resolved record
type AccSubstitution int

const (
	AccSubstitutionDefault AccSubstitution = iota
	AccSubstitutionLimited
	AccSubstitutionNever
)

// ParseAccSubstitution parses "default", "limited" or "never"
func ParseAccSubstitution(s string) (AccSubstitution, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return AccSubstitutionDefault, nil
	case "limited":
		return AccSubstitutionLimited, nil
	case "never":
		return AccSubstitutionNever, nil
	default:
		return AccSubstitutionDefault, fmt.Errorf("unknown acc_substitution %q", s)
	}
}

func (a AccSubstitution) String() string {
	switch a {
	case AccSubstitutionLimited:
		return "limited"
	case AccSubstitutionNever:
		return "never"
	default:
		return "default"
	}
}

// CachePolicy selects which tiers a request may touch
type CachePolicy int

const (
	CacheAndDB CachePolicy = iota
	CacheOnly
	DBOnly
)

// ParseCachePolicy parses "yes" (cache only), "no" (db only) or "prefer"
func ParseCachePolicy(s string) (CachePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "prefer":
		return CacheAndDB, nil
	case "yes":
		return CacheOnly, nil
	case "no":
		return DBOnly, nil
	default:
		return CacheAndDB, fmt.Errorf("unknown use_cache value %q", s)
	}
}

// UsesCache reports whether the local cache may be consulted
func (p CachePolicy) UsesCache() bool { return p != DBOnly }

// UsesDB reports whether remote storage may be queried
func (p CachePolicy) UsesDB() bool { return p != CacheOnly }

func (p CachePolicy) String() string {
	switch p {
	case CacheOnly:
		return "cache_only"
	case DBOnly:
		return "db_only"
	default:
		return "cache_and_db"
	}
}
