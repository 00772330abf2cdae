package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/errors"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/model"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/service"
)

// parseResolveRequest reads the resolve query parameters. seq_id may repeat;
// seq_id_type is given either once for all ids or once per id.
func (h *Handlers) parseResolveRequest(r *http.Request) (*service.ResolveRequest, error) {
	q := r.URL.Query()

	ids := q["seq_id"]
	if len(ids) == 0 {
		return nil, errors.InvalidArgument("seq_id is required")
	}

	types := q["seq_id_type"]
	if len(types) > 1 && len(types) != len(ids) {
		return nil, errors.InvalidArgument(fmt.Sprintf(
			"got %d seq_id_type values for %d seq_id values", len(types), len(ids)))
	}

	req := &service.ResolveRequest{AccSubstitution: h.defaultSubstitution}
	for i, text := range ids {
		c := model.NewCandidateID(text)
		if len(types) > 0 {
			raw := types[0]
			if len(types) > 1 {
				raw = types[i]
			}
			t, err := parseSeqIDType(raw)
			if err != nil {
				return nil, err
			}
			c.Type = t
		}
		req.Candidates = append(req.Candidates, c)
	}

	fields, err := model.ParseIncludeFlags(q.Get("fields"))
	if err != nil {
		return nil, errors.InvalidArgument(err.Error())
	}
	req.Fields = fields

	if v := q.Get("acc_substitution"); v != "" {
		if req.AccSubstitution, err = model.ParseAccSubstitution(v); err != nil {
			return nil, errors.InvalidArgument(err.Error())
		}
	}

	policy, err := model.ParseCachePolicy(q.Get("use_cache"))
	if err != nil {
		return nil, errors.InvalidArgument(err.Error())
	}
	req.CachePolicy = policy

	return req, nil
}

// parseSeqIDType accepts a numeric type or a FASTA tag
func parseSeqIDType(raw string) (model.SeqIDType, error) {
	if n, err := strconv.ParseInt(raw, 10, 16); err == nil {
		t := model.SeqIDType(n)
		if t != model.SeqIDTypeUnknown && (t < model.SeqIDTypeNotSet || t > model.SeqIDTypeNamedAnnotTrack) {
			return 0, errors.InvalidArgument(fmt.Sprintf("seq_id_type %d out of range", n))
		}
		return t, nil
	}
	if t, ok := model.SeqIDTypeFromTag(raw); ok {
		return t, nil
	}
	return 0, errors.InvalidArgument(fmt.Sprintf("unknown seq_id_type %q", raw))
}

func parseBlobID(r *http.Request) (model.BlobID, error) {
	q := r.URL.Query()
	sat, err := strconv.ParseInt(q.Get("sat"), 10, 32)
	if err != nil {
		return model.BlobID{}, errors.InvalidArgument("sat must be an integer")
	}
	satKey, err := strconv.ParseInt(q.Get("sat_key"), 10, 32)
	if err != nil {
		return model.BlobID{}, errors.InvalidArgument("sat_key must be an integer")
	}
	return model.BlobID{Sat: int32(sat), SatKey: int32(satKey)}, nil
}
