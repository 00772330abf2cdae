// Package handler provides HTTP request handlers for the gateway.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/blob"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/exclude"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/model"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/processor"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/resolve"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/service"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/util/workerpool"
)

// Gateway is the request-serving surface the handlers call into
type Gateway interface {
	Resolve(ctx context.Context, req *service.ResolveRequest) (*resolve.Outcome, error)
	GetBlobBySeqID(ctx context.Context, req *service.BlobRequest) (*service.BlobResponse, error)
	GetBlobByID(ctx context.Context, clientID string, id model.BlobID) (*service.BlobResponse, error)
	Registry() *processor.Registry
}

// Handlers contains all HTTP handlers and their dependencies.
type Handlers struct {
	gateway             Gateway
	pool                *workerpool.Pool
	exclude             *exclude.Cache
	defaultSubstitution model.AccSubstitution
	logger              *zap.Logger
}

// NewHandlers creates a new Handlers instance. pool and ex may be nil; their
// counters are then left out of /ADMIN/counters.
func NewHandlers(
	gateway Gateway,
	pool *workerpool.Pool,
	ex *exclude.Cache,
	defaultSubstitution model.AccSubstitution,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		gateway:             gateway,
		pool:                pool,
		exclude:             ex,
		defaultSubstitution: defaultSubstitution,
		logger:              logger,
	}
}

// ResolveResponse is the JSON body of a successful resolution
type ResolveResponse struct {
	Result     string                 `json:"result"`
	SeqID      string                 `json:"seq_id"`
	Partial    bool                   `json:"partial,omitempty"`
	QueryCount int                    `json:"query_count"`
	Adjustment string                 `json:"adjustment"`
	Record     map[string]interface{} `json:"record"`
}

// BlobResponse is the JSON body of a blob retrieval
type BlobResponse struct {
	Resolution *ResolveResponse  `json:"resolution,omitempty"`
	BlobID     string            `json:"blob_id"`
	Excluded   bool              `json:"excluded,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	Props      *model.BlobProps  `json:"props,omitempty"`
	Chunks     []model.BlobChunk `json:"chunks,omitempty"`
}

// CountersResponse is the JSON body of /ADMIN/counters
type CountersResponse struct {
	Processors processor.Snapshot `json:"processors"`
	FetchPool  *workerpool.Stats  `json:"fetch_pool,omitempty"`
	Exclude    *exclude.Stats     `json:"exclude,omitempty"`
}

// Resolve handles GET /ID/resolve requests.
func (h *Handlers) Resolve(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseResolveRequest(r)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	outcome, err := h.gateway.Resolve(r.Context(), req)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, newResolveResponse(outcome, req.Fields))
}

// GetBlobBySeqID handles GET /ID/get requests.
func (h *Handlers) GetBlobBySeqID(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseResolveRequest(r)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	resp, err := h.gateway.GetBlobBySeqID(r.Context(), &service.BlobRequest{
		Resolve:  *req,
		ClientID: r.URL.Query().Get("client_id"),
	})
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	body := newBlobResponse(resp.Blob)
	if resp.Outcome != nil {
		body.Resolution = newResolveResponse(resp.Outcome, req.Fields|model.IncludeBlobID)
	}
	h.writeJSONResponse(w, http.StatusOK, body)
}

// GetBlobByID handles GET /ID/getblob requests.
func (h *Handlers) GetBlobByID(w http.ResponseWriter, r *http.Request) {
	id, err := parseBlobID(r)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	resp, err := h.gateway.GetBlobByID(r.Context(), r.URL.Query().Get("client_id"), id)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, newBlobResponse(resp.Blob))
}

// Counters handles GET /ADMIN/counters requests.
func (h *Handlers) Counters(w http.ResponseWriter, r *http.Request) {
	resp := CountersResponse{Processors: h.gateway.Registry().Snapshot()}
	if h.pool != nil {
		stats := h.pool.Stats()
		resp.FetchPool = &stats
	}
	if h.exclude != nil {
		stats := h.exclude.Stats()
		resp.Exclude = &stats
	}
	h.writeJSONResponse(w, http.StatusOK, resp)
}

func newResolveResponse(o *resolve.Outcome, fields model.IncludeFlags) *ResolveResponse {
	return &ResolveResponse{
		Result:     o.Result.String(),
		SeqID:      o.SeqID.Text,
		Partial:    o.Partial,
		QueryCount: o.QueryCount,
		Adjustment: o.Adjustment.Outcome.String(),
		Record:     recordFields(o.Record, fields),
	}
}

func newBlobResponse(res blob.Result) *BlobResponse {
	body := &BlobResponse{BlobID: res.BlobID.String()}
	if res.Excluded {
		body.Excluded = true
		body.Reason = res.Claim.String()
		return body
	}
	props := res.Props
	body.Props = &props
	body.Chunks = res.Chunks
	return body
}

// recordFields keeps the requested fields of rec
func recordFields(rec model.BioseqRecord, fields model.IncludeFlags) map[string]interface{} {
	out := make(map[string]interface{})
	if fields&model.IncludeCanonicalID != 0 {
		out["accession"] = rec.Accession
		out["version"] = rec.Version
		out["seq_id_type"] = rec.SeqIDType
	}
	if fields&model.IncludeSeqIDs != 0 {
		ids := make([]map[string]interface{}, 0, len(rec.SeqIDs))
		for _, s := range rec.SeqIDs {
			ids = append(ids, map[string]interface{}{"type": s.Type, "value": s.Value})
		}
		out["seq_ids"] = ids
	}
	if fields&model.IncludeMoleculeType != 0 {
		out["mol"] = rec.Mol
	}
	if fields&model.IncludeLength != 0 {
		out["length"] = rec.Length
	}
	if fields&model.IncludeState != 0 {
		out["state"] = rec.State
	}
	if fields&model.IncludeBlobID != 0 {
		out["sat"] = rec.Sat
		out["sat_key"] = rec.SatKey
	}
	if fields&model.IncludeTaxID != 0 {
		out["tax_id"] = rec.TaxID
	}
	if fields&model.IncludeHash != 0 {
		out["hash"] = rec.Hash
	}
	if fields&model.IncludeDateChanged != 0 {
		out["date_changed"] = rec.DateChanged
	}
	if fields&model.IncludeGI != 0 {
		out["gi"] = rec.GI
	}
	if fields&model.IncludeName != 0 {
		out["name"] = rec.Name
	}
	return out
}

// writeJSONResponse writes a JSON response.
func (h *Handlers) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
