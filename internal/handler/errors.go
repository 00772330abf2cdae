package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/errors"
	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/middleware"
)

// ErrorResponse represents the standard error response format.
type ErrorResponse struct {
	Status    int    `json:"status"`
	ErrorCode string `json:"error_code"`
	GRPCCode  string `json:"grpc_code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// HandleError writes err as a JSON error response. The HTTP status is the
// status the error carries.
func (h *Handlers) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	e := errors.From(err)
	resp := ErrorResponse{
		Status:    e.Status,
		ErrorCode: strings.ToUpper(e.Kind.String()),
		GRPCCode:  e.ToGRPCStatus().Code().String(),
		Message:   e.Error(),
		RequestID: middleware.GetRequestID(r.Context()),
	}

	fields := []zap.Field{
		zap.Int("status", resp.Status),
		zap.String("error_code", resp.ErrorCode),
		zap.String("message", resp.Message),
		zap.String("request_id", resp.RequestID),
	}
	switch {
	case e.Status >= http.StatusInternalServerError:
		h.logger.Warn("Request failed", fields...)
	default:
		h.logger.Debug("Request rejected", fields...)
	}

	status := e.Status
	if status < http.StatusBadRequest {
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode error response", zap.Error(err))
	}
}
