package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mailscan/pkg/domain"
	"mailscan/pkg/logger"
	"mailscan/pkg/serrors"
)

// maxScanBody caps how much of a request body is read. Messages larger than
// this are rejected rather than truncated.
const maxScanBody = 25 << 20

// ScanRunner runs one scan cycle for a message reference. It is implemented
// by runner.Runner.
type ScanRunner interface {
	Run(ctx context.Context, ref string) (*domain.ScanReport, error)
}

// ScanHandler serves POST /v1/scan. The endpoint accepts either a raw RFC
// 822 message (Content-Type message/rfc822) or a JSON body with a "urls"
// list; both are staged as a spool file and run through the regular message
// pipeline, and the resulting scan report is returned as JSON.
type ScanHandler struct {
	runner   ScanRunner
	spoolDir string
}

// NewScanHandler constructs a ScanHandler staging uploads under spoolDir.
func NewScanHandler(runner ScanRunner, spoolDir string) *ScanHandler {
	return &ScanHandler{runner: runner, spoolDir: spoolDir}
}

type urlListRequest struct {
	URLs []string `json:"urls"`
}

// ServeHTTP implements http.Handler.
func (h *ScanHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxScanBody+1))
	if err != nil {
		writeError(r.Context(), w, fmt.Errorf("could not read request body: %w", err))

		return
	}
	if len(body) > maxScanBody {
		writeError(r.Context(), w, serrors.With(serrors.ErrBadRequest, "request body too large"))

		return
	}

	raw, err := h.messageBytes(r.Header.Get("Content-Type"), body)
	if err != nil {
		writeError(r.Context(), w, err)

		return
	}

	ref, err := h.spool(raw)
	if err != nil {
		writeError(r.Context(), w, err)

		return
	}
	defer func() {
		_ = os.Remove(ref)
	}()

	report, err := h.runner.Run(r.Context(), ref)
	if err != nil {
		writeError(r.Context(), w, err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		logger.Error(r.Context(), "could not encode scan report", zap.Error(err))
	}
}

// messageBytes converts the request body into message bytes for the spool: a
// message/rfc822 body is taken as-is, a JSON URL list becomes a synthetic
// plain-text message carrying one URL per line.
func (h *ScanHandler) messageBytes(contentType string, body []byte) ([]byte, error) {
	if strings.HasPrefix(contentType, "application/json") {
		var req urlListRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, serrors.Wrap(serrors.ErrBadRequest, err, "invalid JSON body")
		}
		if len(req.URLs) == 0 {
			return nil, serrors.With(serrors.ErrBadRequest, "urls list is empty")
		}

		var sb strings.Builder
		sb.WriteString("Subject: URL list scan\r\n\r\n")
		for _, u := range req.URLs {
			sb.WriteString(u)
			sb.WriteString("\r\n")
		}

		return []byte(sb.String()), nil
	}

	if len(body) == 0 {
		return nil, serrors.With(serrors.ErrBadRequest, "empty message body")
	}

	return body, nil
}

func (h *ScanHandler) spool(raw []byte) (string, error) {
	if err := os.MkdirAll(h.spoolDir, 0o755); err != nil {
		return "", fmt.Errorf("could not create spool directory: %w", err)
	}

	path := filepath.Join(h.spoolDir, uuid.NewString()+".eml")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return "", fmt.Errorf("could not write spool file: %w", err)
	}

	return path, nil
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, serrors.ErrBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, serrors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, serrors.ErrBusy):
		status = http.StatusConflict
	case errors.Is(err, serrors.ErrTimeout):
		status = http.StatusGatewayTimeout
	}

	if status == http.StatusInternalServerError {
		logger.Error(ctx, "scan request failed", zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
