package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/resumepilot/resume-optimizer/internal/config"
	"github.com/resumepilot/resume-optimizer/internal/core/domain"
	"github.com/resumepilot/resume-optimizer/internal/core/ports"
	"github.com/resumepilot/resume-optimizer/internal/core/usecase"
	"github.com/resumepilot/resume-optimizer/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	cfg     config.Config
	uploads ports.UploadService
	reader  ports.ResumeReader
	users   ports.UserRepository
	metrics *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	uploads ports.UploadService,
	reader ports.ResumeReader,
	users ports.UserRepository,
	httpMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:     cfg,
		uploads: uploads,
		reader:  reader,
		users:   users,
		metrics: httpMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/resumes", rt.authenticated(rt.uploadDirect))
	mux.HandleFunc("POST /v1/resumes/deferred", rt.authenticated(rt.uploadDeferred))
	mux.HandleFunc("POST /v1/uploads/presign", rt.authenticated(rt.presignUpload))
	mux.HandleFunc("GET /v1/resumes/{id}", rt.authenticated(rt.getResumeByID))
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(rt.cfg.APIMaxConcurrent, handler)
	handler = rateLimitMiddleware(rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDirect(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes)
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "multipart field 'file' is required")
		return
	}
	defer file.Close()

	receipt, err := rt.uploads.UploadDirect(
		r.Context(),
		user,
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		rt.recordUploadError(err)
		writeDomainError(w, err)
		return
	}

	rt.recordUpload("direct", receipt)
	writeJSON(w, http.StatusOK, receipt)
}

func (rt *Router) uploadDeferred(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	var req struct {
		ObjectKey string `json:"object_key"`
		Filename  string `json:"filename"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json")
		return
	}
	if strings.TrimSpace(req.Filename) == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "filename is required")
		return
	}

	receipt, err := rt.uploads.UploadDeferred(r.Context(), user, req.ObjectKey, req.Filename)
	if err != nil {
		rt.recordUploadError(err)
		writeDomainError(w, err)
		return
	}

	rt.recordUpload("deferred", receipt)
	writeJSON(w, http.StatusAccepted, receipt)
}

func (rt *Router) presignUpload(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	var req struct {
		Filename string `json:"filename"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json")
		return
	}

	presigned, err := rt.uploads.PresignUpload(r.Context(), user, req.Filename)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, presigned)
}

func (rt *Router) getResumeByID(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "resume id is required")
		return
	}

	resume, err := rt.reader.GetByID(r.Context(), user, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if r.URL.Query().Get("projection") == "scores" {
		writeJSON(w, http.StatusOK, usecase.ScoresProjection(resume))
		return
	}
	writeJSON(w, http.StatusOK, resume)
}

func (rt *Router) recordUpload(path string, receipt *domain.UploadReceipt) {
	if rt.metrics == nil || receipt == nil {
		return
	}
	rt.metrics.RecordUpload(serviceName, path, string(receipt.Status))
	if receipt.Duplicate {
		rt.metrics.RecordDuplicate(serviceName)
	}
}

func (rt *Router) recordUploadError(err error) {
	if rt.metrics == nil {
		return
	}
	if domain.IsKind(err, domain.ErrNoCredits) {
		rt.metrics.RecordNoCredits(serviceName)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": message, "code": code})
}
