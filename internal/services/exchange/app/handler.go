package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	apperrors "github.com/louisbranch/secretsanta/internal/platform/errors"
	"github.com/louisbranch/secretsanta/internal/platform/id"
	"github.com/louisbranch/secretsanta/internal/platform/logging"
	"github.com/louisbranch/secretsanta/internal/platform/requestctx"
	"github.com/louisbranch/secretsanta/internal/services/exchange/domain"
	"github.com/louisbranch/secretsanta/internal/services/exchange/export"
	"github.com/louisbranch/secretsanta/internal/services/exchange/service"
	"github.com/louisbranch/secretsanta/internal/services/exchange/table"
)

const (
	fieldEmployee = "employee"
	fieldPrevious = "previous"
	fieldSeed     = "seed"

	// DefaultMaxUploadBytes caps the combined multipart body.
	DefaultMaxUploadBytes int64 = 10 << 20

	multipartMemory = 8 << 20
)

var (
	errNoEmployeeFile = apperrors.Wrap(apperrors.CodeMissingInput, "No employee file provided", domain.ErrMissingInput)
	errNoPreviousFile = apperrors.Wrap(apperrors.CodeMissingInput, "No previous assignment file provided", domain.ErrMissingInput)
)

// HandlerConfig wires the HTTP routes.
type HandlerConfig struct {
	Service *service.Service
	// Gatherer backs GET /metrics. Nil serves an empty registry.
	Gatherer       prometheus.Gatherer
	Logger         *zap.Logger
	MaxUploadBytes int64
	// CORSOrigins lists allowed browser origins; "*" allows any.
	CORSOrigins []string
}

type drawResponse struct {
	Success   bool            `json:"success"`
	Data      []export.Record `json:"data"`
	DrawID    string          `json:"draw_id"`
	Seed      int64           `json:"seed"`
	Attempts  int             `json:"attempts"`
	CreatedAt time.Time       `json:"created_at"`
	Relaxed   []string        `json:"history_relaxed,omitempty"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type handler struct {
	svc            *service.Service
	logger         *zap.Logger
	maxUploadBytes int64
}

// NewHandler builds the exchange HTTP routes.
func NewHandler(cfg HandlerConfig) http.Handler {
	h := &handler{
		svc:            cfg.Service,
		logger:         logging.OrNop(cfg.Logger),
		maxUploadBytes: cfg.MaxUploadBytes,
	}
	if h.svc == nil {
		h.svc = service.New(service.Config{})
	}
	if h.maxUploadBytes <= 0 {
		h.maxUploadBytes = DefaultMaxUploadBytes
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.NewRegistry()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("POST /api/assign", h.assign)
	mux.HandleFunc("GET /api/draws/{id}", h.getDraw)
	mux.HandleFunc("GET /api/draws/{id}/history", h.getHistory)

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	})
	return h.logRequests(c.Handler(mux))
}

func (h *handler) assign(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeFailure(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeFailure(w, http.StatusBadRequest, "request must be multipart/form-data")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	employees, err := formSource(r, fieldEmployee, errNoEmployeeFile)
	if err != nil {
		h.writeError(w, err)
		return
	}
	defer employees.close()
	previous, err := formSource(r, fieldPrevious, errNoPreviousFile)
	if err != nil {
		h.writeError(w, err)
		return
	}
	defer previous.close()

	seed, err := parseSeed(r.FormValue(fieldSeed))
	if err != nil {
		h.writeError(w, err)
		return
	}

	drawn, err := h.svc.DrawTables(r.Context(), employees.source, previous.source, seed)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDrawResponse(drawn))
}

// parseSeed reads the optional seed form field. Blank means draw a fresh seed.
func parseSeed(raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidArgument, fmt.Sprintf("seed %q is not an integer", raw), errors.Join(domain.ErrInvalidArgument, err))
	}
	return &value, nil
}

func (h *handler) getDraw(w http.ResponseWriter, r *http.Request) {
	drawn, err := h.svc.GetDraw(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDrawResponse(drawn))
}

func (h *handler) getHistory(w http.ResponseWriter, r *http.Request) {
	drawn, err := h.svc.GetDraw(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "previous-"+drawn.ID+".csv"))
	if err := export.WriteHistoryCSV(w, export.Records(drawn.Participants)); err != nil {
		h.logger.Warn("write history csv", zap.String("draw_id", drawn.ID), zap.Error(err))
	}
}

type formFile struct {
	source table.Source
	file   multipart.File
}

func (f formFile) close() {
	if f.file != nil {
		_ = f.file.Close()
	}
}

func formSource(r *http.Request, field string, missing error) (formFile, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return formFile{}, missing
	}
	if err != nil {
		return formFile{}, apperrors.Wrap(apperrors.CodeInvalidArgument, "read "+field+" upload", err)
	}
	return formFile{source: table.Source{Name: header.Filename, Reader: file}, file: file}, nil
}

func newDrawResponse(d service.Draw) drawResponse {
	return drawResponse{
		Success:   true,
		Data:      export.Records(d.Participants),
		DrawID:    d.ID,
		Seed:      d.Seed,
		Attempts:  d.Attempts,
		CreatedAt: d.CreatedAt,
		Relaxed:   d.Relaxed,
	}
}

func (h *handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Warn("draw request failed", zap.String("code", string(apperrors.GetCode(err))), zap.Error(err))
	}
	writeFailure(w, status, failureMessage(err, status))
}

// failureMessage shows client errors by their own message and hides the
// wrapped cause. Server errors keep the full chain.
func failureMessage(err error, status int) string {
	var appErr *apperrors.Error
	if status < http.StatusInternalServerError && errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return err.Error()
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Success: false, Error: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := strings.TrimSpace(r.Header.Get(requestctx.HeaderRequestID))
		if requestID == "" {
			if generated, err := id.NewID(); err == nil {
				requestID = generated
			}
		}
		w.Header().Set(requestctx.HeaderRequestID, requestID)
		r = r.WithContext(requestctx.WithRequestID(r.Context(), requestID))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Debug("http request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
