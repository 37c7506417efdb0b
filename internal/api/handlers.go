package api

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"semanticportal/internal/domain"
	"semanticportal/internal/logger"
)

const maxQueryResults = 10

type ingestResponse struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

type failureResponse struct {
	Status  string `json:"status"`
	Stage   string `json:"stage,omitempty"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		if isTooLarge(err) {
			writeFailure(w, http.StatusRequestEntityTooLarge, domain.StageReceived, "PayloadTooLarge", err.Error())
			return
		}
		writeFailure(w, http.StatusBadRequest, domain.StageReceived, "BadRequest", err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeFailure(w, http.StatusBadRequest, domain.StageReceived, "BadRequest", "missing multipart field \"file\"")
		return
	}
	defer file.Close()

	data, err := readAll(file, header.Size)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, domain.StageReceived, "BadRequest", err.Error())
		return
	}

	doc := domain.Document{
		Name:      header.Filename,
		MediaType: mediaType(header.Header.Get("Content-Type"), header.Filename),
		Data:      data,
	}

	result, err := s.ingester.Ingest(r.Context(), doc)
	if err != nil {
		var se *domain.StageError
		stage := domain.Stage("")
		if errors.As(err, &se) {
			stage = se.Stage
		}
		writeFailure(w, statusFor(err), stage, domain.Kind(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{Status: "ingested", Count: result.Count})
}

func (s *Server) handleAutocomplete(w http.ResponseWriter, r *http.Request) {
	suggestions, err := s.suggester.Suggest(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		logger.Warn("autocomplete failed", "error", domain.Kind(err), "err", err)
		writeFailure(w, statusFor(err), "", domain.Kind(err), err.Error())
		return
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	writeJSON(w, http.StatusOK, suggestions)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	results, err := s.searcher.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		logger.Warn("search failed", "error", domain.Kind(err), "err", err)
		writeFailure(w, statusFor(err), "", domain.Kind(err), err.Error())
		return
	}
	if results == nil {
		results = []domain.SearchResult{}
	}
	if len(results) > maxQueryResults {
		results = results[:maxQueryResults]
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// mediaType trusts the declared part type. A missing or generic declaration
// falls back to the file extension.
func mediaType(declared, filename string) string {
	base, _, err := mime.ParseMediaType(declared)
	if err == nil && base != "application/octet-stream" {
		return declared
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		return byExt
	}
	if declared == "" {
		return "application/octet-stream"
	}
	return declared
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrAutocompleteRebuild):
		if errors.Is(err, domain.ErrVectorStore) {
			return http.StatusBadGateway
		}
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrExtractionFailure):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidConfiguration):
		return http.StatusInternalServerError
	case errors.Is(err, domain.ErrEmbeddingUnavailable),
		errors.Is(err, domain.ErrVectorStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrEmbeddingService),
		errors.Is(err, domain.ErrVectorStore):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeFailure(w http.ResponseWriter, status int, stage domain.Stage, kind, message string) {
	writeJSON(w, status, failureResponse{
		Status:  "failed",
		Stage:   string(stage),
		Error:   kind,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to write response", "err", err)
	}
}
