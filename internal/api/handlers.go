package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/starford/perthro/internal/apperr"
	"github.com/starford/perthro/internal/investigation"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc          *investigation.Service
	searchSchema *jsonschema.Schema
}

// NewHandler creates a new Handler. It panics if the embedded request schema
// does not compile.
func NewHandler(svc *investigation.Service) *Handler {
	schema, err := compileSchema("search.json", searchSchema)
	if err != nil {
		panic(err)
	}
	return &Handler{svc: svc, searchSchema: schema}
}

// statusFor maps an operation failure to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrBaseDirNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ListIndicators handles GET /api/indicators.
//
//	@Summary		List the indicator catalog of a case directory
//	@Tags			indicators
//	@Produce		json
//	@Param			base_dir	query		string	false	"Case directory"
//	@Success		200			{object}	IndicatorsResponse
//	@Failure		404			{object}	IndicatorsResponse
//	@Security		BearerAuth
//	@Router			/indicators [get]
func (h *Handler) ListIndicators(w http.ResponseWriter, r *http.Request) {
	res := h.svc.ListIndicators(r.Context(), r.URL.Query().Get("base_dir"))
	writeResult(w, res.Success, res.Err(), res)
}

// Search handles POST /api/search.
//
//	@Summary		Search artifacts for indicators
//	@Tags			search
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SearchRequest	true	"Indicators and scope"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	SearchResponse
//	@Security		BearerAuth
//	@Router			/search [post]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	req, err := decodeSearch(h.searchSchema, body)
	if err != nil {
		writeJSON(w, statusFor(err), errorBody(err.Error()))
		return
	}

	res := h.svc.Search(r.Context(), req)
	if !res.Success && statusFor(res.Err()) == http.StatusInternalServerError {
		slog.Error("search failed", slog.String("run_id", res.RunID), slog.String("error", res.Error))
	}
	writeResult(w, res.Success, res.Err(), res)
}

// ListArtifacts handles GET /api/artifacts.
//
//	@Summary		List searchable artifact files
//	@Tags			artifacts
//	@Produce		json
//	@Param			base_dir	query		string	false	"Case directory"
//	@Param			checksums	query		bool	false	"Include SHA-256 per file"
//	@Success		200			{object}	ArtifactsResponse
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	ArtifactsResponse
//	@Security		BearerAuth
//	@Router			/artifacts [get]
func (h *Handler) ListArtifacts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	checksums := false
	if raw := strings.TrimSpace(q.Get("checksums")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'checksums' must be a boolean"))
			return
		}
		checksums = v
	}

	res := h.svc.ListArtifacts(r.Context(), q.Get("base_dir"), checksums)
	writeResult(w, res.Success, res.Err(), res)
}

// Classify handles POST /api/classify.
//
//	@Summary		Classify free text into file, hash and network indicators
//	@Tags			indicators
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ClassifyRequest	true	"Text to classify"
//	@Success		200		{object}	ClassifyResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/classify [post]
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("text is required"))
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Classify(req.Text))
}
