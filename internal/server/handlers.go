package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/naka-gawa/trustgraph/internal/cvparser"
	"github.com/naka-gawa/trustgraph/internal/domain"
	"github.com/naka-gawa/trustgraph/internal/graph"
)

type handlers struct {
	deps     Deps
	validate *validator.Validate
}

// StatusResponse is the payload of the root endpoint.
type StatusResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SkillsRequest is the body of POST /skills.
type SkillsRequest struct {
	Text string `json:"text" validate:"required"`
}

// SkillsResponse is the reply of POST /skills.
type SkillsResponse struct {
	Skills []string `json:"skills"`
}

func (h *handlers) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Message: "TrustGraph API", Status: "running"})
}

func (h *handlers) graph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Graph.Graph())
}

func (h *handlers) graphStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Graph.Stats())
}

func (h *handlers) profile(w http.ResponseWriter, r *http.Request) {
	node, err := h.deps.Graph.Profile(chi.URLParam(r, "id"))
	if errors.Is(err, graph.ErrProfileNotFound) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Profile not found"})
		return
	}
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

func (h *handlers) cv(w http.ResponseWriter, r *http.Request) {
	cv, err := h.deps.CVs.LoadCV(chi.URLParam(r, "id"))
	if errors.Is(err, cvparser.ErrCVNotFound) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: cvparser.ErrCVNotFound.Error()})
		return
	}
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cv)
}

func (h *handlers) enrich(w http.ResponseWriter, r *http.Request) {
	enrichment, err := h.deps.Enricher.Enrich(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("repo"))
	if errors.Is(err, cvparser.ErrCVNotFound) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: cvparser.ErrCVNotFound.Error()})
		return
	}
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, enrichment)
}

func (h *handlers) verifyPath(w http.ResponseWriter, r *http.Request) {
	repo := chi.URLParam(r, "owner") + "/" + chi.URLParam(r, "name")
	h.writeVerification(w, r, chi.URLParam(r, "username"), repo)
}

func (h *handlers) verifyBody(w http.ResponseWriter, r *http.Request) {
	var req domain.VerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
		return
	}
	h.writeVerification(w, r, req.Username, req.Repo)
}

func (h *handlers) writeVerification(w http.ResponseWriter, r *http.Request, username, repo string) {
	result := h.deps.Verifier.Verify(r.Context(), username, repo)
	status := http.StatusOK
	if result.ErrorKind == domain.ErrorKindInput {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, result)
}

func (h *handlers) extractSkills(w http.ResponseWriter, r *http.Request) {
	var req SkillsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Missing text"})
		return
	}
	writeJSON(w, http.StatusOK, SkillsResponse{Skills: h.deps.Skills.ExtractSkills(r.Context(), req.Text)})
}

func (h *handlers) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.deps.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: http.StatusText(http.StatusInternalServerError)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
