package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bryanwahyu/neuroscan/internal/domain/scans"
	"github.com/bryanwahyu/neuroscan/internal/middleware"
)

func recordID(req *http.Request) (scans.RecordID, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateID("record", id); err != nil {
		return "", badRequest("%v", err)
	}
	return scans.RecordID(id), nil
}

// GET /v1/{owner}/scans/latest?limit=20
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.scans.Latest(req.Context(), owner(req), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	if list == nil {
		list = []*scans.Record{}
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/{owner}/scans/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id, err := recordID(req)
	if err != nil {
		return err
	}
	rec, err := r.scans.Get(req.Context(), owner(req), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rec)
}

// DELETE /v1/{owner}/scans/{id}
func (r *Router) handleDelete(w http.ResponseWriter, req *http.Request) error {
	id, err := recordID(req)
	if err != nil {
		return err
	}
	if err := r.scans.Delete(req.Context(), owner(req), id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// GET /v1/{owner}/scans/{id}/narrative
func (r *Router) handleNarrative(w http.ResponseWriter, req *http.Request) error {
	id, err := recordID(req)
	if err != nil {
		return err
	}
	text, err := r.ai.Explain(req.Context(), owner(req), id)
	if err != nil {
		return err
	}
	var narrative any = text
	if json.Valid([]byte(text)) {
		narrative = json.RawMessage(text)
	}
	return writeJSON(w, http.StatusOK, map[string]any{
		"recordId":  id,
		"narrative": narrative,
	})
}

// GET /v1/{owner}/summary?days=30
func (r *Router) handleSummary(w http.ResponseWriter, req *http.Request) error {
	days, _ := strconv.Atoi(req.URL.Query().Get("days"))

	summary, err := r.scans.Summary(req.Context(), owner(req), middleware.ValidateDays(days))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, summary)
}

// decodeOptionalJSON accepts an empty body.
func decodeOptionalJSON(req *http.Request, v any) error {
	if req.Body == nil {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(req.Body, 1<<20)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return badRequest("invalid json: %v", err)
	}
	return nil
}
