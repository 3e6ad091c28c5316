package httpserver

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bryanwahyu/neuroscan/internal/application/acquisition"
	"github.com/bryanwahyu/neuroscan/internal/application/session"
	"github.com/bryanwahyu/neuroscan/internal/domain/samples"
	"github.com/bryanwahyu/neuroscan/internal/middleware"
)

func (r *Router) sessionRoutes(rt chi.Router) {
	rt.Post("/", r.wrap(r.handleCreateSession))
	rt.Get("/{sid}", r.wrap(r.handleGetSession))
	rt.Delete("/{sid}", r.wrap(r.handleCloseSession))
	rt.Post("/{sid}/acquire", r.wrap(r.handleAcquire))
	rt.Post("/{sid}/submit", r.wrap(r.handleSubmit))
	rt.Post("/{sid}/save", r.wrap(r.handleSave))
	rt.Post("/{sid}/reset", r.wrap(r.handleReset))
}

func (r *Router) session(req *http.Request) (*session.Controller, error) {
	sid := chi.URLParam(req, "sid")
	if err := middleware.ValidateID("session", sid); err != nil {
		return nil, session.ErrNotFound
	}
	return r.sessions.Get(owner(req), sid)
}

// POST /v1/{owner}/sessions
func (r *Router) handleCreateSession(w http.ResponseWriter, req *http.Request) error {
	ctrl := r.sessions.Create(owner(req))
	return writeJSON(w, http.StatusCreated, map[string]any{
		"id":    ctrl.ID(),
		"state": ctrl.State(),
	})
}

// GET /v1/{owner}/sessions/{sid}
func (r *Router) handleGetSession(w http.ResponseWriter, req *http.Request) error {
	ctrl, err := r.session(req)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, ctrl.Snapshot())
}

// DELETE /v1/{owner}/sessions/{sid}
func (r *Router) handleCloseSession(w http.ResponseWriter, req *http.Request) error {
	if _, err := r.session(req); err != nil {
		return err
	}
	if err := r.sessions.Close(owner(req), chi.URLParam(req, "sid")); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

type acquireSample struct {
	SampleID string `validate:"required,uuid"`
}

// POST /v1/{owner}/sessions/{sid}/acquire
// multipart field "image", or form field "sampleId"
func (r *Router) handleAcquire(w http.ResponseWriter, req *http.Request) error {
	ctrl, err := r.session(req)
	if err != nil {
		return err
	}
	req.Body = http.MaxBytesReader(w, req.Body, maxUpload)
	if err := req.ParseMultipartForm(maxUpload); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return badRequest("invalid form: %v", err)
	}

	var src acquisition.Source
	file, hdr, err := req.FormFile("image")
	switch {
	case err == nil:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return badRequest("read image: %v", err)
		}
		src = acquisition.LocalFile{
			Filename: middleware.SanitizeString(hdr.Filename),
			MimeType: hdr.Header.Get("Content-Type"),
			Data:     data,
		}
	case req.FormValue("sampleId") != "":
		in := acquireSample{SampleID: req.FormValue("sampleId")}
		if err := r.validate.Struct(in); err != nil {
			return err
		}
		src = acquisition.SampleRef{OwnerID: owner(req), SampleID: samples.SampleID(in.SampleID)}
	default:
		return badRequest("image file or sampleId required")
	}

	acq, err := ctrl.Acquire(req.Context(), src)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{
		"state":       ctrl.State(),
		"acquisition": acq,
	})
}

// POST /v1/{owner}/sessions/{sid}/submit
// Analysis runs in the background; poll the session for the result.
func (r *Router) handleSubmit(w http.ResponseWriter, req *http.Request) error {
	ctrl, err := r.session(req)
	if err != nil {
		return err
	}
	if err := ctrl.Start(background(req)); err != nil {
		return err
	}
	return writeJSON(w, http.StatusAccepted, map[string]any{
		"state":   ctrl.State(),
		"message": "analysis started in background",
	})
}

type saveRequest struct {
	Name string `json:"name" validate:"max=255"`
}

// POST /v1/{owner}/sessions/{sid}/save
func (r *Router) handleSave(w http.ResponseWriter, req *http.Request) error {
	ctrl, err := r.session(req)
	if err != nil {
		return err
	}
	var body saveRequest
	if err := decodeOptionalJSON(req, &body); err != nil {
		return err
	}
	body.Name = middleware.SanitizeString(body.Name)
	if err := r.validate.Struct(body); err != nil {
		return err
	}

	id, err := ctrl.Save(background(req), body.Name)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, map[string]any{
		"state":    ctrl.State(),
		"recordId": id,
	})
}

// POST /v1/{owner}/sessions/{sid}/reset
func (r *Router) handleReset(w http.ResponseWriter, req *http.Request) error {
	ctrl, err := r.session(req)
	if err != nil {
		return err
	}
	ctrl.Reset()
	return writeJSON(w, http.StatusOK, ctrl.Snapshot())
}
