package httpserver

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bryanwahyu/neuroscan/internal/domain/samples"
	"github.com/bryanwahyu/neuroscan/internal/middleware"
)

type sampleUpload struct {
	Name string `validate:"max=255"`
}

// GET /v1/{owner}/samples
func (r *Router) handleListSamples(w http.ResponseWriter, req *http.Request) error {
	list, err := r.samples.List(req.Context(), owner(req))
	if err != nil {
		return err
	}
	if list == nil {
		list = []*samples.Image{}
	}
	return writeJSON(w, http.StatusOK, list)
}

// POST /v1/{owner}/samples
// multipart fields "image" and optional "name"
func (r *Router) handleAddSample(w http.ResponseWriter, req *http.Request) error {
	req.Body = http.MaxBytesReader(w, req.Body, maxUpload)
	if err := req.ParseMultipartForm(maxUpload); err != nil {
		return badRequest("invalid form: %v", err)
	}
	file, hdr, err := req.FormFile("image")
	if err != nil {
		return badRequest("image file required")
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return badRequest("read image: %v", err)
	}

	in := sampleUpload{Name: middleware.SanitizeString(req.FormValue("name"))}
	if in.Name == "" {
		in.Name = middleware.SanitizeString(hdr.Filename)
	}
	if err := r.validate.Struct(in); err != nil {
		return err
	}

	img, err := r.samples.Add(req.Context(), owner(req), data, in.Name)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, img)
}

// DELETE /v1/{owner}/samples/{id}
func (r *Router) handleDeleteSample(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateID("sample", id); err != nil {
		return badRequest("%v", err)
	}
	if err := r.samples.Delete(req.Context(), owner(req), samples.SampleID(id)); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
