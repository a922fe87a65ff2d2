package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/flowgraph/pkg/buildinfo"
	"github.com/matzehuels/flowgraph/pkg/errors"
	pkgio "github.com/matzehuels/flowgraph/pkg/io"
	"github.com/matzehuels/flowgraph/pkg/nodes"
	"github.com/matzehuels/flowgraph/pkg/pipeline"
)

// =============================================================================
// Request and Response Types
// =============================================================================

// TransformRequest is the body of the transform endpoints. Exactly one of
// Document and Model must be set.
type TransformRequest struct {
	Document *pkgio.Document  `json:"document,omitempty"`
	Model    string           `json:"model,omitempty"`
	Options  pipeline.Options `json:"options"`
}

// TransformResponse is returned by the transform endpoints.
type TransformResponse struct {
	Name       string             `json:"name"`
	Hash       string             `json:"hash"`
	SourceHash string             `json:"source_hash"`
	Stats      pipeline.Stats     `json:"stats"`
	Cache      pipeline.CacheInfo `json:"cache"`
	Document   *pkgio.Document    `json:"document"`
	Artifacts  map[string]string  `json:"artifacts,omitempty"`
	Program    string             `json:"program,omitempty"`
}

// KindResponse describes one node kind.
type KindResponse struct {
	Kind        string   `json:"kind"`
	Description string   `json:"description"`
	Inputs      []string `json:"inputs,omitempty"`
	Refinable   bool     `json:"refinable"`
	Compilable  bool     `json:"compilable"`
	Archivable  bool     `json:"archivable"`
}

// =============================================================================
// Handlers
// =============================================================================

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	Status string         `json:"status"`
	Build  buildinfo.Info `json:"build"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{Status: "ok", Build: buildinfo.Get()})
}

func (s *Server) handleKinds(w http.ResponseWriter, _ *http.Request) {
	compilable := make(map[string]bool)
	for _, k := range nodes.CompilableKinds() {
		compilable[k] = true
	}
	var out []KindResponse
	for _, info := range nodes.Kinds() {
		out = append(out, KindResponse{
			Kind:        info.Kind,
			Description: info.Description,
			Inputs:      info.Inputs,
			Refinable:   info.Refinable,
			Compilable:  compilable[info.Kind],
			Archivable:  info.Decode != nil,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleTransform(op string, compile bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TransformRequest
		if err := decodeBody(r, &req); err != nil {
			s.respondError(w, r, err)
			return
		}
		doc, err := s.resolveDocument(r, &req)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		opts := req.Options
		opts.Operation = op
		opts.Compile = opts.Compile || compile

		res, err := s.runner.Execute(r.Context(), doc, opts)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		resp := TransformResponse{
			Name:       res.Name,
			Hash:       res.Hash,
			SourceHash: res.SourceHash,
			Stats:      res.Stats,
			Cache:      res.CacheInfo,
			Document:   res.Document,
			Artifacts:  make(map[string]string, len(res.Artifacts)),
		}
		for format, data := range res.Artifacts {
			resp.Artifacts[format] = string(data)
		}
		if res.Program != nil {
			resp.Program = res.Program.String()
		}
		respondJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) resolveDocument(r *http.Request, req *TransformRequest) (*pkgio.Document, error) {
	switch {
	case req.Document != nil && req.Model != "":
		return nil, errors.New(errors.ErrCodeInvalidInput, "set either document or model, not both")
	case req.Document != nil:
		return req.Document, nil
	case req.Model != "":
		if s.store == nil {
			return nil, errors.New(errors.ErrCodeUnsupported, "no model store configured")
		}
		return s.store.Get(r.Context(), req.Model)
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "document or model is required")
	}
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w, r) {
		return
	}
	names, err := s.store.List(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	respondJSON(w, http.StatusOK, map[string][]string{"models": names})
}

func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w, r) {
		return
	}
	doc, err := s.store.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handlePutModel(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w, r) {
		return
	}
	var doc pkgio.Document
	if err := decodeBody(r, &doc); err != nil {
		s.respondError(w, r, err)
		return
	}
	// Reject documents that validate but do not build.
	if _, _, err := pkgio.Build(&doc); err != nil {
		s.respondError(w, r, err)
		return
	}
	name := chi.URLParam(r, "name")
	if err := s.store.Put(r.Context(), name, &doc); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"name": name})
}

func (s *Server) handleDeleteModel(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w, r) {
		return
	}
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) requireStore(w http.ResponseWriter, r *http.Request) bool {
	if s.store == nil {
		s.respondError(w, r, errors.New(errors.ErrCodeUnsupported, "no model store configured"))
		return false
	}
	return true
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request body")
	}
	return nil
}
