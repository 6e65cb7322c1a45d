package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/planforge/planforge/internal/adapter"
	"github.com/planforge/planforge/internal/notify"
	"github.com/planforge/planforge/internal/spec"
	"github.com/planforge/planforge/internal/storage"
)

// SpecGenerator is the AI boundary consumed by the handlers.
type SpecGenerator interface {
	GenerateCanonical(ctx context.Context, text string) (*spec.CanonicalSpec, error)
}

// Handler serves the plan, spec-record, and integration endpoints.
type Handler struct {
	specs        storage.SpecStore
	integrations storage.IntegrationStore
	generator    SpecGenerator
	registry     *adapter.Registry
	notifier     notify.Notifier
	logger       *slog.Logger
}

// NewHandler wires the handler's collaborators.
func NewHandler(specs storage.SpecStore, integrations storage.IntegrationStore, gen SpecGenerator, registry *adapter.Registry, notifier notify.Notifier, logger *slog.Logger) *Handler {
	return &Handler{
		specs:        specs,
		integrations: integrations,
		generator:    gen,
		registry:     registry,
		notifier:     notifier,
		logger:       logger,
	}
}

// Routes mounts every endpoint on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/plans/generate", h.handleGenerate)
		r.Post("/plans/canonical", h.handleGenerateCanonical)
		r.Post("/plans/render", h.handleRender)

		r.Route("/specs", func(r chi.Router) {
			r.Post("/", h.handleCreateSpec)
			r.Get("/", h.handleListSpecs)
			r.Get("/{id}", h.handleGetSpec)
			r.Put("/{id}", h.handleUpdateSpec)
			r.Put("/{id}/status", h.handleUpdateStatus)
			r.Post("/{id}/comments", h.handleAddComment)
		})

		r.Route("/integrations", func(r chi.Router) {
			r.Put("/{name}", h.handleSetIntegration)
			r.Get("/{name}", h.handleGetIntegration)
		})
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type generateRequest struct {
	Text         string   `json:"text"`
	Destinations []string `json:"destinations,omitempty"`
}

type generateResponse struct {
	Spec      *spec.CanonicalSpec        `json:"spec"`
	Documents map[string]json.RawMessage `json:"documents,omitempty"`
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		writeError(w, http.StatusBadRequest, "missing required input: text")
		return
	}

	s, err := h.generator.GenerateCanonical(r.Context(), req.Text)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	docs, err := h.renderAll(s, req.Destinations)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, generateResponse{Spec: s, Documents: docs})
}

func (h *Handler) handleGenerateCanonical(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		writeError(w, http.StatusBadRequest, "missing required input: text")
		return
	}

	s, err := h.generator.GenerateCanonical(r.Context(), req.Text)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, generateResponse{Spec: s})
}

type renderRequest struct {
	Spec         *spec.CanonicalSpec `json:"spec"`
	Destinations []string            `json:"destinations,omitempty"`
}

func (h *Handler) handleRender(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// The adapters tolerate partial specs; a body without the canonical
	// top-level structure is rejected before they run.
	if req.Spec == nil || (req.Spec.Metadata.Title == "" && len(req.Spec.Events) == 0) {
		writeError(w, http.StatusBadRequest, "missing required input: spec")
		return
	}

	docs, err := h.renderAll(req.Spec, req.Destinations)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, generateResponse{Documents: docs})
}

// renderAll fans the spec out to the requested destinations concurrently.
// The adapters are pure and share no state, so they run in parallel without
// coordination beyond collecting results.
func (h *Handler) renderAll(s *spec.CanonicalSpec, names []string) (map[string]json.RawMessage, error) {
	if len(names) == 0 {
		names = h.registry.Names()
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		docs     = make(map[string]json.RawMessage, len(names))
		firstErr error
	)
	for _, name := range names {
		rend, ok := h.registry.Get(name)
		if !ok {
			return nil, errors.New("unknown destination: " + name)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc, err := rend.Render(s)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			docs[rend.Name()] = doc
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return docs, nil
}

type specRequest struct {
	Spec     *spec.CanonicalSpec `json:"spec"`
	Rendered string              `json:"rendered,omitempty"`
}

func (h *Handler) handleCreateSpec(w http.ResponseWriter, r *http.Request) {
	var req specRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Spec == nil {
		writeError(w, http.StatusBadRequest, "missing required input: spec")
		return
	}

	rendered := req.Rendered
	if rendered == "" {
		rendered = spec.Markdown(req.Spec)
	}

	status := req.Spec.Metadata.Status
	if status == "" {
		status = spec.StatusDraft
	}
	if !spec.ValidStatus(status) {
		writeError(w, http.StatusBadRequest, "unknown status: "+string(status))
		return
	}
	req.Spec.Metadata.Status = status

	rec := &storage.Record{
		ID:       uuid.New().String(),
		Spec:     *req.Spec,
		Rendered: rendered,
		Status:   status,
	}
	if err := h.specs.Create(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) handleListSpecs(w http.ResponseWriter, r *http.Request) {
	opts := storage.ListOptions{
		Status: spec.Status(r.URL.Query().Get("status")),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		opts.Limit, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		opts.Offset, _ = strconv.Atoi(v)
	}

	recs, err := h.specs.List(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if recs == nil {
		recs = []*storage.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *Handler) handleGetSpec(w http.ResponseWriter, r *http.Request) {
	rec, err := h.specs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleUpdateSpec(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req specRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Spec == nil {
		writeError(w, http.StatusBadRequest, "missing required input: spec")
		return
	}

	rec, err := h.specs.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	rec.Spec = *req.Spec
	if req.Rendered != "" {
		rec.Rendered = req.Rendered
	} else {
		rec.Rendered = spec.Markdown(req.Spec)
	}
	if err := h.specs.Update(r.Context(), rec); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type statusRequest struct {
	Status  spec.Status      `json:"status"`
	Comment *storage.Comment `json:"comment,omitempty"`
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !spec.ValidStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "unknown status: "+string(req.Status))
		return
	}

	rec, err := h.specs.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	from := rec.Status
	rec.Status = req.Status
	rec.Spec.Metadata.Status = req.Status
	if err := h.specs.Update(r.Context(), rec); err != nil {
		writeStoreError(w, err)
		return
	}

	if req.Comment != nil && req.Comment.Body != "" {
		req.Comment.ID = uuid.New().String()
		if err := h.specs.AddComment(r.Context(), id, req.Comment); err != nil {
			writeStoreError(w, err)
			return
		}
		rec.Comments = append(rec.Comments, *req.Comment)
	}

	// Notification failures are logged inside the dispatcher, never
	// surfaced: the status update has already succeeded.
	_ = h.notifier.NotifyStatusChange(r.Context(), rec, from)

	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleAddComment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var c storage.Comment
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil || c.Body == "" {
		writeError(w, http.StatusBadRequest, "missing required input: body")
		return
	}
	c.ID = uuid.New().String()

	if err := h.specs.AddComment(r.Context(), id, &c); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

var integrationNames = map[string]bool{"chat": true, "issues": true}

func (h *Handler) handleSetIntegration(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !integrationNames[name] {
		writeError(w, http.StatusNotFound, "unknown integration: "+name)
		return
	}

	var cfg json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.integrations.SetIntegration(r.Context(), name, cfg); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (h *Handler) handleGetIntegration(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !integrationNames[name] {
		writeError(w, http.StatusNotFound, "unknown integration: "+name)
		return
	}

	cfg, err := h.integrations.GetIntegration(r.Context(), name)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(cfg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
