package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/davidrioja/reelforge/internal/compile"
	"github.com/davidrioja/reelforge/internal/core"
)

// handleListScenes returns the project's current scene snapshot.
func (s *Server) handleListScenes(w http.ResponseWriter, r *http.Request) {
	projectID := core.ProjectID(chi.URLParam(r, "projectID"))

	snap, err := s.store.Snapshot(r.Context(), projectID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, snap)
}

// reorderBody is the JSON body of POST /projects/{id}/scenes/reorder.
type reorderBody struct {
	Order []core.SceneID `json:"order"`
}

// handleReorder replaces the scene ordering and returns the recomposed
// timeline.
func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	projectID := core.ProjectID(chi.URLParam(r, "projectID"))

	var body reorderBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, core.ErrValidation("BAD_JSON", "request body is not valid JSON"))
		return
	}

	snap, err := s.store.Reorder(r.Context(), projectID, body.Order)
	if err != nil {
		s.respondError(w, err)
		return
	}
	timeline, _, err := s.compiler.CompileProject(r.Context(), snap)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, timeline)
}

// handleTimeline compiles the current snapshot and returns the composed
// timeline. Broken scenes appear as placeholder entries; the response is
// always a playable composition.
func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	projectID := core.ProjectID(chi.URLParam(r, "projectID"))

	snap, err := s.store.Snapshot(r.Context(), projectID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	timeline, _, err := s.compiler.CompileProject(r.Context(), snap)
	if err != nil {
		s.respondError(w, err)
		return
	}

	if r.URL.Query().Get("export") == "true" {
		path, err := compile.ExportManifest(timeline, s.exportDir())
		if err != nil {
			s.respondError(w, err)
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]any{
			"timeline": timeline,
			"manifest": path,
		})
		return
	}
	s.respondJSON(w, http.StatusOK, timeline)
}
