package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/davidrioja/reelforge/internal/core"
	"github.com/davidrioja/reelforge/internal/intent"
)

// requestBody is the JSON body of POST /projects/{id}/requests.
type requestBody struct {
	Prompt    string   `json:"prompt"`
	ImageURLs []string `json:"image_urls,omitempty"`
	BrandURL  string   `json:"brand_url,omitempty"`
}

// repairBody is the JSON body of POST /projects/{id}/repair.
type repairBody struct {
	SceneID string `json:"scene_id"`
}

// handleRequest runs one orchestration request end to end and returns the
// outcome, including the recomposed timeline.
func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	projectID := core.ProjectID(chi.URLParam(r, "projectID"))

	var body requestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, core.ErrValidation("BAD_JSON", "request body is not valid JSON"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	req := intent.Request{
		ProjectID: projectID,
		Prompt:    body.Prompt,
		ImageURLs: body.ImageURLs,
	}

	if body.BrandURL != "" {
		if s.extractor == nil {
			s.respondError(w, core.ErrValidation("BRAND_DISABLED", "brand extraction is not enabled"))
			return
		}
		brand, err := s.extractor.Extract(ctx, body.BrandURL)
		if err != nil {
			s.respondError(w, err)
			return
		}
		req.Brand = brand
	}

	outcome, err := s.coordinator.HandleRequest(ctx, req)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, outcome)
}

// handleRepair triggers a user-initiated repair for one broken scene.
func (s *Server) handleRepair(w http.ResponseWriter, r *http.Request) {
	projectID := core.ProjectID(chi.URLParam(r, "projectID"))

	var body repairBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, core.ErrValidation("BAD_JSON", "request body is not valid JSON"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	snap, err := s.store.Snapshot(ctx, projectID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	scene, ok := snap.Find(core.SceneID(body.SceneID))
	if !ok {
		s.respondError(w, core.ErrNotFound("scene", body.SceneID))
		return
	}
	if !scene.IsBroken() {
		s.respondError(w, core.ErrState("SCENE_NOT_BROKEN",
			"scene "+body.SceneID+" is not broken"))
		return
	}

	rr := core.RepairRequest{
		ProjectID:  projectID,
		SceneID:    scene.ID,
		SceneName:  scene.Meta.Name,
		ErrorText:  scene.Error,
		BrokenCode: scene.Code,
		Origin:     core.RepairUser,
		DetectedAt: time.Now(),
	}
	outcome, err := s.coordinator.HandleRepair(ctx, rr)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, outcome)
}
