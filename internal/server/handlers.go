package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/resep/internal/models"
	"github.com/hyperjump/resep/internal/recommend"
	"github.com/hyperjump/resep/internal/similarity"
	"github.com/hyperjump/resep/internal/storage"
	"go.uber.org/zap"
)

const (
	msgNoIngredients = "No valid ingredients provided."
	msgNotReady      = "Model is not ready."
	msgRetrained     = "Model retrained successfully."
)

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req models.RecommendRequest
	// An empty body is a request without ingredients.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.logger.Debug("invalid recommend body", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	recipes, err := s.service.Recommend(r.Context(), req.Ingredients, req.K)
	if err != nil {
		status, message := statusForError(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("recommend failed", zap.Error(err))
		}
		s.respondError(w, status, message)
		return
	}
	s.respondJSON(w, http.StatusOK, models.RecommendResponse{
		Status:          models.StatusSuccess,
		Recommendations: recipes,
	})
}

func (s *Server) handleRetrain(w http.ResponseWriter, r *http.Request) {
	// A retrain outlives a disconnected client or the router timeout.
	n, err := s.service.Retrain(context.WithoutCancel(r.Context()))
	if err != nil {
		status, message := statusForError(err)
		s.respondError(w, status, message)
		return
	}
	s.logger.Debug("retrain request done", zap.Int("corpus_size", n))
	s.respondJSON(w, http.StatusOK, models.MessageResponse{
		Status:  models.StatusSuccess,
		Message: msgRetrained,
	})
}

func (s *Server) handleGetRecipe(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	recipe, err := s.store.GetRecipe(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "recipe not found")
			return
		}
		s.logger.Error("get recipe failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, recipe)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"model_ready": s.service.Ready(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stored, err := s.store.CountRecipes(r.Context())
	if err != nil {
		s.logger.Error("status: count recipes failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"model": s.service.Status(),
		"store": map[string]interface{}{
			"driver":  s.config.Storage.Driver,
			"recipes": stored,
		},
	})
}

// statusForError maps service errors to an HTTP status and client message.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, similarity.ErrEmptyQuery):
		return http.StatusBadRequest, msgNoIngredients
	case errors.Is(err, recommend.ErrNotReady):
		return http.StatusServiceUnavailable, msgNotReady
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, models.MessageResponse{Status: models.StatusError, Message: message})
}
