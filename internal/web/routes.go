package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/tomasmach/photo-triage/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	// Create handlers
	recognitionHandler := handlers.NewRecognitionHandler(s.deps.Recognition)
	similarityHandler := handlers.NewSimilarityHandler(s.deps.Similarity, s.deps.SimilarityThreshold)
	mediaHandler := handlers.NewMediaHandler(s.deps.Media)
	groupsHandler := handlers.NewGroupsHandler(s.deps.Groups)
	facesHandler := handlers.NewFacesHandler(s.deps.Faces, s.deps.Media, s.deps.Vectors)
	scanHandler := handlers.NewScanHandler(s.deps.Scanner, s.deps.Recognition)

	// Health check
	s.router.Get("/api/v1/healthz", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Ingestion
		r.Post("/scan", scanHandler.Run)

		// Recognition engine control surface
		r.Post("/recognition/start", recognitionHandler.Start)
		r.Post("/recognition/stop", recognitionHandler.Stop)
		r.Post("/recognition/retry", recognitionHandler.Retry)
		r.Get("/recognition/status", recognitionHandler.Status)
		r.Get("/recognition/events", recognitionHandler.Events)

		// Groups
		r.Get("/groups", groupsHandler.List)
		r.Get("/groups/{name}", groupsHandler.Get)
		r.Put("/groups/{name}/selection", groupsHandler.UpdateSelection)
		r.Post("/groups/{name}/seen", groupsHandler.MarkSeen)

		// Faces
		r.Get("/faces", facesHandler.List)
		r.Put("/faces/{id}", facesHandler.Update)
		r.Get("/faces/{id}/vector", facesHandler.Vector)

		// Media items
		r.Get("/media", mediaHandler.List)
		r.Put("/media/classification", mediaHandler.UpdateClassification)
		r.Put("/media/subject", mediaHandler.UpdateSubject)

		// Similarity
		r.Post("/similarity/groups", similarityHandler.FlagGroups)
		r.Get("/similarity/status", similarityHandler.Status)

		// Classification suggestions, only with an AI provider configured
		if s.deps.AIProvider != nil {
			classifyHandler := handlers.NewClassifyHandler(s.deps.AIProvider, s.deps.Media, s.deps.Labels)
			r.Post("/classify/suggest", classifyHandler.Suggest)
		}
	})
}
