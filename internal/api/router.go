package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"antirisk.com/intelligence-unit/internal/metrics"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	r.Handle("/metrics", metrics.Handler())

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		// Public routes: the gate itself plus health
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})
		r.Get("/gate", apiHandler.GateStatusHandler)
		r.Post("/gate/pin", apiHandler.GatePinHandler)
		r.Post("/gate/reset", apiHandler.GateResetHandler)

		// Session-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.SessionAuthMiddleware)

			// Advisor chat
			r.Get("/chat", apiHandler.ListMessagesHandler)
			r.Post("/chat/messages", apiHandler.PostMessageHandler)
			r.Post("/chat/messages/{messageID}/pin", apiHandler.TogglePinHandler)
			r.Delete("/chat", apiHandler.ClearChatHandler)

			// Intelligence hub
			r.Post("/intel/search", apiHandler.BestPracticesHandler)

			// Training builder
			r.Post("/training", apiHandler.TrainingHandler)

			// Report analyzer
			r.Get("/reports", apiHandler.ListReportsHandler)
			r.Post("/reports", apiHandler.AnalyzeReportHandler)

			// Weekly tips
			r.Get("/tips", apiHandler.ListTipsHandler)
			r.Post("/tips", apiHandler.GenerateTipHandler)

			// Operational insights
			r.Get("/insights", apiHandler.GetInsightsHandler)
			r.Post("/insights", apiHandler.GenerateInsightsHandler)

			// Knowledge base
			r.Get("/knowledge", apiHandler.ListKnowledgeHandler)
			r.Post("/knowledge", apiHandler.AddKnowledgeHandler)
			r.Delete("/knowledge/{docID}", apiHandler.DeleteKnowledgeHandler)

			// Toolkit, profile, wipe
			r.Get("/templates", apiHandler.ListTemplatesHandler)
			r.Get("/profile", apiHandler.GetProfileHandler)
			r.Put("/profile", apiHandler.UpdateProfileHandler)
			r.Post("/wipe", apiHandler.WipeHandler)
		})
	})

	return r
}
