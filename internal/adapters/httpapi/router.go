package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs the API HTTP router. This is intentionally a thin
// adapter: handlers decode and delegate to the application services.
func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()

	// Baseline production-safe middleware (minimal but useful).
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Health endpoint for infra checks.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/licenses", func(r chi.Router) {
		r.Post("/", s.issueLicense)
		r.Get("/", s.listLicenses)
		r.Route("/{licenseId}", func(r chi.Router) {
			r.Get("/", s.getLicense)
			r.Patch("/", s.updateLicense)
			r.Delete("/", s.deleteLicense)

			r.Post("/points/deduct", s.deductPoints)
			r.Post("/points/restore", s.restorePoints)
			r.Post("/points/reset", s.resetPoints)

			r.Get("/renewal", s.renewalStatus)
			r.Post("/renew", s.renewLicense)
			r.Post("/suspend", s.suspendLicense)
			r.Post("/revoke", s.revokeLicense)
			r.Post("/transfer", s.transferLicense)
		})
	})

	r.Route("/exams", func(r chi.Router) {
		r.Post("/", s.recordExam)
		r.Route("/{examId}", func(r chi.Router) {
			r.Get("/", s.getExam)
			r.Patch("/", s.updateExam)
			r.Delete("/", s.deleteExam)
		})
	})

	r.Route("/drivers", func(r chi.Router) {
		r.Post("/", s.createDriver)
		r.Route("/{driverId}", func(r chi.Router) {
			r.Get("/", s.getDriver)
			r.Get("/exams", s.listDriverExams)
			r.Get("/exams/eligibility", s.examEligibility)
			r.Get("/exams/complete", s.examChainComplete)
		})
	})

	r.Route("/entities", func(r chi.Router) {
		r.Post("/", s.createEntity)
		r.Get("/{entityId}", s.getEntity)
	})

	r.Get("/stats/exams/pass-rate", s.passRate)

	return r
}
