// Package emulator is an in-memory implementation of the budgeting REST API.
// It backs the client's tests and can be run locally as cmd/budget-emulator.
package emulator

import (
	"net/http"

	"simplebudget/internal/log"
	"simplebudget/internal/metrics"
	"simplebudget/internal/middleware/ratelimit"
	"simplebudget/internal/middleware/security"
	"simplebudget/internal/middleware/trace"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Options struct {
	Logger  *log.Logger
	Metrics *metrics.Metrics
	// AllowedOrigins for browser front ends; defaults to any origin.
	AllowedOrigins []string
	// RateLimit throttles each signed-in user; nil disables it.
	RateLimit *ratelimit.Limiter
}

// NewRouter wires every endpoint onto a chi router.
func NewRouter(store *Store, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentEmulator)
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	h := NewHandler(store)
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(trace.NewMiddleware(logger).Middleware)
	r.Use(log.Middleware(logger))
	r.Use(opts.Metrics.InstrumentHandler)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Budget-ID", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware)
		if opts.RateLimit != nil {
			r.Use(opts.RateLimit.Middleware(func(r *http.Request) string {
				return userFrom(r.Context())
			}, func(w http.ResponseWriter, _ *http.Request) {
				writeJSONError(w, http.StatusTooManyRequests, "Too many requests")
			}))
		}

		r.Get("/budgets", h.ListBudgets)
		r.Post("/budgets", h.CreateBudget)
		r.Put("/budgets/{id}", h.RenameBudget)
		r.Delete("/budgets/{id}", h.DeleteBudget)
		r.Post("/budgets/{id}/invitations", h.CreateInvitation)

		r.Get("/invitations/{token}", h.GetInvitation)
		r.Post("/invitations/{token}/accept", h.AcceptInvitation)

		r.Group(func(r chi.Router) {
			r.Use(BudgetScope(store))

			r.Get("/budget-summary/{year}/{month}", h.MonthSummary)

			r.Post("/categories/", h.CreateCategory)
			r.Put("/categories/{id}", h.UpdateCategory)
			r.Delete("/categories/{id}", h.DeleteCategory)

			r.Post("/subcategories/", h.CreateSubcategory)
			r.Put("/subcategories/{id}", h.UpdateSubcategory)
			r.Delete("/subcategories/{id}", h.DeleteSubcategory)

			r.Post("/transactions/", h.CreateTransaction)
			r.Put("/transactions/{id}", h.UpdateTransaction)
			r.Delete("/transactions/{id}", h.DeleteTransaction)
		})
	})

	return r
}
