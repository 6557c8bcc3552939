package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yashasviy/banco-solar-api/logging"
	"github.com/yashasviy/banco-solar-api/middleware"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the collaborators the router wires into the handlers.
// RateLimiter and DB are optional.
type Deps struct {
	Accounts    AccountService
	Transfers   TransferService
	DB          Pinger
	RateLimiter *middleware.RateLimiter
	Logger      *zap.Logger
}

// NewRouter builds the HTTP surface of the service.
func NewRouter(d Deps) http.Handler {
	logger := logging.OrNop(d.Logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger.Named("http")))
	r.Use(chimw.Recoverer)

	r.Get("/health", HealthHandler(d.DB))

	r.Group(func(r chi.Router) {
		if d.RateLimiter != nil {
			r.Use(d.RateLimiter.Handler)
		}

		r.Post("/usuario", CreateAccountHandler(d.Accounts, logger))
		r.Get("/usuarios", ListAccountsHandler(d.Accounts, logger))
		r.Put("/usuario", UpdateAccountHandler(d.Accounts, logger))
		r.Delete("/usuario", DeleteAccountHandler(d.Accounts, logger))

		r.Post("/transferencia", TransferHandler(d.Transfers, logger))
		r.Get("/transferencias", ListTransfersHandler(d.Transfers, logger))
	})

	return r
}

// HealthHandler answers 200 when the database responds to a ping.
func HealthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := db.PingContext(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
