package httpapi

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"solarforge/internal/http/handlers"
	"solarforge/internal/infra"
	"solarforge/internal/middleware"
)

// RouterOptions carries the middleware dependencies of the public router.
type RouterOptions struct {
	LegsJWTSecret  string
	Limiter        middleware.Limiter
	AllowedOrigins []string
	Logger         infra.Logger
}

func NewRouter(app *handlers.App, opts RouterOptions) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
	)

	r.Get("/v1/healthz", app.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/legs", func(r chi.Router) {
		r.Use(middleware.AuthJWT(opts.LegsJWTSecret, middleware.ScopeLegsWrite))
		r.Post("/initiate", app.InitiateLeg)
		r.Post("/processor", app.ProcessorLeg)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.CORS(opts.AllowedOrigins))
		if opts.Limiter != nil {
			r.Use(middleware.RateLimit(opts.Limiter, opts.Logger))
		}
		reads := map[string]stdhttp.HandlerFunc{
			"/v1/galaxies/{galaxyID}/donations":    app.GalaxyDonations,
			"/v1/galaxies/{galaxyID}/balance":      app.GalaxyBalance,
			"/v1/users/{userID}/balance":           app.UserBalance,
			"/v1/issues/{issueID}/solar-forge":     app.IssueSolarForge,
			"/v1/versions/{versionID}/solar-forge": app.VersionSolarForge,
		}
		for pattern, h := range reads {
			r.Get(pattern, h)
			// preflight is answered by the CORS middleware
			r.Options(pattern, func(stdhttp.ResponseWriter, *stdhttp.Request) {})
		}
	})

	return r
}
