package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lexorahq/provision/internal/provision/identity"
	"github.com/lexorahq/provision/internal/provision/service"
	"github.com/lexorahq/provision/internal/provision/store"
	"github.com/lexorahq/provision/pkg/httpx"
	"github.com/lexorahq/provision/pkg/slogx"

	_ "github.com/lexorahq/provision/api/provision" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store    store.Store
	verifier *identity.TokenVerifier

	Registry  *service.RegistrationRegistry
	Detection *service.DetectionService
	Cleanup   *service.CleanupService
}

func NewRouter(
	buildVersion string,
	st store.Store,
	verifier *identity.TokenVerifier,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		verifier:     verifier,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerRegistrations()
	r.registerLogin()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Lexora Provisioning Service API
//	@version		0.1.0
//	@description	Tenant registration and login-time orphan detection for the Lexora platform.
//	@description
//	@description				Registrations are asynchronous: submitting returns a registration id whose
//	@description				phase is polled until it is terminal. Login checks verify that the identity
//	@description				behind a provider access token still has a valid account linkage.
//
//	@contact.name				Lexora Platform Team
//	@contact.url				https://github.com/lexorahq/provision
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Identity provider access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerRegistrations() {
	h := &RegistrationsHandler{Registry: r.Registry}

	// POST /v1/registrations - strict limit, fans out to the identity provider
	r.Mux.Handle("POST /v1/registrations",
		httpx.Chain(http.HandlerFunc(h.HandleSubmit),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("GET /v1/registrations/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("POST /v1/registrations/{id}/confirm",
		httpx.Chain(http.HandlerFunc(h.HandleConfirm),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("POST /v1/registrations/{id}/reset",
		httpx.Chain(http.HandlerFunc(h.HandleReset),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerLogin() {
	h := &LoginCheckHandler{
		Detection: r.Detection,
		Cleanup:   r.Cleanup,
		Verifier:  r.verifier,
	}

	r.Mux.Handle("POST /v1/login/check",
		httpx.Chain(h,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
	r.Mux.Handle("GET /metrics", promhttp.Handler())
}
