package http

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/cors"

	"github.com/aussiebroadwan/rollcall/internal/rollcall/domain"
	"github.com/aussiebroadwan/rollcall/internal/rollcall/service"
	"github.com/aussiebroadwan/rollcall/internal/rollcall/store"
	"github.com/aussiebroadwan/rollcall/pkg/httpx"
	"github.com/aussiebroadwan/rollcall/pkg/jwtx"
	"github.com/aussiebroadwan/rollcall/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	// PublishJWKS serves the verification keys. Only set when rollcall
	// mints its own sessions.
	PublishJWKS bool

	// Limits are the per-family rate limits, read when routes are applied.
	Limits httpx.RateLimits

	IssuerService     *service.IssuerService
	RedeemerService   *service.RedeemerService
	DirectoryService  *service.DirectoryService
	AttendanceService *service.AttendanceService
}

func NewRouter(
	keys *jwtx.KeySet,
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
	corsOrigins []string,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		Limits:       httpx.DefaultRateLimits(),
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}
	if len(corsOrigins) > 0 {
		// The scanner app is a browser build on some gates.
		r.middlewares = append(r.middlewares, cors.Handler(cors.Options{
			AllowedOrigins: corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders: []string{slogx.RequestIDHeader},
			MaxAge:         300,
		}))
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAccessTokens()
	r.registerUsers()
	r.registerAttendance()
	r.registerSystem()
}

// ServeHTTP applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAccessTokens() {
	issue := &IssueTokenHandler{IssuerService: r.IssuerService}
	redeem := &RedeemTokenHandler{RedeemerService: r.RedeemerService}

	// Role gates run before any handler reads the body.
	r.Mux.Handle("POST /v1/access-tokens",
		httpx.Chain(issue,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireRole(roleIn(domain.RoleVolunteer)),
			httpx.RateLimitByUser(r.Limits.Issue),
		),
	)
	// No gate here: the redeemer rejects a missing token before it checks
	// the role, and takes the role from the session only.
	r.Mux.Handle("POST /v1/access-tokens/redeem",
		httpx.Chain(redeem,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(r.Limits.Scan),
		),
	)
}

func (r *Router) registerUsers() {
	setRole := &SetRoleHandler{DirectoryService: r.DirectoryService}
	list := &ListUsersHandler{DirectoryService: r.DirectoryService}

	r.Mux.Handle("POST /v1/users/role",
		httpx.Chain(setRole,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireRole(roleIn(domain.RoleAdmin, domain.RoleSuperAdmin)),
			httpx.RateLimitByUser(r.Limits.Admin),
		),
	)
	r.Mux.Handle("GET /v1/users",
		httpx.Chain(list,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireRole(roleIn(domain.RoleAdmin, domain.RoleSuperAdmin)),
			httpx.RateLimitByUser(r.Limits.Admin),
		),
	)
}

func (r *Router) registerAttendance() {
	h := &AttendanceHandler{AttendanceService: r.AttendanceService}

	// Any signed-in caller may read their own history.
	r.Mux.Handle("GET /v1/attendance/me",
		httpx.Chain(http.HandlerFunc(h.HandleMine),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(r.Limits.Admin),
		),
	)
	r.Mux.Handle("GET /v1/attendance",
		httpx.Chain(http.HandlerFunc(h.HandleAll),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireRole(roleIn(domain.RoleAdmin, domain.RoleSuperAdmin)),
			httpx.RateLimitByUser(r.Limits.Admin),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.Limits.Public),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys),
			httpx.RateLimitByIP(r.Limits.Public),
		),
	)
	if r.PublishJWKS {
		r.Mux.Handle("GET /.well-known/jwks.json",
			httpx.Chain(JWKSHandler(r.keys),
				httpx.RateLimitByIP(r.Limits.Public),
			),
		)
	}
}

// roleIn accepts any claim value that parses to one of roles, so legacy
// names and stray casing pass the same as canonical ones.
func roleIn(roles ...domain.Role) func(string) bool {
	return func(claim string) bool {
		r, err := domain.ParseRole(claim)
		return err == nil && slices.Contains(roles, r)
	}
}
