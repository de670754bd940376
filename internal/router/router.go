package router

import (
	"net/http"
	"strings"
	"time"

	"badgehub/internal/handlers/api/v1/badges"
	"badgehub/internal/middleware"
	"badgehub/internal/response"
	"badgehub/internal/services"

	"go.uber.org/zap"
)

// SetupRouter configures all HTTP routes and returns the main handler
func SetupRouter(serviceCollection *services.ServiceCollection, authMiddleware *middleware.AuthMiddleware, responseBuilder *response.Builder, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	badgeController := badges.NewBadgeController(serviceCollection, logger, responseBuilder)

	requireCreate := authMiddleware.RequirePermission(middleware.PermissionCreateBadge)
	requireIssue := authMiddleware.RequirePermission(middleware.PermissionIssueBadge)

	// Collection endpoint: list is public, create needs the
	// createbadge permission.
	mux.Handle("/api/v1/badges", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			requireCreate(http.HandlerFunc(badgeController.CreateBadge)).ServeHTTP(w, r)
		default:
			badgeController.ListBadges(w, r)
		}
	}))

	// Everything under the badge prefix dispatches on path shape. The
	// document URLs are fixed: each document's id field names the URL
	// it is served at.
	mux.Handle("/api/v1/badges/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/badges/"), "/")
		parts := strings.Split(rest, "/")

		switch {
		case rest == "issuer":
			badgeController.GetIssuer(w, r)

		case len(parts) == 2 && parts[0] == "assertions":
			badgeController.GetAssertion(w, r)

		case len(parts) == 3 && parts[0] == "recipients" && parts[2] == "assertions":
			badgeController.ListRecipientAssertions(w, r)

		case len(parts) == 3 && parts[1] == "assertions":
			badgeController.GetBadgeAssertion(w, r)

		case len(parts) == 1:
			badgeController.GetBadgeClass(w, r)

		case len(parts) == 2 && parts[1] == "criteria":
			badgeController.GetCriteria(w, r)

		case len(parts) == 2 && parts[1] == "issue":
			requireIssue(http.HandlerFunc(badgeController.IssueBadge)).ServeHTTP(w, r)

		default:
			http.NotFound(w, r)
		}
	}))

	// Locally stored badge images, used when Cloudinary is not
	// configured.
	mux.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir("uploads"))))

	mux.HandleFunc("/health", healthHandler(serviceCollection, responseBuilder))

	logger.Info("router setup completed",
		zap.String("badge_prefix", "/api/v1/badges"),
	)

	return middleware.Chain(mux,
		middleware.RequestID(logger),
		middleware.StructuredLogger(),
		middleware.Recovery(logger),
		middleware.CORS(""),
		middleware.SecureHeaders,
	)
}

// healthHandler reports readiness of the database and cache.
func healthHandler(serviceCollection *services.ServiceCollection, responseBuilder *response.Builder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := serviceCollection.HealthCheck(r.Context()); err != nil {
			responseBuilder.WriteJSON(w, r, responseBuilder.Error(r.Context(), err), http.StatusServiceUnavailable)
			return
		}

		responseBuilder.WriteSuccess(w, r, map[string]interface{}{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
		})
	}
}
