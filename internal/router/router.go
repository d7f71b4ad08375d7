package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-storefront/internal/config"
	"go-storefront/internal/handler"
	"go-storefront/internal/middleware"
	"go-storefront/internal/model"
)

// New assembles the HTTP surface. Guards on mutating routes run in a fixed
// order: authentication, then CSRF, then role checks. The API is reachable
// both under /api and at the root so older clients keep working.
func New(
	cfg *config.Config,
	policy middleware.SecurityPolicy,
	authMiddleware *middleware.AuthMiddleware,
	csrfMiddleware *middleware.CsrfMiddleware,
	authHandler *handler.AuthHandler,
	productHandler *handler.ProductHandler,
	orderHandler *handler.OrderHandler,
	customerHandler *handler.CustomerHandler,
	uploadHandler *handler.UploadHandler,
) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	if policy.RateLimiting {
		r.Use(rateLimitMiddleware.Handler)
	}

	csrf := passthrough
	if policy.CSRFProtection {
		csrf = csrfMiddleware.Protect
	}

	auth := authMiddleware.RequireAuth
	admin := authMiddleware.RequireRoles(model.RoleAdmin)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	api := func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Get("/csrf-token", csrfMiddleware.TokenHandler)

		api.Route("/auth", func(ar chi.Router) {
			ar.With(csrf).Post("/login", authHandler.Login)
			ar.With(csrf).Post("/register", authHandler.Register)
			ar.With(csrf).Post("/token", authHandler.Refresh)
			ar.Get("/token", authHandler.Refresh)
			ar.With(csrf).Post("/logout", authHandler.Logout)
			ar.Get("/logout", authHandler.Logout)
			ar.With(auth).Get("/user", authHandler.Me)
			ar.With(auth).Get("/user/roles", authHandler.MyRoles)
			ar.With(auth, csrf).Patch("/me", authHandler.UpdateMe)
		})

		api.Route("/product", func(pr chi.Router) {
			pr.Get("/", productHandler.List)
			pr.With(auth, csrf, admin).Post("/", productHandler.Create)
			pr.With(auth, csrf, admin).Patch("/{productId}", productHandler.Update)
			pr.With(auth, csrf, admin).Delete("/{productId}", productHandler.Delete)
		})

		orders := func(or chi.Router) {
			or.With(auth, csrf).Post("/", orderHandler.Create)
			or.With(auth, admin).Get("/", orderHandler.List)
			or.With(auth, admin).Get("/all", orderHandler.List)
			or.With(auth).Get("/all/me", orderHandler.ListMine)
			or.With(auth).Get("/me", orderHandler.ListMine)
			or.With(auth).Get("/me/{orderNumber}", orderHandler.GetMineByNumber)
			or.With(auth, admin).Get("/{orderNumber}", orderHandler.GetByNumber)
			or.With(auth, csrf, admin).Patch("/{orderNumber}", orderHandler.UpdateStatus)
			or.With(auth, csrf, admin).Delete("/{orderNumber}", orderHandler.Delete)
		}
		api.Route("/orders", orders)
		api.Route("/order", orders)

		customers := func(cr chi.Router) {
			cr.With(auth, admin).Get("/", customerHandler.List)
			cr.With(auth, admin).Get("/{id}", customerHandler.Get)
			cr.With(auth, csrf, admin).Patch("/{id}", customerHandler.UpdateRoles)
			cr.With(auth, csrf, admin).Delete("/{id}", customerHandler.Delete)
		}
		api.Route("/customers", customers)
		api.Route("/users", customers)

		api.With(auth, csrf, admin).Post("/upload", uploadHandler.Upload)
	}

	r.Route("/api", api)
	r.Group(api)

	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir))))
	r.Handle("/*", http.FileServer(http.Dir(cfg.PublicDir)))

	return r
}

func passthrough(next http.Handler) http.Handler {
	return next
}
