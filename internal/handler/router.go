package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"atb-backend/config"
	"atb-backend/internal/middleware"
	"atb-backend/pkg/httputil"
)

// NewRouter はルーターを生成する。
func NewRouter(auth *AuthHandler, users *UserHandler, products *ProductHandler, verifier middleware.TokenVerifier, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// ミドルウェア
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// ルート定義
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", auth.Register)
			r.Post("/login", auth.Login)
			r.Post("/refresh", auth.Refresh)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth(verifier))
				r.Get("/me", auth.Me)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.RequireAuth(verifier))
			r.Get("/", users.ListUsers)
			r.Get("/{user_id}", users.GetUser)
			r.Put("/{user_id}", users.UpdateUser)
			r.Delete("/{user_id}", users.DeleteUser)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", products.ListProducts)
			r.Get("/{product_id}", products.GetProduct)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth(verifier))
				r.Post("/", products.CreateProduct)
				r.Put("/{product_id}", products.UpdateProduct)
				r.Delete("/{product_id}", products.DeleteProduct)
			})
		})
	})

	if cfg.OtelEnabled {
		return otelhttp.NewHandler(r, "server")
	}
	return r
}
