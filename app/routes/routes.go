package routes

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"inkpost/app/auth"
	"inkpost/app/controllers"
	"inkpost/app/metrics"
	"inkpost/app/middleware"
	"inkpost/app/rate"
	"inkpost/app/render"

	"github.com/gorilla/mux"
)

// Deps is everything the router hands requests to.
type Deps struct {
	Users   *controllers.UserController
	Posts   *controllers.PostController
	Tokens  *auth.TokenIssuer
	Metrics *metrics.Metrics
	Logger  *slog.Logger

	// Limiter throttles register and login per client. Nil disables it.
	Limiter       rate.Limiter
	AuthPerMinute int

	UploadsDir string
	CORSOrigin string
}

// SetupRoutes builds the API router. Metrics and the JSON content type are
// applied per matched route; logging, panic recovery and CORS wrap
// everything, unmatched requests included.
func SetupRoutes(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(notFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	if d.Metrics != nil {
		router.Use(middleware.Metrics(d.Metrics))
	}
	router.Use(middleware.ContentTypeJSON)

	authed := middleware.Authenticate(d.Tokens)
	limited := func(h http.HandlerFunc) http.Handler { return h }
	if d.Limiter != nil {
		throttle := middleware.RateLimit(d.Limiter, d.AuthPerMinute, time.Minute)
		limited = func(h http.HandlerFunc) http.Handler { return throttle(h) }
	}

	api := router.PathPrefix("/api").Subrouter()

	// Users API endpoints
	users := api.PathPrefix("/users").Subrouter()
	users.Handle("/register", limited(d.Users.Register)).Methods(http.MethodPost)
	users.Handle("/login", limited(d.Users.Login)).Methods(http.MethodPost)
	users.Handle("/change-avatar", authed(http.HandlerFunc(d.Users.ChangeAvatar))).Methods(http.MethodPost)
	users.Handle("/edit-user", authed(http.HandlerFunc(d.Users.EditUser))).Methods(http.MethodPatch)
	users.HandleFunc("/{id}", d.Users.Show).Methods(http.MethodGet)
	users.HandleFunc("", d.Users.Authors).Methods(http.MethodGet)

	// Posts API endpoints
	posts := api.PathPrefix("/posts").Subrouter()
	posts.HandleFunc("", d.Posts.Index).Methods(http.MethodGet)
	posts.Handle("", authed(http.HandlerFunc(d.Posts.Create))).Methods(http.MethodPost)
	posts.HandleFunc("/categories/{category}", d.Posts.ByCategory).Methods(http.MethodGet)
	posts.HandleFunc("/users/{id}", d.Posts.ByUser).Methods(http.MethodGet)
	posts.HandleFunc("/{id}", d.Posts.Show).Methods(http.MethodGet)
	posts.Handle("/{id}", authed(http.HandlerFunc(d.Posts.Edit))).Methods(http.MethodPatch)
	posts.Handle("/{id}", authed(http.HandlerFunc(d.Posts.Delete))).Methods(http.MethodDelete)

	// Stored thumbnails and avatars
	if d.UploadsDir != "" {
		files := http.StripPrefix("/uploads/", http.FileServer(http.Dir(d.UploadsDir)))
		router.PathPrefix("/uploads/").Handler(noListing(files)).Methods(http.MethodGet, http.MethodHead)
	}

	if d.Metrics != nil {
		router.Handle("/metrics", d.Metrics.Handler()).Methods(http.MethodGet)
	}
	router.HandleFunc("/healthz", healthz).Methods(http.MethodGet)

	var handler http.Handler = router
	handler = middleware.CORS(d.CORSOrigin)(handler)
	handler = middleware.Recoverer(logger)(handler)
	handler = middleware.Logger(logger)(handler)
	return handler
}

// noListing hides directory indexes.
func noListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			notFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	render.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	render.Error(w, http.StatusNotFound, "Not found - "+r.URL.Path)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	render.Error(w, http.StatusMethodNotAllowed, "Method "+r.Method+" not allowed on "+r.URL.Path)
}
