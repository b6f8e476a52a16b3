package routes

import (
	"net/http"

	"mediumplus/app/controllers"
	"mediumplus/app/metrics"
	"mediumplus/app/middleware"
	"mediumplus/app/views"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Handlers are the controllers and collaborators the router dispatches to.
type Handlers struct {
	Posts    *controllers.PostController
	Comments *controllers.CommentController
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

// SetupRoutes defines the application's routes and returns a router.
func SetupRoutes(h Handlers) *mux.Router {
	router := mux.NewRouter()

	// Serve static files
	router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", views.Static()))

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok\n"))
	}).Methods("GET", "HEAD")
	if h.Metrics != nil {
		router.Handle("/metrics", h.Metrics.Handler()).Methods("GET")
	}

	// Web routes
	router.HandleFunc("/", h.Posts.Index).Methods("GET", "HEAD")
	router.HandleFunc("/post/{slug}", h.Posts.Show).Methods("GET", "HEAD")
	router.HandleFunc("/post/{slug}/comments", h.Comments.Create).Methods("POST")

	// API routes with JSON content type
	api := router.PathPrefix("/api").Subrouter()
	api.Use(middleware.ContentTypeJSON)
	api.HandleFunc("/createComment", h.Comments.CreateAPI).Methods("POST")
	api.HandleFunc("/createComment", h.Comments.MethodNotAllowed)

	router.NotFoundHandler = http.HandlerFunc(h.Posts.NotFound)

	return router
}

// Handler wraps the router with request ids, access logging, panic recovery
// and tracing. Unmatched routes pass through the same chain.
func Handler(h Handlers) http.Handler {
	logger := h.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := SetupRoutes(h)
	var handler http.Handler = router
	handler = middleware.Recoverer(logger)(handler)
	handler = middleware.Logger(logger.Named("http"))(handler)
	handler = middleware.RequestID(handler)
	return otelhttp.NewHandler(handler, "mediumplus",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + routeTemplate(router, r)
		}))
}

// routeTemplate names a request by its route pattern, e.g. /post/{slug}.
func routeTemplate(router *mux.Router, r *http.Request) string {
	var match mux.RouteMatch
	if router.Match(r, &match) && match.Route != nil {
		if tpl, err := match.Route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
