// Package services exposes the lifecycle engine over HTTP on the goa
// runtime muxer.
package services

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	goahttp "goa.design/goa/v3/http"
	"goa.design/goa/v3/http/middleware"
	"gorm.io/gorm"

	"visadesk/internal/auth"
	"visadesk/internal/config"
	"visadesk/internal/domain"
	"visadesk/internal/lifecycle"
	"visadesk/internal/metrics"
	apperrors "visadesk/pkg/errors"
)

// Options wires the HTTP layer
type Options struct {
	Engine *lifecycle.Engine
	Tokens *auth.TokenManager
	Users  *auth.Users
	DB     *gorm.DB
	Config *config.Config
	Log    *zap.Logger
}

// Server holds the handlers
type Server struct {
	engine *lifecycle.Engine
	tokens *auth.TokenManager
	users  *auth.Users
	db     *gorm.DB
	cfg    *config.Config
	log    *zap.Logger
	mux    goahttp.Muxer
}

// New creates the HTTP server handlers
func New(o Options) *Server {
	log := o.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		engine: o.Engine,
		tokens: o.Tokens,
		users:  o.Users,
		db:     o.DB,
		cfg:    o.Config,
		log:    log.Named("http"),
	}
}

// adminKinds maps admin path segments onto entity kinds
var adminKinds = map[string]domain.Kind{
	"applications":  domain.KindApplication,
	"consultations": domain.KindConsultation,
	"inquiries":     domain.KindInquiry,
	"testimonials":  domain.KindTestimonial,
	"blog":          domain.KindBlogPost,
	"comments":      domain.KindBlogComment,
}

type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func (s *Server) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			s.writeError(w, r, err)
		}
	}
}

// Mount registers every route on mux
func (s *Server) Mount(mux goahttp.Muxer) {
	s.mux = mux

	mux.Handle("GET", "/health", s.wrap(s.health))
	mux.Handle("POST", "/api/v1/auth/login", s.wrap(s.login))
	mux.Handle("GET", "/api/v1/auth/me", s.wrap(s.me))

	// public submissions and listings
	mux.Handle("POST", "/api/v1/applications", s.wrap(s.submitApplication))
	mux.Handle("POST", "/api/v1/consultations", s.wrap(s.submitConsultation))
	mux.Handle("POST", "/api/v1/inquiries", s.wrap(s.submitInquiry))
	mux.Handle("POST", "/api/v1/testimonials", s.wrap(s.submitTestimonial))
	mux.Handle("GET", "/api/v1/testimonials", s.wrap(s.publicTestimonials))
	mux.Handle("GET", "/api/v1/blog", s.wrap(s.publicPosts))
	mux.Handle("GET", "/api/v1/blog/{slug}", s.wrap(s.publishedPost))
	mux.Handle("GET", "/api/v1/blog/{id}/comments", s.wrap(s.publicComments))
	mux.Handle("POST", "/api/v1/blog/{id}/comments", s.wrap(s.addComment))

	// administration
	mux.Handle("GET", "/api/v1/admin/dashboard", s.wrap(s.dashboard))
	for segment, kind := range adminKinds {
		base := "/api/v1/admin/" + segment
		mux.Handle("GET", base, s.wrap(s.list(kind)))
		mux.Handle("GET", base+"/{id}", s.wrap(s.get(kind)))
		mux.Handle("DELETE", base+"/{id}", s.wrap(s.remove(kind)))
		if kind.IsCase() {
			mux.Handle("POST", base+"/{id}/transition", s.wrap(s.transition(kind)))
		}
	}
	mux.Handle("PATCH", "/api/v1/admin/applications/{id}/notes", s.wrap(s.applicationNotes))
	mux.Handle("PATCH", "/api/v1/admin/consultations/{id}/notes", s.wrap(s.consultationNotes))
	mux.Handle("POST", "/api/v1/admin/applications/{id}/documents", s.wrap(s.attachDocument))
	mux.Handle("POST", "/api/v1/admin/inquiries/{id}/reply", s.wrap(s.reply))
	mux.Handle("POST", "/api/v1/admin/testimonials/{id}/moderate", s.wrap(s.moderate(domain.KindTestimonial)))
	mux.Handle("POST", "/api/v1/admin/comments/{id}/moderate", s.wrap(s.moderate(domain.KindBlogComment)))
	mux.Handle("POST", "/api/v1/admin/testimonials/{id}/feature", s.wrap(s.feature))
	mux.Handle("POST", "/api/v1/admin/blog", s.wrap(s.createPost))
	mux.Handle("PUT", "/api/v1/admin/blog/{id}", s.wrap(s.updatePost))
	mux.Handle("POST", "/api/v1/admin/blog/{id}/publish", s.wrap(s.publishPost))
}

// Handler mounts the routes on a fresh goa muxer and wraps them in the
// middleware chain: security headers, CORS, request id, logging, metrics
// and authentication
func (s *Server) Handler() http.Handler {
	mux := goahttp.NewMuxer()
	s.Mount(mux)

	metricsHandler := promhttp.Handler()
	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			metricsHandler.ServeHTTP(w, r)
			return
		}
		mux.ServeHTTP(w, r)
	})

	var h http.Handler = root
	h = s.authenticate(h)
	h = metrics.PrometheusMiddleware(h)
	h = s.requestLogging(h)
	h = middleware.PopulateRequestContext()(h)
	h = middleware.RequestID(middleware.UseXRequestIDHeaderOption(true))(h)
	h = setupCORS(h, s.cfg)
	h = setupSecurityHeaders(h, s.cfg)
	return h
}

func (s *Server) decode(r *http.Request, v any) error {
	if err := goahttp.RequestDecoder(r).Decode(v); err != nil {
		return decodeError(err)
	}
	return nil
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	enc := goahttp.ResponseEncoder(r.Context(), w)
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := enc.Encode(v); err != nil {
		s.log.Warn("failed to encode response", zap.Error(err))
	}
}

// pathID reads the numeric id path parameter
func (s *Server) pathID(r *http.Request) (uint, error) {
	raw := s.mux.Vars(r)["id"]
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.New(apperrors.ErrCodeBadRequest, "invalid id "+strconv.Quote(raw))
	}
	return uint(id), nil
}
