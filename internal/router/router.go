package router

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/chiremba/chiremba-api/internal/ai"
	"github.com/chiremba/chiremba-api/internal/auth"
	"github.com/chiremba/chiremba-api/internal/setting"
	"github.com/chiremba/chiremba-api/internal/user"
)

const requestIDHeader = "X-Request-ID"

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

type requestIDKey struct{}

// RequestIDFromContext returns the id assigned by RequestIDMiddleware.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestIDMiddleware keeps a caller-supplied X-Request-ID or assigns a new UUID,
// echoes it on the response and stores it on the request context.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if id == "" || len(id) > 128 {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
		})
	}
}

// LoggingMiddleware returns a middleware that logs requests using the provided sugared logger.
// Server errors are logged at warn level, everything else at debug.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			// ensure status is set
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			log := logger.Debugw
			if status >= http.StatusInternalServerError {
				log = logger.Warnw
			}
			log("http request",
				"request_id", RequestIDFromContext(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware returns a middleware that sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Prevent MIME sniffing
			w.Header().Set("X-Content-Type-Options", "nosniff")

			// Clickjacking protection
			w.Header().Set("X-Frame-Options", "DENY")

			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")

			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none';")
			}

			// HSTS only over TLS.
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string
}

// CORSConfigFromEnv reads the comma separated CORS_ALLOWED_ORIGINS.
func CORSConfigFromEnv() CORSConfig {
	raw := os.Getenv("CORS_ALLOWED_ORIGINS")
	if raw == "" {
		raw = "http://localhost:5173"
	}
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return CORSConfig{AllowedOrigins: origins}
}

func (c CORSConfig) middleware() func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   c.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           600,
	}).Handler
}

// Deps carries the handlers mounted by RegisterRoutes.
type Deps struct {
	Logger   *zap.SugaredLogger
	Auth     *auth.Middleware
	Tokens   *auth.Handler
	Users    *user.Handler
	AI       *ai.Handler
	Settings *setting.Handler
	CORS     CORSConfig
}

// RegisterRoutes mounts HTTP handlers using the standard library's http.ServeMux.
func RegisterRoutes(d Deps) http.Handler {
	mux := http.NewServeMux()

	authed := func(h http.HandlerFunc) http.Handler { return d.Auth.Authenticate(h) }
	admin := func(h http.HandlerFunc) http.Handler { return d.Auth.Authenticate(auth.RequireAdmin(h)) }

	// health
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// auth
	mux.HandleFunc("POST /api/auth/register", d.Users.Register)
	mux.HandleFunc("POST /api/auth/login", d.Users.Login)
	mux.HandleFunc("POST /api/auth/setup-password", d.Users.SetupPassword)
	mux.Handle("GET /api/auth/me", authed(d.Users.Me))
	mux.HandleFunc("POST /api/auth/introspect", d.Tokens.Introspect)

	// account administration
	mux.Handle("GET /api/users", admin(d.Users.List))
	mux.Handle("GET /api/users/staff", admin(d.Users.ListStaff))
	mux.Handle("POST /api/users/staff", admin(d.Users.CreateStaff))
	mux.Handle("POST /api/users/admin", admin(d.Users.CreateAdmin))
	mux.Handle("DELETE /api/users/{id}", admin(d.Users.Delete))
	mux.Handle("PATCH /api/users/{id}/role", admin(d.Users.ChangeRole))
	mux.Handle("POST /api/users/{id}/reset-account", admin(d.Users.ResetAccount))
	mux.HandleFunc("POST /api/init-admin", d.Users.InitAdmin)

	// ai proxy
	mux.HandleFunc("POST /api/ai/openai/chat", d.AI.OpenAIChat)
	mux.HandleFunc("POST /api/ai/openai/tts", d.AI.OpenAITTS)
	mux.HandleFunc("POST /api/ai/google/tts", d.AI.GoogleTTS)
	mux.HandleFunc("POST /api/ai/elevenlabs/tts", d.AI.ElevenLabsTTS)
	mux.HandleFunc("POST /api/ai/googleai/chat", d.AI.GeminiChat)

	mux.HandleFunc("GET /api/config", d.Settings.Get)

	// outermost first: request id, logging, CORS, security headers
	var handler http.Handler = mux
	handler = SecurityHeadersMiddleware()(handler)
	handler = d.CORS.middleware()(handler)
	handler = LoggingMiddleware(d.Logger)(handler)
	handler = RequestIDMiddleware()(handler)
	return handler
}
