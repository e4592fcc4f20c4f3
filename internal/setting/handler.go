package setting

import (
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/chiremba/chiremba-api/pkg/utilities"
)

// Config is the client-facing configuration. It never carries provider keys.
type Config struct {
	FastAPIURL    string
	ExpressAPIURL string
}

func envOr(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// ConfigFromEnv reads FASTAPI_URL and EXPRESS_API_URL, accepting the VITE_ names as fallbacks.
func ConfigFromEnv() Config {
	return Config{
		FastAPIURL:    envOr("FASTAPI_URL", "VITE_FASTAPI_URL"),
		ExpressAPIURL: envOr("EXPRESS_API_URL", "VITE_EXPRESS_API_URL"),
	}
}

// Handler serves the web client's runtime configuration.
type Handler struct {
	cfg       Config
	providers map[string]bool
	logger    *zap.SugaredLogger
}

// NewHandler constructs a new Handler. providers reports which AI backends are usable.
func NewHandler(cfg Config, providers map[string]bool, logger *zap.SugaredLogger) *Handler {
	return &Handler{cfg: cfg, providers: providers, logger: logger}
}

// Get returns service URLs and provider availability. Provider calls go through
// /api/ai/*, so the client has no use for the keys themselves.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	utilities.WriteJSON(w, http.StatusOK, map[string]any{
		"FASTAPI_URL":     h.cfg.FastAPIURL,
		"EXPRESS_API_URL": h.cfg.ExpressAPIURL,
		"providers":       h.providers,
	})
}
