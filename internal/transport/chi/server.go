package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	logpkg "github.com/kailas-cloud/boost/internal/logger"
	boostuc "github.com/kailas-cloud/boost/internal/usecase/boost"
	healthuc "github.com/kailas-cloud/boost/internal/usecase/health"
	"github.com/kailas-cloud/boost/internal/usecase/ratelimit"
	usageuc "github.com/kailas-cloud/boost/internal/usecase/usage"
)

// DefaultMaxBodyBytes caps the POST /boost body.
const DefaultMaxBodyBytes int64 = 16 << 20

// Server serves the boost HTTP API.
type Server struct {
	gate         *ratelimit.Gate
	boost        *boostuc.Service
	usage        *usageuc.Service
	health       *healthuc.Service
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(
	gate *ratelimit.Gate,
	boost *boostuc.Service,
	usage *usageuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	return &Server{
		gate:         gate,
		boost:        boost,
		usage:        usage,
		health:       health,
		maxBodyBytes: DefaultMaxBodyBytes,
		logger:       logger,
	}
}

// WithMaxBodyBytes overrides the request body cap. Non-positive keeps the default.
func (s *Server) WithMaxBodyBytes(n int64) *Server {
	if n > 0 {
		s.maxBodyBytes = n
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r gochi.Router) {
	r.With(RateLimitMiddleware(s.gate, s.logger)).Post("/boost", s.Boost)
	r.Get("/usage", s.GetUsage)
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())
}

// Boost handles POST /boost.
func (s *Server) Boost(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)

	var req boostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	res, err := s.boost.Generate(r.Context(), req.Text)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, boostResponse{
		Message: res.Message,
		TokenUsage: tokenUsage{
			InputTokens:  res.InputTokens,
			OutputTokens: res.OutputTokens,
			TotalTokens:  res.TotalTokens(),
		},
	})
}

// GetUsage handles GET /usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	report, err := s.usage.Stats(r.Context(), ClientIP(r))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	daily, monthly := report.DailyRequests(), report.MonthlyTokens()
	writeJSON(w, http.StatusOK, usageResponse{
		DailyRequests: usageWindow{
			Current:   daily.Current(),
			Limit:     daily.Limit(),
			Remaining: daily.Remaining(),
		},
		MonthlyTokens: usageWindow{
			Current:   monthly.Current(),
			Limit:     monthly.Limit(),
			Remaining: monthly.Remaining(),
		},
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if !report.Serving() {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	handleDomainError(w, logpkg.FromContextOr(r.Context(), s.logger), err)
}
