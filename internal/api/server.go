package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"monety/internal/auth"
	"monety/internal/invest"
	"monety/internal/metrics"
	"monety/internal/userlock"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type contextKey string

const userContextKey contextKey = "user"

type UserContext struct {
	UserID string
	Email  string
}

type Server struct {
	log      *slog.Logger
	tokens   *auth.Tokens
	svc      *invest.Service
	locks    userlock.Locker
	validate *validator.Validate
	mux      *chi.Mux
}

func New(logger *slog.Logger, tokens *auth.Tokens, svc *invest.Service, locks userlock.Locker) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if locks == nil {
		locks = userlock.Noop{}
	}
	s := &Server{
		log:      logger,
		tokens:   tokens,
		svc:      svc,
		locks:    locks,
		validate: validator.New(),
		mux:      chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)
		r.Get("/products", s.handleProducts)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/me", s.handleMe)
			r.Get("/investments", s.handleInvestments)
			r.Get("/checkin/status", s.handleCheckinStatus)
			r.Get("/roulette/status", s.handleRouletteStatus)
			r.Get("/stats/today", s.handleTodayStats)
			r.Get("/team", s.handleTeam)
			r.Get("/transactions", s.handleTransactions)

			r.Group(func(r chi.Router) {
				r.Use(s.userLock)
				r.Post("/investments", s.handlePurchase)
				r.Post("/checkin", s.handleCheckin)
				r.Post("/roulette/spin", s.handleSpin)
				r.Post("/deposits/simulate", s.handleDeposit)
				r.Post("/withdrawals", s.handleWithdraw)
			})
		})
	})
}

// observe records request metrics under the matched route pattern and logs
// one line per request.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		pattern := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		metrics.ObserveHTTP(r.Method, pattern, status, elapsed.Seconds())
		s.log.Debug("http request",
			"method", r.Method,
			"path", pattern,
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing bearer token")
			return
		}
		user, err := s.tokens.VerifyAccessToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, UserContext{
			UserID: user.ID,
			Email:  user.Email,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userLock lets one money-moving request per user through at a time.
func (s *Server) userLock(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := userFromContext(r.Context())
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
			return
		}
		release, err := s.locks.Acquire(r.Context(), user.UserID)
		if errors.Is(err, userlock.ErrBusy) {
			metrics.LockContention.Inc()
			writeError(w, http.StatusConflict, "request_in_progress", err.Error())
			return
		}
		if err != nil {
			s.log.Error("user lock unavailable", "user_id", user.UserID, "email", user.Email, "err", err)
			writeError(w, http.StatusServiceUnavailable, "dependency_failure", "lock service unavailable")
			return
		}
		defer release()
		next.ServeHTTP(w, r)
	})
}

func userFromContext(ctx context.Context) (UserContext, error) {
	v := ctx.Value(userContextKey)
	user, ok := v.(UserContext)
	if !ok || user.UserID == "" {
		return UserContext{}, errors.New("missing auth context")
	}
	return user, nil
}

func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch invest.KindOf(err) {
	case invest.KindValidation, invest.KindInsufficientFunds:
		status = http.StatusBadRequest
	case invest.KindNotFound:
		status = http.StatusNotFound
	case invest.KindConflict:
		status = http.StatusConflict
	case invest.KindWindowClosed:
		status = http.StatusForbidden
	case invest.KindUnauthenticated:
		status = http.StatusUnauthorized
	case invest.KindDependency:
		if errors.Is(err, invest.ErrTxConflict) {
			status = http.StatusServiceUnavailable
		}
	}
	message := err.Error()
	var de *invest.Error
	if errors.As(err, &de) && de.Message != "" {
		message = de.Message
	}
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "err", err)
		if status == http.StatusInternalServerError {
			message = "internal error"
		}
	}
	writeJSON(w, status, errorBody{Error: message, Code: invest.CodeOf(err), Kind: string(invest.KindOf(err))})
}

// bind decodes the JSON body into out and runs struct validation.
func (s *Server) bind(r *http.Request, out any) error {
	if err := decodeJSON(r, out); err != nil {
		return invest.Validation(fmt.Sprintf("invalid request body: %v", err))
	}
	if err := s.validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return invest.Validation(fmt.Sprintf("%s failed on %s", strings.ToLower(fe.Field()), fe.Tag()))
		}
		return invest.Validation(err.Error())
	}
	return nil
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Kind  string `json:"kind"`
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	kind := string(invest.KindDependency)
	switch status {
	case http.StatusUnauthorized:
		kind = string(invest.KindUnauthenticated)
	case http.StatusConflict:
		kind = string(invest.KindConflict)
	}
	writeJSON(w, status, errorBody{Error: strings.TrimSpace(message), Code: code, Kind: kind})
}

func idempotencyKey(r *http.Request) string {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" {
		return key
	}
	return uuid.NewString()
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
