package api

import (
	"errors"
	"net/http"
	"strings"

	"monety/internal/invest"

	"github.com/shopspring/decimal"
)

type registerRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6"`
	InviteCode string `json:"invite_code" validate:"omitempty,alphanum,max=16"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type purchaseRequest struct {
	ProductID string `json:"product_id" validate:"required,max=64"`
}

type depositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type withdrawRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	PixKey     string          `json:"pix_key" validate:"max=140"`
	PixKeyType string          `json:"pix_key_type" validate:"max=16"`
}

type sessionResponse struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresIn   int            `json:"expires_in"`
	User        invest.Profile `json:"user"`
}

func (s *Server) session(w http.ResponseWriter, r *http.Request, status int, u invest.User) {
	sess, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		s.writeDomainError(w, r, invest.Dependency("issue token", err))
		return
	}
	profile, err := s.svc.Profile(r.Context(), u.ID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, status, sessionResponse{
		AccessToken: sess.AccessToken,
		TokenType:   sess.TokenType,
		ExpiresIn:   sess.ExpiresIn,
		User:        profile,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := s.bind(r, &in); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	u, err := s.svc.Register(r.Context(), invest.RegisterInput{
		Email:      strings.TrimSpace(in.Email),
		Password:   in.Password,
		InviteCode: in.InviteCode,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.session(w, r, http.StatusCreated, u)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := s.bind(r, &in); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	u, err := s.svc.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.session(w, r, http.StatusOK, u)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
		return
	}
	out, err := s.svc.Profile(r.Context(), user.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.ListProducts(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": out})
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
		return
	}
	var in purchaseRequest
	if err := s.bind(r, &in); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	result, err := s.svc.Purchase(r.Context(), invest.PurchaseInput{
		UserID:         user.UserID,
		ProductID:      in.ProductID,
		IdempotencyKey: idempotencyKey(r),
	})
	var ce *invest.CascadeError
	if errors.As(err, &ce) {
		// the purchase committed; the settlement sweep finishes the cascade
		writeJSON(w, http.StatusCreated, map[string]any{
			"investment":          result.Investment,
			"balance":             result.Balance,
			"commissions":         result.Commissions,
			"commissions_pending": true,
		})
		return
	}
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleInvestments(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
		return
	}
	out, err := s.svc.ListInvestments(r.Context(), user.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"investments": out})
}

func (s *Server) handleCheckin(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
		return
	}
	out, err := s.svc.Checkin(r.Context(), user.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCheckinStatus(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
		return
	}
	out, err := s.svc.CheckinStatus(r.Context(), user.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSpin(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
		return
	}
	out, err := s.svc.Spin(r.Context(), user.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRouletteStatus(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
		return
	}
	out, err := s.svc.RouletteStatus(r.Context(), user.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTodayStats(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
		return
	}
	out, err := s.svc.TodayStats(r.Context(), user.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTeam(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
		return
	}
	out, err := s.svc.Team(r.Context(), user.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
		return
	}
	out, err := s.svc.ListTransactions(r.Context(), user.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": out})
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
		return
	}
	var in depositRequest
	if err := s.bind(r, &in); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out, err := s.svc.Deposit(r.Context(), invest.DepositInput{
		UserID:         user.UserID,
		Amount:         in.Amount,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
		return
	}
	var in withdrawRequest
	if err := s.bind(r, &in); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out, err := s.svc.Withdraw(r.Context(), invest.WithdrawInput{
		UserID:         user.UserID,
		Amount:         in.Amount,
		PixKey:         in.PixKey,
		PixKeyType:     in.PixKeyType,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}
