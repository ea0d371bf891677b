package server

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/shinbun/internal/auth"
	"github.com/hyperjump/shinbun/internal/models"
	"github.com/hyperjump/shinbun/internal/storage"
)

const msgBadCredentials = "no active account found with the given credentials"

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}
	hash, err := auth.HashPassword(req.Password, s.config.Auth.BcryptCost)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	user := &models.User{
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := s.storage.CreateUser(r.Context(), user); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.logger.Info("user registered", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	s.respondJSON(w, http.StatusCreated, user)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req models.TokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}
	user, err := s.storage.GetUserByUsername(r.Context(), req.Username)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusUnauthorized, msgBadCredentials)
		return
	}
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		s.logger.Debug("login rejected", zap.String("username", req.Username))
		s.respondError(w, http.StatusUnauthorized, msgBadCredentials)
		return
	}
	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if err := s.storage.TouchLastLogin(r.Context(), user.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to record last login", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	s.respondJSON(w, http.StatusOK, pair)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}
	access, err := s.tokens.Refresh(req.Refresh)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "token is invalid or expired")
		return
	}
	s.respondJSON(w, http.StatusOK, models.TokenPair{Access: access})
}

// requireSelf rejects the request with 403 unless the caller is user id.
func (s *Server) requireSelf(w http.ResponseWriter, r *http.Request, id int64) bool {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok || claims.UserID != id {
		s.respondError(w, http.StatusForbidden, "you may only modify your own account")
		return false
	}
	return true
}
