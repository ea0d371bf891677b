package server

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/shinbun/internal/models"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.storage.ListUsers(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, users)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	user, err := s.storage.GetUser(r.Context(), id)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, user)
}

// handleUpdateUser applies the non-nil profile fields and adds the listed topics to the
// user's selection. Only the user themself may update their account.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if !s.requireSelf(w, r, id) {
		return
	}
	var upd models.UserUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		s.respondErr(w, r, err)
		return
	}

	ctx := r.Context()
	user, err := s.storage.GetUser(ctx, id)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if upd.FirstName != nil {
		user.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		user.LastName = *upd.LastName
	}
	if upd.Email != nil {
		user.Email = *upd.Email
	}
	if upd.ProfilePic != nil {
		user.ProfilePic = *upd.ProfilePic
	}
	topics := make([]string, len(upd.TopicsSelected))
	for i, t := range upd.TopicsSelected {
		topics[i] = t.Topic
	}
	if err := s.storage.UpdateUser(ctx, user, topics); err != nil {
		s.respondErr(w, r, err)
		return
	}

	user, err = s.storage.GetUser(ctx, id)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.logger.Debug("user updated", zap.Int64("user_id", id), zap.Int("topics_added", len(upd.TopicsSelected)))
	s.respondJSON(w, http.StatusOK, user)
}
