package server

import (
	"net/http"

	"github.com/hyperjump/shinbun/internal/models"
)

func (s *Server) handleListStored(w http.ResponseWriter, r *http.Request) {
	entries, err := s.storage.ListStoredNews(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, entries)
}

func (s *Server) handleCreateStored(w http.ResponseWriter, r *http.Request) {
	var in models.StoredNewsInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.respondErr(w, r, err)
		return
	}
	if !s.requireSelf(w, r, in.UserID) {
		return
	}
	entry := &models.StoredNews{UserID: in.UserID, NewsID: in.NewsID, Liked: in.Liked, Bookmarked: in.Bookmarked}
	if err := s.storage.CreateStoredNews(r.Context(), entry); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, entry)
}

// handleLikesForArticle lists the likes of one article, 404 when it has none.
func (s *Server) handleLikesForArticle(w http.ResponseWriter, r *http.Request) {
	newsID, err := idParam(r, "newsID")
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	entries, err := s.storage.ListLikesForArticle(r.Context(), newsID)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if len(entries) == 0 {
		s.respondError(w, http.StatusNotFound, "no likes found for this article")
		return
	}
	s.respondJSON(w, http.StatusOK, entries)
}

func (s *Server) handleListShares(w http.ResponseWriter, r *http.Request) {
	shares, err := s.storage.ListShares(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, shares)
}

func (s *Server) handleCreateShare(w http.ResponseWriter, r *http.Request) {
	var in models.ShareInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.respondErr(w, r, err)
		return
	}
	if !s.requireSelf(w, r, in.Source) {
		return
	}
	share := &models.Share{NewsID: in.NewsID, Source: in.Source, Destination: in.Destination}
	if err := s.storage.CreateShare(r.Context(), share); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, share)
}

func (s *Server) handleSharesTo(w http.ResponseWriter, r *http.Request) {
	dest, err := idParam(r, "destination")
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	source, err := queryID(r, "source")
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	shares, err := s.storage.ListSharesTo(r.Context(), dest, source)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, shares)
}

// flagHandlers serves the bookmarked and liked views, which differ only in the flag.
type flagHandlers struct {
	list   func(*Server, *http.Request, int64) ([]*models.StoredNews, error)
	get    func(*Server, *http.Request, int64, int64) (*models.StoredNews, error)
	delete func(*Server, *http.Request, int64, int64) error
}

var (
	bookmarked = flagHandlers{
		list: func(s *Server, r *http.Request, u int64) ([]*models.StoredNews, error) {
			return s.storage.ListBookmarked(r.Context(), u)
		},
		get: func(s *Server, r *http.Request, u, n int64) (*models.StoredNews, error) {
			return s.storage.GetBookmarked(r.Context(), u, n)
		},
		delete: func(s *Server, r *http.Request, u, n int64) error {
			return s.storage.DeleteBookmarked(r.Context(), u, n)
		},
	}
	liked = flagHandlers{
		list: func(s *Server, r *http.Request, u int64) ([]*models.StoredNews, error) {
			return s.storage.ListLiked(r.Context(), u)
		},
		get: func(s *Server, r *http.Request, u, n int64) (*models.StoredNews, error) {
			return s.storage.GetLiked(r.Context(), u, n)
		},
		delete: func(s *Server, r *http.Request, u, n int64) error {
			return s.storage.DeleteLiked(r.Context(), u, n)
		},
	}
)

func (s *Server) handleListBookmarked(w http.ResponseWriter, r *http.Request) {
	s.listFlagged(w, r, bookmarked)
}

func (s *Server) handleGetBookmarked(w http.ResponseWriter, r *http.Request) {
	s.getFlagged(w, r, bookmarked)
}

func (s *Server) handleDeleteBookmarked(w http.ResponseWriter, r *http.Request) {
	s.deleteFlagged(w, r, bookmarked)
}

func (s *Server) handleListLiked(w http.ResponseWriter, r *http.Request) {
	s.listFlagged(w, r, liked)
}

func (s *Server) handleGetLiked(w http.ResponseWriter, r *http.Request) {
	s.getFlagged(w, r, liked)
}

func (s *Server) handleDeleteLiked(w http.ResponseWriter, r *http.Request) {
	s.deleteFlagged(w, r, liked)
}

func (s *Server) listFlagged(w http.ResponseWriter, r *http.Request, h flagHandlers) {
	userID, err := idParam(r, "userID")
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	entries, err := h.list(s, r, userID)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, entries)
}

func (s *Server) userAndNews(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	userID, err := idParam(r, "userID")
	if err != nil {
		s.respondErr(w, r, err)
		return 0, 0, false
	}
	newsID, err := idParam(r, "newsID")
	if err != nil {
		s.respondErr(w, r, err)
		return 0, 0, false
	}
	return userID, newsID, true
}

func (s *Server) getFlagged(w http.ResponseWriter, r *http.Request, h flagHandlers) {
	userID, newsID, ok := s.userAndNews(w, r)
	if !ok {
		return
	}
	entry, err := h.get(s, r, userID, newsID)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, entry)
}

func (s *Server) deleteFlagged(w http.ResponseWriter, r *http.Request, h flagHandlers) {
	userID, newsID, ok := s.userAndNews(w, r)
	if !ok {
		return
	}
	if !s.requireSelf(w, r, userID) {
		return
	}
	if err := h.delete(s, r, userID, newsID); err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListFollows(w http.ResponseWriter, r *http.Request) {
	follower, err := idParam(r, "follower")
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	following, err := queryID(r, "following")
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	follows, err := s.storage.ListFollows(r.Context(), &follower, following)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, follows)
}

func (s *Server) handleCreateFollow(w http.ResponseWriter, r *http.Request) {
	follower, err := idParam(r, "follower")
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if !s.requireSelf(w, r, follower) {
		return
	}
	var in models.FollowInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.respondErr(w, r, err)
		return
	}
	f := &models.Follow{Follower: follower, Following: in.Following}
	if err := s.storage.CreateFollow(r.Context(), f); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, f)
}

func (s *Server) followPair(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	follower, err := idParam(r, "follower")
	if err != nil {
		s.respondErr(w, r, err)
		return 0, 0, false
	}
	following, err := idParam(r, "following")
	if err != nil {
		s.respondErr(w, r, err)
		return 0, 0, false
	}
	return follower, following, true
}

func (s *Server) handleGetFollow(w http.ResponseWriter, r *http.Request) {
	follower, following, ok := s.followPair(w, r)
	if !ok {
		return
	}
	f, err := s.storage.GetFollow(r.Context(), follower, following)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, f)
}

func (s *Server) handleDeleteFollow(w http.ResponseWriter, r *http.Request) {
	follower, following, ok := s.followPair(w, r)
	if !ok {
		return
	}
	if !s.requireSelf(w, r, follower) {
		return
	}
	if err := s.storage.DeleteFollow(r.Context(), follower, following); err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
