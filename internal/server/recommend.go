package server

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/shinbun/internal/models"
	"github.com/hyperjump/shinbun/internal/storage"
)

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req models.RecommendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}
	res, err := s.recommender.Recommend(r.Context(), req.Query)
	if err != nil {
		s.logger.Debug("recommendation failed", zap.Error(err))
		s.respondErr(w, r, err)
		return
	}
	resp := models.RecommendResponse{
		Query:      res.Query,
		Categories: res.Categories,
		QueryTime:  time.Since(start).Milliseconds(),
	}
	if req.Explain {
		resp.Matches = make([]models.RecommendMatch, len(res.Matches))
		for i, m := range res.Matches {
			resp.Matches[i] = models.RecommendMatch{
				Rank:     m.Rank,
				Headline: m.Headline,
				Category: m.Category,
				Score:    m.Score,
			}
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	users, err := s.storage.CountUsers(ctx)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	articles, err := s.storage.CountArticles(ctx)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	indexed, err := s.index.DocCount()
	if err != nil {
		s.logger.Warn("status: index doc count failed", zap.Error(err))
	}

	st := s.recommender.Stats()
	resp := models.StatusResponse{
		Users:           int(users),
		Articles:        int(articles),
		IndexedArticles: indexed,
		Model: models.ModelStatus{
			Loaded:         st.Loaded,
			Source:         st.Source,
			Documents:      st.Documents,
			Categories:     st.Categories,
			VocabularySize: st.VocabularySize,
			TopK:           st.TopK,
			LastError:      st.LastError,
		},
	}
	if !st.BuiltAt.IsZero() {
		resp.Model.BuiltAt = st.BuiltAt.UTC().Format(time.RFC3339)
	}
	diskBytes, err := storage.DiskUsageBytes(
		s.config.Storage.DatabasePath,
		s.config.Storage.BleveIndexPath,
		s.config.Recommend.CorpusPath,
	)
	if err == nil {
		resp.DiskUsageBytes = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}
