package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/hyperjump/shinbun/internal/keyword"
	"github.com/hyperjump/shinbun/internal/models"
	"github.com/hyperjump/shinbun/internal/storage"
	"github.com/hyperjump/shinbun/internal/validation"
)

const (
	msgArticleCreated = "News article created successfully."
	msgInvalidArticle = "Invalid data provided."
)

func (s *Server) handleCreateArticle(w http.ResponseWriter, r *http.Request) {
	var input models.ArticleInput
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondJSON(w, http.StatusBadRequest, models.ArticleCreated{Message: msgInvalidArticle})
		return
	}
	if err := validation.Struct(&input); err != nil {
		s.logger.Debug("article rejected", zap.Error(err))
		s.respondJSON(w, http.StatusBadRequest, models.ArticleCreated{Message: msgInvalidArticle})
		return
	}

	article := input.Article()
	if err := s.storage.CreateArticle(r.Context(), article); err != nil {
		s.respondErr(w, r, err)
		return
	}
	if err := s.index.Index(r.Context(), article); err != nil {
		s.logger.Warn("failed to index article", zap.Int64("news_id", article.ID), zap.Error(err))
	}
	s.logger.Debug("article created", zap.Int64("news_id", article.ID), zap.String("title", article.Title))
	s.respondJSON(w, http.StatusCreated, models.ArticleCreated{
		Success: true,
		Message: msgArticleCreated,
		NewsID:  article.ID,
	})
}

func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	offset, limit := 0, 0
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		offset = n
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	articles, err := s.storage.ListArticles(r.Context(), offset, limit)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, articles)
}

func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	article, err := s.storage.GetArticle(r.Context(), id)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, article)
}

func (s *Server) handleDeleteArticle(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if err := s.storage.DeleteArticle(r.Context(), id); err != nil {
		s.respondErr(w, r, err)
		return
	}
	if err := s.index.Delete(r.Context(), id); err != nil {
		s.logger.Warn("failed to remove article from index", zap.Int64("news_id", id), zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearchArticles(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()
	query := models.ArticleSearchQuery{Query: q.Get("q")}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		query.Limit = n
	}
	if err := query.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts := &keyword.SearchOptions{}
	if v := q.Get("fuzziness"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "invalid fuzziness")
			return
		}
		opts.Fuzziness = n
	}

	res, err := s.index.Search(r.Context(), query.Query, query.Limit, opts)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	hits := make([]*models.ArticleHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		article, err := s.storage.GetArticle(r.Context(), h.ID)
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Debug("stale index entry", zap.Int64("news_id", h.ID))
			continue
		}
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		hits = append(hits, &models.ArticleHit{Article: article, Score: h.Score, Rank: len(hits) + 1})
	}
	s.respondJSON(w, http.StatusOK, models.ArticleSearchResponse{
		Query:     query.Query,
		Results:   hits,
		Total:     res.Total,
		QueryTime: time.Since(start).Milliseconds(),
	})
}

func (s *Server) handleListTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := s.storage.ListTopics(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, topics)
}
