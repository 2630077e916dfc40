// Package server exposes the search engine over HTTP.
package server

import (
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/standardbeagle/hgrep/internal/errors"
	"github.com/standardbeagle/hgrep/internal/search"
)

// SearchRequest is the POST /api/search body.
type SearchRequest struct {
	Query    string `json:"query"`
	Mode     string `json:"mode"` // "plain" (default) or "regex"
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

// SearchResponse carries one page of nullable hits: a null entry marks a raw
// result with no live match at the requested commits.
type SearchResponse struct {
	Results []*search.SearchHit `json:"results"`
}

// ErrorResponse is the failure body. Only query-parse messages are surfaced
// verbatim; everything else is a generic internal error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Server wires the HTTP surface to a search coordinator. The coordinator is
// swapped atomically when the watcher rebuilds the index, so in-flight
// requests keep their consistent snapshot.
type Server struct {
	coordinator atomic.Pointer[search.Coordinator]
	maxPageSize int
	logger      *zap.Logger
}

// New creates a server around the initial coordinator.
func New(coordinator *search.Coordinator, maxPageSize int, logger *zap.Logger) *Server {
	s := &Server{
		maxPageSize: maxPageSize,
		logger:      logger,
	}
	s.coordinator.Store(coordinator)
	return s
}

// Swap replaces the serving coordinator after a re-index.
func (s *Server) Swap(coordinator *search.Coordinator) {
	s.coordinator.Store(coordinator)
}

// Router builds the gin handler tree.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api")
	api.POST("/search", s.handleSearch)
	api.GET("/health", s.handleHealth)

	return router
}

// Run serves until the listener fails.
func (s *Server) Run(listen string) error {
	s.logger.Info("serving search API", zap.String("listen", listen))
	return s.Router().Run(listen)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleSearch(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "invalid request body",
		})
		return
	}

	mode := search.ModePlain
	switch req.Mode {
	case "", "plain":
	case "regex":
		mode = search.ModeRegex
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "mode must be \"plain\" or \"regex\"",
		})
		return
	}

	if req.PageSize <= 0 || req.PageSize > s.maxPageSize {
		req.PageSize = s.maxPageSize
	}
	if req.Page < 0 {
		req.Page = 0
	}

	hits, err := s.coordinator.Load().Search(c.Request.Context(), search.Request{
		Query:    req.Query,
		Mode:     mode,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		if errors.IsQueryParse(err) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "bad_request",
				Message: err.Error(),
			})
			return
		}

		s.logger.Error("search failed",
			zap.String("query", req.Query),
			zap.String("mode", req.Mode),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal",
			Message: "internal server error",
		})
		return
	}

	if hits == nil {
		hits = []*search.SearchHit{}
	}
	c.JSON(http.StatusOK, SearchResponse{Results: hits})
}
