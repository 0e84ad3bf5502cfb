package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragcore/internal/embeddings"
	"github.com/fyrsmithlabs/ragcore/internal/entityindex"
	"github.com/fyrsmithlabs/ragcore/internal/rag"
	"github.com/fyrsmithlabs/ragcore/internal/vectorstore"
)

const defaultSearchLimit = 10

// apiError maps a service error onto an HTTP status.
func (s *Server) apiError(c echo.Context, op string, err error) error {
	ctx := c.Request().Context()
	var (
		status int
		class  string
	)
	switch {
	case errors.Is(err, vectorstore.ErrValidation),
		errors.Is(err, embeddings.ErrEmptyInput),
		errors.Is(err, rag.ErrNilRequest):
		status, class = http.StatusBadRequest, "validation"
	case errors.Is(err, embeddings.ErrProviderUnavailable):
		status, class = http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, entityindex.ErrNotFound):
		status, class = http.StatusNotFound, "not_found"
	default:
		s.metrics.RecordAPIError(ctx, op, "internal")
		s.logger.Error(ctx, op+" failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, op+" failed")
	}
	s.metrics.RecordAPIError(ctx, op, class)
	return echo.NewHTTPError(status, err.Error())
}

func (s *Server) bind(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid request body", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return nil
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleStatus reports provider and store diagnostics. The status is
// "degraded" when either dependency cannot serve calls.
func (s *Server) handleStatus(c echo.Context) error {
	ctx := c.Request().Context()
	status := "ok"
	if !s.deps.Embedder.IsAvailable() || !s.deps.Store.Healthy(ctx) {
		status = "degraded"
	}
	return c.JSON(http.StatusOK, StatusResponse{
		Status:      status,
		Embedding:   s.deps.Embedder.Status(),
		VectorStore: s.deps.Store.Stats(),
		Advanced:    s.deps.Advanced != nil,
	})
}

func (s *Server) handleEmbed(c echo.Context) error {
	var req EmbedRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	texts := req.Texts
	if req.Text != "" {
		texts = append([]string{req.Text}, texts...)
	}
	if len(texts) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "text or texts is required")
	}

	vectors, err := s.deps.Embedder.EmbedBatch(c.Request().Context(), texts)
	if err != nil {
		return s.apiError(c, "embedding", err)
	}
	return c.JSON(http.StatusOK, EmbedResponse{
		Embeddings: vectors,
		Dimension:  s.deps.Embedder.Dimension(),
		Count:      len(vectors),
	})
}

func (s *Server) handleStoreVector(c echo.Context) error {
	var req StoreVectorRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	if err := s.deps.Store.Store(c.Request().Context(), req.ID, req.Vector, req.Metadata); err != nil {
		return s.apiError(c, "store", err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"id": req.ID})
}

func (s *Server) handleSearchVectors(c echo.Context) error {
	var req VectorSearchRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	query := req.Vector
	if len(query) == 0 && req.Text != "" {
		v, err := s.deps.Embedder.Embed(ctx, req.Text)
		if err != nil {
			return s.apiError(c, "embedding", err)
		}
		query = v
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	var (
		results []vectorstore.SearchResult
		err     error
	)
	if len(req.Filter) > 0 {
		results, err = s.deps.Store.SearchWithFilter(ctx, query, req.Filter, limit, req.Threshold)
	} else {
		results, err = s.deps.Store.Search(ctx, query, limit, req.Threshold)
	}
	if err != nil {
		return s.apiError(c, "search", err)
	}
	if results == nil {
		results = []vectorstore.SearchResult{}
	}
	return c.JSON(http.StatusOK, VectorSearchResponse{Results: results, Count: len(results)})
}

func (s *Server) handleGetVector(c echo.Context) error {
	rec, ok, err := s.deps.Store.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.apiError(c, "get", err)
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "vector not found")
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) handleDeleteVector(c echo.Context) error {
	deleted, err := s.deps.Store.Delete(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.apiError(c, "delete", err)
	}
	return c.JSON(http.StatusOK, DeleteResponse{Deleted: deleted})
}

func (s *Server) handleClearVectors(c echo.Context) error {
	if err := s.deps.Store.Clear(c.Request().Context()); err != nil {
		return s.apiError(c, "clear", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleIndex(c echo.Context) error {
	var req IndexRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	if req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content field is required")
	}
	if err := s.deps.RAG.Index(c.Request().Context(), req.Type, req.ID, req.Content, req.Metadata); err != nil {
		return s.apiError(c, "index", err)
	}
	return c.JSON(http.StatusCreated, map[string]string{
		"id": vectorstore.VectorID(req.Type, req.ID),
	})
}

func (s *Server) handleRemove(c echo.Context) error {
	if err := s.deps.RAG.Remove(c.Request().Context(), c.Param("type"), c.Param("id")); err != nil {
		return s.apiError(c, "remove", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// The RAG routes answer 200 even for unsuccessful responses; the body
// carries success=false and the error message.

func (s *Server) handleSearch(c echo.Context) error {
	var req rag.Request
	if err := s.bindQuery(c, &req); err != nil {
		return err
	}
	resp, err := s.deps.RAG.Search(c.Request().Context(), &req)
	if err != nil {
		return s.apiError(c, "search", err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleRetrieve(c echo.Context) error {
	var req rag.Request
	if err := s.bindQuery(c, &req); err != nil {
		return err
	}
	resp, err := s.deps.RAG.Retrieve(c.Request().Context(), &req)
	if err != nil {
		return s.apiError(c, "retrieve", err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleRetrieveAdvanced(c echo.Context) error {
	if s.deps.Advanced == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "advanced retrieval is not enabled")
	}
	var req rag.AdvancedRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query field is required")
	}
	resp, err := s.deps.Advanced.RetrieveAdvanced(c.Request().Context(), &req)
	if err != nil {
		return s.apiError(c, "advanced retrieve", err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleAnalyze(c echo.Context) error {
	if s.deps.Sanitizer == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "pii sanitization is not enabled")
	}
	var req AnalyzeRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	result, err := s.deps.Sanitizer.Analyze(c.Request().Context(), req.Text)
	if err != nil {
		return s.apiError(c, "analyze", err)
	}
	return c.JSON(http.StatusOK, result)
}

// bindQuery binds a retrieval request and requires a query.
func (s *Server) bindQuery(c echo.Context, req *rag.Request) error {
	if err := s.bind(c, req); err != nil {
		return err
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query field is required")
	}
	return nil
}
