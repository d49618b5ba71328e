// Package admin serves the HTTP surface for managing products and
// browsing run results. It reads and writes through storage.Store only;
// workflow runs are triggered from the CLI, not from here.
package admin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/FranksOps/outreach/internal/storage"
)

// Server wraps the gin router and its http.Server.
type Server struct {
	store  storage.Store
	logger *slog.Logger
	srv    *http.Server
}

func NewServer(addr string, store storage.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{store: store, logger: logger}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLog())

	router.GET("/healthz", s.health)
	router.POST("/products", s.createProduct)
	router.GET("/products", s.listProducts)
	router.GET("/products/:id/pages", s.listPages)
	router.GET("/pages/:id/users", s.listUsers)

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start blocks serving HTTP until Shutdown or a listen error.
func (s *Server) Start() error {
	s.logger.Info("admin api listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type createProductRequest struct {
	Name string `json:"name" binding:"required"`
}

func (s *Server) createProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	product, err := s.store.CreateProduct(c.Request.Context(), req.Name)
	if err != nil {
		s.logger.Error("create product failed", "name", req.Name, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusCreated, productJSON(product))
}

func (s *Server) listProducts(c *gin.Context) {
	products, err := s.store.Products(c.Request.Context())
	if err != nil {
		s.logger.Error("list products failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	out := make([]gin.H, 0, len(products))
	for _, p := range products {
		out = append(out, productJSON(p))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) listPages(c *gin.Context) {
	pages, err := s.store.PagesByProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		s.logger.Error("list pages failed", "product_id", c.Param("id"), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	out := make([]gin.H, 0, len(pages))
	for _, p := range pages {
		out = append(out, gin.H{
			"id":           p.ID,
			"url":          p.URL,
			"subreddit":    p.Subreddit,
			"fetch_status": p.FetchStatus,
			"fetched_at":   p.FetchedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) listUsers(c *gin.Context) {
	users, err := s.store.UsersByPage(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "page not found"})
			return
		}
		s.logger.Error("list users failed", "page_id", c.Param("id"), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	out := make([]gin.H, 0, len(users))
	for _, u := range users {
		out = append(out, gin.H{
			"id":          u.ID,
			"username":    u.Username,
			"profile_url": u.ProfileURL,
			"evidence":    u.EvidenceText,
			"created_at":  u.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

func productJSON(p *storage.Product) gin.H {
	return gin.H{
		"id":         p.ID,
		"name":       p.Name,
		"created_at": p.CreatedAt,
		"updated_at": p.UpdatedAt,
	}
}
