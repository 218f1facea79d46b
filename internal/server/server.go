// Package server provides the HTTP API for rendering watermarked resumes.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/resume-watermark/internal/config"
	"github.com/jonathan/resume-watermark/internal/fonts"
	"github.com/jonathan/resume-watermark/internal/imagecache"
	"github.com/jonathan/resume-watermark/internal/rendering"
	"github.com/jonathan/resume-watermark/internal/server/ratelimit"
	"github.com/jonathan/resume-watermark/internal/warmup"
	"github.com/rs/cors"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/semaphore"
)

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	cfg         config.Config
	renderer    *rendering.Renderer
	cache       *imagecache.Cache
	source      *imagecache.DirSource
	warmup      *warmup.Driver
	renders     *semaphore.Weighted
	rateLimiter *ratelimit.Limiter
}

// New creates a server from cfg. Unset fields take config.Defaults.
func New(cfg config.Config) (*Server, error) {
	cfg = cfg.MergeWithDefaults(config.Defaults())
	s := &Server{
		cfg:         cfg,
		renders:     semaphore.NewWeighted(int64(cfg.MaxConcurrentRenders)),
		rateLimiter: ratelimit.NewLimiter(ratelimit.LoadConfig()),
	}

	s.renderer = rendering.New(fonts.NewRegistry(cfg.FontDir), rendering.Options{
		PageSize:         cfg.PageSize,
		Margin:           cfg.Margin,
		WatermarkSize:    cfg.WatermarkSize,
		WatermarkOpacity: cfg.WatermarkOpacity,
	})
	s.warmup = warmup.New(s.renderer, cfg.WarmupTimeout.Std())

	var source imagecache.Source
	if cfg.WatermarkDir != "" {
		dir, err := imagecache.NewDirSource(cfg.WatermarkDir, cfg.MaxUploadBytes)
		if err != nil {
			s.rateLimiter.Stop()
			return nil, fmt.Errorf("failed to open watermark sources: %w", err)
		}
		s.source = dir
		source = dir
	}
	s.cache = imagecache.New(source, cfg.WatermarkPixels, imagecache.WithMaxPixels(cfg.MaxImagePixels))

	mux := http.NewServeMux()
	mux.HandleFunc("POST /render", s.handleRender)
	mux.HandleFunc("POST /dither/preview", s.handleDitherPreview)
	mux.HandleFunc("GET /watermarks/{identity...}", s.handleGetWatermark)
	mux.HandleFunc("POST /watermarks", s.handleCreateWatermark)
	mux.HandleFunc("POST /pages", s.handlePages)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.withRateLimit(s.withLogging(s.withCORS(mux))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Warmup runs the one-time warmup render. Failures are logged, not returned.
func (s *Server) Warmup(ctx context.Context) {
	s.warmup.Run(ctx)
}

// Start warms the renderer, then serves until SIGINT or SIGTERM.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s.Warmup(ctx)

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.close()
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Std())
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.close()
	log.Println("Server stopped")
	return nil
}

// Serve accepts connections on ln, capped at MaxConnections open at once.
func (s *Server) Serve(ln net.Listener) error {
	if s.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConnections)
	}
	log.Printf("Server listening on %s (max %d renders in flight)", ln.Addr(), s.cfg.MaxConcurrentRenders)
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Close releases the rate limiter and watermark directory without serving.
func (s *Server) Close() error {
	return s.close()
}

func (s *Server) close() error {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if s.source != nil {
		return s.source.Close()
	}
	return nil
}

// withCORS applies the configured CORS policy
func (s *Server) withCORS(next http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Content-Type",
			"X-Request-ID",
		},
		ExposedHeaders: []string{
			"Content-Disposition",
			"X-Page-Count",
			"X-Page-Warning",
			"X-Request-ID",
		},
		MaxAge: 300,
	})
	return c.Handler(next)
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(s.extractClientID(r), r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging tags each request with an ID and logs its start and duration
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		start := time.Now()
		log.Printf("[%s] %s (%s)", r.Method, r.URL.Path, id)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v (%s)", r.Method, r.URL.Path, time.Since(start), id)
	})
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status           string `json:"status"`
	Warm             bool   `json:"warm"`
	CachedWatermarks int    `json:"cached_watermarks"`
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, HealthResponse{
		Status:           "ok",
		Warm:             s.warmup.Done(),
		CachedWatermarks: s.cache.Len(),
	})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, code, message string) {
	s.jsonResponse(w, status, ErrorResponse{Error: message, Code: code})
}

// failResponse classifies err and writes the matching error response.
func (s *Server) failResponse(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[%s] %s failed: %v (%s)", r.Method, r.URL.Path, err, w.Header().Get("X-Request-ID"))
	}
	s.errorResponse(w, status, code, publicMessage(err, status))
}

// extractClientID extracts the client identifier from the request.
// Uses the IP address from RemoteAddr; forwarded headers are not trusted.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	if info.RetryAfter > 0 {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds()+0.999)))
	}

	log.Printf("[rate-limit] Rate limit exceeded: Limit=%d Remaining=%d Reset=%s",
		info.Limit, info.Remaining, info.ResetTime.Format(time.RFC3339))

	s.errorResponse(w, http.StatusTooManyRequests, CodeRateLimited, "Rate limit exceeded. Please try again later.")
}
