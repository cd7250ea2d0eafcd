// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
// SPDX-License-Identifier: Apache-2.0

package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/static"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/telekom/bulkmail/pkg/bulk"
	"github.com/telekom/bulkmail/pkg/config"
	"github.com/telekom/bulkmail/pkg/metrics"
	"github.com/telekom/bulkmail/pkg/system"
	"github.com/telekom/bulkmail/pkg/version"
)

// MaxUploadBytes bounds the size of one form submission including both files.
const MaxUploadBytes = 32 << 20

const shutdownTimeout = 10 * time.Second

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

type Server struct {
	engine *gin.Engine
	config config.Config
	log    *zap.SugaredLogger
	runner *bulk.Runner
}

// NewServer builds the gin engine. runner may be nil, in which case sends go
// to the configured SMTP relay.
func NewServer(log *zap.Logger, cfg config.Config, runner *bulk.Runner) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if !cfg.Settings.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if runner == nil {
		runner = bulk.NewRunner(log.Sugar())
	}

	tmpl, err := template.New("").Funcs(sprig.FuncMap()).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	engine := gin.New()
	engine.MaxMultipartMemory = MaxUploadBytes
	engine.SetHTMLTemplate(tmpl)
	engine.Use(
		ginzap.Ginzap(log, time.RFC3339, true),
		ginzap.RecoveryWithZap(log, true),
		requestLogger(log.Sugar()),
	)

	if len(cfg.Web.AllowedOrigins) > 0 {
		engine.Use(
			cors.New(cors.Config{
				AllowOrigins: cfg.Web.AllowedOrigins,
				AllowMethods: []string{"GET", "POST", "OPTIONS"},
				AllowHeaders: []string{"Origin", "Content-Type"},
				MaxAge:       12 * time.Hour,
			}),
		)
	}

	s := &Server{
		engine: engine,
		config: cfg,
		log:    log.Sugar().Named("web"),
		runner: runner,
	}

	assets := static.Serve("", static.EmbedFolder(staticFS, "static"))
	engine.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/assets/") {
			assets(c)
			if c.IsAborted() {
				return
			}
		}
		c.String(http.StatusNotFound, "404 page not found")
	})

	engine.GET("/", s.index)
	posts := engine.Group("/", s.sameOrigin(cfg.Web.AllowedOrigins), limitBody(MaxUploadBytes))
	posts.POST("/recipients", s.previewRecipients)
	posts.POST("/send", s.send)
	engine.GET("/healthz", s.healthz)
	engine.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on the configured address until ctx is cancelled,
// then drains in-flight requests. A send that is already talking to the relay
// runs to completion unless the drain times out.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Web.ListenAddress,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("Web shell listening", "address", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version.Version})
}

func requestLogger(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := uuid.NewString()
		c.Header("X-Request-ID", reqID)
		c.Set(system.ReqLoggerKey, log.With("requestID", reqID, "path", c.Request.URL.Path))
		c.Next()
	}
}

// sameOrigin refuses form posts that a browser sends on behalf of another
// site. The source is Origin, or Referer when Origin is absent; requests with
// neither (curl, scripts) pass. Allowed sources are this host and the
// configured origins.
func (s *Server) sameOrigin(allowed []string) gin.HandlerFunc {
	allow := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		allow[strings.TrimRight(strings.TrimSpace(o), "/")] = struct{}{}
	}
	return func(c *gin.Context) {
		source := c.GetHeader("Origin")
		if source == "" {
			source = c.GetHeader("Referer")
		}
		if source == "" || originAllowed(source, c.Request.Host, allow) {
			c.Next()
			return
		}
		system.GetReqLogger(c, s.log).Warnw("Refused cross-site form post", "origin", source)
		c.String(http.StatusForbidden, "cross-site form submission refused")
		c.Abort()
	}
}

func originAllowed(source, host string, allow map[string]struct{}) bool {
	u, err := url.Parse(source)
	if err != nil || u.Host == "" {
		return false
	}
	if strings.EqualFold(u.Host, host) {
		return true
	}
	_, ok := allow[u.Scheme+"://"+u.Host]
	return ok
}

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}
