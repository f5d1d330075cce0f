package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"rollcall/config"
	"rollcall/db"
	"rollcall/handlers"
	"rollcall/logging"
	"rollcall/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	gormsessions "github.com/gin-contrib/sessions/gorm"
	"github.com/gin-gonic/autotls"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	sessionCookieName     = "token"
	sessionExpirationTime = 30 * 86400 // 30 days
	shutdownTimeout       = 30 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the attendance API and the nightly absence sweep",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func newRouter(h *handlers.Handlers) *gin.Engine {
	if !config.DEBUG_MODE {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), logging.GinMiddleware())
	_ = router.SetTrustedProxies([]string{})
	if config.DEBUG_MODE {
		router.Use(utils.ErrorLogMiddleware)
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "PUT", "POST", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept-Language"},
		ExposeHeaders:    []string{"Content-Length", logging.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           30 * 24 * time.Hour,
	}))

	cookieStore := gormsessions.NewStore(db.Instance, true, []byte(config.SESSION_KEY))
	cookieStore.Options(sessions.Options{Path: "/", MaxAge: sessionExpirationTime, HttpOnly: true})
	router.Use(sessions.Sessions(sessionCookieName, cookieStore))
	if !config.DEBUG_MODE {
		router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/attendance/image", "/live"})))
	}
	router.Use((&utils.CacheRouter{CacheTime: utils.CacheNoCache}).Handler()) // No cache by default, individual end-points can override that
	h.Register(router)
	return router
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			zap.S().Warnf("Close: %v", err)
		}
	}()

	// check-ins answer ErrModelNotReady until this is done
	go func() {
		if err := a.loadMatcher(); err != nil {
			zap.S().Errorf("Face matcher: %v", err)
		}
	}()
	go a.sweeper.Run(ctx)

	router := newRouter(&handlers.Handlers{
		Service: a.service,
		Sweeper: a.sweeper,
		Runs:    a.runs,
		Images:  a.images,
		Live:    a.live,
		Ready:   a.ready,
	})

	if config.TLS_DOMAINS != "" {
		zap.S().Infof("Serving TLS for %s", config.TLS_DOMAINS)
		return autotls.RunWithContext(ctx, router, strings.Split(config.TLS_DOMAINS, ",")...)
	}

	server := &http.Server{Addr: config.BIND_ADDRESS, Handler: router}
	go func() {
		<-ctx.Done()
		zap.S().Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zap.S().Warnf("Shutdown: %v", err)
		}
	}()
	zap.S().Infof("Listening on %s", config.BIND_ADDRESS)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
