// Package adminapi exposes the operator configuration surface over HTTP:
// per-guild policy get/set/reset, ledger inspection and reset, and the
// enforcement audit trail.
package adminapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"

	"github.com/kurumi-project/warden/dispatcher"
	"github.com/kurumi-project/warden/engine"
	"github.com/kurumi-project/warden/policystore"
)

type Server struct {
	echo   *echo.Echo
	httpd  *http.Server
	logger *slog.Logger

	engine   *engine.Engine
	policies policystore.PolicyStore
	audit    dispatcher.AuditLog
}

type Config struct {
	Bind       string
	AdminToken string
	Logger     *slog.Logger
}

func NewServer(eng *engine.Engine, audit dispatcher.AuditLog, config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("64K"))

	srv := &Server{
		echo:     e,
		logger:   logger,
		engine:   eng,
		policies: eng.Policies,
		audit:    audit,
	}
	srv.httpd = &http.Server{
		Handler:        e,
		Addr:           config.Bind,
		WriteTimeout:   time.Minute,
		ReadTimeout:    time.Minute,
		MaxHeaderBytes: 1 * (1024 * 1024),
	}
	e.HTTPErrorHandler = srv.errorHandler

	e.GET("/_health", srv.HandleHealthCheck)

	admin := e.Group("/admin")
	if config.AdminToken != "" {
		admin.Use(middleware.KeyAuth(func(key string, c echo.Context) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(key), []byte(config.AdminToken)) == 1, nil
		}))
	}
	admin.GET("/policy/:guild", srv.HandleGetPolicy)
	admin.PUT("/policy/:guild", srv.HandleSetPolicy)
	admin.DELETE("/policy/:guild", srv.HandleResetPolicy)
	admin.GET("/ledger/:guild/:user", srv.HandleGetLedger)
	admin.POST("/ledger/:guild/:user/reset", srv.HandleResetLedger)
	admin.GET("/audit/:guild", srv.HandleGetAudit)

	return srv
}

func (srv *Server) RunAPI() error {
	srv.logger.Info("starting admin API", "bind", srv.httpd.Addr)
	err := srv.httpd.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (srv *Server) Shutdown(ctx context.Context) error {
	return srv.httpd.Shutdown(ctx)
}

func (srv *Server) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	srv.echo.ServeHTTP(rw, req)
}

type GenericError struct {
	Error string `json:"error"`
}

func (srv *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	var httpError *echo.HTTPError
	if errors.As(err, &httpError) {
		code = httpError.Code
	}
	if errors.Is(err, policystore.ErrInvalidPolicy) {
		code = http.StatusBadRequest
	}
	if code >= 500 {
		srv.logger.Warn("admin API internal error", "err", err)
	}
	c.JSON(code, GenericError{Error: err.Error()})
}

func (srv *Server) HandleHealthCheck(c echo.Context) error {
	return c.JSON(200, map[string]string{"status": "ok"})
}

func (srv *Server) HandleGetPolicy(c echo.Context) error {
	guildID := c.Param("guild")
	return c.JSON(200, srv.policies.Get(c.Request().Context(), guildID))
}

func (srv *Server) HandleSetPolicy(c echo.Context) error {
	guildID := c.Param("guild")
	var patch policystore.PolicyPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(400, fmt.Sprintf("invalid policy patch: %s", err))
	}
	policy, err := srv.policies.Set(c.Request().Context(), guildID, patch)
	if err != nil {
		return err
	}
	return c.JSON(200, policy)
}

func (srv *Server) HandleResetPolicy(c echo.Context) error {
	guildID := c.Param("guild")
	if err := srv.policies.Reset(c.Request().Context(), guildID); err != nil {
		return err
	}
	return c.JSON(200, srv.policies.Get(c.Request().Context(), guildID))
}

func (srv *Server) HandleGetLedger(c echo.Context) error {
	snap, err := srv.engine.Ledger.Snapshot(c.Request().Context(), c.Param("guild"), c.Param("user"))
	if err != nil {
		return err
	}
	return c.JSON(200, snap)
}

func (srv *Server) HandleResetLedger(c echo.Context) error {
	guildID := c.Param("guild")
	userID := c.Param("user")
	if err := srv.engine.ResetUser(c.Request().Context(), guildID, userID); err != nil {
		return err
	}
	srv.logger.Info("ledger reset by operator", "guild", guildID, "user", userID)
	return c.JSON(200, map[string]string{"status": "reset"})
}

func (srv *Server) HandleGetAudit(c echo.Context) error {
	limit := 100
	if q := c.QueryParam("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 {
			return echo.NewHTTPError(400, "invalid limit")
		}
		limit = n
	}
	recs, err := srv.audit.List(c.Request().Context(), c.Param("guild"), limit)
	if err != nil {
		return err
	}
	return c.JSON(200, recs)
}
