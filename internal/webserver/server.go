package webserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/talkincode/adboard/internal/app"
)

const (
	// AppContextKey is the echo context key holding the app.AppContext
	AppContextKey = "appctx"
	apiPrefix     = "/api/v1"
)

var server *WebServer

// WebServer wraps the echo instance serving the JSON api and media files
type WebServer struct {
	root   *echo.Echo
	api    *echo.Group
	appCtx app.AppContext
}

// Init builds the global server for appCtx. Routes are registered afterwards
// through ApiGET, ApiPOST and friends.
func Init(appCtx app.AppContext) {
	server = NewWebServer(appCtx)
}

func NewWebServer(appCtx app.AppContext) *WebServer {
	cfg := appCtx.Config()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = &JSONSerializer{}
	e.Validator = NewValidator()
	e.HTTPErrorHandler = httpErrorHandler

	e.Use(requestLogger())
	e.Use(middleware.Recover())
	if cfg.Web.MaxUploadMB > 0 {
		e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", cfg.Web.MaxUploadMB)))
	}
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(AppContextKey, appCtx)
			return next(c)
		}
	})

	e.Static(strings.TrimSuffix(cfg.Media.URLPrefix, "/"), appCtx.MediaDir())

	return &WebServer{
		root:   e,
		api:    e.Group(apiPrefix),
		appCtx: appCtx,
	}
}

// Echo returns the underlying echo instance
func (s *WebServer) Echo() *echo.Echo {
	return s.root
}

func (s *WebServer) Start() error {
	cfg := s.appCtx.Config()
	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	zap.S().Infof("Prepare to start web server %s", addr)
	err := s.root.Start(addr)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *WebServer) Shutdown(ctx context.Context) error {
	return s.root.Shutdown(ctx)
}

// Start runs the global server until it is shut down
func Start() error {
	return server.Start()
}

// Shutdown stops the global server, waiting for in-flight requests
func Shutdown(ctx context.Context) error {
	return server.Shutdown(ctx)
}

// Handler returns the global server as an http.Handler
func Handler() http.Handler {
	return server.root
}

// GET registers a route on the server root, outside the api prefix
func GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.root.GET(path, h, m...)
}

func ApiGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.GET(path, h, m...)
}

func ApiPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.POST(path, h, m...)
}

func ApiPUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.PUT(path, h, m...)
}

func ApiDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.DELETE(path, h, m...)
}

func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req := c.Request()
			res := c.Response()
			fields := []zap.Field{
				zap.String("namespace", "web"),
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Int("status", res.Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("remote", c.RealIP()),
			}
			switch {
			case res.Status >= http.StatusInternalServerError:
				zap.L().Error("request failed", append(fields, zap.Error(err))...)
			case res.Status >= http.StatusBadRequest:
				zap.L().Warn("request rejected", fields...)
			default:
				zap.L().Info("request", fields...)
			}
			return nil
		}
	}
}

// httpErrorHandler keeps echo's own errors (unknown route, body too large,
// panics) in the same {"error","message"} shape the handlers use.
func httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	message := http.StatusText(code)
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		message = fmt.Sprint(he.Message)
	}
	errCode := strings.ToUpper(strings.ReplaceAll(http.StatusText(code), " ", "_"))

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(code)
	} else {
		writeErr = c.JSON(code, map[string]interface{}{"error": errCode, "message": message})
	}
	if writeErr != nil {
		zap.L().Error("failed to write error response", zap.Error(writeErr))
	}
}
