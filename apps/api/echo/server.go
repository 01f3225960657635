package echoapi

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/access"
	"github.com/trezcool/shule/core/admission"
	"github.com/trezcool/shule/core/site"
	"github.com/trezcool/shule/core/user"
)

type (
	ServerDeps struct {
		Conf         *core.Config
		Logger       core.Logger
		Store        *site.Store
		Sweeper      *site.Sweeper
		UserSvc      user.Service
		AccessSvc    access.Service
		AdmissionSvc admission.Service
		Validate     *validator.Validate
		Translator   ut.Translator
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		hub      *liveHub
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) (*Server, error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(deps.Conf, "Conf"),
		vala.IsNotNil(deps.Logger, "Logger"),
		vala.IsNotNil(deps.Store, "Store"),
		vala.IsNotNil(deps.Sweeper, "Sweeper"),
		vala.IsNotNil(deps.UserSvc, "UserSvc"),
		vala.IsNotNil(deps.AccessSvc, "AccessSvc"),
		vala.IsNotNil(deps.AdmissionSvc, "AdmissionSvc"),
		vala.IsNotNil(deps.Validate, "Validate"),
		vala.IsNotNil(deps.Translator, "Translator"),
	).Check(); err != nil {
		return nil, errors.Wrap(err, "creating server")
	}

	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.hub = newLiveHub(deps.Store, deps.Conf, deps.Logger)
	s.setup()
	return s, nil
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{conf.FrontendBaseURL},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
	}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(jwtConfig(conf))
	isAdmin := adminMiddleware(s.deps.UserSvc)
	admin := v1.Group("/admin", jwt, isAdmin)

	v1.GET("/site/live", s.hub.serve)

	registerUserAPI(v1, jwt, userApi{
		conf:     conf,
		svc:      s.deps.UserSvc,
		store:    s.deps.Store,
		validate: s.deps.Validate,
	})
	registerSiteAPI(v1, admin, jwt, isAdmin, siteApi{
		store:    s.deps.Store,
		sweeper:  s.deps.Sweeper,
		validate: s.deps.Validate,
	})
	registerContentAPI(admin, s.deps.Store)
	registerAdmissionAPI(v1, admin, admissionApi{
		svc:      s.deps.AdmissionSvc,
		userSvc:  s.deps.UserSvc,
		validate: s.deps.Validate,
	})
	registerAdminRequestAPI(v1, admin, adminRequestApi{
		svc:      s.deps.AccessSvc,
		userSvc:  s.deps.UserSvc,
		validate: s.deps.Validate,
	})
}

// Start listens on the configured address until the server is shut down.
// Listening errors are reported on Errors.
func (s *Server) Start() {
	addr := s.deps.Conf.Server.Address()
	s.deps.Logger.Info(fmt.Sprintf("echoapi.Start: listening on %s", addr))
	if err := s.app.Start(addr); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// SignalShutdown asks the owner of the Server to shut it down.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

// Shutdown disconnects the live clients, then stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	s.hub.Close()
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	signal.Stop(s.shutdown)
	s.hub.Close()
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, fmt.Sprintf("Welcome to %s API!", s.deps.Conf.AppName))
}
