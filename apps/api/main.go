package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"
	"golang.org/x/sync/errgroup"

	dig_container "github.com/trezcool/shule/apps/api/di/dig"
	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/site"
	"github.com/trezcool/shule/core/user"
)

// snapshotWatcher is implemented by storages that can report writes made by other processes.
type snapshotWatcher interface {
	Watch(ctx context.Context, onChange func(key string)) error
}

type appParams struct {
	dig.In
	Conf     *core.Config
	Logger   core.Logger
	DBLogger core.Logger `name:"dbLogger"`
	DB       *sqlx.DB
	Storage  core.Storage
	Store    *site.Store
	Sweeper  *site.Sweeper
	Server   *echoapi.Server
}

func main() {
	c := dig_container.New()
	if err := c.Invoke(run); err != nil {
		log.Fatal(err)
	}
}

func run(p appParams) error {
	conf, logger := p.Conf, p.Logger

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))

	if err := core.ParseEmailTemplates(conf, logger); err != nil {
		return errors.Wrap(err, "parsing email templates")
	}
	user.LoadCommonPasswords(logger)

	defer func() {
		if err := p.DB.Close(); err != nil {
			p.DBLogger.Error(fmt.Sprintf("failed to close database: %v", err), err)
		}
	}()
	defer logger.Info("Application stopped")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p.Store.Hydrate(ctx)

	g, gctx := errgroup.WithContext(ctx)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.Publish("pageVisits", expvar.Func(func() interface{} { return p.Store.State().Data.PageVisits }))
	expvar.Publish("admissionInquiries", expvar.Func(func() interface{} {
		return len(p.Store.State().Data.AdmissionInquiries)
	}))

	debugSrv := &http.Server{Addr: conf.Server.DebugHost, Handler: http.DefaultServeMux}
	g.Go(func() error {
		if err := debugSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return debugSrv.Close()
	})

	// =========================================================================
	// Start Background Jobs

	g.Go(func() error {
		return p.Sweeper.Run(gctx)
	})

	if w, ok := p.Storage.(snapshotWatcher); ok && conf.Storage.Watch {
		g.Go(func() error {
			return w.Watch(gctx, func(key string) {
				if key == conf.Storage.Key {
					p.Store.Hydrate(gctx)
				}
			})
		})
	}

	// =========================================================================
	// Start API Service

	go p.Server.Start()

	// =========================================================================
	// Shutdown

	var runErr error
	select {
	case err := <-p.Server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)
		runErr = err

	case sig := <-p.Server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		sctx, scancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer scancel()

		// asking listener to shut down and shed load
		if err := p.Server.Shutdown(sctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = p.Server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
				runErr = err
			}
		}
	}

	cancel()
	if err := g.Wait(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
