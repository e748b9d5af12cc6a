package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/lichsu/apps/api/echo"
	"github.com/trezcool/lichsu/core"
	"github.com/trezcool/lichsu/core/timeline"
	emailsvc "github.com/trezcool/lichsu/services/email"
	logsvc "github.com/trezcool/lichsu/services/logger"
	"github.com/trezcool/lichsu/storage/database"
	inmemdb "github.com/trezcool/lichsu/storage/database/inmem"
	sqlxrepos "github.com/trezcool/lichsu/storage/database/sqlx"
	"github.com/trezcool/lichsu/storage/seed"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	zl, err := logsvc.NewConsole(conf.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setting up logger: %v\n", err)
		os.Exit(1)
	}
	logger := logsvc.NewRollbarLogger(zl.Named("api"), conf)
	logger.Enable(!conf.Debug)
	defer logger.Sync()

	dbLogger := logsvc.NewRollbarLogger(zl.Named("db"), conf)
	dbLogger.Enable(!conf.Debug)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// set up DB
	var repo timeline.Repository
	if conf.Database.IsMemory() {
		repo = inmemdb.NewTimelineRepository()
	} else {
		db, err := database.Setup(ctx, conf)
		if err != nil {
			logger.Fatal("setting up database", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				dbLogger.Error("failed to close", err)
			}
		}()
		repo = sqlxrepos.NewTimelineRepository(db)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	timeline.InitValidators(validate, translator)

	projector := timeline.NewProjector()
	timelineSvc := timeline.NewService(repo, projector, validate)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build), map[string]interface{}{"config": conf.String()})
	defer logger.Info("Application stopped")

	if conf.Database.IsMemory() {
		snap, err := seed.Default()
		if err != nil {
			logger.Fatal("loading seed", err)
		}
		if err = timelineSvc.Import(ctx, snap); err != nil {
			logger.Fatal("importing seed", err)
		}
	} else if err = timelineSvc.Refresh(ctx); err != nil {
		logger.Fatal("loading timeline", err)
	}
	counts := timeline.CountEvents(projector.Stages())
	logger.Info("timeline loaded", map[string]interface{}{
		"stages":   counts.Stages,
		"domestic": counts.Domestic,
		"world":    counts.World,
		"orphans":  len(timelineSvc.Orphans()),
	})

	// log every recompute (admin writes, seed reloads)
	changes, unsubscribe := projector.Subscribe()
	defer unsubscribe()
	go func() {
		for range changes {
			logger.Debug("timeline recomputed", map[string]interface{}{
				"version": projector.Version(),
				"orphans": len(projector.Orphans()),
			})
		}
	}()

	// re-import the seed directory on every change while developing
	if conf.Debug && conf.Seed.Watch && conf.Seed.Dir != "" {
		watcher := seed.NewWatcher(conf.Seed.Dir, logger, func(snap timeline.Snapshot) {
			if err := timelineSvc.Import(ctx, snap); err != nil {
				logger.Error("importing seed", err)
			}
		})
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Error("seed watcher stopped", err)
			}
		}()
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.Publish("timeline_version", expvar.Func(func() interface{} { return projector.Version() }))

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error("debug server closed", err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:        conf,
			Logger:      logger,
			TimelineSvc: timelineSvc,
			MailSvc:     mailSvc,
			Validate:    validate,
			Translator:  translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal("server error", err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
		cancel()

		// give outstanding requests a deadline for completion
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancelShutdown()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(shutdownCtx); err != nil {
			logger.Error("could not stop server gracefully", err)

			if err = server.Close(); err != nil {
				logger.Fatal("could not force stop server", err)
			}
		}
	}
}
