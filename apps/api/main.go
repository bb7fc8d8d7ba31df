package main

import (
	"context"
	"database/sql"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	"github.com/robfig/cron/v3"

	dig_container "github.com/confhub/backend/apps/api/di/dig"
	echoapi "github.com/confhub/backend/apps/api/echo"
	"github.com/confhub/backend/core"
	"github.com/confhub/backend/core/review"
)

func main() {
	c := dig_container.New()

	must(c.Invoke(func(
		conf *core.Config,
		apiLogger core.Logger,
		dbLoggerParam dig_container.DBLoggerParam,
		db *sql.DB,
		reviewSvc *review.Service,
		server *echoapi.Server,
	) {
		// =========================================================================
		// Initialize App

		apiLogger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))

		core.ParseEmailTemplates(apiLogger, conf.Debug)

		dbLogger := dbLoggerParam.Logger
		defer func() {
			if err := db.Close(); err != nil {
				dbLogger.Fatal("Failed to close", err)
			}
		}()
		if l, ok := apiLogger.(interface{ Close() }); ok {
			defer l.Close() // flush queued error reports
		}
		defer apiLogger.Info("Application stopped")

		// =========================================================================
		// Start Debug Service
		//
		// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
		// /debug/vars - Added to the default mux by importing the expvar package.

		// Expose important info under /debug/vars.
		expvar.NewString("build").Set(conf.Build)
		expvar.NewString("env").Set(conf.Env)

		go func() {
			if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
				apiLogger.Error(fmt.Sprintf("debug server closed: %v", err), err)
			}
		}()

		// =========================================================================
		// Start Reconciliation Job

		scheduler := cron.New()
		if conf.Review.ReconcileSchedule != "" {
			_, err := scheduler.AddFunc(conf.Review.ReconcileSchedule, func() {
				fixed, err := reviewSvc.Reconcile(context.Background())
				if err != nil {
					apiLogger.Error(fmt.Sprintf("reconciling abstract statuses: %v", err), err)
					return
				}
				if fixed > 0 {
					apiLogger.Warn(fmt.Sprintf("reconciled %d abstract statuses", fixed))
				}
			})
			if err != nil {
				apiLogger.Fatal(fmt.Sprintf("scheduling reconciliation %q: %v", conf.Review.ReconcileSchedule, err), err)
			}
			scheduler.Start()
		}

		// =========================================================================
		// Start API Service

		go func() {
			server.Start()
		}()

		// =========================================================================
		// Shutdown

		select {
		case err := <-server.Errors():
			apiLogger.Fatal(fmt.Sprintf("server error: %v", err), err)

		case sig := <-server.ShutdownSignal():
			apiLogger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

			// give outstanding requests a deadline for completion
			ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
			defer cancel()

			// wait for a running reconciliation
			select {
			case <-scheduler.Stop().Done():
			case <-ctx.Done():
			}

			// asking listener to shut down and shed load
			if err := server.Shutdown(ctx); err != nil {
				apiLogger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

				if err = server.Close(); err != nil {
					apiLogger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
				}
			}
		}
	}))
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
