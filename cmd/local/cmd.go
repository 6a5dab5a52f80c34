// Command local runs the dashboard API on a single machine: SQLite storage, text
// logs and the caller's identity taken from the X-User-Id header.
package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/GregMSThompson/dashboard-backend/internal/bootstrap"
	"github.com/GregMSThompson/dashboard-backend/internal/config"
	"github.com/GregMSThompson/dashboard-backend/internal/handlers"
	"github.com/GregMSThompson/dashboard-backend/internal/middleware"
	"github.com/GregMSThompson/dashboard-backend/internal/response"
	"github.com/GregMSThompson/dashboard-backend/internal/router"
	"github.com/GregMSThompson/dashboard-backend/internal/services"
	"github.com/GregMSThompson/dashboard-backend/internal/store"
)

func exitOnError(message string, err error, log *slog.Logger) {
	if err != nil {
		log.Error(message, "error", err)
		os.Exit(1)
	}
}

func main() {
	// bootstrap
	cfg := config.New()
	bs, err := bootstrap.RunLocal(cfg)
	exitOnError("bootstrap failed", err, bs.Log)
	defer bs.Close()

	// stores
	ustore := store.NewUserSQLStore(bs.SQL)
	pstore := store.NewPreferencesSQLStore(bs.SQL)

	// services
	userv := services.NewUserService(ustore)
	pserv := services.NewPreferencesService(pstore)

	// dependancies
	deps := new(handlers.Deps)
	deps.Log = bs.Log
	deps.ResponseHandler = response.New(bs.Log)
	deps.Identity = middleware.HeaderIdentity
	deps.UserSvc = userv
	deps.PreferencesSvc = pserv

	// router
	r := router.NewRouter(deps)
	bs.Log.Info("local server listening", "addr", cfg.Addr(), "sqlite", cfg.SQLitePath)
	err = http.ListenAndServe(cfg.Addr(), r)
	exitOnError("server start failed", err, bs.Log)
}
