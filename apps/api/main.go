package main

import (
	"context"
	"database/sql"
	"expvar"
	"fmt"
	"log"
	"os"

	echoapi "github.com/talkoren/kehila/apps/api/echo"
	"github.com/talkoren/kehila/core"
	"github.com/talkoren/kehila/core/learning"
	"github.com/talkoren/kehila/core/user"
	appfs "github.com/talkoren/kehila/fs"
	emailsvc "github.com/talkoren/kehila/services/email"
	logsvc "github.com/talkoren/kehila/services/logger"
	"github.com/talkoren/kehila/storage/database"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		core.Conf,
	)
	logger.Enable(!core.Conf.Debug)

	db, err := setUpDB()
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("failed to close DB", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}
	usrSvc := user.NewService(database.NewUserRepository(db), mailSvc)

	catalog, err := learning.LoadCatalog(appfs.FS, "content/lessons.json")
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading lesson catalog: %v", err), err)
	}
	lrnSvc := learning.NewService(catalog, database.NewProgressStore(db), logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", core.Conf.Build))
	defer logger.Info("Application stopped")

	expvar.NewString("build").Set(core.Conf.Build)
	expvar.NewString("env").Set(core.Conf.Env)

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(&echoapi.Options{
		Address:     core.Conf.Server.Address(),
		Logger:      logger,
		MailSvc:     mailSvc,
		UserSvc:     usrSvc,
		LearningSvc: lrnSvc,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), core.Conf.Server.ShutdownTimeout)
		defer cancel()

		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
	}
}

func setUpDB() (*sql.DB, error) {
	if err := database.CreateIfNotExist(core.Conf); err != nil {
		return nil, err
	}

	db, err := database.Open(core.Conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
