package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/lichsu/core"
	"github.com/trezcool/lichsu/core/timeline"
	emailsvc "github.com/trezcool/lichsu/services/email"
	logsvc "github.com/trezcool/lichsu/services/logger"
	"github.com/trezcool/lichsu/storage/database"
	sqlxrepos "github.com/trezcool/lichsu/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewConsole(conf.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setting up logger: %v\n", err)
		os.Exit(1)
	}
	logger := logsvc.NewRollbarLogger(zl.Named("admin"), conf)
	logger.Enable(!conf.Debug)
	defer logger.Sync()

	ctx := context.Background()
	database.SetMigrationLogger(os.Stdout)

	// set up DB
	db, err := database.Setup(ctx, conf)
	if err != nil {
		logger.Fatal("setting up database", err)
	}
	defer func() { _ = db.Close() }()

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	timeline.InitValidators(validate, translator)

	svc := timeline.NewService(sqlxrepos.NewTimelineRepository(db), timeline.NewProjector(), validate)
	if err = svc.Refresh(ctx); err != nil {
		logger.Fatal("loading timeline", err)
	}

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	// start CLI
	cli := commandLine{
		conf:    conf,
		db:      db,
		svc:     svc,
		mailSvc: mailSvc,
		out:     os.Stdout,
	}
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		logger.Sync()
		os.Exit(1)
	}
}
