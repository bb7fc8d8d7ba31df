package main

import (
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/confhub/backend/core"
	"github.com/confhub/backend/core/conference"
	"github.com/confhub/backend/core/review"
	"github.com/confhub/backend/core/user"
	logsvc "github.com/confhub/backend/services/logger"
	"github.com/confhub/backend/storage/database"
	sqlxrepos "github.com/confhub/backend/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	stdLogger := log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
	tx := database.NewTransactor(db)

	usrRepo := sqlxrepos.NewUserRepository(db)
	confRepo := sqlxrepos.NewConferenceRepository(db)
	absRepo := sqlxrepos.NewAbstractRepository(db)
	rvwRepo := sqlxrepos.NewReviewerRepository(db)
	reviewRepo := sqlxrepos.NewReviewRepository(db)

	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		conf:     conf,
		db:       db,
		validate: validate,
		usrSvc:   user.NewService(usrRepo),
		confSvc:  conference.NewService(tx, confRepo),
		reviewSvc: review.NewService(
			logger, tx, reviewRepo, absRepo, confRepo, rvwRepo, usrRepo,
			review.Options{RequireAssignment: conf.Review.RequireAssignment},
		),
		out: os.Stdout,
	}

	err = cli.run(os.Args)
	if cErr := db.Close(); cErr != nil {
		stdLogger.Printf("closing database: %v", cErr)
	}
	logger.Close()
	if err != nil {
		if err != errHelp {
			stdLogger.Printf("error: %s", err)
		}
		os.Exit(1)
	}
}
