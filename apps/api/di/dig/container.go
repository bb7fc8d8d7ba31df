package dig_container

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/confhub/backend/apps/api/echo"
	"github.com/confhub/backend/core"
	"github.com/confhub/backend/core/abstract"
	"github.com/confhub/backend/core/conference"
	"github.com/confhub/backend/core/review"
	"github.com/confhub/backend/core/reviewer"
	"github.com/confhub/backend/core/user"
	emailsvc "github.com/confhub/backend/services/email"
	logsvc "github.com/confhub/backend/services/logger"
	"github.com/confhub/backend/storage/database"
	sqlxrepos "github.com/confhub/backend/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type ServerParams struct {
	dig.In
	Conf          *core.Config
	Logger        core.Logger
	Validate      *validator.Validate
	Translator    ut.Translator
	UserSvc       *user.Service
	ConferenceSvc *conference.Service
	AbstractSvc   *abstract.Service
	ReviewerSvc   *reviewer.Service
	ReviewSvc     *review.Service
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sql.DB, core.DBExecutor, core.Transactor) {
	setUp := func() (*sql.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(context.Background(), db, "up"); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db, database.NewTransactor(db)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	review.InitValidators(validate, translator)
	return validate
}

func newReviewOptions(conf *core.Config) review.Options {
	return review.Options{RequireAssignment: conf.Review.RequireAssignment}
}

func newServer(p ServerParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		Validate:      p.Validate,
		Translator:    p.Translator,
		UserSvc:       p.UserSvc,
		ConferenceSvc: p.ConferenceSvc,
		AbstractSvc:   p.AbstractSvc,
		ReviewerSvc:   p.ReviewerSvc,
		ReviewSvc:     p.ReviewSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(emailsvc.NewService))
	must(c.Provide(newTranslator))
	must(c.Provide(newValidator))

	// repositories
	must(c.Provide(sqlxrepos.NewUserRepository, dig.As(new(user.Repository))))
	must(c.Provide(sqlxrepos.NewConferenceRepository, dig.As(new(conference.Repository))))
	must(c.Provide(sqlxrepos.NewAbstractRepository, dig.As(new(abstract.Repository))))
	must(c.Provide(sqlxrepos.NewReviewerRepository, dig.As(new(reviewer.Repository), new(abstract.AssignmentChecker))))
	must(c.Provide(sqlxrepos.NewReviewRepository, dig.As(new(review.Repository))))

	// services
	must(c.Provide(user.NewService))
	must(c.Provide(conference.NewService))
	must(c.Provide(abstract.NewService))
	must(c.Provide(reviewer.NewService))
	must(c.Provide(newReviewOptions))
	must(c.Provide(review.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
