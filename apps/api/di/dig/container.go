package dig_container

import (
	"fmt"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/access"
	"github.com/trezcool/shule/core/admission"
	"github.com/trezcool/shule/core/site"
	"github.com/trezcool/shule/core/user"
	emailsvc "github.com/trezcool/shule/services/email"
	logsvc "github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage/database"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
	sqlxrepos "github.com/trezcool/shule/storage/database/sqlx"
	filestore "github.com/trezcool/shule/storage/file"
)

const (
	StorageFile     = "file"
	StorageDatabase = "database"
	StorageMemory   = "memory"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type serverParams struct {
	dig.In
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

func newLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(logsvc.NewConsoleLogger("API", conf.Debug), conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(logsvc.NewConsoleLogger("DB", conf.Debug), conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DBExecutor) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db
}

// newStorage returns the medium the site document is mirrored to.
func newStorage(conf *core.Config, exec core.DBExecutor, loggerParam DBLoggerParam) (core.Storage, error) {
	switch conf.Storage.Backend {
	case StorageFile:
		return filestore.New(conf.Storage.Dir, loggerParam.Logger)
	case StorageDatabase:
		return sqlxrepos.NewSnapshotStorage(exec), nil
	case StorageMemory:
		return inmemdb.NewSnapshotStorage(inmemdb.Open()), nil
	}
	return nil, errors.Errorf("unsupported storage backend %q", conf.Storage.Backend)
}

func newValidator() (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	access.InitValidators(validate)
	return validate, translator
}

func newStore(conf *core.Config, storage core.Storage, logger core.Logger, validate *validator.Validate) (*site.Store, error) {
	return site.NewStore(site.StoreDeps{
		Storage:             storage,
		Logger:              logger,
		Validate:            validate,
		Key:                 conf.Storage.Key,
		PersistOnChangeOnly: conf.Storage.PersistOnChangeOnly,
	})
}

func newSweeper(conf *core.Config, store *site.Store, logger core.Logger) *site.Sweeper {
	sweeper := site.NewSweeper(store, logger)
	if conf.Retention.Interval > 0 {
		sweeper.Interval = conf.Retention.Interval
	}
	return sweeper
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newAccessService(
	conf *core.Config,
	logger core.Logger,
	store *site.Store,
	usrSvc user.Service,
	mailSvc core.EmailService,
) (access.Service, error) {
	return access.NewService(access.Deps{Store: store, UserSvc: usrSvc, MailSvc: mailSvc, Conf: conf, Logger: logger})
}

func newAdmissionService(
	conf *core.Config,
	logger core.Logger,
	store *site.Store,
	mailSvc core.EmailService,
) (admission.Service, error) {
	return admission.NewService(admission.Deps{Store: store, MailSvc: mailSvc, Conf: conf, Logger: logger})
}

func newServer(p serverParams) (*echoapi.Server, error) {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:         p.Conf,
		Logger:       p.Logger,
		Store:        p.Store,
		Sweeper:      p.Sweeper,
		UserSvc:      p.UserSvc,
		AccessSvc:    p.AccessSvc,
		AdmissionSvc: p.AdmissionSvc,
		Validate:     p.Validate,
		Translator:   p.Translator,
	})
}

// New returns a new dependency injection dig.Container.
// `newConfig` defaults to core.NewConfig.
func New(newConfig ...func() *core.Config) *dig.Container {
	c := dig.New()

	if len(newConfig) > 0 {
		must(c.Provide(newConfig[0]))
	} else {
		must(c.Provide(core.NewConfig))
	}
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newStorage))
	must(c.Provide(newValidator))
	must(c.Provide(newStore))
	must(c.Provide(newSweeper))
	must(c.Provide(newEmailService))
	must(c.Provide(sqlxrepos.NewUserRepository))
	must(c.Provide(user.NewService))
	must(c.Provide(newAccessService))
	must(c.Provide(newAdmissionService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
