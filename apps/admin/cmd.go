package main

import (
	"errors"
	"io"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/learning"
	"github.com/trezcool/academia/core/quiz"
	"github.com/trezcool/academia/core/user"
	emailsvc "github.com/trezcool/academia/services/email"
	"github.com/trezcool/academia/storage/database"
	sqlxrepos "github.com/trezcool/academia/storage/database/sqlx"
)

var (
	errHelp     = errors.New("help provided")
	errNoSQLEng = errors.New("admin commands need a SQL database engine (postgres or sqlite3)")
)

type waiter interface {
	Wait()
}

type commandLine struct {
	conf        *core.Config
	db          *sqlx.DB
	out         io.Writer
	logger      core.Logger
	validate    *validator.Validate
	mailSvc     core.EmailService
	usrSvc      *user.Service
	courseSvc   *course.Service
	quizSvc     *quiz.Service
	learningSvc *learning.Service
}

func newCommandLine(conf *core.Config, logger core.Logger, out io.Writer) (*commandLine, error) {
	if conf.Database.Engine == core.EngineMemory {
		return nil, errNoSQLEng
	}
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	core.ParseEmailTemplates(logger, conf.Debug)

	return newCommandLineWithDB(conf, logger, out, db, mailSvc), nil
}

func newCommandLineWithDB(conf *core.Config, logger core.Logger, out io.Writer, db *sqlx.DB, mailSvc core.EmailService) *commandLine {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	quiz.InitValidators(validate, translator)

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db))
	courseSvc := course.NewService(sqlxrepos.NewCourseRepository(db))
	quizSvc := quiz.NewService(sqlxrepos.NewQuizRepository(db))

	return &commandLine{
		conf:        conf,
		db:          db,
		out:         out,
		logger:      logger,
		validate:    validate,
		mailSvc:     mailSvc,
		usrSvc:      usrSvc,
		courseSvc:   courseSvc,
		quizSvc:     quizSvc,
		learningSvc: learning.NewService(courseSvc, quizSvc, usrSvc, mailSvc, logger),
	}
}

// close waits for pending emails and closes the DB. It is safe to call twice.
func (cli *commandLine) close() {
	if w, ok := cli.mailSvc.(waiter); ok {
		w.Wait()
	}
	if cli.db != nil {
		_ = cli.db.Close()
		cli.db = nil
	}
}

func (cli *commandLine) rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "academia-admin",
		Short:         "Academia administration commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Usage()
			return errHelp
		},
	}

	cmd.AddCommand(cli.migrateCommand())
	cmd.AddCommand(cli.addUserCommand())
	cmd.AddCommand(cli.importCommand())
	cmd.AddCommand(cli.tokenCommand())
	cmd.AddCommand(cli.reconcileCommand())

	return cmd
}

// run executes the command line; args[0] is the program name.
func (cli *commandLine) run(args []string) error {
	cmd := cli.rootCommand()
	cmd.SetOut(cli.out)
	cmd.SetErr(cli.out)
	if len(args) > 0 {
		args = args[1:]
	}
	cmd.SetArgs(args)
	return cmd.Execute()
}
