package testutil

import (
	"context"
	"fmt"
	"net/mail"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/learning"
	"github.com/trezcool/academia/core/quiz"
	"github.com/trezcool/academia/core/user"
	emailsvc "github.com/trezcool/academia/services/email"
	"github.com/trezcool/academia/storage/database"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
	sqlxrepos "github.com/trezcool/academia/storage/database/sqlx"
)

// NewConfig returns the configuration used by tests, independent of the environment.
func NewConfig() *core.Config {
	conf := new(core.Config)
	conf.TestMode = true
	conf.Env = "TEST"
	conf.Build = "test"
	conf.AppName = "Academia"
	conf.SecretKey = "test-secret"
	conf.DefaultFromEmail = mail.Address{Name: "Academia", Address: "noreply@academia.test"}
	conf.FrontendBaseURL = "http://academia.test"
	conf.Server.Address = ":0"
	conf.Server.ShutdownTimeout = time.Second
	conf.Server.JWTExpirationDelta = time.Hour
	conf.Database.Engine = core.EngineMemory
	return conf
}

// LogEntry is an entry recorded by Logger.
type LogEntry struct {
	Level string
	Msg   string
}

// Logger is a core.Logger recording its entries.
type Logger struct {
	t       *testing.T
	mu      sync.Mutex
	entries []LogEntry
}

var _ core.Logger = (*Logger)(nil)

func NewLogger(t *testing.T) *Logger {
	return &Logger{t: t}
}

func (l *Logger) log(level, msg string) {
	l.mu.Lock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg})
	l.mu.Unlock()
	l.t.Logf("%s %s", level, msg)
}

func (l *Logger) Debug(msg string, _ ...interface{}) { l.log("DEBUG", msg) }
func (l *Logger) Info(msg string, _ ...interface{})  { l.log("INFO", msg) }
func (l *Logger) Warn(msg string, _ ...interface{})  { l.log("WARN", msg) }
func (l *Logger) Error(msg string, _ ...interface{}) { l.log("ERROR", msg) }
func (l *Logger) Fatal(msg string, _ ...interface{}) { l.log("FATAL", msg); l.t.FailNow() }

// Entries returns the recorded entries of the given level.
func (l *Logger) Entries(level string) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var entries []LogEntry
	for _, e := range l.entries {
		if e.Level == level {
			entries = append(entries, e)
		}
	}
	return entries
}

// Repos groups the repositories an Env runs on.
type Repos struct {
	Users   user.Repository
	Courses course.Repository
	Quizzes quiz.Repository
}

// InMemRepos returns repositories over a fresh in-memory database.
func InMemRepos(t *testing.T) Repos {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}
	return Repos{
		Users:   inmemdb.NewUserRepository(db),
		Courses: inmemdb.NewCourseRepository(db),
		Quizzes: inmemdb.NewQuizRepository(db),
	}
}

// SQLiteRepos returns repositories over a fresh, migrated SQLite database, closed at the end of the test.
func SQLiteRepos(t *testing.T) Repos {
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "academia.db"))
	if err != nil {
		t.Fatalf("database.OpenSQLite() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err = database.Migrate(db); err != nil {
		t.Fatalf("database.Migrate() failed: %v", err)
	}
	return Repos{
		Users:   sqlxrepos.NewUserRepository(db),
		Courses: sqlxrepos.NewCourseRepository(db),
		Quizzes: sqlxrepos.NewQuizRepository(db),
	}
}

// Env is a fully wired set of services.
type Env struct {
	Conf       *core.Config
	Logger     *Logger
	Mail       *emailsvc.ConsoleServiceMock
	Validate   *validator.Validate
	Translator ut.Translator
	Repos      Repos

	Users    *user.Service
	Courses  *course.Service
	Quizzes  *quiz.Service
	Learning *learning.Service
}

// NewEnv wires the services over in-memory repositories.
func NewEnv(t *testing.T) *Env {
	return NewEnvWithRepos(t, InMemRepos(t))
}

func NewEnvWithRepos(t *testing.T, repos Repos) *Env {
	conf := NewConfig()
	logger := NewLogger(t)
	core.ParseEmailTemplates(logger, true)

	validate := validator.New()
	translator := NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	quiz.InitValidators(validate, translator)

	env := &Env{
		Conf:       conf,
		Logger:     logger,
		Mail:       emailsvc.NewConsoleServiceMock(conf, logger),
		Validate:   validate,
		Translator: translator,
		Repos:      repos,
		Users:      user.NewService(repos.Users),
		Courses:    course.NewService(repos.Courses),
		Quizzes:    quiz.NewService(repos.Quizzes),
	}
	env.Learning = learning.NewService(env.Courses, env.Quizzes, env.Users, env.Mail, logger)
	return env
}

func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func CreateUser(t *testing.T, svc *user.Service, name, email string, roles ...string) user.User {
	usr, err := svc.Create(context.Background(), user.NewUser{Name: name, Email: email, Roles: roles})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateCourse creates a published course of nModules modules.
func CreateCourse(t *testing.T, svc *course.Service, instructorID string, nModules int) (course.Course, []course.Module) {
	nc := course.NewCourse{
		InstructorID: instructorID,
		Title:        "Go Concurrency",
		Status:       course.StatusPublished,
	}
	for i := 1; i <= nModules; i++ {
		nc.Modules = append(nc.Modules, course.NewModule{
			Title:   fmt.Sprintf("Module %d", i),
			Content: []course.NewContentItem{{Type: course.ContentVideo, Title: "Intro", URL: "https://video.test/1"}},
		})
	}
	crs, modules, err := svc.Create(context.Background(), nc)
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs, modules
}

// CreateQuiz creates a quiz of the course with one question per points entry; option 0 is always correct.
func CreateQuiz(t *testing.T, svc *quiz.Service, courseID string, passingScore float64, maxAttempts int, points ...int) quiz.Quiz {
	nq := quiz.NewQuiz{
		CourseID:            courseID,
		Title:               "Checkpoint",
		PassingScorePercent: passingScore,
		MaxAttempts:         maxAttempts,
	}
	for i, pts := range points {
		pts := pts
		nq.Questions = append(nq.Questions, quiz.NewQuestion{
			Text:          fmt.Sprintf("Question %d", i+1),
			Options:       []string{"right", "wrong", "also wrong"},
			CorrectOption: 0,
			Points:        &pts,
		})
	}
	q, err := svc.Create(context.Background(), nq)
	if err != nil {
		t.Fatalf("CreateQuiz() failed: %v", err)
	}
	return q
}
