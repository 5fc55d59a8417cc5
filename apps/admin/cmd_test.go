package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/user"
	emailsvc "github.com/trezcool/academia/services/email"
	"github.com/trezcool/academia/storage/database"
	"github.com/trezcool/academia/tests"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	conf := testutil.NewConfig()
	conf.Database.Engine = core.EngineSQLite
	logger := testutil.NewLogger(t)
	core.ParseEmailTemplates(logger, true)

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "admin.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))

	out := new(bytes.Buffer)
	return newCommandLineWithDB(conf, logger, out, db, emailsvc.NewConsoleServiceMock(conf, logger)), out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantOut    string
}

func (tt cliTest) run(t *testing.T, cli *commandLine, out *bytes.Buffer) {
	t.Helper()
	out.Reset()
	err := cli.run(append([]string{"academia-admin"}, tt.args...))
	switch {
	case tt.wantErr != nil:
		if errors.Cause(err) != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if err == nil || !strings.Contains(err.Error(), tt.wantErrStr) {
			t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
		}
	case err != nil:
		t.Errorf("cli.run() unexpected error = %v", err)
	default:
		if tt.wantOut != "" && !strings.Contains(out.String(), tt.wantOut) {
			t.Errorf("cli.run() output = %q, wantOut %q", out.String(), tt.wantOut)
		}
	}
}

func Test_newCommandLine(t *testing.T) {
	_, err := newCommandLine(testutil.NewConfig(), testutil.NewLogger(t), new(bytes.Buffer))
	assert.Equal(t, errNoSQLEng, err)
}

func Test_commandLine_root(t *testing.T) {
	cli, out := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErrStr: `unknown command "lol"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.run(t, cli, out)
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, out := setup(t)

	defer func() { gooseRunFunc = goose.Run }()
	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		if dir != database.MigrationsDir() {
			return fmt.Errorf("unexpected migrations dir %q", dir)
		}
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "course_tags", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.run(t, cli, out)
		})
	}

	t.Run("up to date", func(t *testing.T) {
		gooseRunFunc = goose.Run
		cliTest{args: []string{"migrate", "up"}}.run(t, cli, out)
	})
}

func Test_commandLine_addUser(t *testing.T) {
	cli, out := setup(t)

	tests := []cliTest{
		{name: "no flags", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no email", args: []string{"adduser", "--name", "Ada"}, wantErr: errHelp},
		{name: "unknown role", args: []string{"adduser", "--name", "Ada", "--email", "ada@academia.test", "--role", "janitor"}, wantErrStr: `unknown role "janitor"`},
		{name: "invalid email", args: []string{"adduser", "--name", "Ada", "--email", "ada"}, wantErrStr: "email"},
		{name: "student", args: []string{"adduser", "--name", "Ada", "--email", "Ada@academia.test"}, wantOut: "created user Ada <ada@academia.test>"},
		{name: "email taken", args: []string{"adduser", "--name", "Ada", "--email", "ada@academia.test"}, wantErrStr: user.ErrEmailExists.Error()},
		{
			name:    "teacher and admin",
			args:    []string{"adduser", "--name", "Grace", "--email", "grace@academia.test", "--role", "teacher", "--role", "admin"},
			wantOut: "created user Grace <grace@academia.test>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.run(t, cli, out)
		})
	}

	grace, err := cli.usrSvc.GetByEmail(context.Background(), "grace@academia.test")
	require.NoError(t, err)
	assert.Equal(t, []string{user.RoleTeacher, user.RoleAdmin}, grace.Roles)

	ada, err := cli.usrSvc.GetByEmail(context.Background(), "ada@academia.test")
	require.NoError(t, err)
	assert.Equal(t, []string{user.RoleStudent}, ada.Roles)
}

const importYAML = `
courses:
  - title: Go Concurrency
    instructor_email: grace@academia.test
    status: published
    modules:
      - title: Goroutines
        content:
          - type: video
            title: Hello goroutines
            url: https://video.test/goroutines
            duration_minutes: 12
      - title: Channels
        content:
          - type: document
            title: Channel axioms
          - quiz:
              title: Channels checkpoint
              passing_score_percent: 80
              questions:
                - text: What does a receive from a closed channel return?
                  options: [the zero value, a panic]
                  correct_option: 0
                - text: Who should close a channel?
                  options: [the receiver, the sender]
                  correct_option: 1
                  points: 2
`

func writeFile(t *testing.T, content string) string {
	fp := filepath.Join(t.TempDir(), "import.yaml")
	require.NoError(t, os.WriteFile(fp, []byte(content), 0o600))
	return fp
}

func Test_commandLine_import(t *testing.T) {
	cli, out := setup(t)
	teacher := testutil.CreateUser(t, cli.usrSvc, "Grace", "grace@academia.test", user.RoleTeacher)

	badQuiz := strings.Replace(importYAML, "correct_option: 1", "correct_option: 5", 1)
	unknownTeacher := strings.Replace(importYAML, "grace@", "nobody@", 1)

	tests := []cliTest{
		{name: "no file", args: []string{"import"}, wantErrStr: "accepts 1 arg(s)"},
		{name: "missing file", args: []string{"import", filepath.Join(t.TempDir(), "nope.yaml")}, wantErrStr: "reading import file"},
		{name: "not yaml", args: []string{"import", writeFile(t, "courses: [")}, wantErrStr: "parsing import file"},
		{name: "empty", args: []string{"import", writeFile(t, "courses: []")}, wantErrStr: "no course to import"},
		{name: "invalid quiz", args: []string{"import", writeFile(t, badQuiz)}, wantErrStr: `validating quiz "Channels checkpoint"`},
		{name: "unknown instructor", args: []string{"import", writeFile(t, unknownTeacher)}, wantErr: user.ErrNotFound},
		{name: "imported", args: []string{"import", writeFile(t, importYAML)}, wantOut: `imported course "Go Concurrency"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.run(t, cli, out)
		})
	}
	assert.Contains(t, out.String(), "2 modules, 1 quizzes")

	ctx := context.Background()
	courses, err := cli.courseSvc.Query(ctx, course.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	crs := courses[0]
	assert.Equal(t, teacher.ID, crs.InstructorID)
	assert.Equal(t, course.StatusPublished, crs.Status)

	modules, err := cli.courseSvc.Modules(ctx, crs.ID)
	require.NoError(t, err)
	require.Len(t, modules, 2)
	assert.Equal(t, 12, modules[0].Content[0].DurationMinutes)

	quizzes, err := cli.quizSvc.QueryByCourse(ctx, crs.ID)
	require.NoError(t, err)
	require.Len(t, quizzes, 1)
	q := quizzes[0]
	assert.Equal(t, modules[1].ID, q.ModuleID)
	assert.Equal(t, float64(80), q.PassingScorePercent)
	assert.Equal(t, 3, q.TotalPoints())

	if assert.Len(t, modules[1].Content, 2) {
		item := modules[1].Content[1]
		assert.Equal(t, course.ContentQuiz, item.Type)
		assert.Equal(t, q.ID, item.QuizID)
		assert.Equal(t, "Channels checkpoint", item.Title)
	}
}

func Test_commandLine_token(t *testing.T) {
	cli, out := setup(t)
	usr := testutil.CreateUser(t, cli.usrSvc, "Ada", "ada@academia.test", user.RoleStudent)

	tests := []cliTest{
		{name: "no email", args: []string{"token"}, wantErr: errHelp},
		{name: "unknown user", args: []string{"token", "--email", "nobody@academia.test"}, wantErr: user.ErrNotFound},
		{name: "minted", args: []string{"token", "--email", "ada@academia.test"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.run(t, cli, out)
		})
	}

	claims := new(echoapi.Claims)
	_, err := jwt.ParseWithClaims(strings.TrimSpace(out.String()), claims, func(*jwt.Token) (interface{}, error) {
		return []byte(cli.conf.SecretKey), nil
	})
	require.NoError(t, err)
	assert.Equal(t, usr.ID, claims.Subject)
	assert.True(t, claims.IsStudent)
}

func Test_commandLine_reconcile(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()

	student := testutil.CreateUser(t, cli.usrSvc, "Ada", "ada@academia.test", user.RoleStudent)
	crs, modules := testutil.CreateCourse(t, cli.courseSvc, "teacher", 1)
	_, err := cli.courseSvc.Enroll(ctx, crs.ID, student.ID)
	require.NoError(t, err)
	// completed behind the back of the certificate issuance
	_, _, err = cli.courseSvc.MarkModuleComplete(ctx, crs.ID, student.ID, modules[0].ID)
	require.NoError(t, err)

	cliTest{args: []string{"reconcile"}, wantOut: "certificates_issued: 1"}.run(t, cli, out)
	assert.Contains(t, out.String(), "courses: 1")

	certs, err := cli.usrSvc.Certificates(ctx, student.ID)
	require.NoError(t, err)
	assert.Len(t, certs, 1)

	cliTest{args: []string{"reconcile"}, wantOut: "certificates_issued: 0"}.run(t, cli, out)
}
