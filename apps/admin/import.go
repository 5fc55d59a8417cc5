package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/quiz"
)

type (
	importFile struct {
		Courses []importCourse `yaml:"courses"`
	}

	importCourse struct {
		ID              string         `yaml:"id"`
		InstructorID    string         `yaml:"instructor_id"`
		InstructorEmail string         `yaml:"instructor_email"`
		Title           string         `yaml:"title"`
		Description     string         `yaml:"description"`
		Status          string         `yaml:"status"`
		Modules         []importModule `yaml:"modules"`
	}

	importModule struct {
		Title   string          `yaml:"title"`
		Content []importContent `yaml:"content"`
	}

	// importContent is a content item; quiz items carry their quiz definition.
	importContent struct {
		course.NewContentItem `yaml:",inline"`
		Quiz                  *quiz.NewQuiz `yaml:"quiz"`
	}
)

func (cli *commandLine) importCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import courses, modules and quizzes from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.importFile(args[0])
		},
	}
}

func (cli *commandLine) importFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading import file")
	}
	var file importFile
	if err = yaml.Unmarshal(data, &file); err != nil {
		return errors.Wrap(err, "parsing import file")
	}
	if len(file.Courses) == 0 {
		return errors.New("no course to import")
	}

	for i, ic := range file.Courses {
		if err = cli.importCourse(context.Background(), ic); err != nil {
			return errors.Wrapf(err, "importing course #%d %q", i+1, ic.Title)
		}
	}
	return nil
}

// importCourse validates the course along with its quizzes, then creates them.
func (cli *commandLine) importCourse(ctx context.Context, ic importCourse) error {
	instructorID := ic.InstructorID
	if ic.InstructorEmail != "" {
		usr, err := cli.usrSvc.GetByEmail(ctx, ic.InstructorEmail)
		if err != nil {
			return errors.Wrapf(err, "getting instructor %s", ic.InstructorEmail)
		}
		instructorID = usr.ID
	}

	nc := course.NewCourse{
		ID:           ic.ID,
		InstructorID: instructorID,
		Title:        ic.Title,
		Description:  ic.Description,
		Status:       ic.Status,
	}
	if nc.ID == "" {
		nc.ID = uuid.New().String()
	}

	type moduleQuiz struct {
		moduleIdx int
		nq        quiz.NewQuiz
	}
	var quizzes []moduleQuiz

	for mi, im := range ic.Modules {
		nm := course.NewModule{Title: im.Title}
		for _, item := range im.Content {
			if item.Quiz != nil {
				nq := *item.Quiz
				if nq.ID == "" {
					nq.ID = uuid.New().String()
				}
				nq.CourseID = nc.ID
				if nq.Title == "" {
					nq.Title = item.Title
				}
				if err := nq.Validate(cli.validate); err != nil {
					return errors.Wrapf(err, "validating quiz %q", nq.Title)
				}
				item.Type = course.ContentQuiz
				item.QuizID = nq.ID
				if item.Title == "" {
					item.Title = nq.Title
				}
				quizzes = append(quizzes, moduleQuiz{moduleIdx: mi, nq: nq})
			}
			nm.Content = append(nm.Content, item.NewContentItem)
		}
		nc.Modules = append(nc.Modules, nm)
	}
	if err := nc.Validate(cli.validate); err != nil {
		return errors.Wrap(err, "validating course")
	}

	crs, modules, err := cli.courseSvc.Create(ctx, nc)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	for _, mq := range quizzes {
		mq.nq.ModuleID = modules[mq.moduleIdx].ID
		if _, err = cli.quizSvc.Create(ctx, mq.nq); err != nil {
			return errors.Wrapf(err, "creating quiz %q", mq.nq.Title)
		}
	}

	_, _ = fmt.Fprintf(cli.out, "imported course %q (%s): %d modules, %d quizzes\n",
		crs.Title, crs.ID, len(modules), len(quizzes))
	return nil
}
