package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/learning"
	"github.com/trezcool/academia/core/quiz"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/tests"
)

func TestServer_home(t *testing.T) {
	srv, _ := setup(t)
	req, rec := newAuthRequest(http.MethodGet, "/", "")
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Academia API!", rec.Body.String())
}

func Test_auth(t *testing.T) {
	srv, _ := setup(t)

	tests := []httpTest{
		{name: "no token", path: "/v1/users/me/enrollments", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "bad token", path: "/v1/users/me/enrollments", token: "not.a.token",
			wantCode: http.StatusUnauthorized, wantData: marshalObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serve(t, srv, tt)
		})
	}
}

func Test_courseApi(t *testing.T) {
	srv, env := setup(t)

	teacher := testutil.CreateUser(t, env.Users, "Teacher", "teacher@academia.test", user.RoleTeacher)
	other := testutil.CreateUser(t, env.Users, "Other Teacher", "other@academia.test", user.RoleTeacher)
	admin := testutil.CreateUser(t, env.Users, "Admin", "admin@academia.test", user.RoleAdmin)
	student := testutil.CreateUser(t, env.Users, "Ada", "ada@academia.test", user.RoleStudent)
	lurker := testutil.CreateUser(t, env.Users, "Lurker", "lurker@academia.test", user.RoleStudent)
	crs, modules := testutil.CreateCourse(t, env.Courses, teacher.ID, 2)

	studentToken := getToken(t, env, student)
	coursePath := "/v1/courses/" + crs.ID
	modulePath := func(id string) string { return coursePath + "/modules/" + id + "/complete" }

	errNotEnrolled := marshalObj(t, httpErr{Error: course.ErrNotEnrolled.Message, Code: "not_enrolled"})
	errForbidden := marshalObj(t, httpErr{Error: "permission denied", Code: "forbidden"})

	t.Run("enroll", func(t *testing.T) {
		tests := []httpTest{
			{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
			{name: "students only", token: getToken(t, env, teacher), wantCode: http.StatusForbidden, wantData: errForbidden},
			{
				name: "unknown course", path: "/v1/courses/nope/enroll", token: studentToken, wantCode: http.StatusNotFound,
				wantData: marshalObj(t, httpErr{Error: "course not found", Code: "not_found"}),
			},
			{name: "enrolled", token: studentToken, wantCode: http.StatusCreated},
			{
				name: "already enrolled", token: studentToken, wantCode: http.StatusConflict,
				wantData: marshalObj(t, httpErr{Error: course.ErrAlreadyEnrolled.Message, Code: "already_enrolled"}),
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				tt.method = http.MethodPost
				if tt.path == "" {
					tt.path = coursePath + "/enroll"
				}
				var res struct {
					StudentID       string  `json:"student_id"`
					OverallProgress float64 `json:"overall_progress"`
					Status          string  `json:"status"`
				}
				serve(t, srv, tt, &res)
				if tt.wantCode == http.StatusCreated {
					assert.Equal(t, student.ID, res.StudentID)
					assert.Zero(t, res.OverallProgress)
					assert.Equal(t, course.EnrollmentEnrolled, res.Status)
				}
			})
		}
	})

	t.Run("complete modules", func(t *testing.T) {
		serve(t, srv, httpTest{
			method: http.MethodPost, path: modulePath(modules[0].ID), token: getToken(t, env, lurker),
			wantCode: http.StatusForbidden, wantData: errNotEnrolled,
		})
		serve(t, srv, httpTest{
			method: http.MethodPost, path: modulePath("nope"), token: studentToken, wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: course.ErrModuleNotFound.Message, Code: "not_found"}),
		})

		var res learning.ModuleCompletion
		serve(t, srv, httpTest{method: http.MethodPost, path: modulePath(modules[0].ID), token: studentToken, wantCode: http.StatusOK}, &res)
		assert.Equal(t, float64(50), res.Enrollment.OverallProgress)
		assert.Nil(t, res.Certificate)

		res = learning.ModuleCompletion{}
		serve(t, srv, httpTest{method: http.MethodPost, path: modulePath(modules[1].ID), token: studentToken, wantCode: http.StatusOK}, &res)
		assert.Equal(t, float64(100), res.Enrollment.OverallProgress)
		require.NotNil(t, res.Certificate)
		assert.Equal(t, user.CertificateID(crs.ID, student.ID), res.Certificate.ID)

		res = learning.ModuleCompletion{}
		serve(t, srv, httpTest{method: http.MethodPost, path: modulePath(modules[1].ID), token: studentToken, wantCode: http.StatusOK}, &res)
		assert.Nil(t, res.Certificate)
		assert.Len(t, env.Mail.SentMessages(), 1)
	})

	t.Run("progress", func(t *testing.T) {
		serve(t, srv, httpTest{path: coursePath + "/progress", token: getToken(t, env, lurker), wantCode: http.StatusForbidden, wantData: errNotEnrolled})

		var res struct {
			OverallProgress  float64                  `json:"overall_progress"`
			CompletedModules []course.CompletedModule `json:"completed_modules"`
			Status           string                   `json:"status"`
		}
		serve(t, srv, httpTest{path: coursePath + "/progress", token: studentToken, wantCode: http.StatusOK}, &res)
		assert.Equal(t, float64(100), res.OverallProgress)
		assert.Len(t, res.CompletedModules, 2)
		assert.Equal(t, course.EnrollmentCompleted, res.Status)
	})

	t.Run("roster", func(t *testing.T) {
		tests := []httpTest{
			{name: "student", token: studentToken, wantCode: http.StatusForbidden, wantData: errForbidden},
			{name: "other teacher", token: getToken(t, env, other), wantCode: http.StatusForbidden, wantData: errForbidden},
			{name: "owner", token: getToken(t, env, teacher), wantCode: http.StatusOK},
			{name: "admin", token: getToken(t, env, admin), wantCode: http.StatusOK},
			{
				name: "unknown course", path: "/v1/courses/nope/enrollments", token: getToken(t, env, admin), wantCode: http.StatusNotFound,
				wantData: marshalObj(t, httpErr{Error: "course not found", Code: "not_found"}),
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if tt.path == "" {
					tt.path = coursePath + "/enrollments"
				}
				var res []struct {
					StudentID string `json:"student_id"`
					Status    string `json:"status"`
				}
				serve(t, srv, tt, &res)
				if tt.wantCode == http.StatusOK && assert.Len(t, res, 1) {
					assert.Equal(t, student.ID, res[0].StudentID)
					assert.Equal(t, course.EnrollmentCompleted, res[0].Status)
				}
			})
		}
	})
}

func Test_quizApi(t *testing.T) {
	srv, env := setup(t)

	teacher := testutil.CreateUser(t, env.Users, "Teacher", "teacher@academia.test", user.RoleTeacher)
	student := testutil.CreateUser(t, env.Users, "Ada", "ada@academia.test", user.RoleStudent)
	stranger := testutil.CreateUser(t, env.Users, "Grace", "grace@academia.test", user.RoleStudent)
	crs, _ := testutil.CreateCourse(t, env.Courses, teacher.ID, 1)
	q := testutil.CreateQuiz(t, env.Quizzes, crs.ID, 70, 2, 1, 1, 1, 1, 1)
	_, err := env.Learning.Enroll(context.Background(), crs.ID, student.ID)
	require.NoError(t, err)

	studentToken := getToken(t, env, student)
	teacherToken := getToken(t, env, teacher)
	quizPath := "/v1/quizzes/" + q.ID

	t.Run("retrieve", func(t *testing.T) {
		tests := []httpTest{
			{name: "found", path: quizPath, token: studentToken, wantCode: http.StatusOK, wantData: marshalObj(t, q.ForStudent())},
			{
				name: "not found", path: "/v1/quizzes/nope", token: studentToken, wantCode: http.StatusNotFound,
				wantData: marshalObj(t, httpErr{Error: "quiz not found", Code: "not_found"}),
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				serve(t, srv, tt)
			})
		}
	})

	t.Run("submit", func(t *testing.T) {
		tests := []struct {
			httpTest
			wantSub learning.Submission
		}{
			{httpTest: httpTest{name: "teachers cannot submit", token: teacherToken, body: []byte(`{"answers":[0]}`), wantCode: http.StatusForbidden}},
			{
				httpTest: httpTest{
					name: "answers required", token: studentToken, body: []byte(`{}`), wantCode: http.StatusBadRequest,
					wantData: marshalObj(t, map[string]string{"answers": "this field is required"}),
				},
			},
			{httpTest: httpTest{name: "malformed body", token: studentToken, body: []byte(`{"answers":`), wantCode: http.StatusBadRequest}},
			{
				httpTest: httpTest{name: "failing", token: studentToken, body: []byte(`{"answers":[0,1,1,1,1]}`), wantCode: http.StatusCreated},
				wantSub: learning.Submission{
					AttemptResult: quiz.AttemptResult{AttemptNumber: 1, ScorePercent: 20, MaxAttempts: 2, AttemptsRemaining: 1},
					ProgressSync:  learning.SyncNotRequired,
				},
			},
			{
				httpTest: httpTest{name: "passing", token: studentToken, body: []byte(`{"answers":[0,0,0,0,1,3]}`), wantCode: http.StatusCreated},
				wantSub: learning.Submission{
					AttemptResult: quiz.AttemptResult{AttemptNumber: 2, ScorePercent: 80, Passed: true, MaxAttempts: 2},
					ProgressSync:  learning.SyncDone,
				},
			},
			{
				httpTest: httpTest{
					name: "attempt limit", token: studentToken, body: []byte(`{"answers":[0,0,0,0,0]}`), wantCode: http.StatusUnprocessableEntity,
					wantData: marshalObj(t, httpErr{Error: quiz.ErrAttemptLimitExceeded.Message, Code: "attempt_limit_exceeded"}),
				},
			},
			{
				httpTest: httpTest{name: "passing without enrollment", token: getToken(t, env, stranger), body: []byte(`{"answers":[0,0,0,0,0]}`), wantCode: http.StatusCreated},
				wantSub: learning.Submission{
					AttemptResult: quiz.AttemptResult{AttemptNumber: 1, ScorePercent: 100, Passed: true, MaxAttempts: 2, AttemptsRemaining: 1},
					ProgressSync:  learning.SyncFailed,
				},
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				tt.method = http.MethodPost
				tt.path = quizPath + "/submit"
				var sub learning.Submission
				serve(t, srv, tt.httpTest, &sub)
				if tt.wantCode == http.StatusCreated {
					assert.Equal(t, q.ID, sub.QuizID)
					assert.Equal(t, tt.wantSub.AttemptNumber, sub.AttemptNumber)
					assert.Equal(t, tt.wantSub.ScorePercent, sub.ScorePercent)
					assert.Equal(t, tt.wantSub.Passed, sub.Passed)
					assert.Equal(t, tt.wantSub.MaxAttempts, sub.MaxAttempts)
					assert.Equal(t, tt.wantSub.AttemptsRemaining, sub.AttemptsRemaining)
					assert.Equal(t, tt.wantSub.ProgressSync, sub.ProgressSync)
				}
			})
		}

		enr, err := env.Courses.Progress(context.Background(), crs.ID, student.ID)
		require.NoError(t, err)
		assert.Len(t, enr.QuizScores, 1)
	})

	t.Run("results", func(t *testing.T) {
		tests := []httpTest{
			{
				name: "students cannot see results", path: quizPath + "/results", token: studentToken, wantCode: http.StatusForbidden,
				wantData: marshalObj(t, httpErr{Error: "permission denied", Code: "forbidden"}),
			},
			{name: "owner", path: quizPath + "/results?ordering=-score_percent,attempt_number", token: teacherToken, wantCode: http.StatusOK},
			{
				name: "unknown quiz", path: "/v1/quizzes/nope/results", token: teacherToken, wantCode: http.StatusNotFound,
				wantData: marshalObj(t, httpErr{Error: "quiz not found", Code: "not_found"}),
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				var attempts []quiz.Attempt
				serve(t, srv, tt, &attempts)
				if tt.wantCode == http.StatusOK && assert.Len(t, attempts, 3) {
					assert.Equal(t, []float64{100, 80, 20},
						[]float64{attempts[0].ScorePercent, attempts[1].ScorePercent, attempts[2].ScorePercent})
				}
			})
		}
	})
}

func Test_userApi(t *testing.T) {
	srv, env := setup(t)

	student := testutil.CreateUser(t, env.Users, "Ada", "ada@academia.test", user.RoleStudent)
	crs, modules := testutil.CreateCourse(t, env.Courses, "teacher", 1)
	crs2, _ := testutil.CreateCourse(t, env.Courses, "teacher", 1)
	for _, id := range []string{crs.ID, crs2.ID} {
		_, err := env.Learning.Enroll(context.Background(), id, student.ID)
		require.NoError(t, err)
	}
	res, err := env.Learning.ReportModuleComplete(context.Background(), crs.ID, student.ID, modules[0].ID)
	require.NoError(t, err)
	require.NotNil(t, res.Certificate)

	token := getToken(t, env, student)

	t.Run("enrollments", func(t *testing.T) {
		var enrollments []struct {
			CourseID string `json:"course_id"`
			Status   string `json:"status"`
		}
		serve(t, srv, httpTest{path: "/v1/users/me/enrollments", token: token, wantCode: http.StatusOK}, &enrollments)
		assert.Len(t, enrollments, 2)
	})

	t.Run("certificates", func(t *testing.T) {
		var certs []user.Certificate
		serve(t, srv, httpTest{path: "/v1/users/me/certificates", token: token, wantCode: http.StatusOK}, &certs)
		if assert.Len(t, certs, 1) {
			assert.Equal(t, res.Certificate.ID, certs[0].ID)
		}
	})

	t.Run("certificate", func(t *testing.T) {
		tests := []httpTest{
			{name: "found", path: "/v1/users/me/certificates/" + res.Certificate.ID, token: token, wantCode: http.StatusOK},
			{
				name: "not found", path: "/v1/users/me/certificates/CERT-nope", token: token, wantCode: http.StatusNotFound,
				wantData: marshalObj(t, httpErr{Error: "certificate not found", Code: "not_found"}),
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				var cert user.Certificate
				serve(t, srv, tt, &cert)
				if tt.wantCode == http.StatusOK {
					assert.Equal(t, crs.ID, cert.CourseID)
					assert.Equal(t, student.ID, cert.StudentID)
				}
			})
		}
	})
}
