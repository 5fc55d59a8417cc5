package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/storage/database"
)

type userRepository struct {
	db core.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db core.DB) user.Repository {
	return &userRepository{db: db}
}

type userRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Roles     string    `db:"roles"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r userRow) toUser() user.User {
	roles := make([]string, 0)
	if r.Roles != "" {
		roles = strings.Split(r.Roles, ",")
	}
	return user.User{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		IsActive:  r.IsActive,
		Roles:     roles,
		CreatedAt: utc(r.CreatedAt),
		UpdatedAt: utc(r.UpdatedAt),
	}
}

type certificateRow struct {
	ID        string    `db:"id"`
	StudentID string    `db:"student_id"`
	CourseID  string    `db:"course_id"`
	IssuedAt  time.Time `db:"issued_at"`
}

func (r certificateRow) toCertificate() user.Certificate {
	return user.Certificate{ID: r.ID, StudentID: r.StudentID, CourseID: r.CourseID, IssuedAt: utc(r.IssuedAt)}
}

const userColumns = "id, name, email, roles, is_active, created_at, updated_at"

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := repo.db.Rebind(`INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err := repo.db.ExecContext(ctx, q,
		usr.ID, usr.Name, usr.Email, strings.Join(usr.Roles, ","), usr.IsActive, usr.CreatedAt, usr.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.ID != "" {
		conds = append(conds, "id = ?")
		args = append(args, filter.ID)
	}
	if filter.Email != "" {
		conds = append(conds, "email = ?")
		args = append(args, filter.Email)
	}
	if len(conds) == 0 {
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	q := repo.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE ` + strings.Join(conds, " AND "))
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		return user.User{}, trapNoRows(err, user.ErrNotFound)
	}
	return row.toUser(), nil
}

func (repo *userRepository) QueryUsers(ctx context.Context) ([]user.User, error) {
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT `+userColumns+` FROM users ORDER BY created_at`); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users, nil
}

func (repo *userRepository) AddCertificate(ctx context.Context, cert user.Certificate) (user.Certificate, bool, error) {
	q := repo.db.Rebind(`
		INSERT INTO certificates (id, student_id, course_id, issued_at) VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING`)
	res, err := repo.db.ExecContext(ctx, q, cert.ID, cert.StudentID, cert.CourseID, cert.IssuedAt)
	if err != nil {
		return user.Certificate{}, false, errors.Wrap(err, "inserting certificate")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return user.Certificate{}, false, errors.Wrap(err, "inserting certificate")
	}

	var row certificateRow
	q = repo.db.Rebind(`SELECT id, student_id, course_id, issued_at FROM certificates WHERE student_id = ? AND course_id = ?`)
	if err = repo.db.GetContext(ctx, &row, q, cert.StudentID, cert.CourseID); err != nil {
		return user.Certificate{}, false, errors.Wrap(err, "selecting certificate")
	}
	return row.toCertificate(), n > 0, nil
}

func (repo *userRepository) GetCertificate(ctx context.Context, studentID, certificateID string) (user.Certificate, error) {
	var row certificateRow
	q := repo.db.Rebind(`SELECT id, student_id, course_id, issued_at FROM certificates WHERE student_id = ? AND id = ?`)
	if err := repo.db.GetContext(ctx, &row, q, studentID, certificateID); err != nil {
		return user.Certificate{}, trapNoRows(err, user.ErrCertificateNotFound)
	}
	return row.toCertificate(), nil
}

func (repo *userRepository) QueryCertificates(ctx context.Context, studentID string) ([]user.Certificate, error) {
	var rows []certificateRow
	q := repo.db.Rebind(`SELECT id, student_id, course_id, issued_at FROM certificates WHERE student_id = ? ORDER BY issued_at`)
	if err := repo.db.SelectContext(ctx, &rows, q, studentID); err != nil {
		return nil, errors.Wrap(err, "selecting certificates")
	}
	certs := make([]user.Certificate, 0, len(rows))
	for _, r := range rows {
		certs = append(certs, r.toCertificate())
	}
	return certs, nil
}
