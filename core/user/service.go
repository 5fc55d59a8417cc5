package user

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var (
	// errors
	ErrNotFound            = core.NewError(core.CodeNotFound, "user not found")
	ErrCertificateNotFound = core.NewError(core.CodeNotFound, "certificate not found")
	ErrEmailExists         = errors.New("a user with this email already exists")

	// certificateNamespace scopes the deterministic certificate ids.
	certificateNamespace = uuid.MustParse("0b6b1d53-3c54-4b8e-9b8e-6f1b2f9d6c11")

	nowFunc = time.Now // mockable
)

type (
	GetFilter struct {
		ID    string
		Email string
	}

	Repository interface {
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		QueryUsers(ctx context.Context) ([]User, error)
		// AddCertificate inserts cert unless the student already holds a certificate for the course,
		// in which case the stored certificate is returned and created is false.
		AddCertificate(ctx context.Context, cert Certificate) (stored Certificate, created bool, err error)
		GetCertificate(ctx context.Context, studentID, certificateID string) (Certificate, error)
		QueryCertificates(ctx context.Context, studentID string) ([]Certificate, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkUniqueness(email string) error {
	if _, err := svc.repo.GetUser(context.Background(), GetFilter{Email: email}); err == nil {
		return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	} else if errors.Cause(err) != ErrNotFound {
		return errors.Wrap(err, "checking email uniqueness")
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := nowFunc().UTC()
	usr := User{
		ID:        uuid.New().String(),
		Name:      nu.Name,
		Email:     nu.Email,
		IsActive:  true,
		Roles:     nu.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) QueryAll(ctx context.Context) ([]User, error) {
	return svc.repo.QueryUsers(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

// CertificateID derives the certificate id of a (course, student) pair.
// The same pair always yields the same id, so a replayed issuance cannot mint a second certificate.
func CertificateID(courseID, studentID string) string {
	return "CERT-" + uuid.NewSHA1(certificateNamespace, []byte(courseID+"/"+studentID)).String()
}

// IssueCertificate appends the course certificate to the student's certificates if it is not there yet.
// issued reports whether this call created it.
func (svc *Service) IssueCertificate(ctx context.Context, studentID, courseID string) (cert Certificate, issued bool, err error) {
	cert = Certificate{
		ID:        CertificateID(courseID, studentID),
		StudentID: studentID,
		CourseID:  courseID,
		IssuedAt:  nowFunc().UTC(),
	}
	cert, issued, err = svc.repo.AddCertificate(ctx, cert)
	if err != nil {
		return Certificate{}, false, errors.Wrap(err, "adding certificate")
	}
	return cert, issued, nil
}

func (svc *Service) Certificates(ctx context.Context, studentID string) ([]Certificate, error) {
	return svc.repo.QueryCertificates(ctx, studentID)
}

func (svc *Service) Certificate(ctx context.Context, studentID, certificateID string) (Certificate, error) {
	return svc.repo.GetCertificate(ctx, studentID, certificateID)
}
