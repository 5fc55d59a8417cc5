package learning

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/user"
)

// EvaluateCompletion reports whether a progress change crossed 100%.
// It is edge triggered: a record already at 100% never fires again.
func EvaluateCompletion(before, after course.Enrollment) bool {
	return before.OverallProgress < 100 && after.OverallProgress >= 100
}

// issueCertificate adds the course certificate to the student's certificates, once, and notifies the student.
func (svc *Service) issueCertificate(ctx context.Context, enr course.Enrollment) (user.Certificate, bool, error) {
	cert, issued, err := svc.users.IssueCertificate(ctx, enr.StudentID, enr.CourseID)
	if err != nil {
		return user.Certificate{}, false, errors.Wrap(err, "issuing certificate")
	}
	if issued {
		svc.logger.Info(fmt.Sprintf("certificate %s issued to %s for course %s", cert.ID, cert.StudentID, cert.CourseID))
		svc.notifyCertificateIssued(ctx, cert)
	}
	return cert, issued, nil
}

type certificateMailData struct {
	StudentName   string
	CourseTitle   string
	CertificateID string
	IssuedAt      string
}

func (svc *Service) notifyCertificateIssued(ctx context.Context, cert user.Certificate) {
	if svc.mailSvc == nil {
		return
	}
	student, err := svc.users.GetByID(ctx, cert.StudentID)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			svc.logger.Error(fmt.Sprintf("getting student %s: %v", cert.StudentID, err), err)
		}
		return
	}
	if student.Email == "" {
		return
	}
	crs, err := svc.courses.Get(ctx, cert.CourseID)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("getting course %s: %v", cert.CourseID, err), err)
		return
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: student.Name, Address: student.Email}},
		Subject:      "Your certificate for " + crs.Title,
		TemplateName: "certificate_issued",
		TemplateData: certificateMailData{
			StudentName:   student.Name,
			CourseTitle:   crs.Title,
			CertificateID: cert.ID,
			IssuedAt:      cert.IssuedAt.Format("January 2, 2006"),
		},
	})
}
