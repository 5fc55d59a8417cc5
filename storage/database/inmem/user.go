package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/academia/core/user"
)

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db.user}
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, u := range repo.db.table {
		if u.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
	}
	usr.Roles = append([]string(nil), usr.Roles...)
	repo.db.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.db.table[filter.ID]; ok && (filter.Email == "" || usr.Email == filter.Email) {
			return *usr, nil
		}
		return user.User{}, user.ErrNotFound
	}
	if filter.Email != "" {
		for _, usr := range repo.db.table {
			if usr.Email == filter.Email {
				return *usr, nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsers(_ context.Context) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := make([]user.User, 0, len(repo.db.table))
	for _, u := range repo.db.table {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (repo *userRepository) AddCertificate(_ context.Context, cert user.Certificate) (user.Certificate, bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := pairKey(cert.StudentID, cert.CourseID)
	if stored, ok := repo.db.certificates[key]; ok {
		return stored, false, nil
	}
	repo.db.certificates[key] = cert
	return cert, true, nil
}

func (repo *userRepository) GetCertificate(_ context.Context, studentID, certificateID string) (user.Certificate, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, cert := range repo.db.certificates {
		if cert.StudentID == studentID && cert.ID == certificateID {
			return cert, nil
		}
	}
	return user.Certificate{}, user.ErrCertificateNotFound
}

func (repo *userRepository) QueryCertificates(_ context.Context, studentID string) ([]user.Certificate, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	certs := make([]user.Certificate, 0)
	for _, cert := range repo.db.certificates {
		if cert.StudentID == studentID {
			certs = append(certs, cert)
		}
	}
	sort.Slice(certs, func(i, j int) bool { return certs[i].IssuedAt.Before(certs[j].IssuedAt) })
	return certs, nil
}
