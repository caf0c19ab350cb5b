package repositories

import (
	"context"
	"fmt"

	"github.com/Dosada05/club-coordinator/models"
)

type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment models.Enrollment) error
	Update(ctx context.Context, enrollment models.Enrollment) error
	ListByUser(ctx context.Context, userID int) ([]models.Enrollment, error)
	ListEnrolledUsers(ctx context.Context, eventID, activityID int) ([]models.EnrolledUser, error)
	ListCaptainCandidates(ctx context.Context, eventID, activityID int) ([]models.EnrolledUser, error)
}

type remoteEnrollmentRepository struct {
	api Backend
}

func NewRemoteEnrollmentRepository(api Backend) EnrollmentRepository {
	return &remoteEnrollmentRepository{api: api}
}

func (r *remoteEnrollmentRepository) Create(ctx context.Context, enrollment models.Enrollment) error {
	if err := r.api.Post(ctx, "api/inscripciones/create", enrollment, nil); err != nil {
		return fmt.Errorf("create enrollment for event activity %d: %w", enrollment.EventActivityID, err)
	}
	return nil
}

func (r *remoteEnrollmentRepository) Update(ctx context.Context, enrollment models.Enrollment) error {
	if err := r.api.Put(ctx, "api/inscripciones/update", enrollment, nil); err != nil {
		return fmt.Errorf("update enrollment %d: %w", enrollment.ID, err)
	}
	return nil
}

func (r *remoteEnrollmentRepository) ListByUser(ctx context.Context, userID int) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	path := fmt.Sprintf("api/Inscripciones/InscripcionesUsuario/%d", userID)
	if err := r.api.Get(ctx, path, &enrollments); err != nil {
		if isAbsent(err) {
			return []models.Enrollment{}, nil
		}
		return nil, fmt.Errorf("list enrollments of user %d: %w", userID, err)
	}
	return enrollments, nil
}

func (r *remoteEnrollmentRepository) ListEnrolledUsers(ctx context.Context, eventID, activityID int) ([]models.EnrolledUser, error) {
	return r.listUsers(ctx, "api/Inscripciones/UsuariosEventoActividad", eventID, activityID)
}

func (r *remoteEnrollmentRepository) ListCaptainCandidates(ctx context.Context, eventID, activityID int) ([]models.EnrolledUser, error) {
	return r.listUsers(ctx, "api/Inscripciones/UsuariosQuierenSerCapitanActividad", eventID, activityID)
}

func (r *remoteEnrollmentRepository) listUsers(ctx context.Context, base string, eventID, activityID int) ([]models.EnrolledUser, error) {
	var users []models.EnrolledUser
	path := fmt.Sprintf("%s/%d/%d", base, eventID, activityID)
	if err := r.api.Get(ctx, path, &users); err != nil {
		if isAbsent(err) {
			return []models.EnrolledUser{}, nil
		}
		return nil, fmt.Errorf("list users of event %d activity %d: %w", eventID, activityID, err)
	}
	return users, nil
}
