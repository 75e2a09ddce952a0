package repository

import (
	"context"
	"encoding/json"

	"github.com/noah-isme/academy-portal/internal/models"
	"github.com/noah-isme/academy-portal/pkg/query"
)

const registrationsPath = backendPrefix + "/registrations"

// RegistrationRepository submits and lists course registrations.
type RegistrationRepository struct {
	backend Backend
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(backend Backend) *RegistrationRepository {
	return &RegistrationRepository{backend: backend}
}

type registrationPayload struct {
	FullName string                    `json:"fullName"`
	Phone    string                    `json:"phone"`
	CourseID string                    `json:"courseId"`
	LevelID  string                    `json:"levelId,omitempty"`
	Notes    string                    `json:"notes,omitempty"`
	Status   models.RegistrationStatus `json:"status"`
}

// Create posts a registration. The backend echoes the stored record.
func (r *RegistrationRepository) Create(ctx context.Context, reg *models.Registration) (*models.Registration, error) {
	body := registrationPayload{
		FullName: reg.FullName,
		Phone:    reg.Phone,
		CourseID: reg.CourseID,
		LevelID:  reg.LevelID,
		Notes:    reg.Notes,
		Status:   reg.Status,
	}
	var raw json.RawMessage
	if err := r.backend.PostJSON(ctx, "registrations.create", registrationsPath, body, &raw); err != nil {
		return nil, err
	}
	created, err := decodeItem[models.Registration](raw, "registration")
	if err != nil {
		return nil, err
	}
	if created == nil || created.ID == "" {
		// Some backend builds answer 201 with an empty body.
		return reg, nil
	}
	return created, nil
}

// List returns one page of registrations.
func (r *RegistrationRepository) List(ctx context.Context, params query.Params) (models.Page[models.Registration], error) {
	var raw json.RawMessage
	if err := r.backend.Get(ctx, "registrations.list", registrationsPath, params.Values(), &raw); err != nil {
		return models.Page[models.Registration]{}, err
	}
	return decodePage[models.Registration](raw, "registrations")
}

// Delete removes a registration.
func (r *RegistrationRepository) Delete(ctx context.Context, id string) error {
	return r.backend.Delete(ctx, "registrations.delete", itemPath(registrationsPath, id))
}
