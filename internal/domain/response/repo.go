package response

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *FormResponse) error
	// GetByID returns the response with its answer rows loaded.
	GetByID(ctx context.Context, id uuid.UUID) (*FormResponse, error)
	Update(ctx context.Context, r *FormResponse) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*FormResponse, int, error)
	// ReplaceAnswers swaps the full answer set of a response.
	ReplaceAnswers(ctx context.Context, responseID uuid.UUID, answers []Answer) error
}
