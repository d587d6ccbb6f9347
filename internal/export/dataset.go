package export

import (
	"context"
	"fmt"

	"coachbot/internal/models"
)

// Datasets that can be exported.
const (
	DatasetUsers    = "users"
	DatasetPayments = "payments"
	DatasetAnswers  = "questionnaire"
)

// Source lists the records exports are built from.
type Source interface {
	Users(ctx context.Context) ([]models.User, error)
	Payments(ctx context.Context, paymentStatus string) ([]models.Payment, error)
}

// Build loads a dataset from src.
func Build(ctx context.Context, src Source, dataset string) (Table, error) {
	switch dataset {
	case DatasetUsers, DatasetAnswers:
		users, err := src.Users(ctx)
		if err != nil {
			return Table{}, err
		}
		if dataset == DatasetAnswers {
			return Answers(users), nil
		}
		return Users(users), nil
	case DatasetPayments:
		payments, err := src.Payments(ctx, "")
		if err != nil {
			return Table{}, err
		}
		return Payments(payments), nil
	default:
		return Table{}, fmt.Errorf("unknown dataset %q", dataset)
	}
}
