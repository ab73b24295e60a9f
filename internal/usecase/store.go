package usecase

import (
	"context"
	"errors"
	"web-testgen/internal/entity"
	"web-testgen/internal/ports"
	"web-testgen/pkg/apperr"
)

type storeBackend interface {
	Save(ctx context.Context, doc *entity.TestDocument) error
	Latest(ctx context.Context, url string) (*entity.TestDocument, error)
	Get(ctx context.Context, runID string) (*entity.TestDocument, error)
	List(ctx context.Context, limit int) ([]ports.DocumentSummary, error)
}

// disabledStore stands in when STORE_ENABLED is false.
type disabledStore struct{}

func (disabledStore) Save(context.Context, *entity.TestDocument) error {
	return errStoreDisabled("Save")
}

func (disabledStore) Latest(context.Context, string) (*entity.TestDocument, error) {
	return nil, errStoreDisabled("Latest")
}

func (disabledStore) Get(context.Context, string) (*entity.TestDocument, error) {
	return nil, errStoreDisabled("Get")
}

func (disabledStore) List(context.Context, int) ([]ports.DocumentSummary, error) {
	return nil, errStoreDisabled("List")
}

func errStoreDisabled(op string) error {
	return apperr.Wrap(op, apperr.CodeUnavailable, errors.New("document store is disabled"), map[string]any{
		apperr.MetaReason: "store_disabled",
		apperr.MetaStage:  apperr.StagePersistence,
	})
}
