package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"
	"web-testgen/internal/entity"
	"web-testgen/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "db", "docs.db"), zap.NewNop())
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	return store
}

func doc(runID, url string, at time.Time, cases int) *entity.TestDocument {
	out := &entity.TestDocument{
		RunID:         runID,
		Source:        entity.Source{URL: url, PageTitle: "Title of " + url, Timestamp: at},
		InventorySize: cases,
		Cases:         make([]entity.TestCase, 0, cases),
	}

	for i := 1; i <= cases; i++ {
		out.Cases = append(out.Cases, entity.TestCase{
			TestID:   entity.FormatTestID(i),
			TestName: "Click Login",
			Target: entity.Target{
				Tag:      "button",
				Category: entity.CategoryButton,
				Locators: entity.Locators{{Strategy: entity.StrategyCSS, Value: "button"}},
				State:    entity.NewElementState(true, true),
			},
			Action:         entity.ActionClick,
			ExpectedResult: "Button should be clickable and trigger appropriate action",
			Priority:       entity.PriorityHigh,
			CategoryTag:    entity.TagFunctional,
		})
	}

	return out
}

var base = time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)

const (
	runA = "0b8f5d0e-4c8c-4b55-9a57-1a9e1c2b3d01"
	runB = "0b8f5d0e-4c8c-4b55-9a57-1a9e1c2b3d02"
	runC = "0b8f5d0e-4c8c-4b55-9a57-1a9e1c2b3d03"
)

func TestSaveAndGet(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	want := doc(runA, "https://example.test/login", base, 3)
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Get(ctx, runA)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	latest, err := store.Latest(ctx, "https://example.test/login")
	require.NoError(t, err)
	assert.Equal(t, want, latest)
}

func TestSaveReplacesDocumentForSameURL(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, doc(runA, "https://example.test/login", base, 2)))
	require.NoError(t, store.Save(ctx, doc(runB, "https://example.test/other", base.Add(time.Minute), 1)))
	require.NoError(t, store.Save(ctx, doc(runC, "https://example.test/login", base.Add(2*time.Minute), 4)))

	_, err := store.Get(ctx, runA)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	latest, err := store.Latest(ctx, "https://example.test/login")
	require.NoError(t, err)
	assert.Equal(t, runC, latest.RunID)
	assert.Len(t, latest.Cases, 4)

	summaries, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, runC, summaries[0].RunID)
	assert.Equal(t, 4, summaries[0].Cases)
	assert.Equal(t, base.Add(2*time.Minute), summaries[0].CreatedAt)
	assert.Equal(t, runB, summaries[1].RunID)

	limited, err := store.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSaveSameRunIDUpdates(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, doc(runA, "https://example.test", base, 1)))
	require.NoError(t, store.Save(ctx, doc(runA, "https://example.test", base, 2)))

	got, err := store.Get(ctx, runA)
	require.NoError(t, err)
	assert.Len(t, got.Cases, 2)
}

func TestMissingDocuments(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	_, err := store.Latest(ctx, "https://nowhere.test")
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	_, err = store.Get(ctx, runA)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	summaries, err := store.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestReopenKeepsDocuments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.db")
	ctx := context.Background()

	store, err := Open(ctx, path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, doc(runA, "https://example.test", base, 1)))
	require.NoError(t, store.Close())

	store, err = Open(ctx, path, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Get(ctx, runA)
	require.NoError(t, err)
	assert.Equal(t, "https://example.test", got.Source.URL)
}
