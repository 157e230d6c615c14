package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrshanahan/notes-service/internal/apierr"
	"github.com/mrshanahan/notes-service/pkg/notes"
)

func newNote(id string, name string) *notes.Note {
	now := time.Now().UTC()
	return &notes.Note{ID: id, Name: name, CreatedAt: now, UpdatedAt: now}
}

func TestInsertIfAbsentConflictsOnExistingID(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	_, err := st.InsertIfAbsent(ctx, newNote("a", "first"))
	require.NoError(t, err)

	_, err = st.InsertIfAbsent(ctx, newNote("a", "second"))
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.CodeConflict, apiErr.Code)

	// The losing insert must not have clobbered the record.
	existing, err := st.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "first", existing.Name)
}

func TestUpdateIfPresentMissingIsTypedNotFound(t *testing.T) {
	st := NewMemoryStore()

	_, err := st.UpdateIfPresent(context.Background(), "missing", Patch{Name: "x", UpdatedAt: time.Now()})
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.CodeNotFound, apiErr.Code)
}

func TestUpdateIfPresentAppliesPatchOnly(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	created, err := st.InsertIfAbsent(ctx, newNote("a", "before"))
	require.NoError(t, err)

	patchedAt := created.UpdatedAt.Add(time.Second)
	updated, err := st.UpdateIfPresent(ctx, "a", Patch{Name: "after", UpdatedAt: patchedAt})
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Name)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))
}

func TestDeleteIfPresentReturnsRemovedRecord(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	_, err := st.InsertIfAbsent(ctx, newNote("a", "doomed"))
	require.NoError(t, err)

	removed, err := st.DeleteIfPresent(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "doomed", removed.Name)

	gone, err := st.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, gone)

	_, err = st.DeleteIfPresent(ctx, "a")
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.CodeNotFound, apiErr.Code)
}

func TestGetByIDAbsentIsNotAnError(t *testing.T) {
	st := NewMemoryStore()

	note, err := st.GetByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, note)
}

func TestScanAllCountsMatch(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := st.InsertIfAbsent(ctx, newNote(id, "note-"+id))
		require.NoError(t, err)
	}
	_, err := st.DeleteIfPresent(ctx, "b")
	require.NoError(t, err)

	result, err := st.ScanAll(ctx)
	require.NoError(t, err)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, 2, result.ScannedCount)
}

func TestScanResultsAreCopies(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	_, err := st.InsertIfAbsent(ctx, newNote("a", "original"))
	require.NoError(t, err)

	result, err := st.ScanAll(ctx)
	require.NoError(t, err)
	result.Items[0].Name = "mutated"

	unchanged, err := st.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "original", unchanged.Name)
}

func TestConcurrentInsertsSameIDExactlyOneWins(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	const workers = 16
	results := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := st.InsertIfAbsent(ctx, newNote("contested", "race"))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes, conflicts := 0, 0
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		apiErr, ok := apierr.As(err)
		require.True(t, ok)
		require.Equal(t, apierr.CodeConflict, apiErr.Code)
		conflicts++
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)
}
