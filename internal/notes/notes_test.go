package notes

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrshanahan/notes-service/internal/apierr"
	"github.com/mrshanahan/notes-service/internal/store"
	"github.com/mrshanahan/notes-service/pkg/notes"
)

func newTestApp() (*fiber.App, *store.MemoryStore) {
	st := store.NewMemoryStore()
	api := NewAPI(st)
	app := fiber.New()
	app.Route("/notes", api.RegisterRoutes)
	return app, st
}

func doRequest(t *testing.T, app *fiber.App, method string, path string, body string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, respBody
}

func createNote(t *testing.T, app *fiber.App, name string) *notes.Note {
	t.Helper()
	resp, body := doRequest(t, app, "POST", "/notes", `{"name":"`+name+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", body)
	var note notes.Note
	require.NoError(t, json.Unmarshal(body, &note))
	return &note
}

func decodeError(t *testing.T, body []byte) *notes.ErrorDetail {
	t.Helper()
	var errResp notes.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	require.NotNil(t, errResp.Error)
	return errResp.Error
}

// failingStore fails every mutation with a fixed error. Reads and
// unimplemented methods fall through to the embedded interface.
type failingStore struct {
	store.Store
	err error
}

func (s *failingStore) InsertIfAbsent(ctx context.Context, note *notes.Note) (*notes.Note, error) {
	return nil, s.err
}

func newFailingApp(err error) *fiber.App {
	api := NewAPI(&failingStore{err: err})
	app := fiber.New()
	app.Route("/notes", api.RegisterRoutes)
	return app
}

func TestCreateNoteGeneratesFreshIdentifiers(t *testing.T) {
	app, _ := newTestApp()

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		note := createNote(t, app, "Groceries")
		_, err := uuid.Parse(note.ID)
		require.NoError(t, err, "id is not a uuid: %s", note.ID)
		assert.False(t, seen[note.ID], "id issued twice: %s", note.ID)
		seen[note.ID] = true
		assert.Equal(t, "Groceries", note.Name)
		assert.True(t, note.CreatedAt.Equal(note.UpdatedAt))
	}
}

func TestCreateNoteValidationLeavesStoreUntouched(t *testing.T) {
	app, st := newTestApp()

	for _, body := range []string{"", `{}`, `{"name":""}`, `{"name":7}`} {
		resp, respBody := doRequest(t, app, "POST", "/notes", body)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		detail := decodeError(t, respBody)
		assert.Equal(t, "VALIDATION_ERROR", detail.Code)
	}

	result, err := st.ScanAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Count)
}

func TestCreateNoteIDCollisionIsConflict(t *testing.T) {
	app := newFailingApp(apierr.NewConflict("note already exists"))

	resp, body := doRequest(t, app, "POST", "/notes", `{"name":"Groceries"}`)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	detail := decodeError(t, body)
	assert.Equal(t, "CONFLICT", detail.Code)
	assert.Equal(t, "note already exists", detail.Message)
}

func TestCreateNoteBackendFailureIsGenericError(t *testing.T) {
	app := newFailingApp(errors.New("dial tcp 10.0.0.5:6379: connect: connection refused"))

	resp, body := doRequest(t, app, "POST", "/notes", `{"name":"Groceries"}`)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	detail := decodeError(t, body)
	assert.Equal(t, "INTERNAL_ERROR", detail.Code)
	assert.Equal(t, "internal server error", detail.Message)

	// No backend detail leaks into the response body.
	assert.NotContains(t, string(body), "connection refused")
}

func TestUpdateNote(t *testing.T) {
	app, _ := newTestApp()
	created := createNote(t, app, "Groceries")

	time.Sleep(5 * time.Millisecond)
	resp, body := doRequest(t, app, "PUT", "/notes/"+created.ID, `{"name":"Groceries v2"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", body)

	var updated notes.Note
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Groceries v2", updated.Name)
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
}

func TestUpdateNoteMissingIDIs404(t *testing.T) {
	app, st := newTestApp()
	createNote(t, app, "existing")

	resp, body := doRequest(t, app, "PUT", "/notes/"+uuid.NewString(), `{"name":"new name"}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	detail := decodeError(t, body)
	assert.Equal(t, "NOT_FOUND", detail.Code)

	// Store unchanged
	result, err := st.ScanAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Count)
	assert.Equal(t, "existing", result.Items[0].Name)
}

func TestUpdateNoteRejectsInvalidBody(t *testing.T) {
	app, _ := newTestApp()
	created := createNote(t, app, "Groceries")

	resp, body := doRequest(t, app, "PUT", "/notes/"+created.ID, `{"name":""}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	detail := decodeError(t, body)
	assert.Equal(t, "VALIDATION_ERROR", detail.Code)
	require.Len(t, detail.Details, 1)
	assert.Equal(t, "name", detail.Details[0].Field)

	// Name must not have been touched.
	resp, body = doRequest(t, app, "GET", "/notes/"+created.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var current notes.Note
	require.NoError(t, json.Unmarshal(body, &current))
	assert.Equal(t, "Groceries", current.Name)
}

func TestDeleteNote(t *testing.T) {
	app, _ := newTestApp()
	created := createNote(t, app, "doomed")

	resp, body := doRequest(t, app, "DELETE", "/notes/"+created.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", body)

	var deleted notes.DeleteNoteResponse
	require.NoError(t, json.Unmarshal(body, &deleted))
	require.NotNil(t, deleted.DeletedNote)
	assert.Equal(t, created.ID, deleted.DeletedNote.ID)
	assert.NotEmpty(t, deleted.Message)

	resp, _ = doRequest(t, app, "GET", "/notes/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteNoteMissingIDIs404(t *testing.T) {
	app, _ := newTestApp()

	resp, body := doRequest(t, app, "DELETE", "/notes/"+uuid.NewString(), "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	detail := decodeError(t, body)
	assert.Equal(t, "NOT_FOUND", detail.Code)
}

func TestGetNoteReadsAreIdempotent(t *testing.T) {
	app, _ := newTestApp()
	created := createNote(t, app, "stable")

	_, first := doRequest(t, app, "GET", "/notes/"+created.ID, "")
	_, second := doRequest(t, app, "GET", "/notes/"+created.ID, "")
	assert.JSONEq(t, string(first), string(second))
}

func TestListNotesAfterCreatesAndDeletes(t *testing.T) {
	app, _ := newTestApp()

	created := make([]*notes.Note, 0, 5)
	for i := 0; i < 5; i++ {
		created = append(created, createNote(t, app, "note"))
	}
	for _, note := range created[:2] {
		resp, _ := doRequest(t, app, "DELETE", "/notes/"+note.ID, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, body := doRequest(t, app, "GET", "/notes", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list notes.ListNotesResponse
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list.Notes, 3)
	assert.Equal(t, 3, list.Count)
	assert.Equal(t, 3, list.ScannedCount)
}

func TestListNotesEmptyIsAnEmptyArray(t *testing.T) {
	app, _ := newTestApp()

	resp, body := doRequest(t, app, "GET", "/notes", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"notes":[],"count":0,"scannedCount":0}`, string(body))
}

// Full lifecycle: create, update, delete, fetch.
func TestNoteLifecycle(t *testing.T) {
	app, _ := newTestApp()

	created := createNote(t, app, "Groceries")

	time.Sleep(5 * time.Millisecond)
	resp, body := doRequest(t, app, "PUT", "/notes/"+created.ID, `{"name":"Groceries v2"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated notes.Note
	require.NoError(t, json.Unmarshal(body, &updated))
	require.Equal(t, "Groceries v2", updated.Name)
	require.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	resp, body = doRequest(t, app, "DELETE", "/notes/"+created.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var deleted notes.DeleteNoteResponse
	require.NoError(t, json.Unmarshal(body, &deleted))
	require.Equal(t, created.ID, deleted.DeletedNote.ID)

	resp, _ = doRequest(t, app, "GET", "/notes/"+created.ID, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
