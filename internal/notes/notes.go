package notes

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/mrshanahan/notes-service/internal/apierr"
	"github.com/mrshanahan/notes-service/internal/store"
	"github.com/mrshanahan/notes-service/internal/validation"
	"github.com/mrshanahan/notes-service/pkg/notes"
)

// API implements the note operations over an injected store. Each
// handler follows the same skeleton: parse, validate, derive server
// fields, call the store, map the outcome to a response.
type API struct {
	store store.Store
}

func NewAPI(s store.Store) *API {
	return &API{store: s}
}

func (api *API) RegisterRoutes(r fiber.Router) {
	r.Get("/", api.ListNotes)
	r.Post("/", api.CreateNote)
	r.Get("/:noteID", api.GetNote)
	r.Put("/:noteID", api.UpdateNote)
	r.Delete("/:noteID", api.DeleteNote)
}

func (api *API) CreateNote(c *fiber.Ctx) error {
	req, err := validation.ParseNoteRequest(c.Body())
	if err != nil {
		return respondError(c, err)
	}

	now := time.Now().UTC()
	note := &notes.Note{
		ID:        uuid.NewString(),
		Name:      req.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// An ID collision is surfaced as a conflict rather than retried;
	// the caller may resubmit for a fresh ID.
	created, err := api.store.InsertIfAbsent(c.Context(), note)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(created)
}

func (api *API) UpdateNote(c *fiber.Ctx) error {
	id := c.Params("noteID")
	if id == "" {
		return respondError(c, apierr.NewValidation("missing note id"))
	}

	req, err := validation.ParseNoteRequest(c.Body())
	if err != nil {
		return respondError(c, err)
	}

	updated, err := api.store.UpdateIfPresent(c.Context(), id, store.Patch{
		Name:      req.Name,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(updated)
}

func (api *API) DeleteNote(c *fiber.Ctx) error {
	id := c.Params("noteID")
	if id == "" {
		return respondError(c, apierr.NewValidation("missing note id"))
	}

	removed, err := api.store.DeleteIfPresent(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(&notes.DeleteNoteResponse{
		Message:     "Note deleted successfully",
		DeletedNote: removed,
	})
}

func (api *API) GetNote(c *fiber.Ctx) error {
	id := c.Params("noteID")
	if id == "" {
		return respondError(c, apierr.NewValidation("missing note id"))
	}

	note, err := api.store.GetByID(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	if note == nil {
		return respondError(c, apierr.NewNotFound("no note with id: "+id))
	}
	return c.JSON(note)
}

func (api *API) ListNotes(c *fiber.Ctx) error {
	result, err := api.store.ScanAll(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(&notes.ListNotesResponse{
		Notes:        result.Items,
		Count:        result.Count,
		ScannedCount: result.ScannedCount,
	})
}

// respondError maps any failure onto the error taxonomy and writes
// the uniform error body. Unexpected failures are logged with full
// detail and reported generically.
func respondError(c *fiber.Ctx, err error) error {
	apiErr, ok := apierr.As(err)
	if !ok {
		apiErr = apierr.NewInternal(err)
	}
	if apiErr.Code == apierr.CodeInternal {
		slog.Error("unexpected error handling request",
			"method", c.Method(),
			"path", c.Path(),
			"err", apiErr.Unwrap())
	}

	c.Status(apiErr.Status)
	return c.JSON(&notes.ErrorResponse{
		Error: &notes.ErrorDetail{
			Code:    string(apiErr.Code),
			Message: apiErr.Message,
			Details: apiErr.Fields,
		},
	})
}
