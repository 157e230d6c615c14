package notes

import "time"

// Note is the canonical API representation of a note. IDs are
// server-generated and immutable; Name is the only caller-writable
// field. CreatedAt never changes after creation and is always <=
// UpdatedAt.
type Note struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListNotesResponse is the envelope returned by GET /notes. Count is
// the number of notes returned; ScannedCount is the number of records
// the store reported examining (they only differ if the store skips
// undecodable records).
type ListNotesResponse struct {
	Notes        []*Note `json:"notes"`
	Count        int     `json:"count"`
	ScannedCount int     `json:"scannedCount"`
}

// DeleteNoteResponse confirms a deletion, echoing the record as it
// was immediately before removal.
type DeleteNoteResponse struct {
	Message     string `json:"message"`
	DeletedNote *Note  `json:"deletedNote"`
}

// ErrorResponse is the body returned for every non-2xx response.
type ErrorResponse struct {
	Error *ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string           `json:"code"`
	Message string           `json:"message"`
	Details []FieldViolation `json:"details,omitempty"`
}

// FieldViolation describes a single validation failure.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
