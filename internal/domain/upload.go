package domain

import (
	"fmt"
	"time"
)

// RecordKind selects which canonical collection an upload feeds.
type RecordKind string

const (
	KindActuals      RecordKind = "actuals"
	KindAnticipateds RecordKind = "anticipateds"
)

// ParseRecordKind validates a kind taken from a request path.
func ParseRecordKind(s string) (RecordKind, error) {
	switch RecordKind(s) {
	case KindActuals, KindAnticipateds:
		return RecordKind(s), nil
	}
	return "", &ErrValidation{Field: "kind", Message: fmt.Sprintf("unknown record kind %q, expected actuals or anticipateds", s)}
}

// Row is one spreadsheet row after header resolution, keyed by header label.
type Row map[string]any

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// UploadVersion is an immutable numbered snapshot of one uploaded file.
type UploadVersion struct {
	ID            string     `json:"id"`
	Kind          RecordKind `json:"kind"`
	VersionNumber int        `json:"versionNumber"`
	UploadedAt    time.Time  `json:"uploadDate"`
	FileName      string     `json:"fileName"`
	ArchiveURI    string     `json:"archiveUri,omitempty"`
	Rows          []Row      `json:"data,omitempty"`
}

// Summary drops the row snapshot.
func (v UploadVersion) Summary() UploadVersion {
	v.Rows = nil
	return v
}

// UploadResult is returned after a successful upload.
type UploadResult struct {
	Message       string   `json:"message"`
	Inserted      int      `json:"inserted"`
	Dropped       int      `json:"dropped"`
	VersionID     string   `json:"versionId"`
	VersionNumber int      `json:"versionNumber"`
	Corrections   []string `json:"corrections"`
}

// RebuildResult reports a full rebuild of one canonical collection.
type RebuildResult struct {
	Message  string     `json:"message"`
	Kind     RecordKind `json:"kind"`
	Versions int        `json:"versions"`
	Inserted int        `json:"inserted"`
	Dropped  int        `json:"dropped"`
}

// UploadEvent is published after canonical or reference data changed.
// Subscribers use it to drop derived views such as the cached dashboard.
type UploadEvent struct {
	Type          string     `json:"type"`
	Kind          RecordKind `json:"kind"`
	VersionID     string     `json:"versionId"`
	VersionNumber int        `json:"versionNumber"`
	FileName      string     `json:"fileName,omitempty"`
	RecordID      string     `json:"recordId,omitempty"`
	Inserted      int        `json:"inserted"`
	Dropped       int        `json:"dropped"`
	OccurredAt    time.Time  `json:"occurredAt"`
}

const (
	EventUploadCreated  = "upload.created"
	EventVersionDeleted = "version.deleted"
	EventRebuilt        = "collection.rebuilt"
	EventActualChanged  = "actual.changed"
	EventDataSeeded     = "data.seeded"
)
