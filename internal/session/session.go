package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status tracks a session through the pipeline stages.
type Status string

const (
	StatusPending     Status = "pending"
	StatusTranscribed Status = "transcribed"
	StatusExtracted   Status = "extracted"
	StatusImagesReady Status = "images_ready"
	StatusVideosReady Status = "videos_ready"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

// Valid reports whether the status is one the pipeline produces.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusTranscribed, StatusExtracted,
		StatusImagesReady, StatusVideosReady, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// statusRank orders statuses along the pipeline for display and for guarding
// stage preconditions. Failed sessions have no rank.
var statusRank = map[Status]int{
	StatusPending:     0,
	StatusTranscribed: 1,
	StatusExtracted:   2,
	StatusImagesReady: 3,
	StatusVideosReady: 4,
	StatusCompleted:   5,
}

// ReachedAtLeast reports whether the session has progressed to the given
// stage or beyond. Failed sessions report false for every stage.
func (s Status) ReachedAtLeast(other Status) bool {
	a, okA := statusRank[s]
	b, okB := statusRank[other]
	return okA && okB && a >= b
}

// Session is one memory-video job: its inputs, its progress, and its error
// state when a stage failed.
type Session struct {
	ID           string
	Title        string
	Status       Status
	AudioPath    string
	PhotoPath    string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// New creates a pending session with a fresh identifier.
func New(title, audioPath, photoPath string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(title),
		Status:    StatusPending,
		AudioPath: audioPath,
		PhotoPath: photoPath,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ShortID returns the first uuid segment for log lines and table output.
func (s *Session) ShortID() string {
	if idx := strings.IndexByte(s.ID, '-'); idx > 0 {
		return s.ID[:idx]
	}
	return s.ID
}

func (s *Session) String() string {
	return fmt.Sprintf("session %s (%s)", s.ShortID(), s.Status)
}
