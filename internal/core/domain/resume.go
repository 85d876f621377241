package domain

import "time"

type ResumeStatus string

const (
	StatusQueued     ResumeStatus = "queued"
	StatusProcessing ResumeStatus = "processing"
	StatusCompleted  ResumeStatus = "completed"
	StatusFailed     ResumeStatus = "failed"
)

// Terminal reports whether no further transition is allowed for the status.
func (s ResumeStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type Resume struct {
	ID              string       `json:"id"`
	UserID          string       `json:"user_id"`
	Filename        string       `json:"filename"`
	OriginalText    string       `json:"original_text,omitempty"`
	ImprovedText    *string      `json:"improved_text,omitempty"`
	ATSScore        *int         `json:"ats_score,omitempty"`
	KeywordsScore   *int         `json:"keywords_score,omitempty"`
	FormattingScore *int         `json:"formatting_score,omitempty"`
	Issues          []Issue      `json:"issues,omitempty"`
	Status          ResumeStatus `json:"status"`
	Error           string       `json:"error,omitempty"`
	ContentHash     string       `json:"content_hash,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

type Issue struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// OptimizationResult is the engine's verdict for one resume text.
type OptimizationResult struct {
	ImprovedText    string  `json:"improved_text"`
	ATSScore        int     `json:"ats_score"`
	KeywordsScore   int     `json:"keywords_score"`
	FormattingScore int     `json:"formatting_score"`
	Issues          []Issue `json:"issues"`
}

// UploadJob is the queue message for a deferred upload. It references bytes
// already placed in object storage and is never mutated after creation.
type UploadJob struct {
	ResumeID   string    `json:"resume_id"`
	Bucket     string    `json:"bucket"`
	ObjectKey  string    `json:"object_key"`
	Filename   string    `json:"filename"`
	UserID     string    `json:"user_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

type DuplicateOutcome int

const (
	DuplicateNotFound DuplicateOutcome = iota
	DuplicateFound
	// DuplicateStaleIndex means the hash index points at a resume that no
	// longer exists; callers treat the upload as fresh.
	DuplicateStaleIndex
)

// DuplicateLookup is the tagged result of a (userID, contentHash) probe.
type DuplicateLookup struct {
	Outcome DuplicateOutcome
	Resume  *Resume
}

// UploadReceipt is what both upload entry points return to the client.
type UploadReceipt struct {
	ResumeID  string       `json:"resume_id"`
	Status    ResumeStatus `json:"status"`
	Duplicate bool         `json:"duplicate,omitempty"`
	Resume    *Resume      `json:"resume,omitempty"`
}

// PresignedUpload carries a time-limited write credential for the object store.
type PresignedUpload struct {
	URL       string    `json:"url"`
	Bucket    string    `json:"bucket"`
	ObjectKey string    `json:"object_key"`
	ExpiresAt time.Time `json:"expires_at"`
}
