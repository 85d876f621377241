package usecase

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/resumepilot/resume-optimizer/internal/core/domain"
)

type fakeRepo struct {
	mu      sync.Mutex
	resumes map[string]*domain.Resume
	hashes  map[string]string // userID+"/"+hash -> resumeID

	createErr     error
	saveResultErr error
	setTextErr    error
	findErr       error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		resumes: make(map[string]*domain.Resume),
		hashes:  make(map[string]string),
	}
}

func (r *fakeRepo) Create(_ context.Context, resume *domain.Resume) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *resume
	r.resumes[resume.ID] = &copied
	if resume.ContentHash != "" {
		r.hashes[resume.UserID+"/"+resume.ContentHash] = resume.ID
	}
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*domain.Resume, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	resume, ok := r.resumes[id]
	if !ok {
		return nil, domain.ErrResumeNotFound
	}
	copied := *resume
	return &copied, nil
}

func (r *fakeRepo) UpdateStatus(_ context.Context, id string, status domain.ResumeStatus, errMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	resume, ok := r.resumes[id]
	if !ok {
		return domain.ErrResumeNotFound
	}
	resume.Status = status
	resume.Error = errMessage
	return nil
}

func (r *fakeRepo) SetExtractedText(_ context.Context, id, text, contentHash string) error {
	if r.setTextErr != nil {
		return r.setTextErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	resume, ok := r.resumes[id]
	if !ok {
		return domain.ErrResumeNotFound
	}
	resume.OriginalText = text
	resume.ContentHash = contentHash
	r.hashes[resume.UserID+"/"+contentHash] = id
	return nil
}

func (r *fakeRepo) SaveResult(_ context.Context, id string, result domain.OptimizationResult) error {
	if r.saveResultErr != nil {
		return r.saveResultErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	resume, ok := r.resumes[id]
	if !ok {
		return domain.ErrResumeNotFound
	}
	applyResult(resume, result)
	return nil
}

func (r *fakeRepo) ClaimQueued(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	resume, ok := r.resumes[id]
	if !ok || resume.Status != domain.StatusQueued {
		return false, nil
	}
	resume.Status = domain.StatusProcessing
	return true, nil
}

func (r *fakeRepo) FindByContentHash(_ context.Context, userID, contentHash string) (domain.DuplicateLookup, error) {
	if r.findErr != nil {
		return domain.DuplicateLookup{}, r.findErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.hashes[userID+"/"+contentHash]
	if !ok {
		return domain.DuplicateLookup{Outcome: domain.DuplicateNotFound}, nil
	}
	resume, ok := r.resumes[id]
	if !ok {
		return domain.DuplicateLookup{Outcome: domain.DuplicateStaleIndex}, nil
	}
	copied := *resume
	return domain.DuplicateLookup{Outcome: domain.DuplicateFound, Resume: &copied}, nil
}

func (r *fakeRepo) statusOf(id string) domain.ResumeStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	resume, ok := r.resumes[id]
	if !ok {
		return ""
	}
	return resume.Status
}

type fakeUsers struct {
	users map[string]*domain.User
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUsers) GetByAPIKey(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}

type fakeLedger struct {
	mu        sync.Mutex
	credits   map[string]int
	deductErr error
}

func newFakeLedger(credits map[string]int) *fakeLedger {
	return &fakeLedger{credits: credits}
}

func (l *fakeLedger) TryDeduct(_ context.Context, userID string) (bool, error) {
	if l.deductErr != nil {
		return false, l.deductErr
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.credits[userID] <= 0 {
		return false, nil
	}
	l.credits[userID]--
	return true, nil
}

func (l *fakeLedger) Refund(_ context.Context, userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credits[userID]++
	return nil
}

func (l *fakeLedger) balance(userID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.credits[userID]
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	saveErr error
	openErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (s *fakeStorage) Save(_ context.Context, key string, data io.Reader) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = raw
	return nil
}

func (s *fakeStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (s *fakeStorage) PresignPut(_ context.Context, key string, expires time.Duration) (*domain.PresignedUpload, error) {
	return &domain.PresignedUpload{
		URL:       "https://storage.example/" + key,
		Bucket:    s.Bucket(),
		ObjectKey: key,
		ExpiresAt: time.Now().Add(expires),
	}, nil
}

func (s *fakeStorage) Bucket() string { return "test-bucket" }

type fakeQueue struct {
	mu         sync.Mutex
	jobs       []domain.UploadJob
	enqueueErr error
}

func (q *fakeQueue) Enqueue(_ context.Context, job domain.UploadJob) error {
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *fakeQueue) Dequeue(context.Context, time.Duration) (*domain.UploadJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return nil, nil
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return &job, nil
}

func (q *fakeQueue) Close() {}

type fakeParser struct {
	err error
}

func (p *fakeParser) Parse(_ context.Context, data []byte, _, _ string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return string(data), nil
}

type fakeHasher struct{}

func (fakeHasher) Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

type fakeEngine struct {
	mu     sync.Mutex
	calls  int
	err    error
	result domain.OptimizationResult
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		result: domain.OptimizationResult{
			ImprovedText:    "improved",
			ATSScore:        80,
			KeywordsScore:   70,
			FormattingScore: 90,
			Issues:          []domain.Issue{{Severity: "warning", Message: "add metrics"}},
		},
	}
}

func (e *fakeEngine) Optimize(context.Context, string) (*domain.OptimizationResult, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	result := e.result
	return &result, nil
}

var errBoom = errors.New("boom")
