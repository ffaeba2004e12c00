package learning

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"autofillTuner/domain"
)

// memEventRepo is an in-memory AutofillEventRepository.
type memEventRepo struct {
	mu        sync.Mutex
	events    []domain.AutofillEvent
	appendErr error
	scanErr   error
	deleteErr error
}

func (r *memEventRepo) AppendBatch(_ context.Context, events []domain.AutofillEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	r.events = append(r.events, events...)
	return nil
}

func (r *memEventRepo) UpdateFeedback(_ context.Context, eventID, status string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.events {
		if r.events[i].ID == eventID {
			s := status
			r.events[i].FeedbackStatus = &s
			r.events[i].FeedbackAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (r *memEventRepo) ScanRecent(_ context.Context, since time.Time, fn func(domain.AutofillEvent) error) error {
	r.mu.Lock()
	snapshot := append([]domain.AutofillEvent(nil), r.events...)
	r.mu.Unlock()

	if r.scanErr != nil {
		return r.scanErr
	}
	for _, ev := range snapshot {
		if ev.CreatedAt.Before(since) {
			continue
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
	return nil
}

func (r *memEventRepo) DeleteOlderThan(_ context.Context, cutoff time.Time, limit int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return 0, r.deleteErr
	}

	kept := r.events[:0]
	var n int64
	for _, ev := range r.events {
		if ev.CreatedAt.Before(cutoff) && n < int64(limit) {
			n++
			continue
		}
		kept = append(kept, ev)
	}
	r.events = kept
	return n, nil
}

// memProfileRepo is an in-memory FormProfileRepository.
type memProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]domain.FormProfile
	failHost string
	findErr  error
	staleErr error
}

func newMemProfileRepo() *memProfileRepo {
	return &memProfileRepo{profiles: make(map[string]domain.FormProfile)}
}

func (r *memProfileRepo) FindProfile(_ context.Context, host, schemaHash string) (domain.FormProfile, bool, error) {
	if r.findErr != nil {
		return domain.FormProfile{}, false, r.findErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[domain.FormID(host, schemaHash)]
	return p, ok, nil
}

func (r *memProfileRepo) ReplaceProfile(_ context.Context, p domain.FormProfile) error {
	if p.Host == r.failHost {
		return errors.New("write refused")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.FormID()] = p
	return nil
}

func (r *memProfileRepo) StaleProfiles(_ context.Context, before time.Time) ([]domain.FormProfile, error) {
	if r.staleErr != nil {
		return nil, r.staleErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.FormProfile
	for _, p := range r.profiles {
		if p.TotalRuns > 0 && p.UpdatedAt.Before(before) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FormID() < out[j].FormID() })
	return out, nil
}

type fakeLock struct {
	locker *fakeLocker
}

func (l fakeLock) Release(context.Context) error {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()
	l.locker.held = false
	l.locker.released++
	return nil
}

// fakeLocker is a single in-process lock standing in for redis.
type fakeLocker struct {
	mu       sync.Mutex
	held     bool
	err      error
	acquired int
	released int
}

func (f *fakeLocker) TryLock(context.Context, string, time.Duration) (Lock, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, false, f.err
	}
	if f.held {
		return nil, false, nil
	}
	f.held = true
	f.acquired++
	return fakeLock{locker: f}, true, nil
}

type staticSettings Settings

func (s staticSettings) Load(context.Context) Settings { return Settings(s) }

// memSettingsRepo is an in-memory SettingsRepository.
type memSettingsRepo struct {
	row    *domain.LearningSettings
	getErr error
	putErr error
}

func (r *memSettingsRepo) GetSettings(_ context.Context, _ string) (domain.LearningSettings, bool, error) {
	if r.getErr != nil {
		return domain.LearningSettings{}, false, r.getErr
	}
	if r.row == nil {
		return domain.LearningSettings{}, false, nil
	}
	return *r.row, true, nil
}

func (r *memSettingsRepo) UpsertSettings(_ context.Context, s domain.LearningSettings) error {
	if r.putErr != nil {
		return r.putErr
	}
	r.row = &s
	return nil
}
