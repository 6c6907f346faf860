package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"signal-bridge/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

func noopTracer() trace.Tracer { return trace.NewNoopTracerProvider().Tracer("test") }

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

func (c *fixedClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// memLicenseRepo mimics the SQL semantics of the license repository.
type memLicenseRepo struct {
	mu      sync.Mutex
	nextID  int64
	byKey   map[string]*domain.License
	failErr error
	inserts int
}

func newMemLicenseRepo() *memLicenseRepo {
	return &memLicenseRepo{byKey: make(map[string]*domain.License)}
}

func (r *memLicenseRepo) put(l domain.License) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	l.ID = r.nextID
	r.byKey[l.Key] = &l
}

func (r *memLicenseRepo) get(key string) domain.License {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.byKey[key]
}

func (r *memLicenseRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byKey)
}

func (r *memLicenseRepo) sorted() []*domain.License {
	out := make([]*domain.License, 0, len(r.byKey))
	for _, l := range r.byKey {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memLicenseRepo) first(match func(*domain.License) bool) (*domain.License, error) {
	if r.failErr != nil {
		return nil, r.failErr
	}
	for _, l := range r.sorted() {
		if match(l) {
			cp := *l
			return &cp, nil
		}
	}
	return nil, domain.ErrLicenseNotFound
}

func (r *memLicenseRepo) Insert(ctx context.Context, l domain.License) (*domain.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return nil, r.failErr
	}
	r.inserts++
	if _, exists := r.byKey[l.Key]; exists {
		return nil, domain.ErrDuplicateKey
	}
	r.nextID++
	l.ID = r.nextID
	r.byKey[l.Key] = &l
	cp := l
	return &cp, nil
}

func (r *memLicenseRepo) FindByKey(ctx context.Context, key string) (*domain.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.first(func(l *domain.License) bool { return l.Key == key })
}

func (r *memLicenseRepo) FindActiveByEmail(ctx context.Context, email string) (*domain.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.first(func(l *domain.License) bool { return l.Email == email && l.Status == domain.LicenseActive })
}

func (r *memLicenseRepo) FindActiveByCustomer(ctx context.Context, customerID string) (*domain.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.first(func(l *domain.License) bool { return l.CustomerID == customerID && l.Status == domain.LicenseActive })
}

func (r *memLicenseRepo) FindActiveUnlinkedByEmail(ctx context.Context, email string) (*domain.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.first(func(l *domain.License) bool {
		return l.Email == email && l.CustomerID == "" && l.Status == domain.LicenseActive
	})
}

func (r *memLicenseRepo) update(key string, now time.Time, fn func(*domain.License) bool) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return 0, r.failErr
	}
	l, ok := r.byKey[key]
	if !ok || !fn(l) {
		return 0, nil
	}
	l.UpdatedAt = now.Unix()
	return 1, nil
}

func (r *memLicenseRepo) UpdateExpiry(ctx context.Context, key string, expiresAt int64, now time.Time) (int64, error) {
	return r.update(key, now, func(l *domain.License) bool { l.ExpiresAt = expiresAt; return true })
}

func (r *memLicenseRepo) UpdateStatus(ctx context.Context, key string, status domain.LicenseStatus, now time.Time) (int64, error) {
	return r.update(key, now, func(l *domain.License) bool { l.Status = status; return true })
}

func (r *memLicenseRepo) LinkCustomer(ctx context.Context, key, customerID string, now time.Time) error {
	_, err := r.update(key, now, func(l *domain.License) bool {
		if l.CustomerID != "" {
			return false
		}
		l.CustomerID = customerID
		return true
	})
	return err
}

func (r *memLicenseRepo) BindDevice(ctx context.Context, key, device string, now time.Time) (bool, error) {
	n, err := r.update(key, now, func(l *domain.License) bool {
		if l.BoundDevice != "" {
			return false
		}
		l.BoundDevice = device
		return true
	})
	return n == 1, err
}

func (r *memLicenseRepo) deactivate(now time.Time, match func(*domain.License) bool) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return 0, r.failErr
	}
	var n int64
	for _, l := range r.byKey {
		if l.Status == domain.LicenseActive && match(l) {
			l.Status = domain.LicenseInactive
			l.UpdatedAt = now.Unix()
			n++
		}
	}
	return n, nil
}

func (r *memLicenseRepo) DeactivateActiveByEmail(ctx context.Context, email string, now time.Time) (int64, error) {
	return r.deactivate(now, func(l *domain.License) bool { return l.Email == email })
}

func (r *memLicenseRepo) DeactivateActiveByCustomer(ctx context.Context, customerID, email string, now time.Time) (int64, error) {
	return r.deactivate(now, func(l *domain.License) bool {
		return l.CustomerID == customerID || (l.CustomerID == "" && email != "" && l.Email == email)
	})
}

// memEventStore mimics the leased claims of the billing event repository.
type memEventStore struct {
	mu         sync.Mutex
	now        func() time.Time
	lease      time.Duration
	claimedAt  map[string]time.Time
	processed  map[string]string
	released   []string
	claimErr   error
	releaseErr error
}

func newMemEventStore() *memEventStore {
	return &memEventStore{
		now:       time.Now,
		lease:     10 * time.Minute,
		claimedAt: make(map[string]time.Time),
		processed: make(map[string]string),
	}
}

func (s *memEventStore) Claim(ctx context.Context, provider, eventID, eventType string) (domain.EventClaim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claimErr != nil {
		return "", s.claimErr
	}
	k := provider + "/" + eventID
	if _, ok := s.processed[k]; ok {
		return domain.ClaimProcessed, nil
	}
	now := s.now()
	if at, ok := s.claimedAt[k]; ok && !at.Before(now.Add(-s.lease)) {
		return domain.ClaimHeld, nil
	}
	s.claimedAt[k] = now
	return domain.ClaimAcquired, nil
}

func (s *memEventStore) MarkProcessed(ctx context.Context, provider, eventID, outcome string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed[provider+"/"+eventID] = outcome
	return nil
}

func (s *memEventStore) Release(ctx context.Context, provider, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := provider + "/" + eventID
	s.released = append(s.released, k)
	if s.releaseErr != nil {
		return s.releaseErr
	}
	delete(s.claimedAt, k)
	return nil
}

type stubCustomers struct {
	emails map[string]string
	err    error
	calls  int
}

func (s *stubCustomers) CustomerEmail(ctx context.Context, customerID string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.emails[customerID], nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (n *recordingNotifier) Notify(ctx context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
	return n.err
}

type recordingJournal struct {
	entries []domain.JournalEntry
	err     error
}

func (j *recordingJournal) Append(ctx context.Context, e domain.JournalEntry) error {
	j.entries = append(j.entries, e)
	return j.err
}

type recordingPublisher struct {
	orders []domain.OutboundOrder
	err    error
}

func (p *recordingPublisher) PublishOrder(ctx context.Context, o domain.OutboundOrder) error {
	p.orders = append(p.orders, o)
	return p.err
}

var errStorageDown = errors.Join(domain.ErrStorageUnavailable, errors.New("connection refused"))
