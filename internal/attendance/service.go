package attendance

import (
	"context"
	"errors"
	"time"

	"attendmark/internal/session"
)

// Service errors, mapped to HTTP statuses at the handler boundary.
var (
	ErrNoActiveSession = errors.New("no active attendance session")
	ErrInvalidCode     = errors.New("invalid or expired QR code")
	ErrMissingUser     = errors.New("user id required")
	ErrMissingDate     = errors.New("date is required")
	ErrNotFound        = errors.New("no record found")
)

// Record is one attendance entry for a user on a calendar date.
type Record struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Date      string    `json:"date"`
	Status    string    `json:"status"`
	MarkedAt  time.Time `json:"markedAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Entry is the denormalized per-student row returned by AllByDate.
type Entry struct {
	Email  string `json:"email"`
	Status string `json:"status"`
	Date   string `json:"date"`
}

// UnknownEmail substitutes for records whose user no longer resolves.
const UnknownEmail = "Unknown"

// Store persists attendance records, keyed uniquely by (user, date).
type Store interface {
	// Insert writes rec unless a record for (rec.UserID, rec.Date) already
	// exists. The bool reports whether a row was created; a lost race with a
	// concurrent insert reports false with the surviving record.
	Insert(ctx context.Context, rec Record) (Record, bool, error)
	GetByUserAndDate(ctx context.Context, userID, date string) (*Record, error)
	ListByDate(ctx context.Context, date string) ([]Record, error)
}

// UserDirectory resolves a user id to an email for read-time enrichment.
type UserDirectory interface {
	// Email returns the user's email, or ok=false when the id is unknown.
	Email(ctx context.Context, userID string) (string, bool, error)
}

// Service validates scan attempts against the active session and reads and
// writes attendance records.
type Service struct {
	store    Store
	sessions session.Manager
	users    UserDirectory
	newID    func() string
	now      func() time.Time
	loc      *time.Location
}

// NewService creates a service. now and loc pin the "today" computation:
// dates roll over at midnight in loc, not UTC.
func NewService(store Store, sessions session.Manager, users UserDirectory, newID func() string, now func() time.Time, loc *time.Location) *Service {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: store, sessions: sessions, users: users, newID: newID, now: now, loc: loc}
}

// Today returns the current calendar date in the service's location.
func (s *Service) Today() string {
	return s.now().In(s.loc).Format("2006-01-02")
}

// Mark records the user present for today if scannedCode matches the active
// session. A repeat scan on the same day is a success with created=false and
// leaves the original record untouched.
func (s *Service) Mark(ctx context.Context, userID, scannedCode string) (Record, bool, error) {
	if userID == "" {
		return Record{}, false, ErrMissingUser
	}

	active, ok, err := s.sessions.Active(ctx)
	if err != nil {
		return Record{}, false, err
	}
	if !ok {
		return Record{}, false, ErrNoActiveSession
	}
	if scannedCode != active {
		return Record{}, false, ErrInvalidCode
	}

	today := s.Today()
	if existing, err := s.store.GetByUserAndDate(ctx, userID, today); err != nil {
		return Record{}, false, err
	} else if existing != nil {
		return *existing, false, nil
	}

	rec := Record{
		ID:       s.newID(),
		UserID:   userID,
		Date:     today,
		Status:   "Present",
		MarkedAt: s.now(),
	}
	return s.store.Insert(ctx, rec)
}

// ByUserAndDate returns the record for an exact (user, date) pair.
func (s *Service) ByUserAndDate(ctx context.Context, userID, date string) (Record, error) {
	rec, err := s.store.GetByUserAndDate(ctx, userID, date)
	if err != nil {
		return Record{}, err
	}
	if rec == nil {
		return Record{}, ErrNotFound
	}
	return *rec, nil
}

// AllByDate returns every record for a date with the owning user's email
// resolved. Records whose user cannot be resolved keep the placeholder
// email rather than being dropped. Order follows the store's natural order.
func (s *Service) AllByDate(ctx context.Context, date string) ([]Entry, error) {
	if date == "" {
		return nil, ErrMissingDate
	}
	records, err := s.store.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}

	emails := make(map[string]string, len(records))
	entries := make([]Entry, 0, len(records))
	for _, rec := range records {
		email, seen := emails[rec.UserID]
		if !seen {
			resolved, ok, err := s.users.Email(ctx, rec.UserID)
			if err != nil {
				return nil, err
			}
			if !ok {
				resolved = UnknownEmail
			}
			email = resolved
			emails[rec.UserID] = email
		}
		entries = append(entries, Entry{Email: email, Status: rec.Status, Date: rec.Date})
	}
	return entries, nil
}
