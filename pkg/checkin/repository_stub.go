package checkin

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/hackgrid/hackgrid/pkg/user"
)

type RepositoryStub struct {
	mu       sync.Mutex
	users    user.Repo
	nextId   int
	nextScan int
	checkins []Checkin
	scans    []Scan
}

// NewRepositoryStub resolves attendees through users.
func NewRepositoryStub(users user.Repo) *RepositoryStub {
	return &RepositoryStub{users: users}
}

func (r *RepositoryStub) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	r.mu.Lock()
	checkins := append([]Checkin(nil), r.checkins...)
	scans := append([]Scan(nil), r.scans...)
	nextId, nextScan := r.nextId, r.nextScan
	r.mu.Unlock()

	if err := fn(r); err != nil {
		r.mu.Lock()
		r.checkins, r.scans, r.nextId, r.nextScan = checkins, scans, nextId, nextScan
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *RepositoryStub) GetCheckin(ctx context.Context, userId int, eventId uuid.UUID) (Checkin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.checkins {
		if c.UserId == userId && c.EventId == eventId {
			return c, nil
		}
	}
	return Checkin{}, ErrCheckinNotFound
}

func (r *RepositoryStub) StoreCheckin(ctx context.Context, checkin Checkin) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.checkins {
		if c.UserId == checkin.UserId && c.EventId == checkin.EventId {
			return 0, ErrAlreadyCheckedIn
		}
	}
	r.nextId++
	checkin.Id = r.nextId
	r.checkins = append(r.checkins, checkin)
	return checkin.Id, nil
}

func (r *RepositoryStub) StoreScan(ctx context.Context, scan Scan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextScan++
	scan.Id = r.nextScan
	r.scans = append(r.scans, scan)
	return nil
}

func (r *RepositoryStub) GetScanHistory(ctx context.Context, limit int) ([]ScanRecord, error) {
	r.mu.Lock()
	scans := append([]Scan(nil), r.scans...)
	r.mu.Unlock()

	sort.SliceStable(scans, func(i, j int) bool {
		if scans[i].CreatedAt.Equal(scans[j].CreatedAt) {
			return scans[i].Id > scans[j].Id
		}
		return scans[i].CreatedAt.After(scans[j].CreatedAt)
	})
	if len(scans) > limit {
		scans = scans[:limit]
	}
	records := make([]ScanRecord, 0, len(scans))
	for _, scan := range scans {
		u, err := r.users.GetUser(ctx, scan.UserId)
		if err != nil {
			return nil, err
		}
		records = append(records, ScanRecord{Scan: scan, Participant: u})
	}
	return records, nil
}

func (r *RepositoryStub) GetAttendees(ctx context.Context, eventId uuid.UUID) ([]Attendee, error) {
	r.mu.Lock()
	var matching []Checkin
	for _, c := range r.checkins {
		if c.EventId == eventId {
			matching = append(matching, c)
		}
	}
	r.mu.Unlock()

	sort.SliceStable(matching, func(i, j int) bool {
		return matching[i].CreatedAt.Before(matching[j].CreatedAt)
	})
	attendees := make([]Attendee, 0, len(matching))
	for _, c := range matching {
		u, err := r.users.GetUser(ctx, c.UserId)
		if err != nil {
			return nil, err
		}
		attendees = append(attendees, Attendee{User: u, CheckedInAt: c.CreatedAt, AdminId: c.AdminId})
	}
	return attendees, nil
}

func (r *RepositoryStub) CountScans(ctx context.Context, eventId uuid.UUID) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var successful, failed int
	for _, s := range r.scans {
		if s.EventId != eventId {
			continue
		}
		if s.Successful {
			successful++
		} else {
			failed++
		}
	}
	return successful, failed, nil
}
