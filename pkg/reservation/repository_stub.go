package reservation

import (
	"context"
	"sort"
	"sync"
)

type RepositoryStub struct {
	mu           sync.Mutex
	reservations []Reservation
	nextId       int
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{}
}

func (r *RepositoryStub) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	r.mu.Lock()
	snapshot := append([]Reservation(nil), r.reservations...)
	nextId := r.nextId
	r.mu.Unlock()

	if err := fn(r); err != nil {
		r.mu.Lock()
		r.reservations = snapshot
		r.nextId = nextId
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *RepositoryStub) StoreReservation(ctx context.Context, reservation Reservation) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.reservations {
		if existing.Combo() == reservation.Combo() {
			return 0, ErrSlotTaken
		}
		if existing.UserId == reservation.UserId {
			return 0, ErrAlreadyReserved
		}
	}
	r.nextId++
	reservation.Id = r.nextId
	reservation.Members = append([]string(nil), reservation.Members...)
	r.reservations = append(r.reservations, reservation)
	return reservation.Id, nil
}

func (r *RepositoryStub) find(match func(Reservation) bool) (Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, reservation := range r.reservations {
		if match(reservation) {
			return reservation, nil
		}
	}
	return Reservation{}, ErrReservationNotFound
}

func (r *RepositoryStub) GetByCombo(ctx context.Context, combo Combo) (Reservation, error) {
	return r.find(func(reservation Reservation) bool { return reservation.Combo() == combo })
}

func (r *RepositoryStub) GetByUser(ctx context.Context, userId int) (Reservation, error) {
	return r.find(func(reservation Reservation) bool { return reservation.UserId == userId })
}

func (r *RepositoryStub) GetTaken(ctx context.Context) ([]Combo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	taken := make([]Combo, 0, len(r.reservations))
	for _, reservation := range r.reservations {
		taken = append(taken, reservation.Combo())
	}
	sort.Slice(taken, func(i, j int) bool {
		if taken[i].Theme != taken[j].Theme {
			return taken[i].Theme < taken[j].Theme
		}
		return taken[i].TimeSlot < taken[j].TimeSlot
	})
	return taken, nil
}

func (r *RepositoryStub) GetAll(ctx context.Context) ([]Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Reservation(nil), r.reservations...), nil
}
