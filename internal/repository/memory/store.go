// Package memory is an in-process Store used for local runs and tests.
// Transactions are serialized and buffer their writes until commit, so a
// failed transaction leaves no trace.
package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"parking/internal/models"
	"parking/internal/repository"
)

var (
	_ repository.Store  = (*Store)(nil)
	_ repository.Seeder = (*Store)(nil)
	_ repository.Tx     = (*memTx)(nil)
)

type tables struct {
	users        map[int64]models.User
	vehicles     map[int64]models.Vehicle
	zones        map[int64]models.Zone
	slots        map[int64]models.Slot
	prices       map[int64]models.TicketPrice
	reservations map[int64]models.Reservation
	payments     map[int64]models.Payment
}

func newTables() tables {
	return tables{
		users:        make(map[int64]models.User),
		vehicles:     make(map[int64]models.Vehicle),
		zones:        make(map[int64]models.Zone),
		slots:        make(map[int64]models.Slot),
		prices:       make(map[int64]models.TicketPrice),
		reservations: make(map[int64]models.Reservation),
		payments:     make(map[int64]models.Payment),
	}
}

type Store struct {
	reader

	// txMu serializes transactions, mu guards the committed tables.
	txMu   sync.Mutex
	mu     sync.RWMutex
	base   tables
	nextID atomic.Int64
}

func NewStore() *Store {
	s := &Store{base: newTables()}
	s.reader = reader{s: s}
	return s
}

func (s *Store) id() int64 {
	return s.nextID.Add(1)
}

// Transact runs fn while holding the store-wide transaction lock. Writes
// made through tx become visible only if fn returns nil.
func (s *Store) Transact(ctx context.Context, fn func(tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &memTx{overlay: overlay{
		zones:        make(map[int64]models.Zone),
		slots:        make(map[int64]models.Slot),
		reservations: make(map[int64]models.Reservation),
		payments:     make(map[int64]models.Payment),
	}}
	tx.reader = reader{s: s, o: &tx.overlay}
	tx.s = s

	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, v := range tx.zones {
		s.base.zones[id] = v
	}
	for id, v := range tx.slots {
		s.base.slots[id] = v
	}
	for id, v := range tx.reservations {
		s.base.reservations[id] = v
	}
	for id, v := range tx.payments {
		s.base.payments[id] = v
	}
	return nil
}

type overlay struct {
	zones        map[int64]models.Zone
	slots        map[int64]models.Slot
	reservations map[int64]models.Reservation
	payments     map[int64]models.Payment
}

type memTx struct {
	reader
	overlay
	s *Store
}

func (t *memTx) LockSlot(ctx context.Context, id int64) (*models.Slot, error) {
	return t.GetSlot(ctx, id)
}

func (t *memTx) LockZone(ctx context.Context, id int64) (*models.Zone, error) {
	return t.GetZone(ctx, id)
}

func (t *memTx) SetSlotState(ctx context.Context, slotID int64, state models.SlotState) error {
	slot, err := t.GetSlot(ctx, slotID)
	if err != nil || slot == nil {
		return err
	}
	slot.State = state
	slot.UpdatedAt = time.Now()
	t.slots[slotID] = *slot
	return nil
}

func (t *memTx) SetZoneAvailable(ctx context.Context, zoneID int64, available int) error {
	zone, err := t.GetZone(ctx, zoneID)
	if err != nil || zone == nil {
		return err
	}
	zone.AvailableSlots = available
	zone.UpdatedAt = time.Now()
	t.zones[zoneID] = *zone
	return nil
}

func (t *memTx) CreateReservation(_ context.Context, r *models.Reservation) error {
	now := time.Now()
	r.ID = t.s.id()
	r.CreatedAt = now
	r.UpdatedAt = now
	t.reservations[r.ID] = *r
	return nil
}

func (t *memTx) UpdateReservation(_ context.Context, r *models.Reservation) error {
	r.UpdatedAt = time.Now()
	t.reservations[r.ID] = *r
	return nil
}

func (t *memTx) CreatePayment(_ context.Context, p *models.Payment) error {
	now := time.Now()
	p.ID = t.s.id()
	p.CreatedAt = now
	p.UpdatedAt = now
	t.payments[p.ID] = *p
	return nil
}

func (t *memTx) UpdatePayment(_ context.Context, p *models.Payment) error {
	p.UpdatedAt = time.Now()
	t.payments[p.ID] = *p
	return nil
}

// reader resolves lookups against the committed tables, with the
// transaction overlay taking precedence when o is set.
type reader struct {
	s *Store
	o *overlay
}

func lookup[T any](mu *sync.RWMutex, base, over map[int64]T, id int64) (*T, bool) {
	if over != nil {
		if v, ok := over[id]; ok {
			return &v, true
		}
	}
	mu.RLock()
	defer mu.RUnlock()
	if v, ok := base[id]; ok {
		return &v, true
	}
	return nil, false
}

func collect[T any](mu *sync.RWMutex, base, over map[int64]T, keep func(T) bool) []T {
	mu.RLock()
	ids := make([]int64, 0, len(base)+len(over))
	for id := range base {
		ids = append(ids, id)
	}
	for id := range over {
		if _, ok := base[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []T
	for _, id := range ids {
		v, ok := over[id]
		if !ok {
			v = base[id]
		}
		if keep(v) {
			out = append(out, v)
		}
	}
	mu.RUnlock()
	return out
}

func (r reader) overZones() map[int64]models.Zone {
	if r.o == nil {
		return nil
	}
	return r.o.zones
}

func (r reader) overSlots() map[int64]models.Slot {
	if r.o == nil {
		return nil
	}
	return r.o.slots
}

func (r reader) overReservations() map[int64]models.Reservation {
	if r.o == nil {
		return nil
	}
	return r.o.reservations
}

func (r reader) overPayments() map[int64]models.Payment {
	if r.o == nil {
		return nil
	}
	return r.o.payments
}

func (r reader) GetZone(_ context.Context, id int64) (*models.Zone, error) {
	z, _ := lookup(&r.s.mu, r.s.base.zones, r.overZones(), id)
	return z, nil
}

func (r reader) ListZones(_ context.Context) ([]models.Zone, error) {
	return collect(&r.s.mu, r.s.base.zones, r.overZones(), func(models.Zone) bool { return true }), nil
}

func (r reader) GetSlot(_ context.Context, id int64) (*models.Slot, error) {
	s, _ := lookup(&r.s.mu, r.s.base.slots, r.overSlots(), id)
	return s, nil
}

func (r reader) ListSlotsByZone(_ context.Context, zoneID int64) ([]models.Slot, error) {
	slots := collect(&r.s.mu, r.s.base.slots, r.overSlots(), func(s models.Slot) bool { return s.ZoneID == zoneID })
	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].PositionY != slots[j].PositionY {
			return slots[i].PositionY < slots[j].PositionY
		}
		return slots[i].PositionX < slots[j].PositionX
	})
	return slots, nil
}

func (r reader) GetReservation(_ context.Context, id int64) (*models.Reservation, error) {
	res, _ := lookup(&r.s.mu, r.s.base.reservations, r.overReservations(), id)
	return res, nil
}

func (r reader) GetReservationByReference(_ context.Context, reference string) (*models.Reservation, error) {
	list := collect(&r.s.mu, r.s.base.reservations, r.overReservations(), func(res models.Reservation) bool {
		return res.Reference == reference
	})
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

func (r reader) ListReservationsByUser(_ context.Context, userID int64) ([]models.Reservation, error) {
	list := collect(&r.s.mu, r.s.base.reservations, r.overReservations(), func(res models.Reservation) bool {
		return res.UserID == userID
	})
	// newest first, ids grow with creation time
	sort.SliceStable(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	return list, nil
}

func (r reader) ListActiveReservationsBySlot(_ context.Context, slotID int64) ([]models.Reservation, error) {
	list := collect(&r.s.mu, r.s.base.reservations, r.overReservations(), func(res models.Reservation) bool {
		return res.SlotID == slotID && res.Status.IsActive()
	})
	sort.SliceStable(list, func(i, j int) bool { return list[i].Window.Start.Before(list[j].Window.Start) })
	return list, nil
}

func (r reader) ListActiveReservationsByZone(_ context.Context, zoneID int64) ([]models.Reservation, error) {
	return collect(&r.s.mu, r.s.base.reservations, r.overReservations(), func(res models.Reservation) bool {
		return res.ZoneID == zoneID && res.Status.IsActive()
	}), nil
}

func (r reader) ListExpiredHolds(_ context.Context, now time.Time, limit int) ([]models.Reservation, error) {
	list := collect(&r.s.mu, r.s.base.reservations, r.overReservations(), func(res models.Reservation) bool {
		return res.Status == models.StatusPending && res.ExpiresAt.Before(now)
	})
	sort.SliceStable(list, func(i, j int) bool { return list[i].ExpiresAt.Before(list[j].ExpiresAt) })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (r reader) GetPaymentByReservation(_ context.Context, reservationID int64) (*models.Payment, error) {
	list := collect(&r.s.mu, r.s.base.payments, r.overPayments(), func(p models.Payment) bool {
		return p.ReservationID == reservationID
	})
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

func (r reader) GetPaymentByReference(_ context.Context, reference string) (*models.Payment, error) {
	list := collect(&r.s.mu, r.s.base.payments, r.overPayments(), func(p models.Payment) bool {
		return p.Reference == reference
	})
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

func (r reader) GetCurrentPrice(_ context.Context, zoneID int64, ticketType models.TicketType, at time.Time) (*models.TicketPrice, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var best *models.TicketPrice
	for _, p := range r.s.base.prices {
		if p.ZoneID != zoneID || p.TicketType != ticketType {
			continue
		}
		if p.ValidFrom.After(at) || (p.ValidTo != nil && p.ValidTo.Before(at)) {
			continue
		}
		if best == nil || p.ValidFrom.After(best.ValidFrom) {
			best = &p
		}
	}
	return best, nil
}

func (r reader) GetUser(_ context.Context, id int64) (*models.User, error) {
	u, _ := lookup[models.User](&r.s.mu, r.s.base.users, nil, id)
	return u, nil
}

func (r reader) GetVehicle(_ context.Context, id int64) (*models.Vehicle, error) {
	v, _ := lookup[models.Vehicle](&r.s.mu, r.s.base.vehicles, nil, id)
	return v, nil
}

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.id()
	u.CreatedAt = time.Now()
	s.base.users[u.ID] = *u
	return nil
}

func (s *Store) CreateVehicle(_ context.Context, v *models.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.Type == "" {
		v.Type = "car"
	}
	v.ID = s.id()
	v.CreatedAt = time.Now()
	s.base.vehicles[v.ID] = *v
	return nil
}

func (s *Store) CreateZone(_ context.Context, z *models.Zone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	z.ID = s.id()
	z.CreatedAt = now
	z.UpdatedAt = now
	s.base.zones[z.ID] = *z
	return nil
}

// CreateSlot adds a slot and refreshes the zone totals.
func (s *Store) CreateSlot(_ context.Context, slot *models.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot.State == "" {
		slot.State = models.SlotAvailable
	}
	slot.ID = s.id()
	slot.UpdatedAt = time.Now()
	s.base.slots[slot.ID] = *slot

	zone, ok := s.base.zones[slot.ZoneID]
	if !ok {
		return nil
	}
	zone.TotalSlots, zone.AvailableSlots = 0, 0
	for _, sl := range s.base.slots {
		if sl.ZoneID != zone.ID {
			continue
		}
		zone.TotalSlots++
		if sl.State == models.SlotAvailable {
			zone.AvailableSlots++
		}
	}
	s.base.zones[zone.ID] = zone
	return nil
}

func (s *Store) CreateTicketPrice(_ context.Context, p *models.TicketPrice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.id()
	s.base.prices[p.ID] = *p
	return nil
}
