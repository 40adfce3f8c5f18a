package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/canerconnect/terminflow/services/booking-service/internal/model"
	"github.com/canerconnect/terminflow/services/booking-service/internal/storage"
)

// memStore runs every write under one mutex, the in-memory stand-in for the
// per-day advisory lock.
type memStore struct {
	mu        sync.Mutex
	customers map[string]model.Customer
	admins    map[string]model.AdminUser
	hours     map[string]map[time.Weekday]model.WorkingHours
	settings  map[string]model.Settings
	appts     map[string]model.Appointment
	blocked   map[string]model.BlockedSlot
}

func newMemStore() *memStore {
	return &memStore{
		customers: map[string]model.Customer{},
		admins:    map[string]model.AdminUser{},
		hours:     map[string]map[time.Weekday]model.WorkingHours{},
		settings:  map[string]model.Settings{},
		appts:     map[string]model.Appointment{},
		blocked:   map[string]model.BlockedSlot{},
	}
}

func (m *memStore) GetCustomer(_ context.Context, id string) (model.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return model.Customer{}, storage.ErrNotFound
	}
	return c, nil
}

func (m *memStore) GetCustomerBySubdomain(_ context.Context, subdomain string) (model.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.customers {
		if c.Subdomain == subdomain {
			return c, nil
		}
	}
	return model.Customer{}, storage.ErrNotFound
}

func (m *memStore) GetAdminByUsername(_ context.Context, username string) (model.AdminUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.admins[username]
	if !ok {
		return model.AdminUser{}, storage.ErrNotFound
	}
	return u, nil
}

func (m *memStore) GetWorkingHours(_ context.Context, customerID string, weekday time.Weekday) (model.WorkingHours, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wh, ok := m.hours[customerID][weekday]
	return wh, ok, nil
}

func (m *memStore) ListWorkingHours(_ context.Context, customerID string) ([]model.WorkingHours, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.WorkingHours
	for _, wh := range m.hours[customerID] {
		out = append(out, wh)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Weekday < out[j].Weekday })
	return out, nil
}

func (m *memStore) ReplaceWorkingHours(_ context.Context, customerID string, hours []model.WorkingHours) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	week := map[time.Weekday]model.WorkingHours{}
	for _, wh := range hours {
		week[wh.Weekday] = wh
	}
	m.hours[customerID] = week
	return nil
}

func (m *memStore) GetSettings(_ context.Context, customerID string) (model.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.customers[customerID]; !ok {
		return model.Settings{}, storage.ErrNotFound
	}
	s, ok := m.settings[customerID]
	if !ok {
		s = model.DefaultSettings()
		m.settings[customerID] = s
	}
	return s, nil
}

func (m *memStore) UpsertSettings(_ context.Context, customerID string, s model.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.customers[customerID]; !ok {
		return storage.ErrNotFound
	}
	m.settings[customerID] = s
	return nil
}

func (m *memStore) occupancy(customerID string, date time.Time, skipAppt, skipBlocked string) model.Occupancy {
	var occ model.Occupancy
	for _, a := range m.appts {
		if a.CustomerID == customerID && a.Date.Equal(date) && a.ID != skipAppt && a.Status.Occupies() {
			occ.Appointments = append(occ.Appointments, a)
		}
	}
	for _, b := range m.blocked {
		if b.CustomerID == customerID && b.Date.Equal(date) && b.ID != skipBlocked {
			occ.Blocked = append(occ.Blocked, b)
		}
	}
	return occ
}

func (m *memStore) ListOccupancy(_ context.Context, customerID string, date time.Time) (model.Occupancy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.occupancy(customerID, date, "", ""), nil
}

func (m *memStore) InsertAppointmentIfNoConflict(_ context.Context, appt *model.Appointment, guard func(model.Occupancy) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.customers[appt.CustomerID]; !ok {
		return storage.ErrNotFound
	}
	if guard != nil {
		if err := guard(m.occupancy(appt.CustomerID, appt.Date, "", "")); err != nil {
			return err
		}
	}
	appt.CreatedAt = time.Now()
	appt.UpdatedAt = appt.CreatedAt
	m.appts[appt.ID] = *appt
	return nil
}

// put stores a without any checks.
func (m *memStore) put(a model.Appointment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appts[a.ID] = a
}

func (m *memStore) GetAppointment(_ context.Context, customerID, id string) (model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok || a.CustomerID != customerID {
		return model.Appointment{}, storage.ErrNotFound
	}
	return a, nil
}

func (m *memStore) GetAppointmentByToken(_ context.Context, id, token string) (model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok || token == "" || a.CancellationToken != token {
		return model.Appointment{}, storage.ErrNotFound
	}
	return a, nil
}

func (m *memStore) CancelAppointmentByToken(_ context.Context, id, token string, check func(model.Appointment) error) (model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok || token == "" || a.CancellationToken != token {
		return model.Appointment{}, storage.ErrNotFound
	}
	if check != nil {
		if err := check(a); err != nil {
			return model.Appointment{}, err
		}
	}
	now := time.Now()
	a.Status = model.StatusCancelled
	a.CancelledAt = &now
	m.appts[id] = a
	return a, nil
}

func (m *memStore) UpdateAppointment(
	_ context.Context,
	customerID, id string,
	mutate func(model.Appointment) (model.Appointment, error),
	guard func(cur, next model.Appointment, occ model.Occupancy) error,
) (model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.appts[id]
	if !ok || cur.CustomerID != customerID {
		return model.Appointment{}, storage.ErrNotFound
	}
	next, err := mutate(cur)
	if err != nil {
		return model.Appointment{}, err
	}
	if guard != nil {
		if err := guard(cur, next, m.occupancy(customerID, next.Date, id, "")); err != nil {
			return model.Appointment{}, err
		}
	}
	m.appts[id] = next
	return next, nil
}

func (m *memStore) DeleteAppointment(_ context.Context, customerID, id string) (model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok || a.CustomerID != customerID {
		return model.Appointment{}, storage.ErrNotFound
	}
	delete(m.appts, id)
	return a, nil
}

func (m *memStore) ListAppointments(_ context.Context, customerID string, f model.AppointmentFilter) ([]model.Appointment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Appointment
	for _, a := range m.appts {
		if a.CustomerID != customerID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.Date != nil && !a.Date.Equal(*f.Date) {
			continue
		}
		if f.From != nil && a.Date.Before(*f.From) {
			continue
		}
		if f.To != nil && a.Date.After(*f.To) {
			continue
		}
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].Date.Equal(all[j].Date) {
			return all[i].Date.Before(all[j].Date)
		}
		return all[i].Start < all[j].Start
	})
	total := len(all)
	if f.Offset >= total {
		return nil, total, nil
	}
	all = all[f.Offset:]
	if f.Limit > 0 && len(all) > f.Limit {
		all = all[:f.Limit]
	}
	return all, total, nil
}

func (m *memStore) AppointmentStats(_ context.Context, customerID string, today time.Time, now model.Clock) (model.AppointmentStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := model.AppointmentStats{ByStatus: map[model.Status]int{}}
	for _, a := range m.appts {
		if a.CustomerID != customerID {
			continue
		}
		st.Total++
		st.ByStatus[a.Status]++
		if a.Date.Equal(today) {
			st.Today++
		}
		if a.Date.After(today) || (a.Date.Equal(today) && a.Start >= now) {
			st.Upcoming++
		} else {
			st.Past++
		}
	}
	return st, nil
}

func (m *memStore) ListBlockedSlots(_ context.Context, customerID string, from, to *time.Time) ([]model.BlockedSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.BlockedSlot
	for _, b := range m.blocked {
		if b.CustomerID != customerID {
			continue
		}
		if (from != nil && b.Date.Before(*from)) || (to != nil && b.Date.After(*to)) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Start < out[j].Start
	})
	return out, nil
}

func (m *memStore) GetBlockedSlot(_ context.Context, customerID, id string) (model.BlockedSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blocked[id]
	if !ok || b.CustomerID != customerID {
		return model.BlockedSlot{}, storage.ErrNotFound
	}
	return b, nil
}

func (m *memStore) InsertBlockedSlot(_ context.Context, slot *model.BlockedSlot, guard func(model.Occupancy) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if guard != nil {
		if err := guard(m.occupancy(slot.CustomerID, slot.Date, "", "")); err != nil {
			return err
		}
	}
	slot.CreatedAt = time.Now()
	m.blocked[slot.ID] = *slot
	return nil
}

func (m *memStore) UpdateBlockedSlot(
	_ context.Context,
	customerID, id string,
	mutate func(model.BlockedSlot) (model.BlockedSlot, error),
	guard func(next model.BlockedSlot, occ model.Occupancy) error,
) (model.BlockedSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.blocked[id]
	if !ok || cur.CustomerID != customerID {
		return model.BlockedSlot{}, storage.ErrNotFound
	}
	next, err := mutate(cur)
	if err != nil {
		return model.BlockedSlot{}, err
	}
	if guard != nil {
		if err := guard(next, m.occupancy(customerID, next.Date, "", id)); err != nil {
			return model.BlockedSlot{}, err
		}
	}
	m.blocked[id] = next
	return next, nil
}

func (m *memStore) DeleteBlockedSlot(_ context.Context, customerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blocked[id]
	if !ok || b.CustomerID != customerID {
		return storage.ErrNotFound
	}
	delete(m.blocked, id)
	return nil
}
