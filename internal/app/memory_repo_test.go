package app

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rjunioramorim/app-cobrancas/internal/domain"
	"github.com/rjunioramorim/app-cobrancas/internal/store"
)

// memoryRepo is an in-memory Repository enforcing one charge per client per
// day, like the cobrancas unique constraint.
type memoryRepo struct {
	mu      sync.Mutex
	tenants map[uuid.UUID]domain.Tenant
	clients map[uuid.UUID]domain.Client
	charges map[uuid.UUID]domain.Charge
	tokens  map[string]uuid.UUID

	listClientsErr  error
	createErrs      map[uuid.UUID]error
	skipExistsCheck bool
	createHook      func()
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		tenants:    map[uuid.UUID]domain.Tenant{},
		clients:    map[uuid.UUID]domain.Client{},
		charges:    map[uuid.UUID]domain.Charge{},
		tokens:     map[string]uuid.UUID{},
		createErrs: map[uuid.UUID]error{},
	}
}

func (m *memoryRepo) addTenant() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.tenants[id] = domain.Tenant{ID: id, Name: "tenant", Email: id.String() + "@example.com", Role: domain.RoleUser, Active: true}
	return id
}

func (m *memoryRepo) addClient(tenantID uuid.UUID, name string, billingDay int, amount string, active bool) domain.Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := domain.Client{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Name:       name,
		Phone:      "1199999" + name,
		BillingDay: billingDay,
		Amount:     decimal.RequireFromString(amount),
		Active:     active,
	}
	m.clients[c.ID] = c
	return c
}

func (m *memoryRepo) addCharge(clientID uuid.UUID, due time.Time, status domain.ChargeStatus, amount string, attempts int) domain.Charge {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := decimal.RequireFromString(amount)
	c := domain.Charge{
		ID:              uuid.New(),
		ClientID:        clientID,
		Amount:          v,
		DebtAmount:      v,
		DueDate:         due,
		Status:          status,
		MessageAttempts: attempts,
	}
	m.charges[c.ID] = c
	return c
}

func (m *memoryRepo) charge(id uuid.UUID) domain.Charge {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.charges[id]
}

func (m *memoryRepo) client(id uuid.UUID) domain.Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clients[id]
}

func (m *memoryRepo) chargesFor(clientID uuid.UUID) []domain.Charge {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Charge
	for _, c := range m.charges {
		if c.ClientID == clientID {
			out = append(out, c)
		}
	}
	return out
}

func (m *memoryRepo) ownedBy(c domain.Charge, tenantID uuid.UUID) bool {
	cl, ok := m.clients[c.ClientID]
	return ok && cl.TenantID == tenantID
}

func (m *memoryRepo) summary(clientID uuid.UUID) *domain.ClientSummary {
	cl := m.clients[clientID]
	return &domain.ClientSummary{ID: cl.ID, Name: cl.Name, Phone: cl.Phone, Active: cl.Active}
}

func (m *memoryRepo) duplicateLocked(id, clientID uuid.UUID, due time.Time) bool {
	for _, c := range m.charges {
		if c.ID != id && c.ClientID == clientID && domain.SameDay(c.DueDate, due) {
			return true
		}
	}
	return false
}

func (m *memoryRepo) SyncStatuses(_ context.Context, tenantID uuid.UUID, today time.Time) (domain.SyncResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res domain.SyncResult
	day := domain.DateOnly(today)
	for id, c := range m.charges {
		if !m.ownedBy(c, tenantID) {
			continue
		}
		due := domain.DateOnly(c.DueDate)
		switch {
		case c.Status == domain.StatusPendente && due < day:
			c.Status = domain.StatusAtrasado
			res.MarkedOverdue++
		case c.Status == domain.StatusAtrasado && due >= day:
			c.Status = domain.StatusPendente
			res.MarkedPending++
		default:
			continue
		}
		m.charges[id] = c
	}
	return res, nil
}

func (m *memoryRepo) ListActiveClients(_ context.Context, tenantID *uuid.UUID) ([]domain.Client, error) {
	if m.listClientsErr != nil {
		return nil, m.listClientsErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Client
	for _, c := range m.clients {
		if c.Active && (tenantID == nil || c.TenantID == *tenantID) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryRepo) GetClient(_ context.Context, tenantID, clientID uuid.UUID) (*domain.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[clientID]
	if !ok || c.TenantID != tenantID {
		return nil, store.ErrClientNotFound
	}
	return &c, nil
}

func (m *memoryRepo) ChargeExistsOnDate(_ context.Context, clientID uuid.UUID, dueDate time.Time) (bool, error) {
	if m.skipExistsCheck {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duplicateLocked(uuid.Nil, clientID, dueDate), nil
}

func (m *memoryRepo) CreateCharge(_ context.Context, charge *domain.Charge) error {
	if m.createHook != nil {
		m.createHook()
	}
	if err := m.createErrs[charge.ClientID]; err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.duplicateLocked(uuid.Nil, charge.ClientID, charge.DueDate) {
		return store.ErrDuplicateCharge
	}
	charge.ID = uuid.New()
	charge.CreatedAt = time.Now()
	charge.UpdatedAt = charge.CreatedAt
	m.charges[charge.ID] = *charge
	return nil
}

func (m *memoryRepo) GetCharge(_ context.Context, tenantID, chargeID uuid.UUID) (*domain.Charge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.charges[chargeID]
	if !ok || !m.ownedBy(c, tenantID) {
		return nil, store.ErrChargeNotFound
	}
	c.Client = m.summary(c.ClientID)
	return &c, nil
}

func (m *memoryRepo) ListCharges(_ context.Context, tenantID uuid.UUID, f domain.ChargeFilter) ([]domain.Charge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Charge
	for _, c := range m.charges {
		if !m.ownedBy(c, tenantID) {
			continue
		}
		due := domain.DateOnly(c.DueDate)
		if f.StartDate != nil && due < domain.DateOnly(*f.StartDate) {
			continue
		}
		if f.EndDate != nil && due > domain.DateOnly(*f.EndDate) {
			continue
		}
		if f.Status != nil && c.Status != *f.Status {
			continue
		}
		if f.ClientName != "" && !strings.Contains(strings.ToLower(m.clients[c.ClientID].Name), strings.ToLower(f.ClientName)) {
			continue
		}
		c.Client = m.summary(c.ClientID)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.After(out[j].DueDate) })
	return out, nil
}

func (m *memoryRepo) MutateCharge(_ context.Context, tenantID, chargeID uuid.UUID, fn func(*domain.Charge) error) (*domain.Charge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.charges[chargeID]
	if !ok || !m.ownedBy(c, tenantID) {
		return nil, store.ErrChargeNotFound
	}
	if c.AmountPaid != nil {
		v := *c.AmountPaid
		c.AmountPaid = &v
	}
	if err := fn(&c); err != nil {
		return nil, err
	}
	if m.duplicateLocked(c.ID, c.ClientID, c.DueDate) {
		return nil, store.ErrDuplicateCharge
	}
	c.Client = nil
	c.UpdatedAt = time.Now()
	m.charges[c.ID] = c
	c.Client = m.summary(c.ClientID)
	return &c, nil
}

func (m *memoryRepo) DeactivateClientsAtAttemptLimit(_ context.Context, tenantID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uuid.UUID
	for id, cl := range m.clients {
		if cl.TenantID != tenantID || !cl.Active {
			continue
		}
		for _, c := range m.charges {
			if c.ClientID == id && c.Status != domain.StatusPago && c.MessageAttempts >= domain.MaxMessageAttempts {
				cl.Active = false
				m.clients[id] = cl
				ids = append(ids, id)
				break
			}
		}
	}
	return ids, nil
}

func (m *memoryRepo) ListActionableCharges(_ context.Context, tenantID uuid.UUID, q store.ActionableQuery) ([]domain.ActionableCharge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var cursorKey string
	if q.Cursor != nil {
		c, ok := m.charges[*q.Cursor]
		if !ok || !m.ownedBy(c, tenantID) {
			return nil, store.ErrCursorNotFound
		}
		cursorKey = domain.DateOnly(c.DueDate) + c.ID.String()
	}

	today, end := domain.DateOnly(q.Today), domain.DateOnly(q.WindowEnd)
	var all []domain.Charge
	for _, c := range m.charges {
		cl := m.clients[c.ClientID]
		if cl.TenantID != tenantID || !cl.Active || c.MessageAttempts >= domain.MaxMessageAttempts {
			continue
		}
		due := domain.DateOnly(c.DueDate)
		upcoming := c.Status == domain.StatusPendente && due >= today && due <= end
		if !upcoming && c.Status != domain.StatusAtrasado {
			continue
		}
		if cursorKey != "" && due+c.ID.String() <= cursorKey {
			continue
		}
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool {
		return domain.DateOnly(all[i].DueDate)+all[i].ID.String() < domain.DateOnly(all[j].DueDate)+all[j].ID.String()
	})
	if len(all) > q.Limit {
		all = all[:q.Limit]
	}

	out := make([]domain.ActionableCharge, 0, len(all))
	for _, c := range all {
		out = append(out, domain.ActionableCharge{
			ID:              c.ID,
			Client:          *m.summary(c.ClientID),
			Status:          c.Status,
			Amount:          c.Amount,
			DueDate:         c.DueDate,
			MessageAttempts: c.MessageAttempts,
			Notes:           c.Notes,
			Category:        domain.CategoryFor(c.Status),
		})
	}
	return out, nil
}

func (m *memoryRepo) GetTenant(_ context.Context, tenantID uuid.UUID) (*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[tenantID]
	if !ok {
		return nil, store.ErrTenantNotFound
	}
	return &t, nil
}

func (m *memoryRepo) ResolveAPIToken(_ context.Context, tokenHash string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.tokens[tokenHash]
	if !ok || !m.tenants[id].Active {
		return uuid.Nil, store.ErrTokenNotFound
	}
	return id, nil
}

func (m *memoryRepo) CountClients(_ context.Context, tenantID uuid.UUID) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total, active int
	for _, c := range m.clients {
		if c.TenantID == tenantID {
			total++
			if c.Active {
				active++
			}
		}
	}
	return total, active, nil
}

func (m *memoryRepo) CountClientsWithoutCharges(_ context.Context, tenantID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, cl := range m.clients {
		if cl.TenantID != tenantID {
			continue
		}
		has := false
		for _, c := range m.charges {
			if c.ClientID == id {
				has = true
				break
			}
		}
		if !has {
			n++
		}
	}
	return n, nil
}

func (m *memoryRepo) SumDebt(_ context.Context, tenantID uuid.UUID, statuses ...domain.ChargeStatus) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := decimal.Zero
	for _, c := range m.charges {
		if !m.ownedBy(c, tenantID) {
			continue
		}
		for _, s := range statuses {
			if c.Status == s {
				sum = sum.Add(c.DebtAmount)
			}
		}
	}
	return sum, nil
}

func (m *memoryRepo) SumPaidBetween(_ context.Context, tenantID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := decimal.Zero
	for _, c := range m.charges {
		if !m.ownedBy(c, tenantID) || c.Status != domain.StatusPago || c.PaymentDate == nil || c.AmountPaid == nil {
			continue
		}
		if c.PaymentDate.Before(from) || c.PaymentDate.After(to) {
			continue
		}
		sum = sum.Add(*c.AmountPaid)
	}
	return sum, nil
}

func (m *memoryRepo) CountChargesDueBetween(_ context.Context, tenantID uuid.UUID, status domain.ChargeStatus, from, to time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.charges {
		due := domain.DateOnly(c.DueDate)
		if m.ownedBy(c, tenantID) && c.Status == status && due >= domain.DateOnly(from) && due <= domain.DateOnly(to) {
			n++
		}
	}
	return n, nil
}

func (m *memoryRepo) CountChargesByStatus(_ context.Context, tenantID uuid.UUID, status domain.ChargeStatus) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.charges {
		if m.ownedBy(c, tenantID) && c.Status == status {
			n++
		}
	}
	return n, nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type publisherStub struct {
	mu     sync.Mutex
	events []string
}

func (p *publisherStub) Publish(_ context.Context, _ string, routingKey string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, routingKey)
	return nil
}

func (p *publisherStub) count(routingKey string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e == routingKey {
			n++
		}
	}
	return n
}
