package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/smbcash/cashflow-dashboard/internal/model"
)

// Memory is an in-memory Store. It is safe for concurrent use and backs
// tests plus local development without a database file.
type Memory struct {
	mu           sync.RWMutex
	transactions map[string]*model.Transaction
	forecasts    map[string]*Forecast
	connection   *model.XeroConnection
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		transactions: make(map[string]*model.Transaction),
		forecasts:    make(map[string]*Forecast),
	}
}

// Close implements Store.
func (m *Memory) Close() error { return nil }

// InsertTransaction implements Store.
func (m *Memory) InsertTransaction(_ context.Context, tx *model.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *tx
	m.transactions[tx.ID] = &cp
	return nil
}

// GetTransaction implements Store.
func (m *Memory) GetTransaction(_ context.Context, id string) (*model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tx, ok := m.transactions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *tx
	return &cp, nil
}

// FindTransactionByExternalID implements Store.
func (m *Memory) FindTransactionByExternalID(_ context.Context, externalID string) (*model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, tx := range m.transactions {
		if tx.ExternalID != "" && tx.ExternalID == externalID {
			cp := *tx
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// ListTransactions implements Store.
func (m *Memory) ListTransactions(_ context.Context, filter TransactionFilter) ([]*model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*model.Transaction
	for _, tx := range m.transactions {
		if !filter.From.IsZero() && tx.Date.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && tx.Date.After(filter.To) {
			continue
		}
		switch filter.Type {
		case "income":
			if !tx.IsIncome() {
				continue
			}
		case "expense":
			if tx.IsIncome() {
				continue
			}
		}
		cp := *tx
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return nil, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// AllTransactions implements Store.
func (m *Memory) AllTransactions(_ context.Context) ([]*model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*model.Transaction, 0, len(m.transactions))
	for _, tx := range m.transactions {
		cp := *tx
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// DeleteTransaction implements Store.
func (m *Memory) DeleteTransaction(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.transactions[id]
	if !ok {
		return ErrNotFound
	}
	if tx.Source == model.SourceExternalSync {
		return ErrSyncedImmutable
	}
	delete(m.transactions, id)
	return nil
}

// SaveForecasts implements Store. Existing points inside the saved date
// window are replaced, so regenerating never mixes model generations.
func (m *Memory) SaveForecasts(_ context.Context, rows []*Forecast) error {
	if len(rows) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	first, last := forecastWindow(rows)
	for id, f := range m.forecasts {
		if !f.Date.Before(first) && !f.Date.After(last) {
			delete(m.forecasts, id)
		}
	}
	for _, f := range rows {
		cp := *f
		m.forecasts[f.ID] = &cp
	}
	return nil
}

// ListForecasts implements Store.
func (m *Memory) ListForecasts(_ context.Context, from, to time.Time, limit int) ([]*Forecast, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Forecast
	for _, f := range m.forecasts {
		if !from.IsZero() && f.Date.Before(from) {
			continue
		}
		if !to.IsZero() && f.Date.After(to) {
			continue
		}
		cp := *f
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// DeleteForecastsBefore implements Store.
func (m *Memory) DeleteForecastsBefore(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int
	for id, f := range m.forecasts {
		if f.Date.Before(cutoff) {
			delete(m.forecasts, id)
			deleted++
		}
	}
	return deleted, nil
}

// SaveConnection implements Store.
func (m *Memory) SaveConnection(_ context.Context, conn *model.XeroConnection) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *conn
	if conn.LastSyncAt != nil {
		t := *conn.LastSyncAt
		cp.LastSyncAt = &t
	}
	m.connection = &cp
	return nil
}

// GetConnection implements Store.
func (m *Memory) GetConnection(_ context.Context) (*model.XeroConnection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.connection == nil {
		return nil, ErrNotFound
	}
	cp := *m.connection
	if m.connection.LastSyncAt != nil {
		t := *m.connection.LastSyncAt
		cp.LastSyncAt = &t
	}
	return &cp, nil
}

// DeleteConnection implements Store.
func (m *Memory) DeleteConnection(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.connection = nil
	return nil
}

// TouchLastSync implements Store.
func (m *Memory) TouchLastSync(_ context.Context, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connection == nil {
		return ErrNotFound
	}
	t := at
	m.connection.LastSyncAt = &t
	return nil
}

// Ensure Memory implements the Store interface.
var _ Store = (*Memory)(nil)
