package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smbcash/cashflow-dashboard/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

const (
	dateFormat = "2006-01-02"
)

// SQLite is the file-backed Store implementation. The driver is pure Go,
// so no cgo toolchain is needed.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at the given path and applies
// the schema.
func OpenSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("OpenSQLite: creating db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("OpenSQLite: opening db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("OpenSQLite: creating schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close implements Store.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// InsertTransaction implements Store.
func (s *SQLite) InsertTransaction(ctx context.Context, tx *model.Transaction) error {
	externalID := sql.NullString{String: tx.ExternalID, Valid: tx.ExternalID != ""}

	_, err := s.db.ExecContext(ctx, `INSERT INTO transactions
		(id, external_id, date, description, amount, category, source,
		 account_name, contact_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, externalID, tx.Date.UTC().Format(dateFormat), tx.Description,
		tx.Amount.String(), tx.Category, string(tx.Source),
		tx.AccountName, tx.ContactName,
		tx.CreatedAt.UTC().Format(time.RFC3339), tx.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("InsertTransaction: %w", err)
	}
	return nil
}

const transactionColumns = `id, external_id, date, description, amount,
	category, source, account_name, contact_name, created_at, updated_at`

// GetTransaction implements Store.
func (s *SQLite) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: %w", err)
	}
	return tx, nil
}

// FindTransactionByExternalID implements Store.
func (s *SQLite) FindTransactionByExternalID(ctx context.Context, externalID string) (*model.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE external_id = ?`, externalID)
	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("FindTransactionByExternalID: %w", err)
	}
	return tx, nil
}

// ListTransactions implements Store.
func (s *SQLite) ListTransactions(ctx context.Context, filter TransactionFilter) ([]*model.Transaction, error) {
	var (
		conds []string
		args  []any
	)
	if !filter.From.IsZero() {
		conds = append(conds, "date >= ?")
		args = append(args, filter.From.UTC().Format(dateFormat))
	}
	if !filter.To.IsZero() {
		conds = append(conds, "date <= ?")
		args = append(args, filter.To.UTC().Format(dateFormat))
	}
	switch filter.Type {
	case "income":
		conds = append(conds, "CAST(amount AS REAL) > 0")
	case "expense":
		conds = append(conds, "CAST(amount AS REAL) < 0")
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY date DESC, created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += " LIMIT -1"
		}
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectTransactions(rows)
}

// AllTransactions implements Store.
func (s *SQLite) AllTransactions(ctx context.Context) ([]*model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions ORDER BY date ASC, created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("AllTransactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectTransactions(rows)
}

// DeleteTransaction implements Store.
func (s *SQLite) DeleteTransaction(ctx context.Context, id string) error {
	var source string
	err := s.db.QueryRowContext(ctx, `SELECT source FROM transactions WHERE id = ?`, id).Scan(&source)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	if model.Source(source) == model.SourceExternalSync {
		return ErrSyncedImmutable
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	return nil
}

// SaveForecasts implements Store. Existing points inside the saved date
// window are replaced, so regenerating never mixes model generations.
func (s *SQLite) SaveForecasts(ctx context.Context, rows []*Forecast) error {
	if len(rows) == 0 {
		return nil
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("SaveForecasts: begin: %w", err)
	}
	defer func() { _ = dbTx.Rollback() }()

	first, last := forecastWindow(rows)
	_, err = dbTx.ExecContext(ctx, `DELETE FROM forecasts WHERE date >= ? AND date <= ?`,
		first.UTC().Format(dateFormat), last.UTC().Format(dateFormat))
	if err != nil {
		return fmt.Errorf("SaveForecasts: clear window: %w", err)
	}

	for _, f := range rows {
		var lower, upper sql.NullFloat64
		if f.ConfidenceLower != nil {
			lower = sql.NullFloat64{Float64: *f.ConfidenceLower, Valid: true}
		}
		if f.ConfidenceUpper != nil {
			upper = sql.NullFloat64{Float64: *f.ConfidenceUpper, Valid: true}
		}
		_, err := dbTx.ExecContext(ctx, `INSERT OR REPLACE INTO forecasts
			(id, date, predicted_balance, predicted_income, predicted_expenses,
			 confidence_lower, confidence_upper, model_version, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			f.ID, f.Date.UTC().Format(dateFormat),
			f.PredictedBalance, f.PredictedIncome, f.PredictedExpenses,
			lower, upper, f.ModelVersion, f.CreatedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("SaveForecasts: %w", err)
		}
	}

	return dbTx.Commit()
}

// ListForecasts implements Store.
func (s *SQLite) ListForecasts(ctx context.Context, from, to time.Time, limit int) ([]*Forecast, error) {
	var (
		conds []string
		args  []any
	)
	if !from.IsZero() {
		conds = append(conds, "date >= ?")
		args = append(args, from.UTC().Format(dateFormat))
	}
	if !to.IsZero() {
		conds = append(conds, "date <= ?")
		args = append(args, to.UTC().Format(dateFormat))
	}

	query := `SELECT id, date, predicted_balance, predicted_income, predicted_expenses,
		confidence_lower, confidence_upper, model_version, created_at FROM forecasts`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY date ASC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListForecasts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Forecast
	for rows.Next() {
		var (
			f            Forecast
			dateStr      string
			createdStr   string
			lower, upper sql.NullFloat64
		)
		err := rows.Scan(&f.ID, &dateStr, &f.PredictedBalance, &f.PredictedIncome,
			&f.PredictedExpenses, &lower, &upper, &f.ModelVersion, &createdStr)
		if err != nil {
			return nil, fmt.Errorf("ListForecasts: scan: %w", err)
		}
		f.Date, _ = time.Parse(dateFormat, dateStr)
		f.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
		if lower.Valid {
			f.ConfidenceLower = &lower.Float64
		}
		if upper.Valid {
			f.ConfidenceUpper = &upper.Float64
		}
		result = append(result, &f)
	}
	return result, rows.Err()
}

// DeleteForecastsBefore implements Store.
func (s *SQLite) DeleteForecastsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM forecasts WHERE date < ?`,
		cutoff.UTC().Format(dateFormat))
	if err != nil {
		return 0, fmt.Errorf("DeleteForecastsBefore: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("DeleteForecastsBefore: rows affected: %w", err)
	}
	return int(n), nil
}

// SaveConnection implements Store.
func (s *SQLite) SaveConnection(ctx context.Context, conn *model.XeroConnection) error {
	var lastSync sql.NullString
	if conn.LastSyncAt != nil {
		lastSync = sql.NullString{String: conn.LastSyncAt.UTC().Format(time.RFC3339), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO xero_connection
		(id, tenant_id, access_token, refresh_token, token_type, expiry, connected_at, last_sync_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)`,
		conn.TenantID, conn.AccessToken, conn.RefreshToken, conn.TokenType,
		conn.Expiry.UTC().Format(time.RFC3339),
		conn.ConnectedAt.UTC().Format(time.RFC3339), lastSync,
	)
	if err != nil {
		return fmt.Errorf("SaveConnection: %w", err)
	}
	return nil
}

// GetConnection implements Store.
func (s *SQLite) GetConnection(ctx context.Context) (*model.XeroConnection, error) {
	row := s.db.QueryRowContext(ctx, `SELECT tenant_id, access_token, refresh_token,
		token_type, expiry, connected_at, last_sync_at FROM xero_connection WHERE id = 1`)

	var (
		conn                    model.XeroConnection
		expiryStr, connectedStr string
		lastSync                sql.NullString
	)
	err := row.Scan(&conn.TenantID, &conn.AccessToken, &conn.RefreshToken,
		&conn.TokenType, &expiryStr, &connectedStr, &lastSync)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetConnection: %w", err)
	}

	conn.Expiry, _ = time.Parse(time.RFC3339, expiryStr)
	conn.ConnectedAt, _ = time.Parse(time.RFC3339, connectedStr)
	if lastSync.Valid {
		t, err := time.Parse(time.RFC3339, lastSync.String)
		if err == nil {
			conn.LastSyncAt = &t
		}
	}
	return &conn, nil
}

// DeleteConnection implements Store.
func (s *SQLite) DeleteConnection(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM xero_connection WHERE id = 1`); err != nil {
		return fmt.Errorf("DeleteConnection: %w", err)
	}
	return nil
}

// TouchLastSync implements Store.
func (s *SQLite) TouchLastSync(ctx context.Context, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE xero_connection SET last_sync_at = ? WHERE id = 1`,
		at.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("TouchLastSync: %w", err)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanTransaction.
type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (*model.Transaction, error) {
	var (
		tx                     model.Transaction
		externalID             sql.NullString
		dateStr, amountStr     string
		createdStr, updatedStr string
		source                 string
	)
	err := row.Scan(&tx.ID, &externalID, &dateStr, &tx.Description, &amountStr,
		&tx.Category, &source, &tx.AccountName, &tx.ContactName, &createdStr, &updatedStr)
	if err != nil {
		return nil, err
	}

	if externalID.Valid {
		tx.ExternalID = externalID.String
	}
	tx.Source = model.Source(source)
	tx.Date, _ = time.Parse(dateFormat, dateStr)
	tx.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	tx.UpdatedAt, _ = time.Parse(time.RFC3339, updatedStr)

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("invalid stored amount %q: %w", amountStr, err)
	}
	tx.Amount = amount

	return &tx, nil
}

func collectTransactions(rows *sql.Rows) ([]*model.Transaction, error) {
	var result []*model.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		result = append(result, tx)
	}
	return result, rows.Err()
}

// Ensure SQLite implements the Store interface.
var _ Store = (*SQLite)(nil)
