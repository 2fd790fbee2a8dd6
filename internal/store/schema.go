package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS transactions (
    id            TEXT PRIMARY KEY,
    external_id   TEXT UNIQUE,
    date          TEXT NOT NULL,
    description   TEXT NOT NULL,
    amount        TEXT NOT NULL,
    category      TEXT,
    source        TEXT NOT NULL,
    account_name  TEXT,
    contact_name  TEXT,
    created_at    TEXT NOT NULL,
    updated_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS forecasts (
    id                 TEXT PRIMARY KEY,
    date               TEXT NOT NULL,
    predicted_balance  REAL NOT NULL,
    predicted_income   REAL NOT NULL,
    predicted_expenses REAL NOT NULL,
    confidence_lower   REAL,
    confidence_upper   REAL,
    model_version      TEXT NOT NULL,
    created_at         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS xero_connection (
    id            INTEGER PRIMARY KEY CHECK (id = 1),
    tenant_id     TEXT NOT NULL,
    access_token  TEXT NOT NULL,
    refresh_token TEXT NOT NULL,
    token_type    TEXT NOT NULL,
    expiry        TEXT NOT NULL,
    connected_at  TEXT NOT NULL,
    last_sync_at  TEXT
);

CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date);
CREATE INDEX IF NOT EXISTS idx_forecasts_date ON forecasts(date);
`
