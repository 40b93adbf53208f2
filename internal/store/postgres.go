package store

import (
    "context"
    "crypto/sha256"
    "database/sql"
    "encoding/hex"
    "errors"
    "time"

    _ "github.com/jackc/pgx/v5/stdlib"
)

type Store struct { DB *sql.DB }

func Open(dsn string) (*Store, error) {
    db, err := sql.Open("pgx", dsn)
    if err != nil { return nil, err }
    db.SetMaxOpenConns(10)
    db.SetMaxIdleConns(5)
    db.SetConnMaxLifetime(30 * time.Minute)
    return &Store{DB: db}, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

func (s *Store) Migrate(ctx context.Context) error {
    stmts := []string{
        `CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
        `CREATE TABLE IF NOT EXISTS valuations (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            property_key          TEXT NOT NULL,
            identifier            TEXT NOT NULL,
            request_type          TEXT NOT NULL,
            estimated_value_cents BIGINT NOT NULL,
            rent_estimate_cents   BIGINT NOT NULL,
            price_per_sqft_cents  BIGINT NOT NULL,
            confidence            SMALLINT NOT NULL,
            data_source           TEXT NOT NULL,
            bedrooms              INTEGER NOT NULL,
            bathrooms             INTEGER NOT NULL,
            sqft                  INTEGER NOT NULL,
            used_fallback         BOOLEAN NOT NULL DEFAULT false,
            payload               BYTEA NOT NULL,
            created_at            TIMESTAMPTZ NOT NULL DEFAULT now()
        );`,
        `CREATE INDEX IF NOT EXISTS idx_valuations_property ON valuations(property_key, created_at DESC);`,
        `CREATE TABLE IF NOT EXISTS provider_raw_snapshots (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            valuation_id   UUID REFERENCES valuations(id) ON DELETE CASCADE,
            provider       TEXT NOT NULL,
            endpoint       TEXT NOT NULL,
            property_key   TEXT,
            payload        JSONB NOT NULL,
            fetched_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
            payload_sha256 TEXT NOT NULL
        );`,
        `CREATE INDEX IF NOT EXISTS idx_snapshots_provider ON provider_raw_snapshots(provider, endpoint, fetched_at DESC);`,
        `CREATE INDEX IF NOT EXISTS idx_snapshots_property ON provider_raw_snapshots(provider, property_key);`,
    }
    for _, q := range stmts {
        if _, err := s.DB.ExecContext(ctx, q); err != nil { return err }
    }
    return nil
}

// Snapshot is one raw provider body kept next to the valuation it fed.
type Snapshot struct {
    Provider string
    Endpoint string
    Payload  []byte
}

type ValuationInput struct {
    PropertyKey         string
    Identifier          string
    RequestType         string
    EstimatedValueCents int64
    RentEstimateCents   int64
    PricePerSqftCents   int64
    Confidence          int64
    DataSource          string
    Bedrooms            int64
    Bathrooms           int64
    Sqft                int64
    UsedFallback        bool
    Payload             []byte
    Snapshots           []Snapshot
}

// ValuationRecord is a stored valuation row.
type ValuationRecord struct {
    ID                  string
    PropertyKey         string
    Identifier          string
    RequestType         string
    EstimatedValueCents int64
    RentEstimateCents   int64
    PricePerSqftCents   int64
    Confidence          int64
    DataSource          string
    Bedrooms            int64
    Bathrooms           int64
    Sqft                int64
    UsedFallback        bool
    Payload             []byte
    CreatedAt           time.Time
}

// RecordValuation writes the valuation and its raw snapshots in one transaction
// and returns the new valuation id.
func (s *Store) RecordValuation(ctx context.Context, in ValuationInput) (string, error) {
    var id string
    if s == nil || s.DB == nil { return id, errors.New("nil db") }
    tx, err := s.DB.BeginTx(ctx, nil)
    if err != nil { return id, err }
    defer func() { if err != nil { _ = tx.Rollback() } }()

    err = tx.QueryRowContext(ctx, `
        INSERT INTO valuations (property_key, identifier, request_type, estimated_value_cents, rent_estimate_cents,
            price_per_sqft_cents, confidence, data_source, bedrooms, bathrooms, sqft, used_fallback, payload)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id`,
        in.PropertyKey, in.Identifier, in.RequestType, in.EstimatedValueCents, in.RentEstimateCents,
        in.PricePerSqftCents, in.Confidence, in.DataSource, in.Bedrooms, in.Bathrooms, in.Sqft, in.UsedFallback, in.Payload,
    ).Scan(&id)
    if err != nil { return id, err }

    for _, snap := range in.Snapshots {
        if len(snap.Payload) == 0 { continue }
        sum := sha256.Sum256(snap.Payload)
        if _, err = tx.ExecContext(ctx, `
            INSERT INTO provider_raw_snapshots (valuation_id, provider, endpoint, property_key, payload, payload_sha256)
            VALUES ($1,$2,$3,$4,$5,$6)
        `, id, snap.Provider, snap.Endpoint, in.PropertyKey, string(snap.Payload), hex.EncodeToString(sum[:])); err != nil { return id, err }
    }

    err = tx.Commit()
    if err != nil { return id, err }
    return id, nil
}

// History lists the newest valuations for a property key.
func (s *Store) History(ctx context.Context, propertyKey string, limit int) ([]ValuationRecord, error) {
    if s == nil || s.DB == nil { return nil, errors.New("nil db") }
    if limit <= 0 || limit > 100 { limit = 20 }
    rows, err := s.DB.QueryContext(ctx, `
        SELECT id, property_key, identifier, request_type, estimated_value_cents, rent_estimate_cents,
            price_per_sqft_cents, confidence, data_source, bedrooms, bathrooms, sqft, used_fallback, payload, created_at
        FROM valuations
        WHERE property_key = $1
        ORDER BY created_at DESC
        LIMIT $2`, propertyKey, limit)
    if err != nil { return nil, err }
    defer rows.Close()

    var out []ValuationRecord
    for rows.Next() {
        var r ValuationRecord
        if err := rows.Scan(&r.ID, &r.PropertyKey, &r.Identifier, &r.RequestType, &r.EstimatedValueCents, &r.RentEstimateCents,
            &r.PricePerSqftCents, &r.Confidence, &r.DataSource, &r.Bedrooms, &r.Bathrooms, &r.Sqft, &r.UsedFallback, &r.Payload, &r.CreatedAt); err != nil {
            return nil, err
        }
        out = append(out, r)
    }
    return out, rows.Err()
}
