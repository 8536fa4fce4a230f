package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spigell/workhive/internal/marketplace"
	"github.com/spigell/workhive/internal/utils"
)

const (
	notifyChannel = "hive_profiles_changed"

	listenRetryDelay = 2 * time.Second
)

const schema = `
CREATE TABLE IF NOT EXISTS hive_profiles (
	uid        text PRIMARY KEY,
	doc        jsonb NOT NULL,
	created_at timestamptz NOT NULL
)`

// PostgresStore keeps each profile as a jsonb document and relays changes
// made by any process through LISTEN/NOTIFY.
type PostgresStore struct {
	pool   *pgxpool.Pool
	broker *Broker
	logger *zap.Logger
	now    func() time.Time
}

// ConnectPostgres opens a pool and makes sure the table exists.
func ConnectPostgres(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database url: %w", err)
	}

	config.MaxConns = 10
	config.MaxConnLifetime = time.Hour
	// Poolers in transaction mode cannot keep prepared statements.
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create profiles table: %w", err)
	}

	return NewPostgresStore(pool, logger), nil
}

func NewPostgresStore(pool *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresStore{
		pool:   pool,
		broker: NewBroker(nil, logger),
		logger: logger,
		now:    time.Now,
	}
}

func (s *PostgresStore) Create(ctx context.Context, p *marketplace.UserProfile) error {
	if p == nil || p.UID == "" {
		return ErrInvalidPatch
	}

	stored := p.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now().UTC()
	}

	doc, err := json.Marshal(stored)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`INSERT INTO hive_profiles (uid, doc, created_at) VALUES ($1, $2::jsonb, $3) ON CONFLICT (uid) DO NOTHING`,
		stored.UID, string(doc), stored.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrExists
	}

	if err := notify(ctx, tx, stored.UID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) Get(ctx context.Context, uid string) (*marketplace.UserProfile, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT doc FROM hive_profiles WHERE uid = $1`, uid).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return decodeProfile(doc)
}

func (s *PostgresStore) Update(ctx context.Context, uid string, patch Patch) (*marketplace.UserProfile, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var doc []byte
	err = tx.QueryRow(ctx, `SELECT doc FROM hive_profiles WHERE uid = $1 FOR UPDATE`, uid).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	current, err := decodeProfile(doc)
	if err != nil {
		return nil, err
	}

	updated, err := ApplyPatch(current, patch, s.now())
	if err != nil {
		return nil, err
	}

	doc, err = json.Marshal(updated)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `UPDATE hive_profiles SET doc = $2::jsonb WHERE uid = $1`, uid, string(doc)); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	if err := notify(ctx, tx, uid); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*marketplace.UserProfile, error) {
	rows, err := s.pool.Query(ctx, `SELECT doc FROM hive_profiles ORDER BY created_at DESC, uid`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}

	docs, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}

	out := make([]*marketplace.UserProfile, 0, len(docs))
	for _, doc := range docs {
		p, err := decodeProfile(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *PostgresStore) Subscribe(ctx context.Context, uid string) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	initial := snapshotOf(ctx, s, uid)
	sub := s.broker.Subscribe(ctx, uid, initial)
	// A change committed before the registration would otherwise be missed.
	if latest := snapshotOf(ctx, s, uid); !sameState(initial, latest) {
		s.broker.Publish(latest)
	}
	return sub, nil
}

// Listen relays change notifications to subscribers until ctx ends. It
// reconnects after connection failures.
func (s *PostgresStore) Listen(ctx context.Context) error {
	for {
		err := s.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		s.logger.Warn("profile listener disconnected", zap.Error(err))
		if err := utils.WaitFor(ctx, listenRetryDelay); err != nil {
			return nil
		}
	}
}

func (s *PostgresStore) listen(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return err
	}
	s.logger.Debug("listening for profile changes", zap.String("channel", notifyChannel))

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		uid := n.Payload
		if !s.broker.Watching(uid) {
			continue
		}
		s.broker.Publish(snapshotOf(ctx, s, uid))
	}
}

func (s *PostgresStore) Close() {
	s.broker.Close()
	s.pool.Close()
}

func notify(ctx context.Context, tx pgx.Tx, uid string) error {
	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, uid); err != nil {
		return fmt.Errorf("notify profile change: %w", err)
	}
	return nil
}

func decodeProfile(doc []byte) (*marketplace.UserProfile, error) {
	var p marketplace.UserProfile
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}
