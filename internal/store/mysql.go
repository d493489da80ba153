package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"sharecal/internal/clock"
	appLog "sharecal/internal/log"
	"sharecal/internal/model"
)

const eventColumns = "id, title, description, location, category, color, start_at, end_at, created_by, external_uid, deleted_at, created_at, updated_at"

// errDuplicateEntry is MySQL's ER_DUP_ENTRY.
const errDuplicateEntry = 1062

// MySQLConfig holds connection settings for the relational store.
type MySQLConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// Location is the wall-clock zone DATETIME values are read and written in.
	Location *time.Location
}

// DSN renders the driver connection string.
func (c MySQLConfig) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	cfg.DBName = c.Database
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	cfg.Collation = "utf8mb4_unicode_ci"
	cfg.Timeout = 5 * time.Second
	if c.Location != nil {
		cfg.Loc = c.Location
	}
	return cfg.FormatDSN()
}

// MySQLStore is the database/sql implementation of Store.
type MySQLStore struct {
	db    *sql.DB
	clock clock.Clock
}

// NewMySQLStore wraps an open handle. The caller owns migrations.
func NewMySQLStore(db *sql.DB, c clock.Clock) *MySQLStore {
	if c == nil {
		c = clock.NewSystem(nil)
	}
	return &MySQLStore{db: db, clock: c}
}

// OpenMySQL opens a pool, applies pool limits and pings it, retrying a few
// times with a growing delay while ctx allows.
func OpenMySQL(ctx context.Context, cfg MySQLConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(25)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(5)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	const maxAttempts = 3
	for attempt := 1; ; attempt++ {
		err = db.PingContext(ctx)
		if err == nil {
			return db, nil
		}
		if attempt == maxAttempts {
			break
		}
		appLog.Warn("database ping failed, retrying", "attempt", attempt, "err", err)
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, fmt.Errorf("ping database: %w", ctx.Err())
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}
	_ = db.Close()
	return nil, fmt.Errorf("ping database after %d attempts: %w", maxAttempts, err)
}

func (s *MySQLStore) ListEvents(ctx context.Context, f model.EventFilter) ([]model.Event, error) {
	query := "SELECT " + eventColumns + " FROM events WHERE deleted_at IS NULL"
	args := []any{}

	from, to := rangeBounds(f)
	if !from.IsZero() {
		query += " AND start_at >= ?"
		args = append(args, from)
	}
	if !to.IsZero() {
		query += " AND start_at <= ?"
		args = append(args, to)
	}
	if f.Category != model.CategoryNone {
		query += " AND category = ?"
		args = append(args, f.Category.Value())
	}
	if f.CreatedBy != "" {
		query += " AND created_by = ?"
		args = append(args, f.CreatedBy)
	}
	if f.Query != "" {
		query += ` AND title LIKE ? ESCAPE '\\'`
		args = append(args, "%"+escapeLike(f.Query)+"%")
	}
	query += " ORDER BY start_at ASC, id ASC"

	if f.Limit > 0 || f.Offset > 0 {
		limit := int64(f.Limit)
		if limit <= 0 {
			// MySQL has no OFFSET without LIMIT.
			limit = 1<<63 - 1
		}
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := make([]model.Event, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func (s *MySQLStore) GetEvent(ctx context.Context, id int64) (model.Event, error) {
	query := "SELECT " + eventColumns + " FROM events WHERE id = ? AND deleted_at IS NULL"
	ev, err := scanEvent(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, ErrNotFound
	}
	if err != nil {
		return model.Event{}, fmt.Errorf("get event: %w", err)
	}
	return ev, nil
}

func (s *MySQLStore) GetEventByUID(ctx context.Context, uid string) (model.Event, error) {
	if uid == "" {
		return model.Event{}, ErrNotFound
	}
	query := "SELECT " + eventColumns + " FROM events WHERE external_uid = ? AND deleted_at IS NULL"
	ev, err := scanEvent(s.db.QueryRowContext(ctx, query, uid))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, ErrNotFound
	}
	if err != nil {
		return model.Event{}, fmt.Errorf("get event by uid: %w", err)
	}
	return ev, nil
}

func (s *MySQLStore) CreateEvent(ctx context.Context, ev model.Event) (model.Event, error) {
	if err := checkEvent(ev); err != nil {
		return model.Event{}, err
	}
	now := s.clock.Now()
	ev.Color = ev.Color.OrDefault()
	ev.Deleted = false
	ev.CreatedAt = now
	ev.UpdatedAt = now

	const stmt = `
INSERT INTO events (title, description, location, category, color, start_at, end_at, created_by, external_uid, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, stmt,
		ev.Title,
		ev.Description,
		ev.Location,
		ev.Category.Value(),
		string(ev.Color),
		ev.Start,
		ev.End,
		ev.CreatedBy,
		nullString(ev.ExternalUID),
		ev.CreatedAt,
		ev.UpdatedAt,
	)
	if err != nil {
		if isDuplicate(err) {
			return model.Event{}, ErrDuplicateUID
		}
		return model.Event{}, fmt.Errorf("create event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Event{}, fmt.Errorf("create event: last insert id: %w", err)
	}
	ev.ID = id
	return ev, nil
}

func (s *MySQLStore) UpdateEvent(ctx context.Context, ev model.Event) (model.Event, error) {
	if err := checkEvent(ev); err != nil {
		return model.Event{}, err
	}

	const stmt = `
UPDATE events
SET title = ?, description = ?, location = ?, category = ?, color = ?, start_at = ?, end_at = ?,
	external_uid = COALESCE(?, external_uid), updated_at = ?
WHERE id = ? AND deleted_at IS NULL`
	res, err := s.db.ExecContext(ctx, stmt,
		ev.Title,
		ev.Description,
		ev.Location,
		ev.Category.Value(),
		string(ev.Color.OrDefault()),
		ev.Start,
		ev.End,
		nullString(ev.ExternalUID),
		s.clock.Now(),
		ev.ID,
	)
	if err != nil {
		if isDuplicate(err) {
			return model.Event{}, ErrDuplicateUID
		}
		return model.Event{}, fmt.Errorf("update event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Event{}, fmt.Errorf("update event: rows affected: %w", err)
	}
	if n == 0 {
		return model.Event{}, ErrNotFound
	}
	return s.GetEvent(ctx, ev.ID)
}

func (s *MySQLStore) DeleteEvent(ctx context.Context, id int64) error {
	now := s.clock.Now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE events SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		now, now, id,
	)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete event: rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MySQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *MySQLStore) Close() error {
	return s.db.Close()
}

// Stats exposes pool statistics for metrics.
func (s *MySQLStore) Stats() sql.DBStats {
	return s.db.Stats()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (model.Event, error) {
	var (
		ev          model.Event
		category    string
		color       string
		externalUID sql.NullString
		deletedAt   sql.NullTime
	)
	if err := row.Scan(
		&ev.ID,
		&ev.Title,
		&ev.Description,
		&ev.Location,
		&category,
		&color,
		&ev.Start,
		&ev.End,
		&ev.CreatedBy,
		&externalUID,
		&deletedAt,
		&ev.CreatedAt,
		&ev.UpdatedAt,
	); err != nil {
		return model.Event{}, err
	}
	// Unknown stored categories degrade to "none" rather than failing reads.
	ev.Category, _ = model.ParseCategory(category)
	ev.Color = model.Color(color)
	ev.ExternalUID = externalUID.String
	ev.Deleted = deletedAt.Valid
	return ev, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == errDuplicateEntry
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
