// Package catalog stores named example programs in a SQL database.
package catalog

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"arrayviz/internal/compiler"
)

var (
	// ErrNotFound is returned when no program matches an ID or name.
	ErrNotFound = errors.New("program not found")
	// ErrExists is returned when a program name is already taken.
	ErrExists = errors.New("program name already exists")
)

// Program is one stored program.
type Program struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// dialect captures what differs between the supported databases.
type dialect struct {
	driver string
	// Placeholder style: '?' is rewritten to "$n" or "@pn".
	placeholder string
	schema      string
}

const portableSchema = `CREATE TABLE IF NOT EXISTS programs (
	id VARCHAR(36) PRIMARY KEY,
	name VARCHAR(255) NOT NULL UNIQUE,
	source TEXT NOT NULL,
	created_at BIGINT NOT NULL
)`

const sqlServerSchema = `IF OBJECT_ID('programs', 'U') IS NULL
CREATE TABLE programs (
	id VARCHAR(36) PRIMARY KEY,
	name NVARCHAR(255) NOT NULL UNIQUE,
	source NVARCHAR(MAX) NOT NULL,
	created_at BIGINT NOT NULL
)`

// dialectFor maps a configured driver name to its database/sql driver.
func dialectFor(name string) (dialect, error) {
	switch name {
	case "sqlite", "sqlite3":
		return dialect{driver: "sqlite", schema: portableSchema}, nil
	case "postgres", "postgresql":
		return dialect{driver: "postgres", placeholder: "$", schema: portableSchema}, nil
	case "mysql":
		return dialect{driver: "mysql", schema: portableSchema}, nil
	case "sqlserver", "mssql":
		return dialect{driver: "sqlserver", placeholder: "@p", schema: sqlServerSchema}, nil
	}
	return dialect{}, errors.Errorf("unsupported database type: %s", name)
}

// rebind rewrites '?' placeholders into the dialect's style.
func (d dialect) rebind(query string) string {
	if d.placeholder == "" {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r != '?' {
			sb.WriteRune(r)
			continue
		}
		n++
		sb.WriteString(d.placeholder)
		sb.WriteString(strconv.Itoa(n))
	}
	return sb.String()
}

// Store is a program catalog backed by one database.
type Store struct {
	db      *sql.DB
	dialect dialect
	logger  zerolog.Logger
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open connects to the database and creates the programs table when
// missing.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect")
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db, dialect: d, logger: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := db.ExecContext(ctx, d.schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create programs table")
	}
	s.logger.Debug().Str("driver", d.driver).Msg("catalog opened")
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add compiles source to reject invalid programs, then stores it under
// name.
func (s *Store) Add(ctx context.Context, name, source string) (Program, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Program{}, errors.New("program name must not be empty")
	}
	if _, err := compiler.CompileSource(source); err != nil {
		return Program{}, errors.Wrapf(err, "program %s", name)
	}

	p := Program{
		ID:        uuid.NewString(),
		Name:      name,
		Source:    source,
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
	}
	err := s.transaction(ctx, func(tx *sql.Tx) error {
		var n int
		row := tx.QueryRowContext(ctx, s.dialect.rebind(`SELECT COUNT(*) FROM programs WHERE name = ?`), name)
		if err := row.Scan(&n); err != nil {
			return errors.Wrap(err, "query failed")
		}
		if n > 0 {
			return errors.Wrap(ErrExists, name)
		}
		_, err := tx.ExecContext(ctx,
			s.dialect.rebind(`INSERT INTO programs (id, name, source, created_at) VALUES (?, ?, ?, ?)`),
			p.ID, p.Name, p.Source, p.CreatedAt.UnixMicro())
		return errors.Wrap(err, "execution failed")
	})
	if err != nil {
		return Program{}, err
	}
	s.logger.Info().Str("id", p.ID).Str("name", p.Name).Msg("program added")
	return p, nil
}

// List returns every program ordered by name.
func (s *Store) List(ctx context.Context) ([]Program, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, source, created_at FROM programs ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "query failed")
	}
	defer rows.Close()

	var out []Program
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, errors.Wrap(rows.Err(), "query failed")
}

// Get finds a program by ID or, failing that, by name.
func (s *Store) Get(ctx context.Context, ref string) (Program, error) {
	row := s.db.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT id, name, source, created_at FROM programs WHERE id = ? OR name = ?`),
		ref, ref)
	p, err := scanProgram(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Program{}, errors.Wrap(ErrNotFound, ref)
	}
	return p, err
}

// Delete removes a program by ID or name.
func (s *Store) Delete(ctx context.Context, ref string) error {
	res, err := s.db.ExecContext(ctx,
		s.dialect.rebind(`DELETE FROM programs WHERE id = ? OR name = ?`), ref, ref)
	if err != nil {
		return errors.Wrap(err, "execution failed")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "execution failed")
	}
	if n == 0 {
		return errors.Wrap(ErrNotFound, ref)
	}
	s.logger.Info().Str("ref", ref).Msg("program deleted")
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProgram(r scanner) (Program, error) {
	var (
		p       Program
		created int64
	)
	if err := r.Scan(&p.ID, &p.Name, &p.Source, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Program{}, err
		}
		return Program{}, errors.Wrap(err, "scan failed")
	}
	p.CreatedAt = time.UnixMicro(created).UTC()
	return p, nil
}

// transaction runs fn within a database transaction.
func (s *Store) transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(rbErr, "transaction failed: %v, rollback failed", err)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "failed to commit transaction")
}
