package mountstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	_ "github.com/lib/pq"
	_ "github.com/marcboeker/go-duckdb"

	"github.com/GriffinCanCode/fedfs/internal/shared/paths"
	"github.com/GriffinCanCode/fedfs/internal/types"
)

// Driver names accepted by Open
const (
	DriverMemory   = "memory"
	DriverDuckDB   = "duckdb"
	DriverPostgres = "postgres"
)

const schema = `CREATE TABLE IF NOT EXISTS saved_mounts (
	mount_point    TEXT PRIMARY KEY,
	backend_type   TEXT NOT NULL,
	backend_config TEXT NOT NULL,
	priority       INTEGER NOT NULL DEFAULT 0,
	readonly       BOOLEAN NOT NULL DEFAULT FALSE,
	description    TEXT NOT NULL DEFAULT '',
	owner_user_id  TEXT NOT NULL DEFAULT '',
	tenant_id      TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMP NOT NULL,
	updated_at     TIMESTAMP NOT NULL
)`

const columns = `mount_point, backend_type, backend_config, priority, readonly,
	description, owner_user_id, tenant_id, created_at, updated_at`

// SQL is a Store over database/sql. The same statements run on postgres
// (lib/pq) and duckdb (go-duckdb).
type SQL struct {
	db  *sql.DB
	now func() time.Time
}

// Open returns the store selected by driver. An empty duckdb DSN is an
// in-memory database.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverDuckDB, DriverPostgres:
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverDuckDB && dsn == "" {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	store, err := NewSQL(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQL creates the saved_mounts table if needed and returns the store.
func NewSQL(ctx context.Context, db *sql.DB) (*SQL, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create saved_mounts: %w", err)
	}
	return &SQL{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMount(row scanner) (types.SavedMount, error) {
	var (
		sm        types.SavedMount
		rawConfig string
		created   time.Time
		updated   time.Time
	)
	if err := row.Scan(&sm.MountPoint, &sm.BackendType, &rawConfig, &sm.Priority, &sm.ReadOnly,
		&sm.Description, &sm.OwnerUserID, &sm.TenantID, &created, &updated); err != nil {
		return types.SavedMount{}, err
	}
	if rawConfig != "" && rawConfig != "null" {
		if err := sonic.ConfigStd.UnmarshalFromString(rawConfig, &sm.BackendConfig); err != nil {
			return types.SavedMount{}, fmt.Errorf("decode backend_config for %s: %w", sm.MountPoint, err)
		}
	}
	created, updated = created.UTC(), updated.UTC()
	sm.CreatedAt, sm.UpdatedAt = &created, &updated
	return sm, nil
}

// List returns every saved mount ordered by mount point
func (s *SQL) List(ctx context.Context) ([]types.SavedMount, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+columns+` FROM saved_mounts ORDER BY mount_point`)
	if err != nil {
		return nil, types.Wrap(types.KindBackend, "list_saved_mounts", "", err)
	}
	defer rows.Close()

	out := []types.SavedMount{}
	for rows.Next() {
		sm, err := scanMount(rows)
		if err != nil {
			return nil, types.Wrap(types.KindBackend, "list_saved_mounts", "", err)
		}
		out = append(out, sm)
	}
	if err := rows.Err(); err != nil {
		return nil, types.Wrap(types.KindBackend, "list_saved_mounts", "", err)
	}
	return out, nil
}

// Get returns the saved mount at mountPoint
func (s *SQL) Get(ctx context.Context, mountPoint string) (types.SavedMount, error) {
	mp := paths.Normalize(mountPoint)
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM saved_mounts WHERE mount_point = $1`, mp)
	sm, err := scanMount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.SavedMount{}, notSaved(mp)
	}
	if err != nil {
		return types.SavedMount{}, types.Wrap(types.KindBackend, "get_saved_mount", mp, err)
	}
	return sm, nil
}

// Save upserts mount. created_at survives updates.
func (s *SQL) Save(ctx context.Context, mount types.SavedMount) (types.SavedMount, error) {
	mount.MountPoint = paths.Normalize(mount.MountPoint)
	rawConfig := "{}"
	if len(mount.BackendConfig) > 0 {
		encoded, err := sonic.ConfigStd.MarshalToString(mount.BackendConfig)
		if err != nil {
			return types.SavedMount{}, types.Wrap(types.KindValidation, "save_mount", mount.MountPoint, err)
		}
		rawConfig = encoded
	}

	now := s.now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO saved_mounts (`+columns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (mount_point) DO UPDATE SET
			backend_type = excluded.backend_type,
			backend_config = excluded.backend_config,
			priority = excluded.priority,
			readonly = excluded.readonly,
			description = excluded.description,
			owner_user_id = excluded.owner_user_id,
			tenant_id = excluded.tenant_id,
			updated_at = excluded.updated_at`,
		mount.MountPoint, mount.BackendType, rawConfig, mount.Priority, mount.ReadOnly,
		mount.Description, mount.OwnerUserID, mount.TenantID, now, now)
	if err != nil {
		return types.SavedMount{}, types.Wrap(types.KindBackend, "save_mount", mount.MountPoint, err)
	}
	return s.Get(ctx, mount.MountPoint)
}

// Delete removes the saved mount in a single statement
func (s *SQL) Delete(ctx context.Context, mountPoint string) (bool, error) {
	mp := paths.Normalize(mountPoint)
	res, err := s.db.ExecContext(ctx, `DELETE FROM saved_mounts WHERE mount_point = $1`, mp)
	if err != nil {
		return false, types.Wrap(types.KindBackend, "delete_saved_mount", mp, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, types.Wrap(types.KindBackend, "delete_saved_mount", mp, err)
	}
	return n > 0, nil
}

// Close closes the database
func (s *SQL) Close() error {
	return s.db.Close()
}
