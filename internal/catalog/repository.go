package catalog

import (
	"context"
	"database/sql"
	"time"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

type Repository interface {
	CreateAsset(ctx context.Context, asset *Asset) error
	GetAsset(ctx context.Context, id string) (*Asset, error)
	GetAssetByPath(ctx context.Context, path string) (*Asset, error)
	ListAssets(ctx context.Context) ([]*Asset, error)
	DeleteAsset(ctx context.Context, id string) error
	UpdateAssetProbe(ctx context.Context, id string, duration float64, probed bool) error
	UpdateAssetObjectKey(ctx context.Context, id, key string) error

	CreatePreset(ctx context.Context, preset *timeline.EffectPreset) error
	GetPreset(ctx context.Context, id string) (*timeline.EffectPreset, error)
	ListPresets(ctx context.Context) ([]*timeline.EffectPreset, error)
	DeletePreset(ctx context.Context, id string) error

	CreateJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, id string) (*Job, error)
	ListJobs(ctx context.Context, limit int) ([]*Job, error)
	ListPendingJobs(ctx context.Context) ([]*Job, error)
	UpdateJobStatus(ctx context.Context, id, status, errorMsg string) error
	UpdateJobProgress(ctx context.Context, id string, progress int) error

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const assetColumns = `id, path, name, kind, duration, probed, fingerprint, size, object_key, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteRepository) CreateAsset(ctx context.Context, a *Asset) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO assets (`+assetColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Path, a.Name, string(a.Kind), a.Duration, boolToInt(a.Probed),
		nullString(a.Fingerprint), a.Size, nullString(a.ObjectKey), a.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetAsset(ctx context.Context, id string) (*Asset, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = ?`, id)
	return nilIfMissing(scanAsset(row))
}

func (r *SQLiteRepository) GetAssetByPath(ctx context.Context, path string) (*Asset, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM assets WHERE path = ?`, path)
	return nilIfMissing(scanAsset(row))
}

func scanAsset(row scanner) (*Asset, error) {
	var a Asset
	var kind, createdAt string
	var probed int
	var fingerprint, objectKey sql.NullString

	if err := row.Scan(&a.ID, &a.Path, &a.Name, &kind, &a.Duration, &probed, &fingerprint, &a.Size, &objectKey, &createdAt); err != nil {
		return nil, err
	}
	a.Kind = timeline.TrackKind(kind)
	a.Probed = probed == 1
	a.Fingerprint = fingerprint.String
	a.ObjectKey = objectKey.String
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &a, nil
}

func (r *SQLiteRepository) ListAssets(ctx context.Context) ([]*Asset, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+assetColumns+` FROM assets ORDER BY created_at DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []*Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func (r *SQLiteRepository) DeleteAsset(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM assets WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) UpdateAssetProbe(ctx context.Context, id string, duration float64, probed bool) error {
	_, err := r.db.ExecContext(ctx, "UPDATE assets SET duration = ?, probed = ? WHERE id = ?", duration, boolToInt(probed), id)
	return err
}

func (r *SQLiteRepository) UpdateAssetObjectKey(ctx context.Context, id, key string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE assets SET object_key = ? WHERE id = ?", nullString(key), id)
	return err
}

const presetColumns = `id, name, enabled, intensity, frequency, zoom_factor, random_seed, created_at`

func (r *SQLiteRepository) CreatePreset(ctx context.Context, p *timeline.EffectPreset) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO presets (`+presetColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, boolToInt(p.FX.Enabled), p.FX.Intensity, p.FX.Frequency, p.FX.ZoomFactor, p.FX.RandomSeed,
		p.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetPreset(ctx context.Context, id string) (*timeline.EffectPreset, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+presetColumns+` FROM presets WHERE id = ?`, id)
	return nilIfMissing(scanPreset(row))
}

func scanPreset(row scanner) (*timeline.EffectPreset, error) {
	var p timeline.EffectPreset
	var enabled int
	var createdAt string
	if err := row.Scan(&p.ID, &p.Name, &enabled, &p.FX.Intensity, &p.FX.Frequency, &p.FX.ZoomFactor, &p.FX.RandomSeed, &createdAt); err != nil {
		return nil, err
	}
	p.FX.Enabled = enabled == 1
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

func (r *SQLiteRepository) ListPresets(ctx context.Context) ([]*timeline.EffectPreset, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+presetColumns+` FROM presets ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var presets []*timeline.EffectPreset
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, err
		}
		presets = append(presets, p)
	}
	return presets, rows.Err()
}

func (r *SQLiteRepository) DeletePreset(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM presets WHERE id = ?", id)
	return err
}

const jobColumns = `id, type, status, asset_id, path, progress, error, created_at, updated_at`

func (r *SQLiteRepository) CreateJob(ctx context.Context, j *Job) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, j.ID, j.Type, j.Status, nullString(j.AssetID), nullString(j.Path), j.Progress, nullString(j.Error),
		j.CreatedAt.Format(time.RFC3339), j.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetJob(ctx context.Context, id string) (*Job, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	return nilIfMissing(scanJob(row))
}

func scanJob(row scanner) (*Job, error) {
	var j Job
	var assetID, path, errMsg sql.NullString
	var createdAt, updatedAt string
	if err := row.Scan(&j.ID, &j.Type, &j.Status, &assetID, &path, &j.Progress, &errMsg, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	j.AssetID = assetID.String
	j.Path = path.String
	j.Error = errMsg.String
	j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &j, nil
}

func (r *SQLiteRepository) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (r *SQLiteRepository) ListPendingJobs(ctx context.Context) ([]*Job, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE status = ? ORDER BY created_at ASC, rowid ASC`, JobStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJobs(rows)
}

func scanJobs(rows *sql.Rows) ([]*Job, error) {
	var jobs []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (r *SQLiteRepository) UpdateJobStatus(ctx context.Context, id, status, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, error = ?, updated_at = ? WHERE id = ?
	`, status, nullString(errorMsg), time.Now().UTC().Format(time.RFC3339), id)
	return err
}

func (r *SQLiteRepository) UpdateJobProgress(ctx context.Context, id string, progress int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET progress = ?, updated_at = ? WHERE id = ?
	`, progress, time.Now().UTC().Format(time.RFC3339), id)
	return err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// nilIfMissing maps sql.ErrNoRows to a nil result with no error.
func nilIfMissing[T any](v *T, err error) (*T, error) {
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return v, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
