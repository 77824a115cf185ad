package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/heimdex/heimdex-editor/internal/probe"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

var (
	ErrAssetNotFound  = errors.New("asset not found")
	ErrPresetNotFound = errors.New("preset not found")
	ErrUnsupported    = errors.New("unsupported media file")
)

// Publisher copies an imported asset to shared object storage and returns
// the object key.
type Publisher interface {
	Publish(ctx context.Context, assetID, path string) (string, error)
}

type Service struct {
	repo            Repository
	prober          probe.Prober
	publisher       Publisher
	defaultDuration float64
	logger          *slog.Logger
}

func NewService(repo Repository, prober probe.Prober, defaultDuration float64, logger *slog.Logger) *Service {
	if defaultDuration <= 0 {
		defaultDuration = 5
	}
	return &Service{repo: repo, prober: prober, defaultDuration: defaultDuration, logger: logger}
}

// SetPublisher enables uploading imported assets to object storage.
func (s *Service) SetPublisher(p Publisher) {
	s.publisher = p
}

// ImportFile registers a media file. Importing the same path twice returns
// the existing asset. When probing fails the asset is stored with the
// default duration and a probe job is queued.
func (s *Service) ImportFile(ctx context.Context, path string) (*Asset, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	kind, ok := KindOf(absPath)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Base(absPath))
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("path does not exist: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory")
	}

	existing, err := s.repo.GetAssetByPath(ctx, absPath)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	fingerprint, err := probe.Fingerprint(absPath)
	if err != nil && s.logger != nil {
		s.logger.Warn("fingerprint failed", "path", absPath, "error", err)
	}

	asset := &Asset{
		ID:          NewID(),
		Path:        absPath,
		Name:        strings.TrimSuffix(filepath.Base(absPath), filepath.Ext(absPath)),
		Kind:        kind,
		Duration:    s.defaultDuration,
		Fingerprint: fingerprint,
		Size:        info.Size(),
		CreatedAt:   time.Now().UTC(),
	}

	if res, err := s.probe(ctx, absPath); err == nil {
		asset.Duration = res.Duration
		asset.Probed = true
	} else if s.logger != nil {
		s.logger.Warn("probe failed, using default duration", "path", absPath, "error", err)
	}

	if err := s.repo.CreateAsset(ctx, asset); err != nil {
		return nil, err
	}

	if !asset.Probed {
		if _, err := s.enqueue(ctx, JobTypeProbe, asset.ID, absPath); err != nil && s.logger != nil {
			s.logger.Warn("failed to queue probe job", "asset_id", asset.ID, "error", err)
		}
	}

	s.publish(ctx, asset)

	if s.logger != nil {
		s.logger.Info("asset imported", "asset_id", asset.ID, "kind", asset.Kind, "duration", asset.Duration, "probed", asset.Probed)
	}
	return asset, nil
}

func (s *Service) probe(ctx context.Context, path string) (*probe.Result, error) {
	if s.prober == nil {
		return nil, errors.New("no prober configured")
	}
	return s.prober.Probe(ctx, path)
}

func (s *Service) publish(ctx context.Context, asset *Asset) {
	if s.publisher == nil {
		return
	}
	key, err := s.publisher.Publish(ctx, asset.ID, asset.Path)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("asset upload failed", "asset_id", asset.ID, "error", err)
		}
		return
	}
	if err := s.repo.UpdateAssetObjectKey(ctx, asset.ID, key); err != nil {
		if s.logger != nil {
			s.logger.Warn("failed to record object key", "asset_id", asset.ID, "error", err)
		}
		return
	}
	asset.ObjectKey = key
}

// ImportFolder queues a scan job for every media file under path.
func (s *Service) ImportFolder(ctx context.Context, path string) (*Job, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory")
	}
	return s.enqueue(ctx, JobTypeScan, "", absPath)
}

func (s *Service) enqueue(ctx context.Context, jobType, assetID, path string) (*Job, error) {
	now := time.Now().UTC()
	job := &Job{
		ID:        NewID(),
		Type:      jobType,
		Status:    JobStatusPending,
		AssetID:   assetID,
		Path:      path,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Info("job created", "job_id", job.ID, "type", jobType)
	}
	return job, nil
}

// ExecuteScan walks path and imports every media file found, skipping
// hidden directories.
func (s *Service) ExecuteScan(ctx context.Context, jobID, path string) error {
	s.repo.UpdateJobStatus(ctx, jobID, JobStatusRunning, "")
	if s.logger != nil {
		s.logger.Info("starting scan", "job_id", jobID, "path", path)
	}

	var files []string
	err := filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() && p != path && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if !d.IsDir() && IsMediaFile(d.Name()) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		s.repo.UpdateJobStatus(ctx, jobID, JobStatusFailed, err.Error())
		return err
	}

	total := len(files)
	for i, filePath := range files {
		select {
		case <-ctx.Done():
			s.repo.UpdateJobStatus(ctx, jobID, JobStatusFailed, "cancelled")
			return ctx.Err()
		default:
		}

		if _, err := s.ImportFile(ctx, filePath); err != nil && s.logger != nil {
			s.logger.Warn("failed to import file", "path", filePath, "error", err)
		}
		s.repo.UpdateJobProgress(ctx, jobID, (i+1)*100/total)
	}

	s.repo.UpdateJobStatus(ctx, jobID, JobStatusCompleted, "")
	if s.logger != nil {
		s.logger.Info("scan completed", "job_id", jobID, "files", total)
	}
	return nil
}

// Reprobe runs the prober against an asset again and records the result.
func (s *Service) Reprobe(ctx context.Context, assetID string) (*Asset, error) {
	asset, err := s.repo.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, ErrAssetNotFound
	}

	res, err := s.probe(ctx, asset.Path)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateAssetProbe(ctx, asset.ID, res.Duration, true); err != nil {
		return nil, err
	}
	asset.Duration = res.Duration
	asset.Probed = true
	return asset, nil
}

// QueueReprobe schedules a background probe of an asset.
func (s *Service) QueueReprobe(ctx context.Context, assetID string) (*Job, error) {
	asset, err := s.repo.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, ErrAssetNotFound
	}
	return s.enqueue(ctx, JobTypeProbe, asset.ID, asset.Path)
}

func (s *Service) Assets(ctx context.Context) ([]*Asset, error) {
	return s.repo.ListAssets(ctx)
}

func (s *Service) Asset(ctx context.Context, id string) (*Asset, error) {
	return s.repo.GetAsset(ctx, id)
}

func (s *Service) RemoveAsset(ctx context.Context, id string) error {
	asset, err := s.repo.GetAsset(ctx, id)
	if err != nil {
		return err
	}
	if asset == nil {
		return ErrAssetNotFound
	}
	return s.repo.DeleteAsset(ctx, id)
}

// SavePreset stores fx under name.
func (s *Service) SavePreset(ctx context.Context, name string, fx timeline.FX) (*timeline.EffectPreset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("preset name is required")
	}
	p := &timeline.EffectPreset{
		ID:        NewID(),
		Name:      name,
		FX:        fx,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreatePreset(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Presets(ctx context.Context) ([]*timeline.EffectPreset, error) {
	return s.repo.ListPresets(ctx)
}

func (s *Service) Preset(ctx context.Context, id string) (*timeline.EffectPreset, error) {
	p, err := s.repo.GetPreset(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPresetNotFound
	}
	return p, nil
}

func (s *Service) DeletePreset(ctx context.Context, id string) error {
	return s.repo.DeletePreset(ctx, id)
}

func (s *Service) Jobs(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListJobs(ctx, limit)
}

func (s *Service) Job(ctx context.Context, id string) (*Job, error) {
	return s.repo.GetJob(ctx, id)
}
