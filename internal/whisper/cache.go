package whisper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/tolka/tolka/internal/download"
)

// ErrModelMissing marks a model that is not on disk while automatic
// downloads are switched off.
var ErrModelMissing = errors.New("model not downloaded")

type CacheOptions struct {
	Dir          string
	AutoDownload bool
	NoProgress   bool
	Logger       *zap.Logger
}

// Cache memoizes model lookups for the life of the process. The first
// request for a size resolves (and, when allowed, downloads) the model
// file; concurrent first requests share a single download.
type Cache struct {
	dir          string
	autoDownload bool
	noProgress   bool
	logger       *zap.Logger

	// fetch is swapped out in tests.
	fetch func(ctx context.Context, opts download.Options) error

	mu     sync.Mutex
	loaded map[string]string
	group  singleflight.Group
}

func NewCache(opts CacheOptions) *Cache {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Cache{
		dir:          opts.Dir,
		autoDownload: opts.AutoDownload,
		noProgress:   opts.NoProgress,
		logger:       logger,
		fetch:        download.DownloadFile,
		loaded:       make(map[string]string),
	}
}

// Path returns the on-disk location for a model reference, fetching the
// file first when it is absent and downloads are enabled.
func (c *Cache) Path(ctx context.Context, ref string) (string, error) {
	if strings.TrimSpace(ref) == "" {
		ref = DefaultModel
	}

	c.mu.Lock()
	if path, ok := c.loaded[ref]; ok {
		c.mu.Unlock()
		return path, nil
	}
	c.mu.Unlock()

	value, err, _ := c.group.Do(ref, func() (any, error) {
		path, err := c.resolve(ctx, ref)
		if err != nil {
			return nil, err
		}
		return path, nil
	})
	if err != nil {
		return "", err
	}

	path := value.(string)

	c.mu.Lock()
	c.loaded[ref] = path
	c.mu.Unlock()

	return path, nil
}

// Preload warms the cache for a model so the first request does not pay
// the download cost.
func (c *Cache) Preload(ctx context.Context, ref string) error {
	_, err := c.Path(ctx, ref)
	return err
}

func (c *Cache) resolve(ctx context.Context, ref string) (string, error) {
	resolved, err := ResolveModel(ref, c.dir)
	if err != nil {
		return "", err
	}

	if !resolved.NeedsDownload {
		return resolved.Path, nil
	}

	if !c.autoDownload {
		return "", fmt.Errorf("%w: %s expected at %s; run `tolka setup --model %s` or enable --auto-download", ErrModelMissing, resolved.Name, resolved.Path, resolved.Name)
	}

	c.logger.Info("model not found locally, downloading",
		zap.String("model", resolved.Name),
		zap.String("destination", resolved.Path),
	)

	if err := c.fetch(ctx, download.Options{
		URL:            resolved.URL,
		Destination:    resolved.Path,
		ExpectedSHA256: resolved.SHA256,
		NoProgress:     c.noProgress,
		Logger:         c.logger,
	}); err != nil {
		return "", fmt.Errorf("download model %q: %w", resolved.Name, err)
	}

	return resolved.Path, nil
}
