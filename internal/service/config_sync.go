package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/edirooss/zmux-analytics/internal/domain/analytics"
	"github.com/edirooss/zmux-analytics/internal/gateway"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const DefaultSyncDebounce = 750 * time.Millisecond

// ConfigSyncService keeps the analytics configuration file and the gateway in step.
// Load reads the file once at boot; Watch feeds later edits into the gateway.
type ConfigSyncService struct {
	log  *zap.Logger
	gw   *gateway.Gateway
	path string

	debounce time.Duration
}

func NewConfigSyncService(log *zap.Logger, gw *gateway.Gateway, path string, debounce time.Duration) *ConfigSyncService {
	if debounce <= 0 {
		debounce = DefaultSyncDebounce
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return &ConfigSyncService{
		log:      log.Named("config_sync"),
		gw:       gw,
		path:     path,
		debounce: debounce,
	}
}

// Path is the absolute path of the watched file.
func (s *ConfigSyncService) Path() string { return s.path }

// Load reads and validates the configuration file.
func (s *ConfigSyncService) Load() (*analytics.Configuration, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read '%s': %w", s.path, err)
	}
	cfg, err := analytics.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse '%s': %w", s.path, err)
	}
	return cfg, nil
}

// Boot loads the file for the initial configuration. A missing or invalid
// file is logged and reported as absent; actions then stay disabled.
func (s *ConfigSyncService) Boot() (*analytics.Configuration, bool) {
	cfg, err := s.Load()
	if err != nil {
		s.log.Warn("invalid configuration file, actions disabled", zap.Error(err))
		return nil, false
	}
	s.log.Info("configuration file loaded", zap.String("path", s.path))
	return cfg, true
}

// Watch blocks until ctx is done, putting every valid edit of the file into
// the gateway. Invalid edits are logged and ignored.
func (s *ConfigSyncService) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher init: %w", err)
	}
	defer w.Close()

	// Watch the directory: editors replace files via rename.
	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch dir '%s': %w", dir, err)
	}
	s.log.Debug("watching configuration file", zap.String("path", s.path), zap.Duration("debounce", s.debounce))

	var t *time.Timer
	defer func() {
		if t != nil {
			t.Stop()
		}
	}()
	reset := func() {
		if t != nil {
			t.Stop()
		}
		t = time.AfterFunc(s.debounce, s.apply)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Name != s.path {
				continue
			}
			// Remove is ignored until the file reappears.
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				reset()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("watcher error", zap.Error(err))
		}
	}
}

func (s *ConfigSyncService) apply() {
	cfg, err := s.Load()
	if err != nil {
		s.log.Warn("configuration file change ignored", zap.Error(err))
		return
	}
	s.gw.Put(cfg)
	s.log.Info("configuration file applied", zap.String("path", s.path))
}
