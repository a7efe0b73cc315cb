package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// FileProvider watches a config file and fans reloads out to subscribers.
// Editors commonly replace files via rename, so the watch covers the parent
// directory and filters events down to the configured path.
type FileProvider struct {
	path    string
	logger  zerolog.Logger
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc

	mu          sync.RWMutex
	current     *Config
	subscribers []chan *Config
}

const reloadDebounce = 100 * time.Millisecond

// NewFileProvider loads the file and starts watching it for changes.
func NewFileProvider(path string, logger zerolog.Logger) (*FileProvider, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve path: %w", err)
	}

	cfg, err := Load(absPath)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("config: watch %s: %w", filepath.Dir(absPath), err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &FileProvider{
		path:    absPath,
		logger:  logger,
		watcher: watcher,
		cancel:  cancel,
		current: cfg,
	}
	go p.watchLoop(ctx)
	return p, nil
}

// Current returns the most recently loaded valid configuration.
func (p *FileProvider) Current() *Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Subscribe returns a channel receiving each successful reload, primed with
// the current configuration.
func (p *FileProvider) Subscribe() <-chan *Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := make(chan *Config, 1)
	ch <- p.current
	p.subscribers = append(p.subscribers, ch)
	return ch
}

// Close stops the watcher.
func (p *FileProvider) Close() error {
	p.cancel()
	return p.watcher.Close()
}

func (p *FileProvider) watchLoop(ctx context.Context) {
	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != p.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Chmod) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, p.reload)
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.logger.Warn().Err(err).Msg("config watcher error")
		}
	}
}

// reload keeps the previous config when the new file fails to parse or
// validate.
func (p *FileProvider) reload() {
	data, err := os.ReadFile(p.path)
	if err != nil {
		p.logger.Warn().Err(err).Str("path", p.path).Msg("config reload failed")
		return
	}
	cfg, err := Parse(data)
	if err != nil {
		p.logger.Warn().Err(err).Str("path", p.path).Msg("config rejected, keeping previous")
		return
	}

	p.mu.Lock()
	p.current = cfg
	subscribers := make([]chan *Config, len(p.subscribers))
	copy(subscribers, p.subscribers)
	p.mu.Unlock()

	p.logger.Info().Str("path", p.path).Msg("configuration reloaded")
	for _, ch := range subscribers {
		select {
		case ch <- cfg:
		default:
			// Slow consumers miss intermediate snapshots.
		}
	}
}
