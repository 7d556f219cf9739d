// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/opencivic/crimetrend/internal/log"
	"github.com/rs/zerolog"
)

// ManifestHolder holds the source manifest with atomic reloading capability.
// It provides thread-safe access and supports hot reloading when the
// sources.yaml file changes on disk.
type ManifestHolder struct {
	mu      sync.RWMutex
	current Manifest
	path    string
	watcher *fsnotify.Watcher
	logger  zerolog.Logger

	reloadMu        sync.RWMutex
	reloadListeners []chan<- Manifest
}

// NewManifestHolder creates a holder with the initial manifest.
func NewManifestHolder(initial Manifest, path string) *ManifestHolder {
	return &ManifestHolder{
		current: initial,
		path:    path,
		logger:  log.WithComponent("config"),
	}
}

// Get returns the current manifest (thread-safe read).
func (h *ManifestHolder) Get() Manifest {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload re-reads the manifest from disk and validates it.
// On failure the old manifest is kept, so a half-written file never
// replaces a working configuration.
func (h *ManifestHolder) Reload(_ context.Context) error {
	h.logger.Info().Str("event", "manifest.reload_start").Msg("reloading source manifest")

	m, err := LoadManifest(h.path)
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("event", "manifest.reload_failed").
			Msg("failed to load new manifest")
		return fmt.Errorf("reload manifest: %w", err)
	}

	h.mu.Lock()
	old := h.current
	h.current = m
	h.mu.Unlock()

	h.notifyListeners(m)

	h.logger.Info().
		Str("event", "manifest.reload_success").
		Int("sources_before", len(old.Sources)).
		Int("sources_after", len(m.Sources)).
		Msg("source manifest reloaded")
	return nil
}

// StartWatcher starts watching the manifest file for changes.
// If the path is empty this is a no-op.
func (h *ManifestHolder) StartWatcher(ctx context.Context) error {
	if h.path == "" {
		h.logger.Info().
			Str("event", "manifest.watcher_disabled").
			Msg("manifest watcher disabled (no path)")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	h.watcher = watcher

	if err := watcher.Add(h.path); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch manifest file: %w", err)
	}

	h.logger.Info().
		Str("event", "manifest.watcher_started").
		Str("path", h.path).
		Msg("watching source manifest for changes")

	go h.watchLoop(ctx)
	return nil
}

func (h *ManifestHolder) watchLoop(ctx context.Context) {
	// Debounce to avoid multiple reloads for rapid editor write patterns
	var debounceTimer *time.Timer
	const debounce = 500 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str("event", "manifest.watcher_stopped").Msg("manifest watcher stopped")
			if h.watcher != nil {
				_ = h.watcher.Close()
			}
			return

		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			// Write and Create cover vim, nano and plain redirects
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounce, func() {
					if err := h.Reload(ctx); err != nil {
						h.logger.Error().
							Err(err).
							Str("event", "manifest.auto_reload_failed").
							Msg("automatic manifest reload failed")
					}
				})
			}

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().
				Err(err).
				Str("event", "manifest.watcher_error").
				Msg("manifest watcher error")
		}
	}
}

// Stop stops the watcher (if running).
func (h *ManifestHolder) Stop() {
	if h.watcher != nil {
		_ = h.watcher.Close()
	}
}

// RegisterListener registers a channel to receive manifest reload notifications.
// Notifications are best effort: a full channel is skipped, not blocked on.
func (h *ManifestHolder) RegisterListener(ch chan<- Manifest) {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()
	h.reloadListeners = append(h.reloadListeners, ch)
}

func (h *ManifestHolder) notifyListeners(m Manifest) {
	h.reloadMu.RLock()
	defer h.reloadMu.RUnlock()
	for _, ch := range h.reloadListeners {
		select {
		case ch <- m:
		default:
		}
	}
}
