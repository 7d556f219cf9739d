// SPDX-License-Identifier: MIT
package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/opencivic/crimetrend/internal/config"
)

// StorePinger is the store slice the checker needs.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// StoreChecker verifies the SQLite store answers.
type StoreChecker struct {
	store StorePinger
}

func NewStoreChecker(store StorePinger) *StoreChecker {
	return &StoreChecker{store: store}
}

func (c *StoreChecker) Name() string { return "store" }

func (c *StoreChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.store.Ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: "store reachable"}
}

// ModelLister is the OpenRouter client slice used as a connectivity probe.
type ModelLister interface {
	Models(ctx context.Context) ([]string, error)
}

// OpenRouterChecker probes the model API. An unreachable API degrades rather
// than kills readiness: already collected data can still be served.
type OpenRouterChecker struct {
	client ModelLister
}

func NewOpenRouterChecker(client ModelLister) *OpenRouterChecker {
	return &OpenRouterChecker{client: client}
}

func (c *OpenRouterChecker) Name() string { return "openrouter" }

func (c *OpenRouterChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	models, err := c.client.Models(ctx)
	if err != nil {
		return CheckResult{Status: StatusDegraded, Error: err.Error()}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: fmt.Sprintf("%d models available", len(models)),
	}
}

// ManifestChecker verifies the source manifest still has cities configured.
type ManifestChecker struct {
	holder *config.ManifestHolder
}

func NewManifestChecker(holder *config.ManifestHolder) *ManifestChecker {
	return &ManifestChecker{holder: holder}
}

func (c *ManifestChecker) Name() string { return "manifest" }

func (c *ManifestChecker) Check(_ context.Context) CheckResult {
	n := len(c.holder.Get().Sources)
	if n == 0 {
		return CheckResult{Status: StatusUnhealthy, Error: "no sources configured"}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: fmt.Sprintf("%d sources configured", n),
	}
}

// DataDirChecker verifies the data directory exists and is writable.
type DataDirChecker struct {
	path string
}

func NewDataDirChecker(path string) *DataDirChecker {
	return &DataDirChecker{path: path}
}

func (c *DataDirChecker) Name() string { return "data_dir" }

func (c *DataDirChecker) Check(_ context.Context) CheckResult {
	info, err := os.Stat(c.path)
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	if !info.IsDir() {
		return CheckResult{Status: StatusUnhealthy, Error: "not a directory", Message: c.path}
	}

	probe := filepath.Join(c.path, ".write_test")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: "not writable", Message: c.path}
	}
	_ = os.Remove(probe)

	return CheckResult{Status: StatusHealthy, Message: "writable"}
}
