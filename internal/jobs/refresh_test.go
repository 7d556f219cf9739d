// SPDX-License-Identifier: MIT
package jobs

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencivic/crimetrend/internal/config"
	"github.com/opencivic/crimetrend/internal/dataset"
	"github.com/opencivic/crimetrend/internal/store"
)

// memStore records persisted batches for assertions.
type memStore struct {
	mu   sync.Mutex
	obs  []dataset.Observation
	runs []store.RefreshRun
}

func (m *memStore) UpsertObservations(_ context.Context, obs []dataset.Observation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.obs = append(m.obs, obs...)
	return nil
}

func (m *memStore) RecordRefreshRun(_ context.Context, run store.RefreshRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// setupTabularCity seeds <dataDir>/<city>/input with one yearly export.
func setupTabularCity(t *testing.T, dataDir, city string) config.Source {
	t.Helper()
	writeFile(t, filepath.Join(dataDir, city, "input", "2014-exports.csv"),
		"ID,CATEGORY\n1,Robbery\n2,Robbery\n3,Burglary\n")
	writeFile(t, filepath.Join(dataDir, city, "input", "2015-exports.csv"),
		"ID,CATEGORY\n4,Robbery\n")
	return config.Source{
		City:           city,
		Kind:           config.KindTabular,
		Input:          filepath.Join(city, "input"),
		CategoryColumn: "CATEGORY",
		YearMin:        2014,
		YearMax:        2024,
	}
}

func newTestRefresher(t *testing.T, dataDir string, st ObservationStore, srcs ...config.Source) *Refresher {
	t.Helper()
	cfg := config.AppConfig{
		DataDir:     dataDir,
		CombinedDir: filepath.Join(dataDir, "combined"),
	}
	holder := config.NewManifestHolder(config.Manifest{Sources: srcs}, "")
	return NewRefresher(cfg, holder, nil, st)
}

func TestRefreshTabularEndToEnd(t *testing.T) {
	dataDir := t.TempDir()
	src := setupTabularCity(t, dataDir, "Los Angeles, California")
	st := &memStore{}

	r := newTestRefresher(t, dataDir, st, src)
	status, err := r.Refresh(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, status.RunID)
	assert.Equal(t, 1, status.Cities)
	assert.Equal(t, 3, status.Observations)
	assert.Equal(t, 2, status.CombinedFiles)
	assert.Empty(t, status.Errors)
	assert.False(t, status.LastRun.IsZero())

	// Per-city artifacts.
	robbery, err := os.ReadFile(filepath.Join(dataDir, "Los Angeles, California", "output", "robbery.csv"))
	require.NoError(t, err)
	assert.Equal(t, "year,count\n2014,2\n2015,1\n", string(robbery))

	// Combined artifacts.
	combined, err := os.ReadFile(filepath.Join(dataDir, "combined", "robbery.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(combined), "city,year,count")
	assert.Contains(t, string(combined), "\"Los Angeles, California\",2014,2")

	// Persistence.
	assert.Len(t, st.obs, 3)
	require.Len(t, st.runs, 1)
	assert.Equal(t, status.RunID, st.runs[0].RunID)
	assert.Equal(t, 3, st.runs[0].Observations)
	assert.Equal(t, 0, st.runs[0].Errors)
}

func TestRefreshMultipleCities(t *testing.T) {
	dataDir := t.TempDir()
	la := setupTabularCity(t, dataDir, "Los Angeles, California")
	portland := setupTabularCity(t, dataDir, "Portland, Oregon")
	st := &memStore{}

	r := newTestRefresher(t, dataDir, st, la, portland)
	status, err := r.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, status.Cities)
	assert.Equal(t, 6, status.Observations)

	combined, err := os.ReadFile(filepath.Join(dataDir, "combined", "burglary.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(combined), "Los Angeles, California")
	assert.Contains(t, string(combined), "Portland, Oregon")
}

func TestRefreshFailSoftPerCity(t *testing.T) {
	dataDir := t.TempDir()
	good := setupTabularCity(t, dataDir, "Portland, Oregon")
	broken := config.Source{
		City:           "Ghost Town",
		Kind:           config.KindTabular,
		Input:          filepath.Join("Ghost Town", "input"), // does not exist
		CategoryColumn: "CATEGORY",
	}
	st := &memStore{}

	r := newTestRefresher(t, dataDir, st, good, broken)
	status, err := r.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, status.Cities)
	require.Len(t, status.Errors, 1)
	assert.Contains(t, status.Errors[0], "Ghost Town")
	require.Len(t, st.runs, 1)
	assert.Equal(t, 1, st.runs[0].Errors)
}

func TestRefreshAllCitiesFailed(t *testing.T) {
	dataDir := t.TempDir()
	broken := config.Source{
		City:           "Ghost Town",
		Kind:           config.KindTabular,
		Input:          "missing",
		CategoryColumn: "CATEGORY",
	}

	r := newTestRefresher(t, dataDir, &memStore{}, broken)
	status, err := r.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, status.Cities)
	require.Len(t, status.Errors, 1)
}

func TestRefreshWithoutStore(t *testing.T) {
	dataDir := t.TempDir()
	src := setupTabularCity(t, dataDir, "Portland, Oregon")

	r := newTestRefresher(t, dataDir, nil, src)
	status, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, status.Cities)
}
