// SPDX-License-Identifier: MIT
package sources

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencivic/crimetrend/internal/config"
	"github.com/opencivic/crimetrend/internal/dataset"
)

func writeCSVInput(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func tabularSource(input, column string) config.Source {
	return config.Source{
		City:           "Los Angeles, California",
		Kind:           config.KindTabular,
		Input:          input,
		CategoryColumn: column,
		YearMin:        2014,
		YearMax:        2024,
	}
}

func TestTabularCollect(t *testing.T) {
	dir := t.TempDir()
	writeCSVInput(t, dir, "2014-PART_I_AND_II_CRIMES.csv",
		"DR_NO,CATEGORY,AREA\n1,Robbery,77\n2,Robbery,12\n3,Burglary,5\n")
	writeCSVInput(t, dir, "2015-PART_I_AND_II_CRIMES.csv",
		"DR_NO,CATEGORY,AREA\n4,Robbery,3\n5,Burglary,9\n6,Burglary,1\n7,Burglary,2\n")

	c, err := New(tabularSource(dir, "CATEGORY"), nil)
	require.NoError(t, err)
	assert.Equal(t, config.KindTabular, c.Kind())

	obs, err := c.Collect(context.Background())
	require.NoError(t, err)

	want := []dataset.Observation{
		{City: "Los Angeles, California", Category: "Burglary", Year: 2014, Count: 1, Source: "tabular"},
		{City: "Los Angeles, California", Category: "Burglary", Year: 2015, Count: 3, Source: "tabular"},
		{City: "Los Angeles, California", Category: "Robbery", Year: 2014, Count: 2, Source: "tabular"},
		{City: "Los Angeles, California", Category: "Robbery", Year: 2015, Count: 1, Source: "tabular"},
	}
	assert.Equal(t, want, obs)
}

func TestTabularCaseInsensitiveColumn(t *testing.T) {
	dir := t.TempDir()
	writeCSVInput(t, dir, "2016-offenses.csv",
		"Id,OffenseCategory\n1,Theft\n2,Theft\n")

	c, err := New(tabularSource(dir, "offensecategory"), nil)
	require.NoError(t, err)

	obs, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, int64(2), obs[0].Count)
}

func TestTabularSkipsMalformedRowsAndEmptyCategories(t *testing.T) {
	dir := t.TempDir()
	writeCSVInput(t, dir, "2017-crimes.csv",
		"ID,CATEGORY\n1,Robbery\n2,\n3\n4,Robbery\n")

	c, err := New(tabularSource(dir, "CATEGORY"), nil)
	require.NoError(t, err)

	obs, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, int64(2), obs[0].Count)
}

func TestTabularMissingColumn(t *testing.T) {
	dir := t.TempDir()
	writeCSVInput(t, dir, "2018-crimes.csv", "ID,TYPE\n1,Robbery\n")

	c, err := New(tabularSource(dir, "CATEGORY"), nil)
	require.NoError(t, err)

	// The only file fails, so nothing is aggregated.
	_, err = c.Collect(context.Background())
	assert.Error(t, err)
}

func TestTabularIgnoresOutOfRangeYears(t *testing.T) {
	dir := t.TempDir()
	writeCSVInput(t, dir, "1990-crimes.csv", "ID,CATEGORY\n1,Robbery\n")
	writeCSVInput(t, dir, "2019-crimes.csv", "ID,CATEGORY\n1,Robbery\n")

	c, err := New(tabularSource(dir, "CATEGORY"), nil)
	require.NoError(t, err)

	obs, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, 2019, obs[0].Year)
}

func TestTabularEmptyDir(t *testing.T) {
	c, err := New(tabularSource(t.TempDir(), "CATEGORY"), nil)
	require.NoError(t, err)

	_, err = c.Collect(context.Background())
	assert.Error(t, err)
}
