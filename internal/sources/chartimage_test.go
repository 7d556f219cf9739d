// SPDX-License-Identifier: MIT
package sources

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencivic/crimetrend/internal/config"
	"github.com/opencivic/crimetrend/internal/openrouter"
)

func chartSource(images ...string) config.Source {
	return config.Source{
		City:    "Memphis, Tennessee",
		Kind:    config.KindChartImage,
		Images:  images,
		YearMin: 2014,
		YearMax: 2024,
	}
}

func TestChartImageCollect(t *testing.T) {
	client := &fakeClient{}
	client.respond = func(req openrouter.ChatRequest) (string, error) {
		var url string
		for _, part := range req.Messages[0].Content {
			if part.Type == "image_url" {
				url = part.ImageURL.URL
			}
		}
		if strings.Contains(url, "robbery") {
			return "2014,120\n2015,110", nil
		}
		return "```csv\n2014,45\n2015,50\n```", nil
	}

	src := chartSource(
		"https://i.example.net/abc/robbery.webp",
		"https://i.example.net/def/aggravated-assault.webp",
	)
	c, err := New(src, newTestRunner(client, nil))
	require.NoError(t, err)
	assert.Equal(t, config.KindChartImage, c.Kind())

	obs, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, obs, 4)

	categories := make(map[string]int)
	for _, o := range obs {
		assert.Equal(t, "Memphis, Tennessee", o.City)
		assert.Equal(t, "chartimage", o.Source)
		categories[o.Category]++
	}
	assert.Equal(t, 2, categories["robbery"])
	assert.Equal(t, 2, categories["aggravated-assault"])
}

func TestChartImageSkipsFailedImages(t *testing.T) {
	client := &fakeClient{}
	client.respond = func(req openrouter.ChatRequest) (string, error) {
		for _, part := range req.Messages[0].Content {
			if part.Type == "image_url" && strings.Contains(part.ImageURL.URL, "homicide") {
				return "The chart is too blurry to read.", nil
			}
		}
		return "2016,77", nil
	}

	src := chartSource(
		"https://i.example.net/a/homicide.webp",
		"https://i.example.net/b/burglary.webp",
	)
	c, err := New(src, newTestRunner(client, nil))
	require.NoError(t, err)

	obs, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, "burglary", obs[0].Category)
	assert.Equal(t, int64(77), obs[0].Count)
}

func TestChartImageAllImagesFail(t *testing.T) {
	client := &fakeClient{respond: func(openrouter.ChatRequest) (string, error) {
		return "no data", nil
	}}

	c, err := New(chartSource("https://i.example.net/a/homicide.webp"), newTestRunner(client, nil))
	require.NoError(t, err)

	_, err = c.Collect(context.Background())
	assert.Error(t, err)
}

func TestChartImagePromptMentionsYearRange(t *testing.T) {
	client := &fakeClient{respond: func(openrouter.ChatRequest) (string, error) {
		return "2017,5", nil
	}}

	src := chartSource("https://i.example.net/a/larceny.webp")
	src.YearMin = 2016
	src.YearMax = 2020
	c, err := New(src, newTestRunner(client, nil))
	require.NoError(t, err)

	_, err = c.Collect(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, client.calls)
	prompt := promptOf(client.calls[0])
	assert.Contains(t, prompt, "2016")
	assert.Contains(t, prompt, "2020")
}

func TestCategoryFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://i.ibb.co/9Ht6dPkW/robbery.webp", "robbery"},
		{"https://i.ibb.co/KjRwfd3M/grand-theft-auto.webp", "grand-theft-auto"},
		{"https://host/path/Sexual%20Assault.png", "sexual-20assault"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, categoryFromURL(tt.url))
	}
}
