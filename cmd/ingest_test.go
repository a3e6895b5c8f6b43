package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mvidal-dev/schoolscout/internal/config"
	"github.com/mvidal-dev/schoolscout/internal/document"
)

func TestCollectLinks(t *testing.T) {
	a := &app{cfg: &config.Config{
		Schools: []config.School{
			{
				Name:            "Harker",
				Homepage:        "https://harker.org",
				AdditionalLinks: []string{"https://harker.org/tuition"},
			},
			{Name: "Stratford", Homepage: "https://stratfordschools.com"},
		},
	}}

	links := collectLinks(a)
	assert.Equal(t, []document.Link{
		{URL: "https://harker.org", School: "Harker"},
		{URL: "https://harker.org/tuition", School: "Harker"},
		{URL: "https://stratfordschools.com", School: "Stratford"},
	}, links)
}

func TestDedupeLinks(t *testing.T) {
	links := dedupeLinks([]document.Link{
		{URL: "https://a.org", School: "A"},
		{URL: "https://b.org", School: "B"},
		{URL: "https://a.org", School: "A"},
	})
	assert.Equal(t, []document.Link{
		{URL: "https://a.org", School: "A"},
		{URL: "https://b.org", School: "B"},
	}, links)
}
