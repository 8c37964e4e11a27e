package app

import (
	"testing"
	"time"

	"klinefetch/config"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestBuild(t *testing.T) {
	cfg := &config.Config{
		Bybit: config.BybitConfig{REST: config.RESTConfig{BaseURL: "http://localhost:1", Timeout: 2 * time.Second}},
		Fetch: config.FetchConfig{PageLimit: 500, PaceDelay: time.Millisecond},
	}

	c := Build(cfg, zap.NewNop())
	assert.Equal(t, "http://localhost:1", c.Client.BaseURL())
	assert.Equal(t, 2*time.Second, c.Client.HTTPClient().Timeout)
	assert.NotNil(t, c.History)
	assert.NotNil(t, c.Symbols)
	assert.NotNil(t, c.Tools)
}
