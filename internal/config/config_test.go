package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func clearEnv(c *qt.C) {
	for _, key := range []string{"HOST", "PORT", "API_PREFIX", "STATIC_PATH", "STATIC_LIB_PATH", "INSTANCES_JSON_URL", "CACHE_MAX_AGE", "AWS_REGION", "LOG_LEVEL", "LOG_FORMAT"} {
		c.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	c := qt.New(t)
	clearEnv(c)

	cfg, err := Load("")
	c.Assert(err, qt.IsNil)
	c.Assert(cfg, qt.DeepEquals, Default())
	c.Assert(cfg.CacheTTL(), qt.Equals, 12*time.Hour)
	c.Assert(cfg.Address(), qt.Equals, "0.0.0.0:9001")
}

func TestLoadPrecedence(t *testing.T) {
	c := qt.New(t)
	clearEnv(c)

	path := filepath.Join(c.TempDir(), "config.yaml")
	err := os.WriteFile(path, []byte(`
server:
  port: 8080
  apiPrefix: /api
cache:
  instancesJsonUrl: s3://datasets/instances.json
  maxAgeHours: 6
  fetchTimeout: 10s
aws:
  region: eu-west-1
logging:
  format: text
`), 0o644)
	c.Assert(err, qt.IsNil)

	c.Setenv("CACHE_MAX_AGE", "1")
	c.Setenv("PORT", "not-a-number")

	cfg, err := Load(path)
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Server.Port, qt.Equals, 8080)
	c.Assert(cfg.Server.APIPrefix, qt.Equals, "/api")
	c.Assert(cfg.Server.Host, qt.Equals, DefaultHost)
	c.Assert(cfg.Cache.InstancesJSONURL, qt.Equals, "s3://datasets/instances.json")
	c.Assert(cfg.Cache.FetchTimeout, qt.Equals, 10*time.Second)
	c.Assert(cfg.CacheTTL(), qt.Equals, time.Hour)
	c.Assert(cfg.AWS.Region, qt.Equals, "eu-west-1")
	c.Assert(cfg.Logging.Format, qt.Equals, "text")
	c.Assert(cfg.Logging.Level, qt.Equals, "info")
}

func TestLoadErrors(t *testing.T) {
	c := qt.New(t)
	clearEnv(c)

	_, err := Load(filepath.Join(c.TempDir(), "missing.yaml"))
	c.Assert(err, qt.ErrorMatches, "error reading config file: .*")

	path := filepath.Join(c.TempDir(), "bad.yaml")
	c.Assert(os.WriteFile(path, []byte("server: [1, 2"), 0o644), qt.IsNil)
	_, err = Load(path)
	c.Assert(err, qt.ErrorMatches, "error parsing config file .*")

	c.Setenv("LOG_FORMAT", "xml")
	_, err = Load("")
	c.Assert(err, qt.ErrorMatches, `invalid log format "xml" \(want json or text\)`)
}

func TestZeroMaxAgeMeansAlwaysRefresh(t *testing.T) {
	c := qt.New(t)
	clearEnv(c)
	c.Setenv("CACHE_MAX_AGE", "0")

	cfg, err := Load("")
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.CacheTTL(), qt.Equals, time.Duration(0))
}

func TestProductionLogsErrorsOnly(t *testing.T) {
	c := qt.New(t)
	clearEnv(c)
	c.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.LogLevel(), qt.Equals, "debug")

	cfg.Server.Production = true
	c.Assert(cfg.LogLevel(), qt.Equals, "error")
}
