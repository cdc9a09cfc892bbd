package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type sampleConfig struct {
	Model   string        `envconfig:"MODEL" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"3s"`
}

type validatedConfig struct {
	Threshold int `envconfig:"THRESHOLD" default:"50"`
}

func (c *validatedConfig) Validate() error {
	if c.Threshold > 100 {
		return errors.New("threshold must be <= 100")
	}
	return nil
}

func TestNewDecodesPrefixedEnv(t *testing.T) {
	t.Setenv("CFGTEST_MODEL", "gemini-2.0-flash")

	conf, err := New[sampleConfig]("CFGTEST")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if conf.Model != "gemini-2.0-flash" {
		t.Fatalf("Model = %q", conf.Model)
	}
	if conf.Timeout != 3*time.Second {
		t.Fatalf("Timeout = %v, want default 3s", conf.Timeout)
	}
}

func TestNewMissingRequired(t *testing.T) {
	if _, err := New[sampleConfig]("CFGMISSING"); err == nil {
		t.Fatal("expected error for missing required field")
	}
}

func TestNewRunsValidator(t *testing.T) {
	t.Setenv("CFGVALID_THRESHOLD", "150")

	if _, err := New[validatedConfig]("CFGVALID"); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestExportEnvironmentKeepsExistingValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("CFGFILE_MODEL=from-file\nCFGFILE_EXTRA=extra\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("CFGFILE_MODEL", "from-env")
	t.Setenv("CFGFILE_EXTRA", "")
	os.Unsetenv("CFGFILE_EXTRA")

	if err := exportEnvironment(path); err != nil {
		t.Fatalf("exportEnvironment() error = %v", err)
	}
	if got := os.Getenv("CFGFILE_MODEL"); got != "from-env" {
		t.Fatalf("CFGFILE_MODEL = %q, want process value to win", got)
	}
	if got := os.Getenv("CFGFILE_EXTRA"); got != "extra" {
		t.Fatalf("CFGFILE_EXTRA = %q, want value from file", got)
	}
	os.Unsetenv("CFGFILE_EXTRA")
}
