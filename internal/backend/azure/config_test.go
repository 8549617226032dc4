package azure

import (
	"testing"

	rtest "github.com/mdarezzo/massundelete/internal/test"
)

func TestConfigValidate(t *testing.T) {
	base := func() Config {
		cfg := NewConfig()
		cfg.AccountURL = "https://myaccount.dfs.core.windows.net"
		cfg.Container = "backups"
		return cfg
	}

	tests := []struct {
		name   string
		modify func(*Config)
		valid  bool
	}{
		{"dfs endpoint", func(cfg *Config) {}, true},
		{"blob endpoint", func(cfg *Config) {
			cfg.AccountURL = "https://myaccount.blob.core.windows.net"
		}, true},
		{"http scheme", func(cfg *Config) {
			cfg.AccountURL = "http://myaccount.dfs.core.windows.net"
		}, false},
		{"trailing slash", func(cfg *Config) {
			cfg.AccountURL = "https://myaccount.dfs.core.windows.net/"
		}, false},
		{"uppercase account", func(cfg *Config) {
			cfg.AccountURL = "https://MyAccount.dfs.core.windows.net"
		}, false},
		{"file endpoint", func(cfg *Config) {
			cfg.AccountURL = "https://myaccount.file.core.windows.net"
		}, false},
		{"container too short", func(cfg *Config) { cfg.Container = "ab" }, false},
		{"container uppercase", func(cfg *Config) { cfg.Container = "Backups" }, false},
		{"container leading hyphen", func(cfg *Config) { cfg.Container = "-backups" }, false},
		{"container trailing hyphen", func(cfg *Config) { cfg.Container = "backups-" }, false},
		{"container inner hyphen", func(cfg *Config) { cfg.Container = "my-backups-2" }, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := base()
			test.modify(&cfg)
			err := cfg.Validate()
			if test.valid {
				rtest.OK(t, err)
			} else {
				rtest.Assert(t, err != nil, "expected validation error for %#v", cfg)
			}
		})
	}
}

func TestConfigAccountName(t *testing.T) {
	cfg := NewConfig()
	cfg.AccountURL = "https://myaccount.dfs.core.windows.net"
	rtest.Equals(t, "myaccount", cfg.AccountName())
}

func TestConfigContainerURL(t *testing.T) {
	cfg := NewConfig()
	cfg.AccountURL = "https://myaccount.dfs.core.windows.net"
	cfg.Container = "backups"
	rtest.Equals(t, "https://myaccount.dfs.core.windows.net/backups", cfg.ContainerURL())
}
