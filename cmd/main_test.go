package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeanerCloud/rds-extended-support/internal/common"
	"github.com/LeanerCloud/rds-extended-support/internal/config"
)

func changedSet(names ...string) func(string) bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(name string) bool { return set[name] }
}

func TestBuildConfig_DefaultsWithoutFile(t *testing.T) {
	cfg, err := buildConfig("", &config.Config{}, changedSet())
	require.NoError(t, err)
	assert.Equal(t, config.DefaultRoleName, cfg.RoleName)
	assert.Equal(t, config.DefaultOutputDir, cfg.OutputDir)
	assert.Equal(t, config.DefaultWorkers, cfg.Workers)
}

func TestBuildConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `all: true
workers: 20
role_name: FileRole
exclude_accounts:
  - "111111111111"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	flags := &config.Config{Workers: 5, RoleName: "IgnoredRole"}
	cfg, err := buildConfig(path, flags, changedSet("workers"))
	require.NoError(t, err)

	assert.True(t, cfg.AllAccounts)
	assert.Equal(t, 5, cfg.Workers)
	assert.Equal(t, "FileRole", cfg.RoleName)
	assert.Equal(t, []string{"111111111111"}, cfg.ExcludeAccounts)
}

func TestBuildConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		flags   *config.Config
		changed []string
	}{
		{"all with accounts", &config.Config{AllAccounts: true, Accounts: []string{"111111111111"}}, []string{"all", "accounts"}},
		{"exclude without all", &config.Config{ExcludeAccounts: []string{"111111111111"}}, []string{"exclude-accounts"}},
		{"bad account id", &config.Config{Accounts: []string{"1234"}}, []string{"accounts"}},
		{"bad as-of", &config.Config{AsOf: "15/06/2025"}, []string{"as-of"}},
		{"zero workers", &config.Config{Workers: 0}, []string{"workers"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildConfig("", tt.flags, changedSet(tt.changed...))
			require.Error(t, err)
			assert.True(t, common.IsValidationError(err))
		})
	}
}

func TestBuildConfig_MissingFile(t *testing.T) {
	_, err := buildConfig(filepath.Join(t.TempDir(), "nope.yaml"), &config.Config{}, changedSet())
	assert.Error(t, err)
}

func TestRootCommandFlags(t *testing.T) {
	for _, name := range []string{
		"accounts", "accounts-file", "all", "exclude-accounts", "regions", "regions-file",
		"generate-accounts-file", "generate-regions-file", "role-name", "profile",
		"output-dir", "workers", "max-retries", "as-of", "pricing-file", "verbose", "config",
	} {
		assert.NotNil(t, rootCmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "a", rootCmd.Flags().Lookup("accounts").Shorthand)
	assert.Equal(t, "r", rootCmd.Flags().Lookup("regions").Shorthand)
	assert.Equal(t, "o", rootCmd.Flags().Lookup("output-dir").Shorthand)
	assert.Equal(t, "v", rootCmd.Flags().Lookup("verbose").Shorthand)

	cmd, _, err := rootCmd.Find([]string{"pricing", "refresh"})
	require.NoError(t, err)
	assert.Equal(t, "refresh", cmd.Name())
	assert.NotNil(t, cmd.Flags().Lookup("output"))
}
