package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/webdesk/internal/infrastructure/config"
)

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, cfg *config.Config)
	}{
		{
			name: "no flags keeps environment",
			args: nil,
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, "7000", cfg.Server.Port)
				assert.Equal(t, "info", cfg.Logging.Level)
			},
		},
		{
			name: "port flag overrides environment",
			args: []string{"--port", "9000", "--host", "127.0.0.1"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, "9000", cfg.Server.Port)
				assert.Equal(t, "127.0.0.1", cfg.Server.Host)
			},
		},
		{
			name: "dev implies debug",
			args: []string{"--dev"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.True(t, cfg.Logging.Development)
				assert.Equal(t, "debug", cfg.Logging.Level)
			},
		},
		{
			name: "explicit level wins over dev",
			args: []string{"--dev", "--log-level", "warn", "--apps", "/tmp/apps.toml"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, "warn", cfg.Logging.Level)
				assert.Equal(t, "/tmp/apps.toml", cfg.Desktop.AppsFile)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PORT", "7000")

			cmd := newRootCmd()
			require.NoError(t, cmd.ParseFlags(tt.args))

			var f flags
			f.port, _ = cmd.Flags().GetString("port")
			f.host, _ = cmd.Flags().GetString("host")
			f.logLevel, _ = cmd.Flags().GetString("log-level")
			f.dev, _ = cmd.Flags().GetBool("dev")
			f.appsFile, _ = cmd.Flags().GetString("apps")

			cfg, err := config.Load()
			require.NoError(t, err)
			applyFlags(cmd, cfg, f)
			tt.check(t, cfg)
		})
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "webdesk "+version)
}
