package app

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/vehicle-api/pkg/log"
)

type testOptions struct {
	HTTP struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"http"`
	Level string `mapstructure:"level"`

	completed bool
	invalid   bool
}

func (o *testOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	fs := fss.FlagSet("http")
	fs.StringVar(&o.HTTP.Addr, "http.addr", "0.0.0.0:8080", "bind address")
	fss.FlagSet("misc").StringVar(&o.Level, "level", "info", "level")
	return fss
}

func (o *testOptions) Complete() error { o.completed = true; return nil }

func (o *testOptions) Validate() error {
	if o.invalid {
		return errors.New("invalid")
	}
	return nil
}

func resetConfigFlag(t *testing.T) {
	t.Cleanup(func() { cfgFile = "" })
}

func TestAppLoadsFlagsEnvAndFile(t *testing.T) {
	resetConfigFlag(t)

	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("http:\n  addr: 127.0.0.1:9000\nlevel: warn\n"), 0o600))

	t.Setenv("VEHICLE_TEST_LEVEL", "debug")

	opts := &testOptions{}
	ran := false
	a := NewApp("vehicle-test", "test",
		WithOptions(opts),
		WithEnvPrefix("VEHICLE_TEST"),
		WithDefaultValidArgs(),
		WithRunFunc(func() error { ran = true; return nil }),
	)

	cmd := a.Command()
	cmd.SetArgs([]string{"--config", file})
	require.NoError(t, cmd.Execute())

	assert.True(t, ran)
	assert.True(t, opts.completed)
	assert.Equal(t, "127.0.0.1:9000", opts.HTTP.Addr)
	assert.Equal(t, "debug", opts.Level)
}

func TestAppExplicitFlagWins(t *testing.T) {
	resetConfigFlag(t)
	t.Setenv("VEHICLE_TEST_HTTP_ADDR", "127.0.0.1:7000")

	opts := &testOptions{}
	a := NewApp("vehicle-test", "test",
		WithOptions(opts),
		WithEnvPrefix("VEHICLE_TEST"),
		WithRunFunc(func() error { return nil }),
	)

	cmd := a.Command()
	cmd.SetArgs([]string{"--http.addr", "127.0.0.1:7001"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "127.0.0.1:7001", opts.HTTP.Addr)
}

func TestAppValidationFailureSkipsRun(t *testing.T) {
	resetConfigFlag(t)

	opts := &testOptions{invalid: true}
	ran := false
	a := NewApp("vehicle-test", "test",
		WithOptions(opts),
		WithRunFunc(func() error { ran = true; return nil }),
	)

	cmd := a.Command()
	cmd.SetArgs([]string{})
	assert.Error(t, cmd.Execute())
	assert.False(t, ran)
}

func TestAppRejectsPositionalArgs(t *testing.T) {
	resetConfigFlag(t)

	a := NewApp("vehicle-test", "test",
		WithOptions(&testOptions{}),
		WithDefaultValidArgs(),
		WithRunFunc(func() error { return nil }),
	)

	cmd := a.Command()
	cmd.SetArgs([]string{"extra"})
	assert.Error(t, cmd.Execute())
}

func TestAppReportsErrors(t *testing.T) {
	tests := []struct {
		name string
		opts *testOptions
		run  RunFunc
		args []string
		want string
	}{
		{
			name: "unknown flag",
			opts: &testOptions{},
			run:  func() error { return nil },
			args: []string{"--no-such-flag"},
			want: "Error: unknown flag: --no-such-flag",
		},
		{
			name: "invalid options",
			opts: &testOptions{invalid: true},
			run:  func() error { return nil },
			want: "Error: invalid options: invalid",
		},
		{
			name: "run failure",
			opts: &testOptions{},
			run:  func() error { return errors.New("failed to start mqtt client") },
			want: "Error: failed to start mqtt client",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetConfigFlag(t)

			a := NewApp("vehicle-test", "test", WithOptions(tt.opts), WithRunFunc(tt.run))
			stderr := &bytes.Buffer{}
			a.Command().SetErr(stderr)
			a.Command().SetArgs(append([]string{}, tt.args...))

			require.Error(t, a.execute())
			assert.Contains(t, stderr.String(), tt.want)
		})
	}
}

func TestReloadLogLevel(t *testing.T) {
	log.Init(&log.Options{Level: "info", Format: "json", OutputPaths: []string{"stderr"}})

	v := viper.New()
	v.Set("log.level", "warn")
	require.NoError(t, ReloadLogLevel(v))
	assert.Equal(t, "warn", log.Level())

	v.Set("log.level", "shouting")
	assert.Error(t, ReloadLogLevel(v))
}
