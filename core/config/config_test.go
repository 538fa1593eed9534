package config

import (
	"io/ioutil"
	"log"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func TestBuiltinConfig(t *testing.T) {
	rawConfig := make(map[string]interface{})
	assert.Nil(t, yaml.Unmarshal(defaultConfigData, &rawConfig))

	knownFields := make(map[string]bool)
	rt := reflect.TypeOf(Configuration{})
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		assert.NotEmpty(t, jsonTag)
		jsonField := strings.Split(jsonTag, ",")[0]
		knownFields[jsonField] = true

		if _, ok := rawConfig[jsonField]; !ok {
			assert.False(t, true, "default config missing field: %q", jsonField)
		}
	}

	for k := range rawConfig {
		_, ok := knownFields[k]
		assert.True(t, ok, "default config contains invalid field: %q", k)
	}
}

func TestDefaultConfig(t *testing.T) {
	// Will panic() on load failure because it should never happen at runtime.
	cfg := defaultConfig()
	assert.NotNil(t, cfg)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "> ", cfg.Prompt)
	assert.Equal(t, ColorAuto, cfg.Color)
}

func TestInterpreter(t *testing.T) {
	cases := map[string]struct {
		shell   string
		want    []string
		wantErr bool
	}{
		"default":  {shell: "/bin/sh -c", want: []string{"/bin/sh", "-c"}},
		"quoted":   {shell: `"/opt/my shell/bin/sh" -e -c`, want: []string{"/opt/my shell/bin/sh", "-e", "-c"}},
		"empty":    {shell: "   ", wantErr: true},
		"unclosed": {shell: `"/bin/sh -c`, wantErr: true},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			cfg := &Configuration{PassthroughShell: tc.shell}
			argv, err := cfg.Interpreter()
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, argv)
		})
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Configuration){
		"negative-entries": func(c *Configuration) { c.MaxEntries = -1 },
		"negative-length":  func(c *Configuration) { c.MaxEntryLength = -1 },
		"negative-depth":   func(c *Configuration) { c.MaxReplayDepth = -1 },
		"bad-color":        func(c *Configuration) { c.Color = "sometimes" },
		"bad-level":        func(c *Configuration) { c.Log.Level = "loud" },
		"no-shell":         func(c *Configuration) { c.PassthroughShell = "" },
	}

	for tn, mutate := range cases {
		t.Run(tn, func(t *testing.T) {
			cfg := defaultConfig()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestInitialize(t *testing.T) {
	fs := afero.NewMemMapFs()
	logger := log.New(ioutil.Discard, "", 0)
	dir := filepath.Join("home", ".ledgersh")

	require.NoError(t, Initialize(fs, dir, logger))

	// Check that the config is valid
	cfg, err := Load(fs, dir)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Dir())
	assert.Equal(t, filepath.Join(dir, "app.log"), cfg.LogPath())
	assert.Equal(t, filepath.Join(dir, "readline_history"), cfg.HistoryPath())

	t.Run("idempotent", func(t *testing.T) {
		require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, ConfigurationName), []byte("prompt: \"$ \"\npassthrough_shell: sh -c\ncolor: never\nlog:\n  level: info\n"), 0600))
		require.NoError(t, Initialize(fs, dir, logger))

		cfg, err := Load(fs, filepath.Join(dir, ConfigurationName))
		require.NoError(t, err)
		assert.Equal(t, "$ ", cfg.Prompt)
	})
}

func TestLoadStrict(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, filepath.Join("cfg", ConfigurationName), []byte("promt: typo\n"), 0600))

	_, err := Load(fs, "cfg")
	assert.Error(t, err)
}

func TestLoadOrDefault(t *testing.T) {
	fs := afero.NewMemMapFs()

	cfg, err := LoadOrDefault(fs, "missing")
	require.NoError(t, err)
	assert.Equal(t, "missing", cfg.Dir())
	assert.Equal(t, defaultConfig().MaxReplayDepth, cfg.MaxReplayDepth)

	t.Run("absolute-paths-kept", func(t *testing.T) {
		cfg.Log.File = "/var/log/ledgersh.log"
		assert.Equal(t, "/var/log/ledgersh.log", cfg.LogPath())
	})

	t.Run("disabled", func(t *testing.T) {
		cfg.HistoryFile = ""
		assert.Equal(t, "", cfg.HistoryPath())
	})
}
