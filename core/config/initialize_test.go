package config

import (
	"io/ioutil"
	"log"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
)

func TestInitialize(t *testing.T) {
	tempDir := t.TempDir()
	osFs := afero.NewOsFs()
	if _, err := Initialize(osFs, tempDir, log.New(ioutil.Discard, "", 0)); err != nil {
		t.Fatal(err)
	}

	// Check that the config is valid
	cfg, err := Load(osFs, filepath.Join(tempDir, ConfigurationName))
	if err != nil {
		t.Fatal(err)
	}

	t.Run("Defaults", func(t *testing.T) {
		assert.Equal(t, defaultConfig().RedirectPolicy, cfg.RedirectPolicy)
		assert.Equal(t, tempDir, cfg.configDir)
	})

	t.Run("OpenLog", func(t *testing.T) {
		cfg.LogFile = "kara.log"
		fd, err := cfg.OpenLog()
		assert.Nil(t, err)
		fd.Close()

		_, err = osFs.Stat(filepath.Join(tempDir, "kara.log"))
		assert.Nil(t, err)
	})
}

func TestInitializeKeepsExisting(t *testing.T) {
	memFs := afero.NewMemMapFs()
	custom := []byte("redirect_policy: append\nregistry_capacity: 4\ncolor: never\nlog_file: \"\"\nlog_level: debug\n")
	assert.Nil(t, afero.WriteFile(memFs, "/kara/config.yaml", custom, 0600))

	cfg, err := Initialize(memFs, "/kara", log.New(ioutil.Discard, "", 0))
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "append", cfg.RedirectPolicy)
	assert.Equal(t, 4, cfg.RegistryCapacity)
}

func TestLoadStrict(t *testing.T) {
	memFs := afero.NewMemMapFs()
	assert.Nil(t, afero.WriteFile(memFs, "/kara/config.yaml", []byte("motd: hello\n"), 0600))

	_, err := Load(memFs, "/kara")
	assert.Error(t, err)
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(afero.NewMemMapFs(), "/nowhere")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "truncate", cfg.RedirectPolicy)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("KARA_REDIRECT_POLICY", "overwrite")
	t.Setenv("KARA_REGISTRY_CAPACITY", "2")

	cfg, err := LoadOrDefault(afero.NewMemMapFs(), "/nowhere")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "overwrite", cfg.RedirectPolicy)
	assert.Equal(t, 2, cfg.RegistryCapacity)
}

func TestLoadEnvInvalid(t *testing.T) {
	t.Setenv("KARA_COLOR", "plaid")

	_, err := LoadOrDefault(afero.NewMemMapFs(), "/nowhere")
	assert.Error(t, err)
}
