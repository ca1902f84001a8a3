package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/esmkit/internal/esmtest"
	"github.com/ssargent/esmkit/pkg/api"
	"github.com/ssargent/esmkit/pkg/codec"
	"github.com/ssargent/esmkit/pkg/config"
	"github.com/ssargent/esmkit/pkg/di"
	"github.com/ssargent/esmkit/pkg/index"
	"github.com/ssargent/esmkit/pkg/storage"
)

// resetFlags puts every flag back to its default so commands can be
// executed repeatedly from one process
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

type env struct {
	dir     string
	config  string
	dataDir string
}

func newEnv(t *testing.T) env {
	t.Helper()
	SetContainer(di.NewContainer())
	dir := t.TempDir()
	return env{
		dir:     dir,
		config:  filepath.Join(dir, "config.yaml"),
		dataDir: filepath.Join(dir, "data"),
	}
}

func (e env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return execute(t, append(args, "--config", e.config, "--data-dir", e.dataDir, "--log-level", "error")...)
}

func (e env) writeFile(t *testing.T, name string, b []byte) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, b, 0600))
	return path
}

func sampleFile() []byte {
	return esmtest.Concat(
		esmtest.FileHeader(0, 3),
		esmtest.Group("WEAP",
			esmtest.Record("WEAP", 0x10, 0,
				esmtest.Field("EDID", esmtest.ZString("Gun10mm")),
				esmtest.Field("FULL", esmtest.ZString("10mm Pistol")),
			),
			esmtest.CompressedRecord("WEAP", 0x11, 0,
				esmtest.Field("EDID", esmtest.ZString("HuntingRifle")),
			),
		),
		esmtest.Group("GLOB",
			esmtest.Record("GLOB", 0x20, 0, esmtest.Field("EDID", esmtest.ZString("GameHour"))),
		),
	)
}

func TestInitCommand(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "init", "--print-key")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration created at "+e.config)
	assert.Contains(t, out, "API key: ")

	cfg, err := config.LoadConfig(e.config)
	require.NoError(t, err)
	assert.Equal(t, e.dataDir, cfg.DataDir)
	assert.Len(t, cfg.Security.APIKey, 64)
	assert.DirExists(t, e.dataDir)

	out, err = e.run(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")

	reloaded, err := config.LoadConfig(e.config)
	require.NoError(t, err)
	assert.Equal(t, cfg.Security.APIKey, reloaded.Security.APIKey, "existing key kept without --force")

	_, err = e.run(t, "init", "--force")
	require.NoError(t, err)
	forced, err := config.LoadConfig(e.config)
	require.NoError(t, err)
	assert.NotEqual(t, cfg.Security.APIKey, forced.Security.APIKey)
}

func TestIndexAndLookupCommands(t *testing.T) {
	e := newEnv(t)
	path := e.writeFile(t, "Sample.esm", sampleFile())

	out, err := e.run(t, "index", path)
	require.NoError(t, err)
	assert.Contains(t, out, "3 records indexed from Sample.esm")

	t.Run("get by form id", func(t *testing.T) {
		out, err := e.run(t, "get", "00000010")
		require.NoError(t, err)

		var entry index.Entry
		require.NoError(t, json.Unmarshal([]byte(out), &entry))
		assert.Equal(t, codec.FormID(0x10), entry.FormID)
		assert.Equal(t, "Gun10mm", entry.EditorID)
		assert.Equal(t, "10mm Pistol", entry.Name)
		assert.Equal(t, []string{"WEAP"}, entry.Path)
	})

	t.Run("get by editor id", func(t *testing.T) {
		out, err := e.run(t, "get", "huntingrifle")
		require.NoError(t, err)

		var entry index.Entry
		require.NoError(t, json.Unmarshal([]byte(out), &entry))
		assert.Equal(t, codec.FormID(0x11), entry.FormID)
		assert.True(t, entry.Compressed)
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := e.run(t, "get", "NoSuchThing")
		require.Error(t, err)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("tags", func(t *testing.T) {
		out, err := e.run(t, "tags", "WEAP")
		require.NoError(t, err)
		assert.Contains(t, out, "FORMID")
		assert.Contains(t, out, "00000010")
		assert.Contains(t, out, "HuntingRifle")
		assert.NotContains(t, out, "GameHour")
	})

	t.Run("tags rejects bad type", func(t *testing.T) {
		_, err := e.run(t, "tags", "WEAPON")
		assert.Error(t, err)
	})

	t.Run("runs", func(t *testing.T) {
		out, err := e.run(t, "runs")
		require.NoError(t, err)
		assert.Contains(t, out, "Sample.esm")
	})
}

func TestIndexCommand_BadFile(t *testing.T) {
	e := newEnv(t)
	file := sampleFile()
	path := e.writeFile(t, "Short.esm", file[:len(file)-3])

	_, err := e.run(t, "index", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Short.esm")
}

func TestStatsCommand(t *testing.T) {
	e := newEnv(t)
	first := e.writeFile(t, "First.esm", sampleFile())
	second := e.writeFile(t, "Second.esp", esmtest.Concat(
		esmtest.FileHeader(esmtest.FlagLocalized, 1),
		esmtest.Group("GLOB",
			esmtest.Record("GLOB", 0x30, 0, esmtest.Field("EDID", esmtest.ZString("TimeScale"))),
		),
	))

	out, err := e.run(t, "stats", "--json", first, second)
	require.NoError(t, err)

	var results []fileStats
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)

	assert.Equal(t, first, results[0].Path)
	assert.False(t, results[0].Localized)
	assert.Equal(t, map[string]int{"WEAP": 2, "GLOB": 1}, results[0].Summary.ByTag)
	assert.Equal(t, uint64(1), results[0].Parser.Compressed)

	assert.Equal(t, second, results[1].Path)
	assert.True(t, results[1].Localized)
	assert.Equal(t, 1, results[1].Summary.Records)

	out, err = e.run(t, "stats", first)
	require.NoError(t, err)
	assert.Contains(t, out, first)
	assert.Regexp(t, `WEAP\s+2`, out)
	assert.Regexp(t, `compressed\s+1`, out)
}

func TestDumpCommand(t *testing.T) {
	e := newEnv(t)
	path := e.writeFile(t, "Sample.esm", sampleFile())

	out, err := e.run(t, "dump", path)
	require.NoError(t, err)
	assert.Contains(t, out, "  TES4 00000000")
	assert.Contains(t, out, "  GRUP Top WEAP")
	assert.Contains(t, out, `      EDID[8] "Gun10mm"`)
	assert.Contains(t, out, `        EDID[13] "HuntingRifle"`)
	assert.Contains(t, out, "4 records in 2 groups", "the file header counts as a record")
}

type captureStarter struct {
	config api.ServerConfig
}

func (c *captureStarter) StartServer(_ context.Context, _ api.IIndexStore, config api.ServerConfig, _ *slog.Logger) error {
	c.config = config
	return nil
}

type captureFactory struct {
	starter *captureStarter
}

func (f *captureFactory) CreateServerStarter() api.ServerStarter {
	return f.starter
}

func TestServeCommand(t *testing.T) {
	t.Run("requires an API key", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.run(t, "serve")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no API key configured")
	})

	t.Run("starts with config and flag overrides", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.run(t, "init")
		require.NoError(t, err)
		cfg, err := config.LoadConfig(e.config)
		require.NoError(t, err)

		starter := &captureStarter{}
		container.SetServerFactory(&captureFactory{starter: starter})

		_, err = e.run(t, "serve", "--port", "9123")
		require.NoError(t, err)
		assert.Equal(t, 9123, starter.config.Port)
		assert.Equal(t, "127.0.0.1", starter.config.Bind)
		assert.Equal(t, cfg.Security.APIKey, starter.config.APIKey)
		assert.Equal(t, cfg.Security.MaxUploadBytes, starter.config.MaxUploadBytes)
		assert.Equal(t, cfg.Parser.MaxDepth, starter.config.MaxDepth)
		assert.Equal(t, cfg.Parser.MaxInflateBytes, starter.config.MaxInflateBytes)
	})

	t.Run("rejects invalid port", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.run(t, "serve", "--api-key", "k", "--port", "0")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "port 0")
	})
}

type fakeFinder struct {
	byID   map[codec.FormID]index.Entry
	byEdid map[string]index.Entry
}

func (f fakeFinder) Get(id codec.FormID) (index.Entry, error) {
	if e, ok := f.byID[id]; ok {
		return e, nil
	}
	return index.Entry{}, storage.ErrNotFound
}

func (f fakeFinder) FindEditorID(name string) (index.Entry, error) {
	if e, ok := f.byEdid[name]; ok {
		return e, nil
	}
	return index.Entry{}, storage.ErrNotFound
}

func TestLookup(t *testing.T) {
	store := fakeFinder{
		byID:   map[codec.FormID]index.Entry{0xCAFE: {FormID: 0xCAFE, EditorID: "Coffee"}},
		byEdid: map[string]index.Entry{"BEEF": {FormID: 0x99, EditorID: "BEEF"}},
	}

	e, err := lookup(store, "0000CAFE")
	require.NoError(t, err)
	assert.Equal(t, "Coffee", e.EditorID)

	e, err = lookup(store, "BEEF")
	require.NoError(t, err)
	assert.Equal(t, codec.FormID(0x99), e.FormID, "hex-looking editor ids fall back")

	_, err = lookup(store, "Missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
