package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pydron/pydron/internal/pool"
	"github.com/pydron/pydron/internal/value"
)

func TestLoadParsesWorkersAndScheduler(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pydron.conf")
	require.NoError(t, os.WriteFile(path, []byte(`
workers:
  - type: multicore
    cores: 4
    data_ports: 0
scheduler: trivial
data_ports: "9000-9010"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Workers, 1)
	require.Equal(t, LauncherMulticore, cfg.Workers[0].Type)
	require.Equal(t, 4, cfg.Workers[0].Cores)
	require.Equal(t, "trivial", cfg.SchedulerName())

	ports, err := ParseDataPorts(cfg.DataPorts)
	require.NoError(t, err)
	require.Len(t, ports, 11)
	require.Equal(t, 9000, ports[0])
	require.Equal(t, 9010, ports[10])
}

func TestSchedulerNameDefaultsToTrivial(t *testing.T) {
	cfg := &Config{}
	require.Equal(t, "trivial", cfg.SchedulerName())
}

func TestLocateFallsBackThroughSearchOrder(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvVar, "")

	oldwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(oldwd) })

	cwdConf := filepath.Join(dir, "pydron.conf")
	require.NoError(t, os.WriteFile(cwdConf, []byte("workers: []\n"), 0o644))

	found, err := Locate("")
	require.NoError(t, err)
	require.Equal(t, cwdConf, found)
}

func TestLocateReturnsExplicitPathWithoutSearching(t *testing.T) {
	found, err := Locate("/some/explicit/path.conf")
	require.NoError(t, err)
	require.Equal(t, "/some/explicit/path.conf", found)
}

func TestParseDataPortsHandlesAllShapes(t *testing.T) {
	ports, err := ParseDataPorts(0)
	require.NoError(t, err)
	require.Equal(t, []int{0}, ports)

	ports, err = ParseDataPorts([]interface{}{8001, 8002})
	require.NoError(t, err)
	require.Equal(t, []int{8001, 8002}, ports)

	ports, err = ParseDataPorts("8000-8002")
	require.NoError(t, err)
	require.Equal(t, []int{8000, 8001, 8002}, ports)
}

func TestBuildStrategyWrapsTrivialInVerify(t *testing.T) {
	cfg := &Config{Scheduler: "trivial"}
	s, err := BuildStrategy(cfg, []value.WorkerID{"w1"}, "master")
	require.NoError(t, err)
	require.IsType(t, &pool.VerifyStrategy{}, s)
}

func TestBuildStrategyRejectsUnknownScheduler(t *testing.T) {
	cfg := &Config{Scheduler: "genetic"}
	_, err := BuildStrategy(cfg, nil, "master")
	require.Error(t, err)
}
