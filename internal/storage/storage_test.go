package storage

import (
	"path/filepath"
	"testing"
	"time"

	"binbird-backend/internal/config"
	"binbird-backend/internal/models"
	"binbird-backend/internal/runstate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseArea checks the key-value contract every provider must honour
func exerciseArea(t *testing.T, area runstate.Storage) {
	t.Helper()

	_, ok, err := area.GetItem("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, area.SetItem("k", "v1"))
	require.NoError(t, area.SetItem("k", "v2"))
	value, ok, err := area.GetItem("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", value)

	require.NoError(t, area.RemoveItem("k"))
	require.NoError(t, area.RemoveItem("k"))
	_, ok, err = area.GetItem("k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryProvider_Contract(t *testing.T) {
	p := NewMemoryProvider(0)
	defer p.Close()
	exerciseArea(t, p.Area("device:a"))
}

func TestMemoryProvider_ScopesAreIsolated(t *testing.T) {
	p := NewMemoryProvider(0)
	defer p.Close()

	require.NoError(t, p.Area("device:a").SetItem("k", "a"))
	_, ok, err := p.Area("device:b").GetItem("k")
	require.NoError(t, err)
	assert.False(t, ok)

	value, ok, _ := p.Area("device:a").GetItem("k")
	assert.True(t, ok)
	assert.Equal(t, "a", value)
	assert.Equal(t, 2, p.Len())

	p.Drop("device:a")
	_, ok, _ = p.Area("device:a").GetItem("k")
	assert.False(t, ok)
}

func TestMemoryProvider_SweepDropsIdleAreas(t *testing.T) {
	p := NewMemoryProvider(time.Hour)
	defer p.Close()

	now := time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	require.NoError(t, p.Area("session:old").SetItem("k", "v"))
	now = now.Add(50 * time.Minute)
	require.NoError(t, p.Area("session:new").SetItem("k", "v"))

	now = now.Add(20 * time.Minute)
	assert.Equal(t, 1, p.Sweep())
	assert.Equal(t, 1, p.Len())

	_, ok, _ := p.Area("session:new").GetItem("k")
	assert.True(t, ok)
}

func TestMemoryProvider_HandleOutlivesSweep(t *testing.T) {
	p := NewMemoryProvider(time.Hour)
	defer p.Close()

	now := time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	held := p.Area("session:d:s")
	now = now.Add(2 * time.Hour)
	require.Equal(t, 1, p.Sweep())

	require.NoError(t, held.SetItem("k", "late"))
	value, ok, err := p.Area("session:d:s").GetItem("k")
	require.NoError(t, err)
	assert.True(t, ok, "writes through an old handle are not lost")
	assert.Equal(t, "late", value)
}

func TestMemoryProvider_DropPrefix(t *testing.T) {
	p := NewMemoryProvider(0)
	defer p.Close()

	require.NoError(t, p.Area("session:dev-1:a").SetItem("k", "v"))
	require.NoError(t, p.Area("session:dev-1:b").SetItem("k", "v"))
	require.NoError(t, p.Area("session:dev-2:a").SetItem("k", "v"))

	assert.Equal(t, 2, p.DropPrefix("session:dev-1:"))
	assert.Equal(t, 1, p.Len())

	_, ok, _ := p.Area("session:dev-2:a").GetItem("k")
	assert.True(t, ok)
	_, ok, _ = p.Area("session:dev-1:a").GetItem("k")
	assert.False(t, ok)
}

func TestMemoryProvider_NoTTLNeverSweeps(t *testing.T) {
	p := NewMemoryProvider(0)
	defer p.Close()
	p.Area("session:a")
	assert.Equal(t, 0, p.Sweep())
	assert.NoError(t, p.Close())
}

func TestSQLiteProvider_Contract(t *testing.T) {
	p, err := OpenSQLite(filepath.Join(t.TempDir(), "runstate.db"))
	require.NoError(t, err)
	defer p.Close()

	exerciseArea(t, p.Area("device:a"))
}

func TestSQLiteProvider_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runstate.db")

	p, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, p.Area("device:a").SetItem(runstate.PlannedRunKey, `{"x":1}`))
	require.NoError(t, p.Area("device:b").SetItem(runstate.RunSessionKey, `{}`))
	require.NoError(t, p.Close())

	p, err = OpenSQLite(path)
	require.NoError(t, err)
	defer p.Close()

	value, ok, err := p.Area("device:a").GetItem(runstate.PlannedRunKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"x":1}`, value)

	scopes, err := p.Scopes()
	require.NoError(t, err)
	assert.Equal(t, []string{"device:a", "device:b"}, scopes)
}

func TestOpen(t *testing.T) {
	p, err := Open(config.StorageConfig{Driver: config.DriverMemory}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryProvider{}, p)
	p.Close()

	p, err = Open(config.StorageConfig{Driver: config.DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "x.db")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLProvider{}, p)
	p.Close()

	_, err = Open(config.StorageConfig{Driver: config.DriverPostgres}, nil)
	assert.Error(t, err)

	_, err = Open(config.StorageConfig{Driver: "etcd"}, nil)
	assert.Error(t, err)
}

type brokenStorage struct{}

func (brokenStorage) GetItem(string) (string, bool, error) { return "", false, assert.AnError }
func (brokenStorage) SetItem(string, string) error         { return assert.AnError }
func (brokenStorage) RemoveItem(string) error              { return assert.AnError }

func TestInstrument_PassesErrorsThrough(t *testing.T) {
	assert.Nil(t, Instrument("local", nil))

	s := Instrument("local", brokenStorage{})
	_, _, err := s.GetItem("k")
	assert.ErrorIs(t, err, assert.AnError)
	assert.ErrorIs(t, s.SetItem("k", "v"), assert.AnError)
	assert.ErrorIs(t, s.RemoveItem("k"), assert.AnError)
}

func samplePayload() models.PlannedRunPayload {
	return models.PlannedRunPayload{
		Start: models.Coordinates{Lat: 37.33, Lng: -121.89},
		End:   models.Coordinates{Lat: 37.33, Lng: -121.89},
		Jobs: []models.Job{
			{ID: "job-1", Address: "1 First St", Lat: 37.331, Lng: -121.891, Status: models.JobStatusScheduled, JobType: models.JobTypePutOut},
		},
	}
}

func TestRepositoryOverProviders(t *testing.T) {
	sessions := NewMemoryProvider(0)
	defer sessions.Close()
	durable, err := OpenSQLite(filepath.Join(t.TempDir(), "runstate.db"))
	require.NoError(t, err)
	defer durable.Close()

	backends := func(session string) []runstate.Backend {
		return []runstate.Backend{
			{Name: "session", Storage: sessions.Area("session:" + session)},
			{Name: "sqlite", Storage: durable.Area("device:d1")},
		}
	}
	day := runstate.NewOperationalDay(4, time.UTC)

	first := runstate.NewRepository(backends("tab1"), nil, day, time.Now)
	require.True(t, first.WritePlannedRun(samplePayload()))

	// A new tab has an empty session area but the same device
	second := runstate.NewRepository(backends("tab2"), nil, day, time.Now)
	plan := second.ReadPlannedRun()
	require.NotNil(t, plan)
	assert.Len(t, plan.Jobs, 1)

	_, ok, _ := sessions.Area("session:tab2").GetItem(runstate.PlannedRunKey)
	assert.True(t, ok, "read back-fills the session area")
}
