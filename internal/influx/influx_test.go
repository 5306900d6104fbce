package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markerlab/markerlab/internal/config"
)

func TestPoint(t *testing.T) {
	ts := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)
	p := Point(Activity{
		Kind:    "shot_add",
		SceneID: "12",
		Tags:    map[string]string{"outcome": "fill-gap"},
		Fields:  map[string]any{"actions": 2},
		Time:    ts,
	})

	assert.Equal(t, Measurement, p.Name())
	assert.Equal(t, ts, p.Time())

	tags := make(map[string]string)
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	assert.Equal(t, map[string]string{"kind": "shot_add", "scene": "12", "outcome": "fill-gap"}, tags)

	fields := make(map[string]any)
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	assert.Equal(t, int64(1), fields["count"])
	assert.Equal(t, int64(2), fields["actions"])
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	assert.NoError(t, r.Record(context.Background(), Activity{Kind: "x"}))
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{Enabled: false})
	assert.Error(t, m.Connect(context.Background()))
}

func TestRecord_NotConnected(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{})
	assert.Error(t, m.Record(context.Background(), Activity{Kind: "x"}))
}

func TestConnect_UnreachableFallsBackToBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.lp.gz")
	m := NewManager(zerolog.Nop(), config.InfluxConfig{
		Enabled:    true,
		Protocol:   "http",
		Host:       "127.0.0.1",
		Port:       "1",
		Org:        "markerlab",
		Bucket:     "review-activity",
		BackupPath: path,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Connect(ctx))
	require.NoError(t, m.Record(ctx, Activity{Kind: "review", SceneID: "12", Time: time.Unix(100, 0)}))
	require.NoError(t, m.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(gz)
	require.NoError(t, err)

	assert.Contains(t, string(data), "markerlab_activity,kind=review,scene=12 count=1i 100000000000")
}

func TestConnect_UnreachableWithoutBackupPath(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{Enabled: true, Protocol: "http", Host: "127.0.0.1", Port: "1"})
	assert.Error(t, m.Connect(context.Background()))
}
