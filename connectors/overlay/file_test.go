package overlay

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dc "rebar-stats/domain/config"
	"rebar-stats/domain/shipment"
)

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "status.csv"))
	ov, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ov)
}

func TestFileStore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "status.csv")
	s := NewFileStore(path)
	at := time.Date(2025, 3, 20, 8, 0, 0, 0, time.UTC)
	ov := shipment.Overlay{
		"b": {Status: shipment.StatusNotArrived, UpdatedAt: at},
		"a": {Status: shipment.StatusArrived, UpdatedAt: at.Add(time.Hour)},
	}
	require.NoError(t, s.Save(context.Background(), ov))

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ov, got)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fingerprint,status,updated_at\n"+
		"a,arrived,2025-03-20T09:00:00Z\n"+
		"b,not_arrived,2025-03-20T08:00:00Z\n", string(b))
}

func TestFileStore_SaveReplaces(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "status.csv"))
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, shipment.Overlay{"a": {Status: shipment.StatusArrived}}))
	require.NoError(t, s.Save(ctx, shipment.Overlay{}))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFileStore_SkipsUnknownStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.csv")
	require.NoError(t, os.WriteFile(path, []byte("fingerprint,status,updated_at\nx,lost,2025-03-20T08:00:00Z\ny,已到货,2025-03-20T08:00:00Z\n"), 0o644))

	got, err := NewFileStore(path).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, shipment.StatusArrived, got["y"].Status)
}

func TestFileStore_MissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.csv")
	require.NoError(t, os.WriteFile(path, []byte("fingerprint,status\nx,arrived\n"), 0o644))

	_, err := NewFileStore(path).Load(context.Background())
	assert.Error(t, err)
}

func TestFileStore_WorksWithStatusService(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "status.csv"))
	svc := shipment.NewStatusService(s, nil)
	o := shipment.Order{Department: "甲", Material: "螺纹钢", Supplier: "S"}

	res, err := svc.SetStatus(context.Background(), o, shipment.StatusArrived)
	require.NoError(t, err)

	ov, err := NewFileStore(s.path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, shipment.StatusArrived, ov.Get(res.Fingerprint).Status)
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.csv")
	s, closeFn, err := Open(context.Background(), dc.Status{Store: "file", Path: path})
	require.NoError(t, err)
	require.NoError(t, closeFn())
	assert.IsType(t, &FileStore{}, s)

	_, _, err = Open(context.Background(), dc.Status{Store: "postgres"})
	assert.Error(t, err)

	_, _, err = Open(context.Background(), dc.Status{Store: "redis"})
	assert.Error(t, err)
}

func TestFileStore_LogsMalformedTimestamp(t *testing.T) {
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "status.csv")
	require.NoError(t, os.WriteFile(path, []byte("fingerprint,status,updated_at\nx,arrived,20/03/2025\ny,not_arrived,2025-03-20T08:00:00Z\n"), 0o644))

	got, err := NewFileStore(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, shipment.StatusArrived, got["x"].Status)
	assert.True(t, got["x"].UpdatedAt.IsZero())
	assert.False(t, got["y"].UpdatedAt.IsZero())

	out := logs.String()
	assert.Contains(t, out, "overlay.file.updated_at.invalid")
	assert.Contains(t, out, "line=2")
	assert.NotContains(t, out, "line=3")
}
