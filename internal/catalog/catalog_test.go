package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"arrayviz/internal/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddGetListDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	sum, err := s.Add(ctx, "sum", "total = 0\nfor x in [1, 2, 3]:\n    total += x\n")
	require.NoError(t, err)
	require.Len(t, sum.ID, 36)
	require.Equal(t, fixed, sum.CreatedAt)

	_, err = s.Add(ctx, "hello", "print(\"hello\")\n")
	require.NoError(t, err)

	byID, err := s.Get(ctx, sum.ID)
	require.NoError(t, err)
	require.Equal(t, sum, byID)

	byName, err := s.Get(ctx, "sum")
	require.NoError(t, err)
	require.Equal(t, sum.ID, byName.ID)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "hello", list[0].Name)
	require.Equal(t, "sum", list[1].Name)

	require.NoError(t, s.Delete(ctx, "hello"))
	_, err = s.Get(ctx, "hello")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, s.Delete(ctx, "hello"), ErrNotFound)

	list, err = s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestAddRejects(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.Add(ctx, "dup", "x = 1\n")
	require.NoError(t, err)

	_, err = s.Add(ctx, "dup", "x = 2\n")
	require.ErrorIs(t, err, ErrExists)

	_, err = s.Add(ctx, "  ", "x = 1\n")
	require.Error(t, err)

	_, err = s.Add(ctx, "broken", "x = (1\n")
	require.Error(t, err)
	e, ok := errors.As(err)
	require.True(t, ok, "compile error lost in wrapping: %v", err)
	require.True(t, e.Type.CompileTime())

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "")
	require.ErrorContains(t, err, "unsupported database type: oracle")
}

func TestRebind(t *testing.T) {
	const q = `SELECT id FROM programs WHERE id = ? OR name = ?`
	tests := []struct {
		driver string
		want   string
	}{
		{"sqlite", q},
		{"mysql", q},
		{"postgres", `SELECT id FROM programs WHERE id = $1 OR name = $2`},
		{"sqlserver", `SELECT id FROM programs WHERE id = @p1 OR name = @p2`},
	}
	for _, tt := range tests {
		d, err := dialectFor(tt.driver)
		require.NoError(t, err)
		require.Equal(t, tt.want, d.rebind(q), tt.driver)
	}
}
