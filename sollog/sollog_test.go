package sollog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog_AppendReplayRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "improving.sol")

	l, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, l.Append(12.5, []float64{1, 0, 3}))
	require.NoError(t, l.Append(10.0, []float64{1, 1, 2}))
	require.NoError(t, l.Append(7.25, []float64{0, 2, 2}))
	assert.Equal(t, 3, l.NumRecords())
	require.NoError(t, l.Close())

	var got []Record
	require.NoError(t, Replay(path, func(r Record) error {
		got = append(got, r)
		return nil
	}))
	require.Len(t, got, 3)
	assert.Equal(t, 12.5, got[0].Objective)
	assert.Equal(t, []float64{1, 1, 2}, got[1].Solution)
	assert.Equal(t, 7.25, got[2].Objective)
}

func TestLog_Uncompressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.sol")

	l, err := Open(path, func(o *Options) { o.Compress = false; o.Sync = true })
	require.NoError(t, err)
	require.NoError(t, l.Append(-3.0, []float64{0.5}))
	require.NoError(t, l.Close())

	var count int
	require.NoError(t, Replay(path, func(r Record) error {
		count++
		assert.Equal(t, -3.0, r.Objective)
		return nil
	}))
	assert.Equal(t, 1, count)
}

func TestLog_AppendAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "closed.sol")

	l, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, l.Close())

	assert.ErrorIs(t, l.Append(1.0, nil), ErrClosed)
	// Close is idempotent.
	assert.NoError(t, l.Close())
}

func TestReplay_RejectsCorruptHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.sol")
	require.NoError(t, os.WriteFile(path, []byte("notalog"), 0640))

	err := Replay(path, func(Record) error { return nil })
	assert.ErrorIs(t, err, ErrCorrupt)
}
