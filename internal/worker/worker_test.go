package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pydron/pydron/internal/task"
	"github.com/pydron/pydron/internal/tick"
	"github.com/pydron/pydron/internal/value"
)

func TestSetAndGetValueRoundTrips(t *testing.T) {
	w := New("w1", "alpha")
	id := value.NewID(tick.Start, "x")

	size, ok, err := w.SetValue(id, value.Int(7), true, false)
	require.NoError(t, err)
	require.True(t, ok)
	require.Greater(t, size, 0)

	got, err := w.GetValue(context.Background(), id)
	require.NoError(t, err)
	require.True(t, got.RawEquals(value.Int(7)))
}

func TestSetValueRejectsDuplicateID(t *testing.T) {
	w := New("w1", "alpha")
	id := value.NewID(tick.Start, "x")

	_, _, err := w.SetValue(id, value.Int(1), true, false)
	require.NoError(t, err)

	_, _, err = w.SetValue(id, value.Int(2), true, false)
	require.Error(t, err)
}

func TestFetchFromPullsFromPeerWorkerOnlyOnce(t *testing.T) {
	ctx := context.Background()
	src := New("w1", "source")
	dst := New("w2", "dest")

	id := value.NewID(tick.Start, "x")
	_, _, err := src.SetValue(id, value.Str("hello"), true, false)
	require.NoError(t, err)

	tr, err := dst.FetchFrom(ctx, src, id)
	require.NoError(t, err)
	require.NotNil(t, tr)
	require.Greater(t, tr.ByteCount, 0)

	got, err := dst.GetValue(ctx, id)
	require.NoError(t, err)
	require.True(t, got.RawEquals(value.Str("hello")))

	tr2, err := dst.FetchFrom(ctx, src, id)
	require.NoError(t, err)
	require.Nil(t, tr2, "a value already present locally should not be re-fetched")
}

func TestFreeRemovesTheValue(t *testing.T) {
	ctx := context.Background()
	w := New("w1", "alpha")
	id := value.NewID(tick.Start, "x")
	_, _, err := w.SetValue(id, value.Int(1), true, false)
	require.NoError(t, err)

	require.NoError(t, w.Free(ctx, id))

	_, err = w.GetValue(ctx, id)
	require.Error(t, err)

	// Freeing an id that is no longer present is not an error, matching
	// the teacher's Worker.free.
	require.NoError(t, w.Free(ctx, id))
}

func TestCopyCreatesAnIndependentValue(t *testing.T) {
	ctx := context.Background()
	w := New("w1", "alpha")
	src := value.NewID(tick.Start, "x")
	dest := value.NewID(tick.Start, "y")

	_, _, err := w.SetValue(src, value.Int(5), true, false)
	require.NoError(t, err)
	require.NoError(t, w.Copy(ctx, src, dest))

	got, err := w.GetValue(ctx, dest)
	require.NoError(t, err)
	require.True(t, got.RawEquals(value.Int(5)))

	require.NoError(t, w.Free(ctx, src))
	got, err = w.GetValue(ctx, dest)
	require.NoError(t, err, "freeing the source must not affect the copy")
	require.True(t, got.RawEquals(value.Int(5)))
}

func TestCopyRejectsExistingDestination(t *testing.T) {
	ctx := context.Background()
	w := New("w1", "alpha")
	src := value.NewID(tick.Start, "x")
	dest := value.NewID(tick.Start, "y")
	_, _, err := w.SetValue(src, value.Int(5), true, false)
	require.NoError(t, err)
	_, _, err = w.SetValue(dest, value.Int(6), true, false)
	require.NoError(t, err)

	require.Error(t, w.Copy(ctx, src, dest))
}

func TestEvaluateFetchesRemoteInputsAndIngestsOutputsAsIDs(t *testing.T) {
	ctx := context.Background()
	src := New("w1", "source")
	dst := New("w2", "dest")

	aID := value.NewID(tick.Start, "a")
	bID := value.NewID(tick.Start, "b")
	_, _, err := src.SetValue(aID, value.Int(3), true, false)
	require.NoError(t, err)
	_, _, err = src.SetValue(bID, value.Int(4), true, false)
	require.NoError(t, err)

	at := tick.Start.Increment(1)
	result, err := dst.Evaluate(ctx, at, &task.BinOpTask{Op: task.Add}, map[string]Input{
		"left":  {ID: aID, Worker: src},
		"right": {ID: bID, Worker: src},
	}, nil)
	require.NoError(t, err)
	require.Len(t, result.Outputs, 1)
	require.Len(t, result.TransferResults, 2)

	outID := result.Outputs["value"]
	got, err := dst.GetValue(ctx, outID)
	require.NoError(t, err)
	require.True(t, got.RawEquals(value.Int(7)))
}

func TestEvaluateRejectsNonEvaluableTask(t *testing.T) {
	ctx := context.Background()
	w := New("w1", "alpha")
	_, err := w.Evaluate(ctx, tick.Start.Increment(1), &task.If{}, nil, nil)
	require.Error(t, err)
}
