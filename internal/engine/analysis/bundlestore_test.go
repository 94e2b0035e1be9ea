package analysis

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteBundleStore {
	t.Helper()
	store, err := OpenSQLiteBundleStore(filepath.Join(t.TempDir(), "analysis.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBundleStore_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	fp := Fingerprint("resume text", "jd text")
	require.NoError(t, store.Put(ctx, &Bundle{
		JobID:             42,
		Fingerprint:       fp,
		ResumeRaw:         "resume text",
		ResumeAIOptimized: "resume, optimized",
		JDRaw:             "jd text",
		TokensUsed:        1200,
		CostUSD:           0.034,
	}))

	got, err := store.Get(ctx, 42, fp)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, fp, got.Fingerprint)
	require.Equal(t, "resume, optimized", got.ResumeAIOptimized)
	require.Equal(t, 1200, got.TokensUsed)
	require.InDelta(t, 0.034, got.CostUSD, 1e-9)
	require.NotEmpty(t, got.CreatedAt)
	require.NotEmpty(t, got.UpdatedAt)
}

func TestBundleStore_FingerprintMismatchIsMiss(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	fp := Fingerprint("resume", "jd")
	require.NoError(t, store.Put(ctx, &Bundle{JobID: 1, Fingerprint: fp}))

	// Same job, edited documents: miss, not an error.
	got, err := store.Get(ctx, 1, Fingerprint("resume", "jd v2"))
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestBundleStore_AbsentIsMiss(t *testing.T) {
	store := openTestStore(t)

	got, err := store.Get(context.Background(), 999, Fingerprint("a", "b"))
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestBundleStore_UpsertReplaces(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	fp1 := Fingerprint("resume v1", "jd")
	require.NoError(t, store.Put(ctx, &Bundle{
		JobID: 7, Fingerprint: fp1, ResumeRaw: "resume v1", ResumeDetailed: "detailed v1",
	}))

	// New fingerprint replaces the old bundle entirely, it does not version.
	fp2 := Fingerprint("resume v2", "jd")
	require.NoError(t, store.Put(ctx, &Bundle{
		JobID: 7, Fingerprint: fp2, ResumeRaw: "resume v2",
	}))

	got, err := store.Get(ctx, 7, fp2)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "resume v2", got.ResumeRaw)
	require.Empty(t, got.ResumeDetailed)

	old, err := store.Get(ctx, 7, fp1)
	require.NoError(t, err)
	require.Nil(t, old)
}

func TestBundleStore_Invalidate(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	fp := Fingerprint("resume", "jd")
	require.NoError(t, store.Put(ctx, &Bundle{JobID: 3, Fingerprint: fp}))
	require.NoError(t, store.Invalidate(ctx, 3))

	got, err := store.Get(ctx, 3, fp)
	require.NoError(t, err)
	require.Nil(t, got)

	// Invalidating an absent job is not an error.
	require.NoError(t, store.Invalidate(ctx, 3))
}
