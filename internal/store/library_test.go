package store

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/runcost/internal/ir"
)

func specHash(t *testing.T, spec ir.SeriesSpec) string {
	t.Helper()
	h, err := ir.SpecHash(spec)
	require.NoError(t, err)
	return h
}

func testSpec(name string, rate float64) ir.SeriesSpec {
	return ir.SeriesSpec{
		Name:       name,
		Label:      "Label " + name,
		StartValue: 1000,
		RunningCost: &ir.RunningCostSpec{
			Plot:   ir.PlotAlongside,
			Prefix: "Paid: ",
		},
		Components: []ir.ComponentSpec{
			{Kind: ir.KindCompoundInterest, Rate: rate, Every: 1, Unit: "months"},
			{Kind: ir.KindPayment, Amount: 25.5, Every: 2, Unit: "weeks"},
		},
		Window: &ir.WindowSpec{Start: "2024-01-01", End: "2025-01-01"},
	}
}

func TestSave_InsertsAndRoundTrips(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, WithIDGenerator(NewFixedGenerator("spec-1", "rev-1")))

	spec := testSpec("savings", 0.05)
	spec.Line = 12

	rec, changed, err := s.Save(ctx, spec)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "spec-1", rec.ID)
	assert.Equal(t, specHash(t, spec), rec.ContentHash)
	assert.Equal(t, int64(1), rec.Seq)
	assert.Equal(t, ir.SpecVersion, rec.SpecVersion)
	assert.Equal(t, ir.EngineVersion, rec.EngineVersion)

	got, err := s.Get(ctx, "savings")
	require.NoError(t, err)

	want := spec
	want.Line = 0
	assert.Equal(t, want, got.Spec)
	assert.Equal(t, rec, got)
}

func TestSave_IdenticalSpecIsNoOp(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, WithIDGenerator(NewFixedGenerator("spec-1", "rev-1")))

	first, changed, err := s.Save(ctx, testSpec("savings", 0.05))
	require.NoError(t, err)
	require.True(t, changed)

	// A second write would exhaust the fixed generator and panic.
	again, changed, err := s.Save(ctx, testSpec("savings", 0.05))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, first, again)
}

func TestSave_ChangedSpecKeepsIDAndAddsRevision(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, WithIDGenerator(NewFixedGenerator("spec-1", "rev-1", "rev-2")))

	first, _, err := s.Save(ctx, testSpec("savings", 0.05))
	require.NoError(t, err)

	second, changed, err := s.Save(ctx, testSpec("savings", 0.07))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, first.ID, second.ID)
	assert.NotEqual(t, first.ContentHash, second.ContentHash)
	assert.Equal(t, int64(2), second.Seq)

	got, err := s.Get(ctx, "savings")
	require.NoError(t, err)
	assert.Equal(t, 0.07, got.Spec.Components[0].Rate)

	revs, err := s.Revisions(ctx, "savings")
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, []string{"rev-1", "rev-2"}, []string{revs[0].ID, revs[1].ID})
	assert.Equal(t, 0.05, revs[0].Spec.Components[0].Rate)
	assert.Equal(t, 0.07, revs[1].Spec.Components[0].Rate)
}

func TestSave_RequiresName(t *testing.T) {
	s := createTestStore(t)
	_, _, err := s.Save(context.Background(), testSpec(" ", 0.05))
	assert.ErrorContains(t, err, "name is required")
}

func TestSave_RejectsNonFinite(t *testing.T) {
	s := createTestStore(t)
	spec := testSpec("bad", 0.05)
	spec.StartValue = math.Inf(1)

	_, _, err := s.Save(context.Background(), spec)
	assert.ErrorContains(t, err, "non-finite")
}

func TestGet_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestList_OrderedByName(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	empty, err := s.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	for _, name := range []string{"zeta", "Alpha", "beta"} {
		_, _, err := s.Save(ctx, testSpec(name, 0.01))
		require.NoError(t, err)
	}

	recs, err := s.List(ctx)
	require.NoError(t, err)

	names := make([]string, len(recs))
	for i, r := range recs {
		names[i] = r.Name
	}
	assert.Equal(t, []string{"Alpha", "beta", "zeta"}, names, "binary collation puts uppercase first")
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, _, err := s.Save(ctx, testSpec("savings", 0.05))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "savings"))

	_, err = s.Get(ctx, "savings")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Revisions(ctx, "savings")
	assert.ErrorIs(t, err, ErrNotFound)

	var orphans int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM spec_revisions").Scan(&orphans))
	assert.Equal(t, 0, orphans, "revisions cascade with their spec")

	assert.ErrorIs(t, s.Delete(ctx, "savings"), ErrNotFound)
}

func TestFixedGenerator_Exhausted(t *testing.T) {
	g := NewFixedGenerator("a")
	assert.Equal(t, "a", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}

func TestUUIDv7Generator(t *testing.T) {
	g := UUIDv7Generator{}
	a, b := g.Generate(), g.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
