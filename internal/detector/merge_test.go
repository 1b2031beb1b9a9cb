package detector

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/entity"
)

func TestMergeEmpty(t *testing.T) {
	assert.Empty(t, Merge(nil, DefaultMergeOptions()))
}

func TestMergeProximity(t *testing.T) {
	spans := []entity.Span{
		{Start: 10, End: 15, Label: entity.Person},
		{Start: 0, End: 4, Label: entity.Person},
		{Start: 5, End: 9, Label: entity.Person},
		{Start: 20, End: 25, Label: entity.Date},
	}
	got := Merge(spans, DefaultMergeOptions())
	assert.Equal(t, []entity.Span{
		{Start: 0, End: 15, Label: entity.Person},
		{Start: 20, End: 25, Label: entity.Date},
	}, got)

	strict := Merge(spans, MergeOptions{ProximityThreshold: 0})
	assert.Len(t, strict, 4)
}

func TestMergeLabelPolicy(t *testing.T) {
	spans := []entity.Span{
		{Start: 0, End: 10, Label: entity.SensitiveNumber},
		{Start: 3, End: 8, Label: entity.Date},
	}
	byPriority := Merge(spans, MergeOptions{ProximityThreshold: 1, LabelPolicy: LabelByPriority})
	require.Len(t, byPriority, 1)
	assert.Equal(t, entity.Date, byPriority[0].Label)

	firstSeen := Merge(spans, MergeOptions{ProximityThreshold: 1, LabelPolicy: LabelFirstSeen})
	require.Len(t, firstSeen, 1)
	assert.Equal(t, entity.SensitiveNumber, firstSeen[0].Label)
}

func TestMergeTieBreakIgnoresInputOrder(t *testing.T) {
	a := []entity.Span{{Start: 0, End: 5, Label: entity.Location}, {Start: 0, End: 5, Label: entity.Person}}
	b := []entity.Span{a[1], a[0]}
	for _, policy := range []LabelPolicy{LabelByPriority, LabelFirstSeen} {
		opts := MergeOptions{ProximityThreshold: 1, LabelPolicy: policy}
		assert.Equal(t, Merge(a, opts), Merge(b, opts))
	}
}

func TestMergeProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 200; iter++ {
		var spans []entity.Span
		covered := map[int]bool{}
		for i := 0; i < rng.Intn(12); i++ {
			start := rng.Intn(100)
			end := start + 1 + rng.Intn(10)
			spans = append(spans, entity.Span{Start: start, End: end, Label: entity.All[rng.Intn(len(entity.All))]})
			for p := start; p < end; p++ {
				covered[p] = true
			}
		}
		merged := Merge(spans, DefaultMergeOptions())

		for i := 1; i < len(merged); i++ {
			assert.Less(t, merged[i-1].End, merged[i].Start, "merged spans must be ordered and disjoint")
		}
		for p := range covered {
			inside := false
			for _, m := range merged {
				if m.Start <= p && p < m.End {
					inside = true
					break
				}
			}
			assert.True(t, inside, "byte %d lost by merge", p)
		}
	}
}
