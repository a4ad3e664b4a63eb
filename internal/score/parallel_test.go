package score

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-roc/internal/dataset"
	"github.com/inodb/vibe-roc/internal/gct"
)

// wideDataset builds n gene sets over 6 samples with distinct scores.
func wideDataset(n int) *dataset.Dataset {
	m := &gct.Matrix{Samples: []string{"S1", "S2", "S3", "S4", "S5", "S6"}}
	for i := 0; i < n; i++ {
		m.GeneSets = append(m.GeneSets, fmt.Sprintf("GS%03d", i))
		m.Values = append(m.Values, []float64{
			float64(i), float64(i + 1), float64(i + 2), float64(-i), 0.5, float64(i % 3),
		})
	}
	return &dataset.Dataset{
		Matrix:        m,
		Positive:      []bool{true, true, true, false, false, false},
		PositiveClass: "case",
		NegativeClass: "control",
		NumPositive:   3,
		NumNegative:   3,
	}
}

func makeItems(n int) <-chan WorkItem {
	ch := make(chan WorkItem, n)
	for i := 0; i < n; i++ {
		ch <- WorkItem{Seq: i, Row: i}
	}
	close(ch)
	return ch
}

func TestParallelScore_OrderPreservation(t *testing.T) {
	s := NewScorer(wideDataset(200))

	results := s.ParallelScore(makeItems(200), 8)

	var collected []int
	err := OrderedCollect(results, func(r WorkResult) error {
		collected = append(collected, r.Seq)
		assert.Equal(t, fmt.Sprintf("GS%03d", r.Row), r.Result.GeneSet)
		return nil
	})
	require.NoError(t, err)

	assert.Len(t, collected, 200)
	for i, seq := range collected {
		assert.Equal(t, i, seq, "result %d out of order", i)
	}
}

func TestParallelScore_SingleWorker(t *testing.T) {
	s := NewScorer(wideDataset(50))

	results := s.ParallelScore(makeItems(50), 1)

	var collected []int
	err := OrderedCollect(results, func(r WorkResult) error {
		collected = append(collected, r.Seq)
		return nil
	})
	require.NoError(t, err)

	assert.Len(t, collected, 50)
	for i, seq := range collected {
		assert.Equal(t, i, seq)
	}
}

func TestParallelScore_EmptyInput(t *testing.T) {
	s := NewScorer(wideDataset(1))

	ch := make(chan WorkItem)
	close(ch)
	results := s.ParallelScore(ch, 4)

	count := 0
	err := OrderedCollect(results, func(r WorkResult) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestOrderedCollect_EarlyError(t *testing.T) {
	s := NewScorer(wideDataset(100))

	results := s.ParallelScore(makeItems(100), 4)

	count := 0
	err := OrderedCollect(results, func(r WorkResult) error {
		count++
		if count == 5 {
			return fmt.Errorf("stop at 5")
		}
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, 5, count)
}

func TestParallelScore_MatchesSequential(t *testing.T) {
	s := NewScorer(wideDataset(30))

	err := OrderedCollect(s.ParallelScore(makeItems(30), 3), func(r WorkResult) error {
		want, wantErr := s.Score(r.Row)
		assert.Equal(t, wantErr, r.Err)
		if diff := cmp.Diff(want, r.Result, cmpopts.EquateNaNs()); diff != "" {
			t.Errorf("row %d mismatch (-sequential +parallel):\n%s", r.Row, diff)
		}
		return nil
	})
	require.NoError(t, err)
}
