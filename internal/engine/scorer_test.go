package engine

import (
	"testing"

	"github.com/spaelabs/manifoldbot/internal/domain"
)

// --- RankTraders tests ---

func TestRankTraders_CombinedRanking(t *testing.T) {
	traders := []domain.Trader{
		{ID: "a", TotalDeposits: 100, Profit: 50},   // ratio 0.5, mid absolute
		{ID: "b", TotalDeposits: 1000, Profit: 200}, // ratio 0.2, best absolute
		{ID: "c", TotalDeposits: 100, Profit: -20},  // worst on both
	}

	ranked := RankTraders(traders)
	if len(ranked) != 3 {
		t.Fatalf("expected 3 ranked traders, got %d", len(ranked))
	}

	// a: percentage rank 0 + absolute rank 1 = 1
	// b: percentage rank 1 + absolute rank 0 = 1
	// c: percentage rank 2 + absolute rank 2 = 4
	// The a/b tie keeps encounter order.
	wantOrder := []string{"a", "b", "c"}
	for i, want := range wantOrder {
		if ranked[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, ranked[i].ID)
		}
	}

	wantScores := []float64{1.0 / 3, -1.0 / 3, -1}
	for i, want := range wantScores {
		if !approxEqual(ranked[i].Score, want) {
			t.Errorf("score[%d]: expected %g, got %g", i, want, ranked[i].Score)
		}
	}
}

func TestRankTraders_SkipsUnrankable(t *testing.T) {
	traders := []domain.Trader{
		{ID: "no-deposits", TotalDeposits: 0, Profit: 500},
		{ID: "zero-profit", TotalDeposits: 100, Profit: 0},
		{ID: "ok", TotalDeposits: 100, Profit: 10},
	}

	ranked := RankTraders(traders)
	if len(ranked) != 1 {
		t.Fatalf("expected 1 ranked trader, got %d", len(ranked))
	}
	if ranked[0].ID != "ok" {
		t.Errorf("expected ok, got %s", ranked[0].ID)
	}
}

func TestRankTraders_Empty(t *testing.T) {
	if got := RankTraders(nil); got != nil {
		t.Errorf("expected nil for no traders, got %v", got)
	}
	unrankable := []domain.Trader{{ID: "x", TotalDeposits: 0, Profit: 1}}
	if got := RankTraders(unrankable); got != nil {
		t.Errorf("expected nil when nothing is rankable, got %v", got)
	}
}

func TestRankTraders_SingleTrader(t *testing.T) {
	ranked := RankTraders([]domain.Trader{{ID: "solo", TotalDeposits: 100, Profit: 10}})
	if len(ranked) != 1 {
		t.Fatalf("expected 1 ranked trader, got %d", len(ranked))
	}
	// ((1 - 1/1) - 0.5) * 2
	if !approxEqual(ranked[0].Score, -1) {
		t.Errorf("expected single trader score -1, got %g", ranked[0].Score)
	}
}

func TestRankTraders_ScoreBounds(t *testing.T) {
	traders := make([]domain.Trader, 0, 10)
	for i := 0; i < 10; i++ {
		traders = append(traders, domain.Trader{
			ID:            string(rune('a' + i)),
			TotalDeposits: 100,
			Profit:        float64(100 - 10*i),
		})
	}

	ranked := RankTraders(traders)
	if len(ranked) != 10 {
		t.Fatalf("expected 10 ranked traders, got %d", len(ranked))
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score >= ranked[i-1].Score {
			t.Errorf("scores must strictly decrease down the ranking: [%d]=%g [%d]=%g",
				i-1, ranked[i-1].Score, i, ranked[i].Score)
		}
	}
	if !approxEqual(ranked[0].Score, 0.8) {
		t.Errorf("best of 10: expected score 0.8, got %g", ranked[0].Score)
	}
	if !approxEqual(ranked[9].Score, -1) {
		t.Errorf("worst of 10: expected score -1, got %g", ranked[9].Score)
	}
}

// --- OperatorScore tests ---

func TestOperatorScore_Found(t *testing.T) {
	ranked := []domain.ScoredTrader{
		scoredTrader("x", 0.9, 0),
		scoredTrader("op", 0.1, 0),
	}
	score, ok := OperatorScore(ranked, "op")
	if !ok {
		t.Fatal("expected operator to be found")
	}
	if score != 0.1 {
		t.Errorf("expected score 0.1, got %g", score)
	}
}

func TestOperatorScore_NotRanked(t *testing.T) {
	ranked := []domain.ScoredTrader{scoredTrader("x", 0.9, 0)}
	score, ok := OperatorScore(ranked, "op")
	if ok {
		t.Fatal("expected operator to be absent")
	}
	if score != 0 {
		t.Errorf("expected neutral score 0, got %g", score)
	}
}

// --- ScoreIndex tests ---

func TestScoreIndex_Lookup(t *testing.T) {
	ranked := []domain.ScoredTrader{
		scoredTrader("a", 0.5, 100),
		scoredTrader("b", -0.5, 200),
	}
	idx := ScoreIndex(ranked)
	if len(idx) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(idx))
	}
	if got := idx["b"].Score; got != -0.5 {
		t.Errorf("expected b score -0.5, got %g", got)
	}
	if _, ok := idx["missing"]; ok {
		t.Error("unexpected entry for missing trader")
	}
}
