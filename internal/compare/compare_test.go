package compare

import (
	"testing"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"

	"github.com/atmx/paper-ledger/internal/model"
	"github.com/atmx/paper-ledger/internal/money"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestDelta(t *testing.T) {
	tests := []struct {
		name           string
		curr, prev     string
		higherIsBetter bool
		pct            string
		dir            Direction
		sent           Sentiment
	}{
		{"gain", "110", "100", true, "10", Up, Positive},
		{"loss", "90", "100", true, "-10", Down, Negative},
		{"cost went down", "90", "100", false, "-10", Down, Positive},
		{"cost went up", "110", "100", false, "10", Up, Negative},
		{"equal", "100", "100", true, "0", Neutral, NeutralSentiment},
		{"zero previous", "50", "0", true, "0", Neutral, NeutralSentiment},
		{"negative previous", "-50", "-100", true, "50", Up, Positive},
		{"inside band", "100.005", "100", true, "0.005", Neutral, NeutralSentiment},
		{"just outside band", "100.011", "100", true, "0.011", Up, Positive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Delta(d(tt.curr), d(tt.prev), tt.higherIsBetter)
			if !c.DiffPct.Equal(d(tt.pct)) {
				t.Errorf("diffPct: expected %s, got %s", tt.pct, c.DiffPct)
			}
			if c.Direction != tt.dir {
				t.Errorf("direction: expected %s, got %s", tt.dir, c.Direction)
			}
			if c.Sentiment != tt.sent {
				t.Errorf("sentiment: expected %s, got %s", tt.sent, c.Sentiment)
			}
		})
	}
}

func TestProperty_EqualValuesAreNeutral(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := decimal.New(rapid.Int64().Draw(t, "v"), -int32(rapid.IntRange(0, 6).Draw(t, "scale")))
		hib := rapid.Bool().Draw(t, "higherIsBetter")
		c := Delta(v, v, hib)
		if c.Direction != Neutral || c.Sentiment != NeutralSentiment {
			t.Fatalf("Delta(%s, %s) = %s/%s", v, v, c.Direction, c.Sentiment)
		}
	})
}

func TestBestOf(t *testing.T) {
	states := []State{
		{Label: "Q1", Metrics: []Metric{{ID: "return", Value: d("5")}, {ID: "drawdown", Value: d("12"), LowerIsBetter: true}}},
		{Label: "Q2", Metrics: []Metric{{ID: "return", Value: d("8")}, {ID: "drawdown", Value: d("7"), LowerIsBetter: true}}},
		{Label: "Q3", Metrics: []Metric{{ID: "return", Value: d("8")}, {ID: "drawdown", Value: d("7"), LowerIsBetter: true}}},
		{Label: "Q4", Metrics: []Metric{{ID: "drawdown", Value: d("9"), LowerIsBetter: true}}},
	}

	if i, ok := BestOf("return", states); !ok || i != 1 {
		t.Errorf("return: expected first of tied maxima (1), got %d %v", i, ok)
	}
	if i, ok := BestOf("drawdown", states); !ok || i != 1 {
		t.Errorf("drawdown: expected first of tied minima (1), got %d %v", i, ok)
	}
	if _, ok := BestOf("sharpe", states); ok {
		t.Error("expected ok=false for a metric no state has")
	}
	if _, ok := BestOf("return", nil); ok {
		t.Error("expected ok=false for no states")
	}
}

func TestSeries(t *testing.T) {
	states := []State{
		{Label: "Jan", Metrics: []Metric{{ID: "value", Value: d("100")}}},
		{Label: "Feb", Metrics: []Metric{{ID: "value", Value: d("120")}}},
		{Label: "Mar", Metrics: []Metric{{ID: "value", Value: d("90")}}},
	}
	steps := Series(states)
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if steps[0].Label != "Feb" || steps[0].Changes[0].Direction != Up {
		t.Errorf("unexpected first step %+v", steps[0])
	}
	if !steps[1].Changes[0].DiffPct.Equal(d("-25")) {
		t.Errorf("expected -25%%, got %s", steps[1].Changes[0].DiffPct)
	}
	if Series(states[:1]) != nil {
		t.Error("expected nil series for a single state")
	}
}

func TestDiff_SkipsMissingMetrics(t *testing.T) {
	curr := State{Metrics: []Metric{{ID: "a", Value: d("1")}, {ID: "b", Value: d("2")}}}
	prev := State{Metrics: []Metric{{ID: "b", Value: d("1")}}}
	changes := Diff(curr, prev)
	if len(changes) != 1 || changes[0].MetricID != "b" {
		t.Errorf("unexpected changes %+v", changes)
	}
}

func TestSummaryState(t *testing.T) {
	before := SummaryState("before", model.WalletSummary{
		CashBalance: money.MustParse("10000"),
		TotalValue:  money.MustParse("10000"),
	})
	after := SummaryState("after", model.WalletSummary{
		CashBalance: money.MustParse("8220"),
		TotalValue:  money.MustParse("10000"),
	})
	changes := Diff(after, before)
	if len(changes) != 4 {
		t.Fatalf("expected 4 changes, got %d", len(changes))
	}
	if changes[0].MetricID != MetricCash || changes[0].Direction != Down {
		t.Errorf("cash change: %+v", changes[0])
	}
	if changes[1].Direction != Neutral {
		t.Errorf("total value should be unchanged: %+v", changes[1])
	}
}
