// Package compare computes metric deltas between periods or between a
// current and a proposed state, and picks the best state for a metric.
// Everything here is pure and safe to call concurrently.
package compare

import (
	"github.com/shopspring/decimal"

	"github.com/atmx/paper-ledger/internal/model"
)

// Direction is the sign of a change beyond the neutral band.
type Direction string

const (
	Up      Direction = "up"
	Down    Direction = "down"
	Neutral Direction = "neutral"
)

// Sentiment is how a change reads given the metric's polarity.
type Sentiment string

const (
	Positive         Sentiment = "positive"
	Negative         Sentiment = "negative"
	NeutralSentiment Sentiment = "neutral"
)

var (
	hundred = decimal.NewFromInt(100)
	// band is the |diffPct| at or below which a change is neutral.
	band = decimal.RequireFromString("0.01")
)

// pctPlaces is the precision of a percentage change.
const pctPlaces = 4

// Metric is one named value of a state. Metrics are higher-is-better unless
// LowerIsBetter is set.
type Metric struct {
	ID            string          `json:"id"`
	Value         decimal.Decimal `json:"value"`
	LowerIsBetter bool            `json:"lower_is_better,omitempty"`
}

func (m Metric) higherIsBetter() bool { return !m.LowerIsBetter }

// State is a labelled set of metrics: a period, a scenario or a wallet
// before/after a trade.
type State struct {
	Label   string   `json:"label"`
	Metrics []Metric `json:"metrics"`
}

// Metric returns the metric with the given id.
func (s State) Metric(id string) (Metric, bool) {
	for _, m := range s.Metrics {
		if m.ID == id {
			return m, true
		}
	}
	return Metric{}, false
}

// Change is the delta between two values of one metric.
type Change struct {
	MetricID  string          `json:"metric_id,omitempty"`
	Current   decimal.Decimal `json:"current"`
	Previous  decimal.Decimal `json:"previous"`
	Diff      decimal.Decimal `json:"diff"`
	DiffPct   decimal.Decimal `json:"diff_pct"`
	Direction Direction       `json:"direction"`
	Sentiment Sentiment       `json:"sentiment"`
}

// Delta compares curr against prev.
//
//	diffPct   = prev == 0 ? 0 : (curr − prev) / |prev| × 100
//	direction = up above +0.01%, down below −0.01%, else neutral
//	sentiment = neutral when neutral, else positive iff (up == higherIsBetter)
func Delta(curr, prev decimal.Decimal, higherIsBetter bool) Change {
	c := Change{
		Current:  curr,
		Previous: prev,
		Diff:     curr.Sub(prev),
		DiffPct:  decimal.Zero,
	}
	pct := decimal.Zero
	if !prev.IsZero() {
		pct = c.Diff.Mul(hundred).Div(prev.Abs())
		c.DiffPct = pct.Round(pctPlaces)
	}

	switch {
	case pct.GreaterThan(band):
		c.Direction = Up
	case pct.LessThan(band.Neg()):
		c.Direction = Down
	default:
		c.Direction = Neutral
	}

	switch {
	case c.Direction == Neutral:
		c.Sentiment = NeutralSentiment
	case (c.Direction == Up) == higherIsBetter:
		c.Sentiment = Positive
	default:
		c.Sentiment = Negative
	}
	return c
}

// Diff returns the change of every metric of curr that prev also has, in
// curr's metric order. Polarity is taken from curr.
func Diff(curr, prev State) []Change {
	changes := make([]Change, 0, len(curr.Metrics))
	for _, m := range curr.Metrics {
		p, ok := prev.Metric(m.ID)
		if !ok {
			continue
		}
		c := Delta(m.Value, p.Value, m.higherIsBetter())
		c.MetricID = m.ID
		changes = append(changes, c)
	}
	return changes
}

// Step is the period-over-period change into states[Index].
type Step struct {
	Index   int      `json:"index"`
	Label   string   `json:"label"`
	Changes []Change `json:"changes"`
}

// Series returns Diff(states[i], states[i-1]) for every i ≥ 1.
func Series(states []State) []Step {
	if len(states) < 2 {
		return nil
	}
	steps := make([]Step, 0, len(states)-1)
	for i := 1; i < len(states); i++ {
		steps = append(steps, Step{
			Index:   i,
			Label:   states[i].Label,
			Changes: Diff(states[i], states[i-1]),
		})
	}
	return steps
}

// BestOf returns the index of the state with the highest value of metricID,
// or the lowest when the metric is lower-is-better. Ties go to the earliest
// state. States without the metric are skipped; ok is false when no state
// has it.
func BestOf(metricID string, states []State) (index int, ok bool) {
	var best decimal.Decimal
	index = -1
	for i, s := range states {
		m, has := s.Metric(metricID)
		if !has {
			continue
		}
		if index < 0 {
			index, best = i, m.Value
			continue
		}
		better := m.Value.GreaterThan(best)
		if m.LowerIsBetter {
			better = m.Value.LessThan(best)
		}
		if better {
			index, best = i, m.Value
		}
	}
	return index, index >= 0
}

// Wallet summary metric ids.
const (
	MetricCash      = "cash_balance"
	MetricValue     = "total_value"
	MetricGainLoss  = "total_gain_loss"
	MetricDayChange = "day_change"
)

// SummaryState turns a wallet summary into a comparable State.
func SummaryState(label string, s model.WalletSummary) State {
	return State{
		Label: label,
		Metrics: []Metric{
			{ID: MetricCash, Value: s.CashBalance.Decimal()},
			{ID: MetricValue, Value: s.TotalValue.Decimal()},
			{ID: MetricGainLoss, Value: s.TotalGainLoss.Decimal()},
			{ID: MetricDayChange, Value: s.DayChange.Decimal()},
		},
	}
}
