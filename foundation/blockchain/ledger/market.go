package ledger

import (
	"maps"

	"github.com/marketchain/marketchain/foundation/blockchain/database"
)

// Status is the lifecycle state of a market.
type Status string

// Set of market states. A market moves from Open to Resolved exactly once.
const (
	StatusOpen     Status = "open"
	StatusResolved Status = "resolved"
)

// Stake is the cumulative amount a bettor has wagered on each option of a
// market. Both sides are tracked independently.
type Stake struct {
	A uint64 `json:"a"`
	B uint64 `json:"b"`
}

// On returns the amount staked on the specified option.
func (s Stake) On(option database.Option) uint64 {
	if option == database.OptionA {
		return s.A
	}
	return s.B
}

// add returns the stake with amount added to option.
func (s Stake) add(option database.Option, amount uint64) Stake {
	if option == database.OptionA {
		s.A += amount
		return s
	}
	s.B += amount
	return s
}

// Market represents a prediction question with two outcomes.
type Market struct {
	ID       string                       `json:"id"`
	Question string                       `json:"question"`
	OptionA  string                       `json:"option_a"`
	OptionB  string                       `json:"option_b"`
	Creator  database.AccountID           `json:"creator"`
	EndTime  uint64                       `json:"end_time"`
	Status   Status                       `json:"status"`
	Winner   database.Option              `json:"winner,omitempty"`
	Stakes   map[database.AccountID]Stake `json:"stakes"`
}

// Label returns the human label for the option.
func (m Market) Label(option database.Option) string {
	if option == database.OptionA {
		return m.OptionA
	}
	return m.OptionB
}

// Pool returns the total staked on the option across all bettors.
func (m Market) Pool(option database.Option) uint64 {
	var total uint64
	for _, stake := range m.Stakes {
		total += stake.On(option)
	}
	return total
}

// Total returns the sum of both pools. Application keeps it within a uint64.
func (m Market) Total() uint64 {
	return m.Pool(database.OptionA) + m.Pool(database.OptionB)
}

// IsResolved reports whether a winner has been set.
func (m Market) IsResolved() bool {
	return m.Status == StatusResolved
}

// clone returns a deep copy so callers can never reach ledger state.
func (m Market) clone() Market {
	m.Stakes = maps.Clone(m.Stakes)
	if m.Stakes == nil {
		m.Stakes = make(map[database.AccountID]Stake)
	}
	return m
}
