package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/replay"
)

var eventTypes = []domain.EventType{
	domain.EventPriceSubmitted,
	domain.EventTokenDeposited,
	domain.EventTokenWithdrawn,
	domain.EventVoted,
	domain.EventBlacklistStatusChanged,
	domain.EventFunded,
	domain.EventOwnershipTransferred,
	domain.EventPaused,
	domain.EventUnpaused,
	domain.EventValueRead,
}

// ReplayStats holds replay statistics.
type ReplayStats struct {
	Oracle         domain.Address           `json:"oracle"`
	Name           string                   `json:"name"`
	TotalEvents    int                      `json:"total_events"`
	ByType         map[domain.EventType]int `json:"by_type"`
	FirstEventTime uint64                   `json:"first_event_time"`
	LastEventTime  uint64                   `json:"last_event_time"`
	Rebuilt        *RebuiltState            `json:"rebuilt,omitempty"`
	Divergences    []replay.Divergence      `json:"divergences,omitempty"`
}

// RebuiltState is the state derived from a full event log.
type RebuiltState struct {
	AggregatedPrice string           `json:"aggregated_price"`
	TotalDeposited  string           `json:"total_deposited"`
	Balance         string           `json:"balance"`
	RewardsPaid     string           `json:"rewards_paid"`
	Owner           domain.Address   `json:"owner"`
	Paused          bool             `json:"paused"`
	Blacklisted     []domain.Address `json:"blacklisted"`
	Submissions     uint64           `json:"submissions"`
}

// LoggingEngine implements replay.ReplayEngine: it prints every event and,
// when the log is replayed from its first event, rebuilds the oracle state.
type LoggingEngine struct {
	info       domain.OracleInfo
	outputJSON bool
	out        io.Writer
	rebuilder  *replay.Rebuilder
	stats      ReplayStats
}

// NewLoggingEngine creates a new logging engine.
func NewLoggingEngine(info domain.OracleInfo, outputJSON bool, out io.Writer) *LoggingEngine {
	return &LoggingEngine{
		info:       info,
		outputJSON: outputJSON,
		out:        out,
		stats: ReplayStats{
			Oracle: info.Oracle,
			Name:   info.Config.Name,
			ByType: make(map[domain.EventType]int),
		},
	}
}

// OnEvent processes an event.
func (e *LoggingEngine) OnEvent(ctx context.Context, event *domain.Event) error {
	if e.stats.TotalEvents == 0 && event.Sequence == 1 {
		e.rebuilder = replay.NewRebuilder(e.info)
	}
	e.stats.TotalEvents++
	e.stats.ByType[event.Type]++

	if e.stats.FirstEventTime == 0 || event.Timestamp < e.stats.FirstEventTime {
		e.stats.FirstEventTime = event.Timestamp
	}
	if event.Timestamp > e.stats.LastEventTime {
		e.stats.LastEventTime = event.Timestamp
	}

	if e.rebuilder != nil {
		if err := e.rebuilder.OnEvent(ctx, event); err != nil {
			return err
		}
	}

	if !e.outputJSON {
		fmt.Fprintf(e.out, "[%s] seq=%d type=%s%s\n",
			time.Unix(int64(event.Timestamp), 0).UTC().Format(time.RFC3339),
			event.Sequence,
			event.Type,
			describe(event),
		)
	}
	return nil
}

// Stats returns replay statistics, including the rebuilt state when available.
func (e *LoggingEngine) Stats() *ReplayStats {
	st := e.stats
	if e.rebuilder == nil {
		return &st
	}
	s := e.rebuilder.State()
	st.Rebuilt = &RebuiltState{
		AggregatedPrice: s.Consensus.AggregatedPrice.String(),
		TotalDeposited:  s.TotalDeposited.String(),
		Balance:         s.Balance.String(),
		RewardsPaid:     s.RewardsPaid.String(),
		Owner:           s.Owner,
		Paused:          s.Paused,
		Blacklisted:     s.BlacklistedList(),
		Submissions:     s.Submissions,
	}
	st.Divergences = e.rebuilder.Divergences()
	return &st
}

func describe(e *domain.Event) string {
	switch e.Type {
	case domain.EventPriceSubmitted:
		return fmt.Sprintf(" submitter=%s value=%s aggregate=%s final=%v", e.Account, e.Value, e.Aggregate, e.Flag)
	case domain.EventTokenDeposited, domain.EventTokenWithdrawn, domain.EventFunded:
		return fmt.Sprintf(" account=%s amount=%s", e.Account, e.Amount)
	case domain.EventVoted:
		return fmt.Sprintf(" voter=%s kind=%s target=%s weight=%s", e.Account, e.Kind, e.Target, e.Weight)
	case domain.EventBlacklistStatusChanged:
		return fmt.Sprintf(" target=%s blacklisted=%v", e.Target, e.Flag)
	case domain.EventOwnershipTransferred:
		return fmt.Sprintf(" from=%s to=%s", e.Account, e.Target)
	case domain.EventValueRead:
		return fmt.Sprintf(" reader=%s value=%s latest=%v", e.Account, e.Value, e.Flag)
	default:
		return fmt.Sprintf(" account=%s", e.Account)
	}
}

var _ replay.ReplayEngine = (*LoggingEngine)(nil)
