// Package execution drives admitted trade intents to a terminal state:
// claim, risk admission, mode gating, paper or live fill, and the
// accounting mutation that moves the money.
package execution

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"solana-agent-arena/internal/apperr"
	"solana-agent-arena/internal/domain"
	"solana-agent-arena/internal/fees"
	"solana-agent-arena/internal/money"
	"solana-agent-arena/internal/observability"
	"solana-agent-arena/internal/risk"
	"solana-agent-arena/internal/store"
	"solana-agent-arena/internal/venue"
)

// Rejection reasons produced by the execution service itself, on top of the
// risk engine's reasons.
const (
	ReasonUnknownAgent          = "unknown_agent"
	ReasonMarketPriceMissing    = "market_price_missing"
	ReasonLiveModeNotConfigured = "live_mode_not_configured"
)

// DefaultSlippageBps bounds price movement on live swaps.
const DefaultSlippageBps = 50

// Service executes pending intents.
type Service struct {
	store   *store.Store
	venue   venue.Client
	fees    fees.Calculator
	metrics *observability.Metrics
	logger  *log.Logger

	defaultMode domain.Mode
	liveEnabled bool
	slippageBps int64
	quoteAsset  string
	now         func() time.Time
}

// Options configures a Service.
type Options struct {
	Store *store.Store
	Venue venue.Client
	Fees  fees.Calculator

	// Metrics is optional; nil disables Prometheus reporting.
	Metrics *observability.Metrics
	Logger  *log.Logger

	// DefaultMode applies when an intent requests no mode. Defaults to paper.
	DefaultMode domain.Mode
	// LiveEnabled is the platform-side live flag. Live execution requires
	// this AND the venue reporting itself ready, so neither a misconfigured
	// client nor a misconfigured platform can trade real funds alone.
	LiveEnabled bool
	// SlippageBps for live quotes. Defaults to DefaultSlippageBps.
	SlippageBps int64
	// QuoteAsset is the cash-side asset for live swaps. Defaults to USDC.
	QuoteAsset string
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// NewService creates an execution service.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	mode := opts.DefaultMode
	if mode == "" {
		mode = domain.ModePaper
	}
	slippage := opts.SlippageBps
	if slippage == 0 {
		slippage = DefaultSlippageBps
	}
	quoteAsset := opts.QuoteAsset
	if quoteAsset == "" {
		quoteAsset = "USDC"
	}
	return &Service{
		store:       opts.Store,
		venue:       opts.Venue,
		fees:        opts.Fees,
		metrics:     opts.Metrics,
		logger:      logger,
		defaultMode: mode,
		liveEnabled: opts.LiveEnabled,
		slippageBps: slippage,
		quoteAsset:  quoteAsset,
		now:         now,
	}
}

// ProcessIntent drives one intent to a terminal state and returns the
// intent as persisted. Calls are idempotent: the claim step is transactional,
// so of two concurrent calls on the same pending intent exactly one executes
// and the other observes the in-flight or terminal status and no-ops.
func (s *Service) ProcessIntent(ctx context.Context, intentID string) (*domain.TradeIntent, error) {
	start := s.now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ExecutionLatency.Observe(time.Since(start).Seconds())
		}
	}()

	// 1. Claim: pending → processing, single-flight.
	var claimed *domain.TradeIntent
	err := s.store.Update(ctx, func(state *domain.AppState) error {
		cur, ok := state.Intents[intentID]
		if !ok {
			return apperr.Internal(fmt.Sprintf("intent %s not found", intentID))
		}
		if cur.Status != domain.IntentStatusPending {
			// Another call claimed it, or it is already terminal.
			claimed = nil
			return nil
		}
		cur.Status = domain.IntentStatusProcessing
		cur.UpdatedAt = s.now().UnixMilli()
		claimed = cur.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if claimed == nil {
		snap := s.store.Snapshot()
		return snap.Intents[intentID], nil
	}
	intent := claimed

	mode := intent.RequestedMode
	if mode == "" {
		mode = s.defaultMode
	}

	// 2. Read agent and mark price from a consistent snapshot.
	snap := s.store.Snapshot()
	agent, ok := snap.Agents[intent.AgentID]
	if !ok {
		return s.settleFailure(ctx, intent, mode, 0, 0, ReasonUnknownAgent)
	}
	priceUsd, ok := snap.MarketPricesUsd[intent.Symbol]
	if !ok || priceUsd <= 0 {
		return s.reject(ctx, intent, ReasonMarketPriceMissing)
	}

	// 3. Risk admission.
	decision := risk.Evaluate(agent, intent, priceUsd, snap.MarketPricesUsd, s.now())
	if !decision.Approved {
		return s.reject(ctx, intent, decision.Reason)
	}

	// 4. Gate live mode: the platform flag AND venue readiness must both
	// hold, so neither side can enable real trading alone.
	if mode == domain.ModeLive && !(s.liveEnabled && s.venue.IsReadyForLive()) {
		return s.reject(ctx, intent, ReasonLiveModeNotConfigured)
	}

	// 5. Platform fee on the admitted notional.
	feeUsd := s.fees.ExecutionFeeUsd(decision.NotionalUsd)

	// 6. Paper: accounting mutation only.
	if mode == domain.ModePaper {
		return s.settle(ctx, intent, mode, decision, priceUsd, feeUsd, "")
	}

	// 7. Live: quote then swap, outside any transaction so external I/O
	// never holds the store's serialization point.
	txSignature, venueErr := s.executeLive(ctx, intent, decision)
	if venueErr != nil {
		return s.settleFailure(ctx, intent, mode, decision.Quantity, priceUsd, venueErr.Error())
	}
	return s.settle(ctx, intent, mode, decision, priceUsd, feeUsd, txSignature)
}

// executeLive obtains a quote and a swap confirmation from the venue.
// The returned error string embeds the upstream failure and is terminal:
// a swap that may have landed is never re-sent.
func (s *Service) executeLive(ctx context.Context, intent *domain.TradeIntent, decision risk.Decision) (string, error) {
	params := s.fees.VenueFeeParams()

	req := venue.QuoteRequest{
		SlippageBps: s.slippageBps,
		FeeBps:      params.FeeBps,
	}
	if intent.Side == domain.SideBuy {
		req.InAsset = s.quoteAsset
		req.OutAsset = intent.Symbol
		req.Amount = decision.NotionalUsd
	} else {
		req.InAsset = intent.Symbol
		req.OutAsset = s.quoteAsset
		req.Amount = decision.Quantity
	}

	quoteStart := s.now()
	quote, err := s.venue.Quote(ctx, req)
	if s.metrics != nil {
		s.metrics.VenueCallLatency.WithLabelValues("quote").Observe(time.Since(quoteStart).Seconds())
	}
	if err != nil {
		return "", fmt.Errorf("live_quote_error: %v", err)
	}

	swapStart := s.now()
	result, err := s.venue.SwapFromQuote(ctx, quote, params.FeeAccount)
	if s.metrics != nil {
		s.metrics.VenueCallLatency.WithLabelValues("swap").Observe(time.Since(swapStart).Seconds())
	}
	if err != nil {
		return "", fmt.Errorf("live_swap_error: %v", err)
	}
	return result.TxSignature, nil
}

// settle books the fill: inside one transaction it re-fetches the live
// agent and intent, applies the accounting mutation, and writes the
// execution record and terminal status.
func (s *Service) settle(ctx context.Context, intent *domain.TradeIntent, mode domain.Mode, decision risk.Decision, priceUsd, feeUsd float64, txSignature string) (*domain.TradeIntent, error) {
	nowMs := s.now().UnixMilli()
	var settled *domain.TradeIntent

	err := s.store.Update(ctx, func(state *domain.AppState) error {
		cur, ok := state.Intents[intent.ID]
		if !ok || cur.Status != domain.IntentStatusProcessing {
			return apperr.Internal(fmt.Sprintf("intent %s lost its processing claim", intent.ID))
		}
		agent, ok := state.Agents[intent.AgentID]
		if !ok {
			return apperr.Internal(fmt.Sprintf("agent %s disappeared during execution", intent.AgentID))
		}

		rec := &domain.ExecutionRecord{
			ID:               uuid.NewString(),
			IntentID:         cur.ID,
			AgentID:          agent.ID,
			Symbol:           cur.Symbol,
			Side:             cur.Side,
			Quantity:         decision.Quantity,
			PriceUsd:         priceUsd,
			GrossNotionalUsd: decision.NotionalUsd,
			FeeUsd:           feeUsd,
			Mode:             mode,
			TxSignature:      txSignature,
			CreatedAt:        nowMs,
		}

		outcome, accErr := applyFill(agent, fill{
			symbol:   cur.Symbol,
			side:     cur.Side,
			quantity: decision.Quantity,
			priceUsd: priceUsd,
			feeUsd:   feeUsd,
		}, nowMs, state.MarketPricesUsd)

		if accErr != nil {
			rec.Status = domain.ExecutionStatusFailed
			rec.FailureReason = accErr.Error()
			cur.Status = domain.IntentStatusFailed
			cur.StatusReason = accErr.Error()
			state.Metrics.IntentsFailed++
		} else {
			rec.Status = domain.ExecutionStatusFilled
			rec.NetUsd = outcome.NetUsd
			rec.RealizedPnlUsd = outcome.RealizedPnlUsd
			cur.Status = domain.IntentStatusExecuted
			cur.ExecutionID = rec.ID
			state.Metrics.IntentsExecuted++

			if feeUsd > 0 {
				state.Treasury.TotalFeesUsd = money.Add(state.Treasury.TotalFeesUsd, feeUsd)
				state.Treasury.Entries = append(state.Treasury.Entries, &domain.FeeEntry{
					Source:    domain.FeeSourceExecution,
					AmountUsd: feeUsd,
					RefID:     rec.ID,
					CreatedAt: nowMs,
				})
			}
		}

		cur.UpdatedAt = nowMs
		state.Executions[rec.ID] = rec
		settled = cur.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		switch settled.Status {
		case domain.IntentStatusExecuted:
			s.metrics.IntentsExecuted.WithLabelValues(string(mode)).Inc()
			s.metrics.FeesCollectedUsd.Add(feeUsd)
		case domain.IntentStatusFailed:
			s.metrics.IntentsFailed.WithLabelValues(settled.StatusReason).Inc()
		}
	}
	s.logger.Printf("intent %s -> %s (%s %s qty=%v price=%v fee=%v)",
		settled.ID, settled.Status, settled.Side, settled.Symbol,
		decision.Quantity, priceUsd, feeUsd)
	return settled, nil
}

// settleFailure records a failed execution attempt: a failed outcome always
// produces an execution record, even when no funds moved.
func (s *Service) settleFailure(ctx context.Context, intent *domain.TradeIntent, mode domain.Mode, quantity, priceUsd float64, reason string) (*domain.TradeIntent, error) {
	nowMs := s.now().UnixMilli()
	var settled *domain.TradeIntent

	err := s.store.Update(ctx, func(state *domain.AppState) error {
		cur, ok := state.Intents[intent.ID]
		if !ok || cur.Status != domain.IntentStatusProcessing {
			return apperr.Internal(fmt.Sprintf("intent %s lost its processing claim", intent.ID))
		}

		rec := &domain.ExecutionRecord{
			ID:            uuid.NewString(),
			IntentID:      cur.ID,
			AgentID:       cur.AgentID,
			Symbol:        cur.Symbol,
			Side:          cur.Side,
			Quantity:      quantity,
			PriceUsd:      priceUsd,
			Mode:          mode,
			Status:        domain.ExecutionStatusFailed,
			FailureReason: reason,
			CreatedAt:     nowMs,
		}
		state.Executions[rec.ID] = rec

		cur.Status = domain.IntentStatusFailed
		cur.StatusReason = reason
		cur.UpdatedAt = nowMs
		state.Metrics.IntentsFailed++
		settled = cur.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IntentsFailed.WithLabelValues(reason).Inc()
	}
	s.logger.Printf("intent %s failed: %s", settled.ID, reason)
	return settled, nil
}

// reject marks the intent rejected at admission time. Rejections are
// refusals, not attempts: no execution record is written.
func (s *Service) reject(ctx context.Context, intent *domain.TradeIntent, reason string) (*domain.TradeIntent, error) {
	nowMs := s.now().UnixMilli()
	var rejected *domain.TradeIntent

	err := s.store.Update(ctx, func(state *domain.AppState) error {
		cur, ok := state.Intents[intent.ID]
		if !ok || cur.Status != domain.IntentStatusProcessing {
			return apperr.Internal(fmt.Sprintf("intent %s lost its processing claim", intent.ID))
		}
		cur.Status = domain.IntentStatusRejected
		cur.StatusReason = reason
		cur.UpdatedAt = nowMs
		state.Metrics.IntentsRejected++

		if agent, ok := state.Agents[cur.AgentID]; ok {
			if agent.RiskRejectionsByReason == nil {
				agent.RiskRejectionsByReason = make(map[string]int64)
			}
			agent.RiskRejectionsByReason[reason]++
		}
		rejected = cur.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IntentsRejected.WithLabelValues(reason).Inc()
	}
	s.logger.Printf("intent %s rejected: %s", rejected.ID, reason)
	return rejected, nil
}
