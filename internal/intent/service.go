// Package intent is the write path for new trade intents: validation,
// durable recording, and idempotent replay of retried submissions.
package intent

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"solana-agent-arena/internal/apperr"
	"solana-agent-arena/internal/domain"
	"solana-agent-arena/internal/idhash"
	"solana-agent-arena/internal/observability"
	"solana-agent-arena/internal/store"
)

// Service creates trade intents.
type Service struct {
	store   *store.Store
	metrics *observability.Metrics
	logger  *log.Logger
	now     func() time.Time
}

// Options configures a Service.
type Options struct {
	Store *store.Store
	// Metrics is optional; nil disables Prometheus reporting.
	Metrics *observability.Metrics
	Logger  *log.Logger
	Now     func() time.Time
}

// NewService creates an intent service.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{store: opts.Store, metrics: opts.Metrics, logger: logger, now: now}
}

// CreateInput is a candidate trade intent. At least one of Quantity and
// NotionalUsd must be positive.
type CreateInput struct {
	AgentID       string
	Symbol        string
	Side          domain.Side
	Quantity      float64
	NotionalUsd   float64
	RequestedMode domain.Mode // empty selects the platform default at execution
	Meta          map[string]string
}

// CreateOptions carries optional submission parameters.
type CreateOptions struct {
	// IdempotencyKey scopes retry detection per agent. Empty means every
	// submission creates a fresh intent.
	IdempotencyKey string
}

// CreateResult is the outcome of Create.
type CreateResult struct {
	Intent *domain.TradeIntent
	// Replayed is true when an identical earlier submission was returned
	// instead of creating a new intent.
	Replayed bool
}

// Create validates and durably records a new pending intent.
//
// With an idempotency key, the lookup-then-insert runs inside one store
// transaction, so two concurrent identical submissions cannot both miss the
// ledger: exactly one creates the intent, the other replays it. A key reused
// with a different payload is a conflict error naming the original intent.
func (s *Service) Create(ctx context.Context, input CreateInput, opts *CreateOptions) (*CreateResult, error) {
	normalized, err := normalizeInput(input)
	if err != nil {
		return nil, err
	}

	requestHash := idhash.ComputeRequestHash(
		normalized.AgentID,
		normalized.Symbol,
		normalized.Side,
		normalized.Quantity,
		normalized.NotionalUsd,
		normalized.RequestedMode,
		normalized.Meta,
	)

	key := ""
	if opts != nil {
		key = opts.IdempotencyKey
	}

	nowMs := s.now().UnixMilli()
	result := &CreateResult{}

	err = s.store.Update(ctx, func(state *domain.AppState) error {
		if _, ok := state.Agents[normalized.AgentID]; !ok {
			return apperr.AgentNotFound(normalized.AgentID)
		}

		if key != "" {
			lookupKey := domain.IdempotencyLookupKey(normalized.AgentID, key)
			if rec, ok := state.Idempotency[lookupKey]; ok {
				existing, found := state.Intents[rec.IntentID]
				if !found {
					// The ledger points at an intent that does not exist.
					// Never fabricate state: fail loudly.
					return apperr.Internal(fmt.Sprintf(
						"idempotency record %q references missing intent %s", key, rec.IntentID))
				}
				if rec.RequestHash != requestHash {
					return apperr.IdempotencyConflict(key, rec.IntentID)
				}
				state.Metrics.IdempotencyReplays++
				result.Intent = existing.Clone()
				result.Replayed = true
				return nil
			}
		}

		created := &domain.TradeIntent{
			ID:             uuid.NewString(),
			AgentID:        normalized.AgentID,
			Symbol:         normalized.Symbol,
			Side:           normalized.Side,
			Quantity:       normalized.Quantity,
			NotionalUsd:    normalized.NotionalUsd,
			RequestedMode:  normalized.RequestedMode,
			Status:         domain.IntentStatusPending,
			IdempotencyKey: key,
			RequestHash:    requestHash,
			Meta:           normalized.Meta,
			CreatedAt:      nowMs,
			UpdatedAt:      nowMs,
		}
		state.Intents[created.ID] = created

		if key != "" {
			lookupKey := domain.IdempotencyLookupKey(normalized.AgentID, key)
			state.Idempotency[lookupKey] = &domain.IdempotencyRecord{
				AgentID:     normalized.AgentID,
				Key:         key,
				RequestHash: requestHash,
				IntentID:    created.ID,
				CreatedAt:   nowMs,
			}
		}

		state.Metrics.IntentsReceived++
		result.Intent = created.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		if result.Replayed {
			s.metrics.IdempotencyReplays.Inc()
		} else {
			s.metrics.IntentsReceived.Inc()
		}
	}
	if result.Replayed {
		s.logger.Printf("intent %s replayed for agent %s (key %q)",
			result.Intent.ID, normalized.AgentID, key)
	} else {
		s.logger.Printf("intent %s created: agent=%s %s %s qty=%v notional=%v",
			result.Intent.ID, normalized.AgentID, normalized.Side, normalized.Symbol,
			normalized.Quantity, normalized.NotionalUsd)
	}
	return result, nil
}

// normalizeInput validates and canonicalizes the submission. Symbols are
// upper-cased so the request hash and position keys are case-insensitive.
func normalizeInput(input CreateInput) (CreateInput, error) {
	if input.AgentID == "" {
		return input, apperr.InvalidPayload("agent_id is required")
	}
	input.Symbol = strings.ToUpper(strings.TrimSpace(input.Symbol))
	if input.Symbol == "" {
		return input, apperr.InvalidPayload("symbol is required")
	}
	if !input.Side.Valid() {
		return input, apperr.InvalidPayload(fmt.Sprintf("invalid side %q", input.Side))
	}
	if input.Quantity < 0 || input.NotionalUsd < 0 {
		return input, apperr.InvalidPayload("quantity and notional_usd must not be negative")
	}
	if input.Quantity == 0 && input.NotionalUsd == 0 {
		return input, apperr.InvalidPayload("one of quantity or notional_usd is required")
	}
	if input.RequestedMode != "" && !input.RequestedMode.Valid() {
		return input, apperr.InvalidPayload(fmt.Sprintf("invalid mode %q", input.RequestedMode))
	}
	if input.Meta != nil {
		// The committed intent must never alias caller memory.
		meta := make(map[string]string, len(input.Meta))
		for k, v := range input.Meta {
			meta[k] = v
		}
		input.Meta = meta
	}
	return input, nil
}
