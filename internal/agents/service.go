// Package agents registers trading participants and issues their
// credentials. Agents are never deleted; their financial state is mutated
// only by the execution service.
package agents

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"

	"solana-agent-arena/internal/apperr"
	"solana-agent-arena/internal/domain"
	"solana-agent-arena/internal/money"
	"solana-agent-arena/internal/store"
)

// DefaultRiskLimits applies to fields the registration leaves unset.
var DefaultRiskLimits = domain.RiskLimits{
	MaxPositionSizePct:  0.25,
	MaxOrderNotionalUsd: 5_000,
	MaxGrossExposureUsd: 50_000,
	DailyLossCapUsd:     1_000,
	MaxDrawdownPct:      0.30,
	CooldownSeconds:     0,
}

// Service registers and looks up agents.
type Service struct {
	store  *store.Store
	logger *log.Logger
	now    func() time.Time
}

// Options configures a Service.
type Options struct {
	Store  *store.Store
	Logger *log.Logger
	Now    func() time.Time
}

// NewService creates an agent service.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{store: opts.Store, logger: logger, now: now}
}

// RegisterInput describes a new agent. Zero-valued limit fields take the
// platform defaults.
type RegisterInput struct {
	Name               string
	StrategyID         string
	StartingCapitalUsd float64
	RiskLimits         domain.RiskLimits
}

// Register creates an agent with a fresh credential and its starting
// capital as cash. The credential is returned once, on the created agent.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*domain.Agent, error) {
	if input.Name == "" {
		return nil, apperr.InvalidPayload("name is required")
	}
	if input.StartingCapitalUsd <= 0 {
		return nil, apperr.InvalidPayload("starting_capital_usd must be positive")
	}

	credential, err := newCredential()
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("issue credential: %v", err))
	}

	nowMs := s.now().UnixMilli()
	capital := money.Round(input.StartingCapitalUsd)
	agent := &domain.Agent{
		ID:                 uuid.NewString(),
		Name:               input.Name,
		Credential:         credential,
		StrategyID:         input.StrategyID,
		StartingCapitalUsd: capital,
		CashUsd:            capital,
		PeakEquityUsd:      capital,
		RiskLimits:         mergeLimits(input.RiskLimits),
		Positions:          make(map[string]*domain.Position),
		CreatedAt:          nowMs,
		UpdatedAt:          nowMs,
	}

	err = s.store.Update(ctx, func(state *domain.AppState) error {
		state.Agents[agent.ID] = agent.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Printf("agent %s registered: name=%q capital=%v", agent.ID, agent.Name, capital)
	return agent, nil
}

// Authenticate resolves a credential to its agent.
func (s *Service) Authenticate(_ context.Context, credential string) (*domain.Agent, error) {
	snap := s.store.Snapshot()
	for _, agent := range snap.Agents {
		if agent.Credential == credential {
			return agent, nil
		}
	}
	return nil, apperr.AgentNotFound("credential")
}

// UpdateRiskLimits replaces an agent's limits.
func (s *Service) UpdateRiskLimits(ctx context.Context, agentID string, limits domain.RiskLimits) error {
	return s.store.Update(ctx, func(state *domain.AppState) error {
		agent, ok := state.Agents[agentID]
		if !ok {
			return apperr.AgentNotFound(agentID)
		}
		agent.RiskLimits = limits
		agent.UpdatedAt = s.now().UnixMilli()
		return nil
	})
}

// newCredential returns 32 random bytes base58-encoded.
func newCredential() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base58.Encode(raw), nil
}

// mergeLimits fills zero-valued fields from the platform defaults.
func mergeLimits(limits domain.RiskLimits) domain.RiskLimits {
	if limits.MaxPositionSizePct == 0 {
		limits.MaxPositionSizePct = DefaultRiskLimits.MaxPositionSizePct
	}
	if limits.MaxOrderNotionalUsd == 0 {
		limits.MaxOrderNotionalUsd = DefaultRiskLimits.MaxOrderNotionalUsd
	}
	if limits.MaxGrossExposureUsd == 0 {
		limits.MaxGrossExposureUsd = DefaultRiskLimits.MaxGrossExposureUsd
	}
	if limits.DailyLossCapUsd == 0 {
		limits.DailyLossCapUsd = DefaultRiskLimits.DailyLossCapUsd
	}
	if limits.MaxDrawdownPct == 0 {
		limits.MaxDrawdownPct = DefaultRiskLimits.MaxDrawdownPct
	}
	if limits.CooldownSeconds == 0 {
		limits.CooldownSeconds = DefaultRiskLimits.CooldownSeconds
	}
	return limits
}
