// internal/engine/engine.go

// Package engine is the in-process facade over the evaluation pipeline:
// scenario matching, rule resolution, component calculation, discrepancy
// detection, and claim adjudication against one immutable graph snapshot.
//
// An Engine is safe for concurrent use: the graph is read-only after load
// and every evaluation works on caller-supplied facts. Swapping in a new
// rule set means building a new graph and a new engine; in-flight
// evaluations keep the snapshot they started with.
package engine

import (
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jbandu/crew-pay/internal/calculator"
	"github.com/jbandu/crew-pay/internal/claims"
	"github.com/jbandu/crew-pay/internal/discrepancy"
	"github.com/jbandu/crew-pay/internal/resolver"
	"github.com/jbandu/crew-pay/internal/rulegraph"
	"github.com/jbandu/crew-pay/internal/scenario"
	"github.com/jbandu/crew-pay/internal/types"
)

// Options tunes pipeline behavior. Zero values get sensible defaults.
type Options struct {
	// Epsilon is the money comparison tolerance for detection and
	// adjudication. Default one cent.
	Epsilon decimal.Decimal

	// AutoFixCeiling bounds auto-fixable discrepancies. Default 50.
	AutoFixCeiling decimal.Decimal

	// AutoApproveThreshold marks small full approvals auto-approved.
	// Zero disables auto-approval.
	AutoApproveThreshold decimal.Decimal

	// StrictScenarios makes an evaluation with zero matched scenarios an
	// error instead of a base-pay-only calculation.
	StrictScenarios bool

	// Workers sizes the batch pool. Default 4.
	Workers int
}

const defaultWorkers = 4

// Engine evaluates pay against one loaded rule graph snapshot.
type Engine struct {
	graph       *rulegraph.Graph
	detector    *discrepancy.Detector
	adjudicator *claims.Adjudicator
	opts        Options
	log         *slog.Logger
	now         func() time.Time
}

// New builds an engine over a loaded graph. A nil logger discards logs.
func New(g *rulegraph.Graph, opts Options, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	e := &Engine{
		graph:    g,
		detector: discrepancy.NewDetector(opts.Epsilon, opts.AutoFixCeiling),
		opts:     opts,
		log:      log,
		now:      time.Now,
	}
	e.adjudicator = claims.NewAdjudicator(e, opts.Epsilon, opts.AutoApproveThreshold)
	return e
}

// EvaluatePay runs the full pipeline for one duty record:
// match scenarios, resolve rules, calculate components.
func (e *Engine) EvaluatePay(facts types.DutyFacts) (*types.PayCalculation, error) {
	asOf := e.now().UTC()

	var scenarios []types.ScenarioID
	if e.opts.StrictScenarios {
		matched, err := scenario.MatchStrict(facts, e.graph)
		if err != nil {
			return nil, err
		}
		scenarios = matched
	} else {
		scenarios = scenario.Match(facts, e.graph)
	}

	rs, err := resolver.Resolve(e.graph, scenarios, facts.CrewPosition, facts, asOf)
	if err != nil {
		return nil, err
	}

	calc, err := calculator.Calculate(rs, facts)
	if err != nil {
		return nil, err
	}
	calc.EvaluationID = types.NewEvaluationID()
	calc.CalculatedAt = asOf

	e.log.Debug("pay evaluated",
		"evaluation_id", calc.EvaluationID,
		"position", calc.CrewPosition,
		"scenarios", len(calc.Scenarios),
		"rules", len(calc.RuleCodes),
		"total", calc.Total.String())
	return calc, nil
}

// Detect evaluates expected pay and compares it against the recorded
// payment. Returns nil when the amounts agree within tolerance.
func (e *Engine) Detect(facts types.DutyFacts, actual decimal.Decimal) (*types.Discrepancy, error) {
	calc, err := e.EvaluatePay(facts)
	if err != nil {
		return nil, err
	}
	d := e.detector.Detect(calc, actual)
	if d == nil {
		return nil, nil
	}
	d.DetectedAt = e.now().UTC()
	e.log.Info("discrepancy detected",
		"evaluation_id", d.EvaluationID,
		"severity", d.Severity,
		"difference", d.Difference.String(),
		"auto_fixable", d.AutoFixable)
	return d, nil
}

// Adjudicate decides a crew claim by recomputing expected pay.
func (e *Engine) Adjudicate(claim types.ClaimFacts) (*types.ClaimDecision, error) {
	decision, err := e.adjudicator.Adjudicate(claim)
	if err != nil {
		return nil, err
	}
	decision.DecidedAt = e.now().UTC()
	e.log.Info("claim adjudicated",
		"claim_id", decision.ClaimID,
		"verdict", decision.Verdict,
		"approved", decision.ApprovedAmount.String(),
		"auto_approved", decision.AutoApproved)
	return decision, nil
}
