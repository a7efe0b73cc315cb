// Package pipeline orchestrates the request path: detection, policy,
// anonymization, and session bookkeeping, plus the response path through the
// output filter.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/privata-ai/privata-oss/pkg/anonymize"
	"github.com/privata-ai/privata-oss/pkg/config"
	"github.com/privata-ai/privata-oss/pkg/detect"
	"github.com/privata-ai/privata-oss/pkg/outputguard"
	"github.com/privata-ai/privata-oss/pkg/policy"
	"github.com/privata-ai/privata-oss/pkg/session"
	"github.com/privata-ai/privata-oss/pkg/telemetry"
)

// ConfigSource supplies the live configuration; *config.FileProvider
// satisfies it.
type ConfigSource interface {
	Current() *config.Config
}

// Request is one piece of text headed to an external model.
type Request struct {
	TenantID  string `json:"tenant_id"`
	SessionID string `json:"session_id,omitempty"`
	Role      string `json:"role,omitempty"`
	Text      string `json:"text"`
}

// Result is the gateway's verdict for a request. OutboundText is what may be
// forwarded: empty when blocked, sanitized when the decision requires it, the
// original text otherwise.
type Result struct {
	SessionID     string            `json:"session_id"`
	Decision      policy.Decision   `json:"decision"`
	Analysis      detect.Analysis   `json:"analysis"`
	SanitizedText string            `json:"sanitized_text,omitempty"`
	OutboundText  string            `json:"outbound_text,omitempty"`
	Summary       anonymize.Summary `json:"summary"`
}

// Options configure a Gateway.
type Options struct {
	Config   ConfigSource
	Sessions *session.Store
	Metrics  *telemetry.Metrics
	Logger   zerolog.Logger
}

// Gateway runs the full guard pipeline. It is safe for concurrent use.
type Gateway struct {
	scanner   *detect.Scanner
	sessions  *session.Store
	cfg       ConfigSource
	overrides map[string]*policy.OverrideEngine
	metrics   *telemetry.Metrics
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// New builds a Gateway, compiling any tenant Rego override modules up front
// so broken policy fails at startup.
func New(ctx context.Context, opts Options) (*Gateway, error) {
	if opts.Config == nil {
		return nil, errors.New("pipeline: config source is required")
	}
	if opts.Sessions == nil {
		return nil, errors.New("pipeline: session store is required")
	}

	overrides := make(map[string]*policy.OverrideEngine)
	for tenantID, tc := range opts.Config.Current().Tenants {
		if len(tc.RegoModules) == 0 {
			continue
		}
		engine, err := policy.NewOverrideEngine(ctx, policy.OverrideOptions{Modules: tc.RegoModules})
		if err != nil {
			return nil, fmt.Errorf("pipeline: tenant %s: %w", tenantID, err)
		}
		overrides[tenantID] = engine
	}

	return &Gateway{
		scanner:   detect.Default(),
		sessions:  opts.Sessions,
		cfg:       opts.Config,
		overrides: overrides,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		tracer:    otel.Tracer("privata/pipeline"),
	}, nil
}

// Process guards one outbound request. A missing SessionID opens a new
// session owned by the tenant. Any internal failure past detection decides
// BLOCK rather than letting unsanitized text through.
func (g *Gateway) Process(ctx context.Context, req Request) (Result, error) {
	ctx, span := g.tracer.Start(ctx, "pipeline.process")
	defer span.End()

	if req.TenantID == "" {
		return Result{}, errors.New("pipeline: tenant id is required")
	}

	if g.metrics != nil {
		start := time.Now()
		defer func() {
			g.metrics.ObserveProcessDuration(time.Since(start).Seconds())
		}()
	}

	analysis := g.scanner.Analyze(req.Text)
	span.SetAttributes(telemetry.SanitizeAttributes(telemetry.AnalysisAttributes(analysis))...)
	if g.metrics != nil {
		g.metrics.RecordAnalysis(analysis)
	}

	subject := policy.Subject{TenantID: req.TenantID, Role: req.Role}
	decision := policy.Decide(analysis, subject)

	cfg := g.cfg.Current()
	decision = policy.Intersect(decision, analysis, cfg.CategoryRules(req.TenantID))

	if engine, ok := g.overrides[req.TenantID]; ok && !decision.Blocked() {
		decision = g.applyOverride(ctx, engine, decision, analysis, subject)
	}

	telemetry.RecordDecision(span, decision)
	if g.metrics != nil {
		g.metrics.RecordDecision(decision)
	}

	result := Result{SessionID: req.SessionID, Decision: decision, Analysis: analysis}
	if decision.Blocked() {
		g.logDecision(req, decision)
		return result, nil
	}

	sanitized, summary, err := sanitize(req.Text, analysis.Findings)
	if err != nil {
		// Fail closed: unsanitizable text never leaves.
		g.logger.Error().Err(err).Str("tenant_id", req.TenantID).Msg("sanitization failed, blocking")
		result.Decision = policy.Decision{
			Action:      policy.ActionBlock,
			ReasonCodes: append(decision.ReasonCodes, policy.ReasonHighRisk),
			UserMessage: policy.MessageFor(policy.ReasonHighRisk),
		}
		return result, nil
	}
	result.SanitizedText = sanitized
	result.Summary = summary

	sessionID, err := g.trackSession(req, analysis.Findings)
	if err != nil {
		return Result{}, err
	}
	result.SessionID = sessionID

	if decision.Action == policy.ActionWarnAndSanitize {
		result.OutboundText = sanitized
	} else {
		result.OutboundText = req.Text
	}

	g.logDecision(req, decision)
	return result, nil
}

// ProcessResponse screens a model response against the session's entity map.
func (g *Gateway) ProcessResponse(ctx context.Context, tenantID, sessionID, text string) (outputguard.Report, error) {
	_, span := g.tracer.Start(ctx, "pipeline.process_response")
	defer span.End()

	entities, err := g.sessions.SnapshotEntities(sessionID, tenantID)
	if err != nil {
		return outputguard.Report{}, err
	}

	report := outputguard.ScanOutput(text, entities)
	telemetry.RecordOutputReport(span, report)
	if g.metrics != nil {
		g.metrics.RecordOutputReport(report)
	}

	if !report.Safe {
		g.logger.Warn().
			Str("tenant_id", tenantID).
			Str("session_id", sessionID).
			Int("findings", len(report.Findings)).
			Msg("response masked by output filter")
	}
	return report, nil
}

// applyOverride evaluates the tenant's Rego modules. Evaluation errors fail
// closed.
func (g *Gateway) applyOverride(ctx context.Context, engine *policy.OverrideEngine, base policy.Decision, analysis detect.Analysis, subject policy.Subject) policy.Decision {
	categories := make([]string, 0, len(analysis.Findings))
	for _, f := range analysis.Findings {
		categories = append(categories, string(f.Category))
	}

	verdict, err := engine.Evaluate(ctx, policy.OverrideInput{
		TenantID:     subject.TenantID,
		Role:         subject.Role,
		RiskLevel:    analysis.RiskLevel,
		AnomalyScore: analysis.AnomalyScore,
		Categories:   categories,
	})
	if err != nil {
		g.logger.Error().Err(err).Str("tenant_id", subject.TenantID).Msg("override evaluation failed, blocking")
		return policy.Apply(base, policy.RuleBlock)
	}
	return policy.Apply(base, verdict)
}

// trackSession records the request's findings in the owning session,
// creating one when the caller has none yet.
func (g *Gateway) trackSession(req Request, findings []detect.Finding) (string, error) {
	sessionID := req.SessionID
	if sessionID == "" {
		sess, err := g.sessions.Create(req.TenantID)
		if err != nil {
			return "", err
		}
		sessionID = sess.ID
	}
	if err := g.sessions.ExtendEntities(sessionID, req.TenantID, findings); err != nil {
		return "", err
	}
	if g.metrics != nil {
		g.metrics.SetActiveSessions(g.sessions.Count())
	}
	return sessionID, nil
}

// sanitize wraps the anonymizer so a panic on adversarial input surfaces as
// an error the caller can fail closed on.
func sanitize(text string, findings []detect.Finding) (sanitized string, summary anonymize.Summary, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline: anonymizer panic: %v", r)
		}
	}()

	result := anonymize.Anonymize(text, findings)
	return result.SanitizedText, result.Summary, nil
}

func (g *Gateway) logDecision(req Request, decision policy.Decision) {
	g.logger.Info().
		Str("tenant_id", req.TenantID).
		Str("role", req.Role).
		Str("action", string(decision.Action)).
		Interface("reasons", decision.ReasonCodes).
		Msg("policy decision")
}
