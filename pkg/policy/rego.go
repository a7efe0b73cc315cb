package policy

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/open-policy-agent/opa/ast"
	"github.com/open-policy-agent/opa/rego"

	"github.com/privata-ai/privata-oss/pkg/detect"
)

// OverrideOptions control construction of a Rego-backed tenant override
// evaluator.
type OverrideOptions struct {
	// Entrypoint is the decision path, e.g. "privata/override".
	Entrypoint string
	// Modules contains the Rego modules to load.
	Modules map[string]string
	// CacheMaxEntries bounds the verdict cache (LRU). Zero selects the
	// default size; negative disables caching.
	CacheMaxEntries int
}

// OverrideInput is the evaluation payload. It deliberately carries only
// category tags, counts, and subject attributes: finding values and raw text
// never reach tenant policy code.
type OverrideInput struct {
	TenantID     string
	Role         string
	RiskLevel    detect.RiskLevel
	AnomalyScore int
	Categories   []string
}

// OverrideEngine evaluates tenant-supplied Rego modules against an analysis
// summary. Its verdict can only tighten the baseline decision; looser
// verdicts are ignored by Apply.
type OverrideEngine struct {
	entrypoint string
	prepared   rego.PreparedEvalQuery
	cache      *verdictCache
}

const (
	defaultOverrideEntrypoint = "privata/override"
	defaultCacheCapacity      = 1024
)

// NewOverrideEngine parses and compiles the supplied modules, warming the
// entrypoint so syntax errors surface at startup rather than per request.
func NewOverrideEngine(ctx context.Context, opts OverrideOptions) (*OverrideEngine, error) {
	entry := strings.TrimSpace(opts.Entrypoint)
	if entry == "" {
		entry = defaultOverrideEntrypoint
	}
	if len(opts.Modules) == 0 {
		return nil, errors.New("policy: override engine requires at least one rego module")
	}

	names := make([]string, 0, len(opts.Modules))
	for name := range opts.Modules {
		names = append(names, name)
	}
	sort.Strings(names)

	regoOpts := make([]func(*rego.Rego), 0, len(names)+1)
	regoOpts = append(regoOpts, rego.Query("data."+strings.ReplaceAll(entry, "/", ".")))
	for _, name := range names {
		module, err := ast.ParseModuleWithOpts(name, opts.Modules[name], ast.ParserOptions{RegoVersion: ast.RegoV1})
		if err != nil {
			return nil, fmt.Errorf("policy: parse rego module %q: %w", name, err)
		}
		regoOpts = append(regoOpts, rego.ParsedModule(module))
	}

	prepared, err := rego.New(regoOpts...).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("policy: compile rego modules: %w", err)
	}

	maxEntries := opts.CacheMaxEntries
	switch {
	case maxEntries == 0:
		maxEntries = defaultCacheCapacity
	case maxEntries < 0:
		maxEntries = 0
	}
	var cache *verdictCache
	if maxEntries > 0 {
		cache = newVerdictCache(maxEntries)
	}

	return &OverrideEngine{entrypoint: entry, prepared: prepared, cache: cache}, nil
}

// Evaluate runs the tenant modules and returns the override directive, or
// RuleAllow when the policy abstains.
func (e *OverrideEngine) Evaluate(ctx context.Context, input OverrideInput) (RuleAction, error) {
	key, cacheable := e.cacheKey(input)
	if cacheable {
		if verdict, ok := e.cache.Get(key); ok {
			return verdict, nil
		}
	}

	categories := append([]string(nil), input.Categories...)
	sort.Strings(categories)

	payload := map[string]any{
		"tenant_id":     input.TenantID,
		"role":          input.Role,
		"risk_level":    string(input.RiskLevel),
		"anomaly_score": input.AnomalyScore,
		"categories":    categories,
	}

	results, err := e.prepared.Eval(ctx, rego.EvalInput(payload))
	if err != nil {
		return "", fmt.Errorf("policy: rego evaluation: %w", err)
	}

	verdict := RuleAllow
	if len(results) > 0 && len(results[0].Expressions) > 0 {
		verdict, err = parseVerdict(results[0].Expressions[0].Value)
		if err != nil {
			return "", err
		}
	}

	if cacheable {
		e.cache.Add(key, verdict)
	}
	return verdict, nil
}

// Apply tightens a baseline decision with an override verdict. The override
// never loosens: a block stays a block, and an allow verdict leaves the
// baseline untouched.
func Apply(base Decision, verdict RuleAction) Decision {
	if base.Action == ActionBlock {
		return base
	}
	switch verdict {
	case RuleBlock:
		return Decision{
			Action:      ActionBlock,
			ReasonCodes: append(base.ReasonCodes, ReasonTenantPolicy),
			UserMessage: MessageFor(ReasonTenantPolicy),
		}
	case RuleWarn:
		if base.Action == ActionAllow {
			return Decision{
				Action:      ActionWarnAndAllow,
				ReasonCodes: append(base.ReasonCodes, ReasonTenantPolicy),
				UserMessage: MessageFor(ReasonTenantPolicy),
			}
		}
	}
	return base
}

func parseVerdict(value any) (RuleAction, error) {
	switch typed := value.(type) {
	case nil:
		return RuleAllow, nil
	case string:
		switch RuleAction(strings.ToLower(typed)) {
		case RuleAllow:
			return RuleAllow, nil
		case RuleWarn:
			return RuleWarn, nil
		case RuleBlock:
			return RuleBlock, nil
		}
		return "", fmt.Errorf("policy: unknown override verdict %q", typed)
	case map[string]any:
		return parseVerdict(typed["action"])
	default:
		return "", fmt.Errorf("policy: override verdict must be a string, got %T", value)
	}
}

func (e *OverrideEngine) cacheKey(input OverrideInput) (string, bool) {
	if e.cache == nil {
		return "", false
	}
	if strings.TrimSpace(input.TenantID) == "" {
		return "", false
	}

	categories := append([]string(nil), input.Categories...)
	sort.Strings(categories)

	h := sha256.New()
	for _, field := range []string{
		e.entrypoint,
		input.TenantID,
		input.Role,
		string(input.RiskLevel),
		strconv.Itoa(input.AnomalyScore),
		strings.Join(categories, ","),
	} {
		h.Write([]byte(field))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), true
}

// verdictCache is a small LRU keyed by the hashed evaluation input.
type verdictCache struct {
	mu      sync.Mutex
	max     int
	order   *list.List
	entries map[string]*list.Element
}

type verdictItem struct {
	key     string
	verdict RuleAction
}

func newVerdictCache(capacity int) *verdictCache {
	return &verdictCache{
		max:     capacity,
		order:   list.New(),
		entries: make(map[string]*list.Element, capacity),
	}
}

func (c *verdictCache) Get(key string) (RuleAction, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return "", false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(verdictItem).verdict, true
}

func (c *verdictCache) Add(key string, verdict RuleAction) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		elem.Value = verdictItem{key: key, verdict: verdict}
		c.order.MoveToFront(elem)
		return
	}

	elem := c.order.PushFront(verdictItem{key: key, verdict: verdict})
	c.entries[key] = elem

	if c.order.Len() <= c.max {
		return
	}
	tail := c.order.Back()
	if tail != nil {
		c.order.Remove(tail)
		delete(c.entries, tail.Value.(verdictItem).key)
	}
}
