package edit

import (
	"context"
	"strings"
	"time"

	"github.com/escriba-legal/escriba-backend/internal/domain"
	"github.com/escriba-legal/escriba-backend/internal/platform/logger"
)

// ModelClient is the slice of the OpenAI client the resolver needs.
type ModelClient interface {
	GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error)
}

type tier struct {
	name       domain.SourceTier
	client     ModelClient
	confidence domain.Confidence
}

// TieredResolver tries the precision model first and a cheaper model on
// failure. Each tier is attempted at most once, with one in-tier retry
// when the model violates the output schema. Both tiers failing is not an
// error; the coordinator proceeds to the heuristic.
type TieredResolver struct {
	log     *logger.Logger
	tiers   []tier
	timeout time.Duration
}

func NewTieredResolver(log *logger.Logger, primary, fallback ModelClient, timeout time.Duration) *TieredResolver {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	r := &TieredResolver{
		log:     log.With("component", "TieredResolver"),
		timeout: timeout,
	}
	if primary != nil {
		r.tiers = append(r.tiers, tier{name: domain.TierPrimaryAI, client: primary, confidence: domain.ConfidenceHigh})
	}
	if fallback != nil {
		r.tiers = append(r.tiers, tier{name: domain.TierFallbackAI, client: fallback, confidence: domain.ConfidenceMedium})
	}
	return r
}

func (r *TieredResolver) Resolve(ctx context.Context, req domain.EditRequest, contextText string) *domain.Resolution {
	system, user := promptResolveEdit(req, contextText)
	schema := schemaResolveEdit()

	for _, t := range r.tiers {
		res := r.resolveTier(ctx, t, req, system, user, schema)
		if res != nil {
			return res
		}
	}
	return nil
}

func (r *TieredResolver) resolveTier(ctx context.Context, t tier, req domain.EditRequest, system, user string, schema map[string]any) *domain.Resolution {
	// One retry within the tier, schema violations only. Transport
	// failures and timeouts fall straight through to the next tier.
	for attempt := 0; attempt < 2; attempt++ {
		tctx, cancel := context.WithTimeout(ctx, r.timeout)
		obj, err := t.client.GenerateJSON(tctx, system, user, "edit_mutation", schema)
		cancel()
		if err != nil {
			r.log.Warn("tier call failed", "tier", string(t.name), "error", err)
			return nil
		}
		res, ok := parseResolution(obj, req)
		if ok {
			res.SourceTier = t.name
			res.Confidence = t.confidence
			return res
		}
		r.log.Warn("tier returned unparsable mutation", "tier", string(t.name), "attempt", attempt+1)
	}
	return nil
}

// parseResolution validates the structured output. Free-form or partial
// output is a parse failure, not a success.
func parseResolution(obj map[string]any, req domain.EditRequest) (*domain.Resolution, bool) {
	kindRaw, _ := obj["kind"].(string)
	oldValue, _ := obj["old_value"].(string)
	newValue, _ := obj["new_value"].(string)

	newValue = strings.TrimRight(newValue, " ")
	if strings.TrimSpace(newValue) == "" {
		return nil, false
	}

	switch domain.MutationKind(kindRaw) {
	case domain.MutationSubstitution:
		if strings.TrimSpace(oldValue) == "" {
			return nil, false
		}
		return &domain.Resolution{
			Kind:     domain.MutationSubstitution,
			OldValue: oldValue,
			NewValue: newValue,
		}, true
	case domain.MutationSpanRewrite:
		// Span rewrites only make sense against a selection.
		if req.Scope != domain.ScopeLocal {
			return nil, false
		}
		if oldValue == "" {
			oldValue = req.SelectedText
		}
		return &domain.Resolution{
			Kind:     domain.MutationSpanRewrite,
			OldValue: oldValue,
			NewValue: newValue,
		}, true
	default:
		return nil, false
	}
}
