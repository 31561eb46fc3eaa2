package intent

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/carepulse/voiceassist/internal/voice"
)

// Classifier is the remote service surface the resolver depends on.
type Classifier interface {
	Classify(ctx context.Context, utterance string, sessionContext map[string]any) (*Classification, error)
}

// Resolver turns finalized utterances into command outcomes.
//
// Simple mode is purely local: emergency check, then the keyword
// table; unmatched input yields a silent Unknown outcome. Hands-free
// mode checks exit and emergency phrases locally, then asks the
// classifier; on any failure it falls back to the local table and
// finally to a generic spoken reply, so the user always hears
// something.
type Resolver struct {
	classifier Classifier
	logger     zerolog.Logger
}

// NewResolver creates a resolver. classifier may be nil for a purely
// local (simple-mode-only) deployment.
func NewResolver(classifier Classifier, logger zerolog.Logger) *Resolver {
	return &Resolver{
		classifier: classifier,
		logger:     logger.With().Str("component", "resolver").Logger(),
	}
}

// Resolve produces exactly one outcome for u. The emergency check is
// synchronous and runs before anything else in both modes.
func (r *Resolver) Resolve(ctx context.Context, u voice.Utterance, handsFree bool, sessionContext map[string]any) voice.CommandOutcome {
	if IsEmergency(u.Text) {
		r.logger.Info().Uint64("turn", u.Turn).Msg("Emergency fast path")
		return voice.CommandOutcome{Kind: voice.OutcomeSpeak, Text: emergencyResponse}
	}

	if !handsFree {
		out, ok := matchLocal(u.Text)
		if !ok {
			r.logger.Debug().Str("text", u.Text).Msg("No local match, ignoring")
		}
		return out
	}

	if isExit(u.Text) {
		return voice.CommandOutcome{Kind: voice.OutcomeExitHandsFree}
	}

	if r.classifier != nil {
		result, err := r.classifier.Classify(ctx, u.Text, sessionContext)
		if err == nil {
			if out, ok := r.mapClassification(result); ok {
				return out
			}
		} else {
			r.logger.Warn().Err(err).Uint64("turn", u.Turn).Msg("Classification failed, falling back to local table")
		}
	}

	if out, ok := matchLocal(u.Text); ok {
		return out
	}
	return voice.CommandOutcome{Kind: voice.OutcomeSpeak, Text: fallbackResponse}
}

// mapClassification converts a classifier response to an outcome. An
// UNKNOWN tag without a spoken reply falls through to the local table.
func (r *Resolver) mapClassification(c *Classification) (voice.CommandOutcome, bool) {
	switch c.Intent {
	case IntentNavigation:
		target := c.ActionValue
		if target == "" {
			target = RouteDashboard
		}
		return voice.CommandOutcome{Kind: voice.OutcomeNavigate, Target: target}, true
	case IntentLogData:
		return voice.CommandOutcome{Kind: voice.OutcomeLogData, Payload: c.ActionValue}, true
	case IntentAdvice:
		if c.SpeechResponse == "" {
			return voice.CommandOutcome{}, false
		}
		return voice.CommandOutcome{Kind: voice.OutcomeSpeak, Text: c.SpeechResponse}, true
	case IntentUnknown:
		if c.SpeechResponse != "" {
			return voice.CommandOutcome{Kind: voice.OutcomeSpeak, Text: c.SpeechResponse}, true
		}
		return voice.CommandOutcome{}, false
	default:
		r.logger.Warn().Str("intent", c.Intent).Msg("Unrecognized intent tag")
		return voice.CommandOutcome{}, false
	}
}
