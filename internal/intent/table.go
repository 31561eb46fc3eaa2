// Package intent resolves finalized utterances into command outcomes:
// a local keyword table for simple mode, an emergency fast path, and a
// remote intent classifier for hands-free mode with local fallback.
package intent

import (
	"regexp"
	"strings"

	"github.com/carepulse/voiceassist/internal/voice"
)

// Routes exposed to collaborating screens.
const (
	RouteDashboard    = "/dashboard"
	RouteNutrition    = "/nutrition"
	RouteExercise     = "/exercise"
	RouteAppointments = "/appointments"
	RouteChat         = "/chat"
	RouteDocuments    = "/documents"
	RouteCommunity    = "/community"
)

// emergencyResponse is spoken the moment an emergency keyword is
// heard, before any network round trip.
const emergencyResponse = "If this is an emergency, call 911 now. I can also open your emergency contacts or connect you to the care team chat. Say 'call' or 'chat'."

// fallbackResponse is spoken when neither the classifier nor the local
// table produced an outcome. The user is never left without a reply.
const fallbackResponse = "I didn't catch that, can you repeat?"

// emergencyPattern matches the fixed emergency keyword set on word
// boundaries, so "helpful" does not trip the fast path.
var emergencyPattern = regexp.MustCompile(`\b(help|emergency|911)\b`)

// navKeywords maps spoken destinations to routes. Matching is
// substring-based over the normalized utterance, so "go to the
// dashboard please" matches "dashboard".
var navKeywords = []struct {
	keyword string
	route   string
}{
	{"dashboard", RouteDashboard},
	{"home", RouteDashboard},
	{"nutrition", RouteNutrition},
	{"recipes", RouteNutrition},
	{"exercise", RouteExercise},
	{"workout", RouteExercise},
	{"appointment", RouteAppointments},
	{"booking", RouteAppointments},
	{"chat", RouteChat},
	{"message", RouteChat},
	{"document", RouteDocuments},
	{"community", RouteCommunity},
}

// logPrefixes introduce a data-logging phrase; the remainder of the
// utterance is carried as the payload for the downstream form.
var logPrefixes = []string{
	"log ",
	"record ",
	"track ",
	"note ",
}

var exitPhrases = []string{
	"exit",
	"stop listening",
	"goodbye",
	"turn off",
}

// IsEmergency reports whether text contains an emergency keyword. The
// check is synchronous and must run before any remote call.
func IsEmergency(text string) bool {
	return emergencyPattern.MatchString(normalize(text))
}

// isExit reports whether text asks to leave hands-free mode.
func isExit(text string) bool {
	norm := normalize(text)
	for _, p := range exitPhrases {
		if strings.Contains(norm, p) {
			return true
		}
	}
	return false
}

// matchLocal resolves text against the fixed keyword table. The second
// return is false when nothing matched.
func matchLocal(text string) (voice.CommandOutcome, bool) {
	norm := normalize(text)

	for _, p := range logPrefixes {
		if strings.HasPrefix(norm, p) {
			payload := strings.TrimSpace(strings.TrimPrefix(norm, p))
			return voice.CommandOutcome{Kind: voice.OutcomeLogData, Payload: payload}, true
		}
	}

	for _, nav := range navKeywords {
		if strings.Contains(norm, nav.keyword) {
			return voice.CommandOutcome{Kind: voice.OutcomeNavigate, Target: nav.route}, true
		}
	}

	return voice.CommandOutcome{Kind: voice.OutcomeUnknown}, false
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
