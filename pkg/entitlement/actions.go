package entitlement

import (
	"sort"

	"github.com/clauseguard/clauseguard/pkg/catalog"
)

// CounterSpec binds an action to its usage counter field and reset scope.
type CounterSpec struct {
	Field string
	Scope catalog.Period
}

// actionTable is the single source of truth mapping each meterable action to
// its counter. Both CheckLimit and RecordUsage consume this table; keeping it
// in one place is what guarantees the check side and the record side can
// never disagree about field names or scopes.
var actionTable = map[catalog.Feature]CounterSpec{
	catalog.FeatureAIQuery:            {Field: "ai_queries", Scope: catalog.PeriodMonthly},
	catalog.FeatureDocumentAnalysis:   {Field: "documents_analyzed", Scope: catalog.PeriodMonthly},
	catalog.FeatureVoiceQuery:         {Field: "voice_queries", Scope: catalog.PeriodMonthly},
	catalog.FeaturePDFReport:          {Field: "pdf_reports", Scope: catalog.PeriodMonthly},
	catalog.FeatureContractComparison: {Field: "contract_comparisons", Scope: catalog.PeriodDaily},
	catalog.FeatureGlossaryLookup:     {Field: "glossary_lookups", Scope: catalog.PeriodDaily},
}

// ActionSpec returns the counter spec for an action. The second return is
// false for anything outside the closed action vocabulary, including plan
// features that are not meterable (like the browser extension).
func ActionSpec(action catalog.Feature) (CounterSpec, bool) {
	spec, ok := actionTable[action]
	return spec, ok
}

// Actions returns the closed action vocabulary in stable order.
func Actions() []catalog.Feature {
	out := make([]catalog.Feature, 0, len(actionTable))
	for action := range actionTable {
		out = append(out, action)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
