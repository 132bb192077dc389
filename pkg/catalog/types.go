package catalog

// PlanID identifies a subscription tier. The set is closed: plans are
// compiled into the catalog and validated at startup.
type PlanID string

const (
	PlanFree       PlanID = "free"
	PlanPro        PlanID = "pro"
	PlanEnterprise PlanID = "enterprise"
)

// Feature is a plan capability key. Metered actions share this vocabulary;
// boolean-only capabilities (like the browser extension) appear here too but
// have no usage counter.
type Feature string

const (
	FeatureAIQuery            Feature = "ai_query"
	FeatureDocumentAnalysis   Feature = "document_analysis"
	FeatureVoiceQuery         Feature = "voice_query"
	FeaturePDFReport          Feature = "pdf_report"
	FeatureContractComparison Feature = "contract_comparison"
	FeatureGlossaryLookup     Feature = "glossary_lookup"
	FeatureChromeExtension    Feature = "chrome_extension"
)

// Period is the reset window for a feature's usage quota.
type Period string

const (
	PeriodNone    Period = ""
	PeriodDaily   Period = "daily"
	PeriodMonthly Period = "monthly"
)

const (
	// Unlimited indicates no quota for a feature (-1).
	Unlimited int64 = -1
)

// FeatureLimit describes a feature's availability on a plan.
// Limit semantics: -1 unlimited, 0 unavailable, any positive value is a
// hard cap per Period.
type FeatureLimit struct {
	Enabled bool   `yaml:"enabled"`
	Limit   int64  `yaml:"limit"`
	Period  Period `yaml:"period"`
}

// Available reports whether the feature can be used at all on this plan.
func (fl FeatureLimit) Available() bool {
	return fl.Enabled && fl.Limit != 0
}

// IsUnlimited reports whether the feature has no quota on this plan.
func (fl FeatureLimit) IsUnlimited() bool {
	return fl.Enabled && fl.Limit == Unlimited
}

// Money represents a monetary amount in the smallest currency unit.
// $4.99 USD is Amount: 499, Currency: "USD".
type Money struct {
	Amount   int64  `yaml:"amount"`
	Currency string `yaml:"currency"`
}

// BillingInterval represents the billing frequency for a plan's list price.
type BillingInterval string

const (
	BillingIntervalNone    BillingInterval = "none" // free plans with no billing
	BillingIntervalMonthly BillingInterval = "monthly"
)
