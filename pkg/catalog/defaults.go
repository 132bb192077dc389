package catalog

// DefaultPlans returns the built-in catalog. Production deployments can
// override it with a YAML file source; the shapes must stay compatible with
// the validation rules in New.
func DefaultPlans() map[PlanID]Plan {
	return map[PlanID]Plan{
		PlanFree: {
			ID:       PlanFree,
			Name:     "Free",
			Price:    Money{Amount: 0, Currency: "USD"},
			Interval: BillingIntervalNone,
			Default:  true,
			Features: map[Feature]FeatureLimit{
				FeatureAIQuery:            {Enabled: true, Limit: 20, Period: PeriodMonthly},
				FeatureDocumentAnalysis:   {Enabled: true, Limit: 3, Period: PeriodMonthly},
				FeatureVoiceQuery:         {Enabled: false},
				FeaturePDFReport:          {Enabled: false},
				FeatureContractComparison: {Enabled: true, Limit: 2, Period: PeriodDaily},
				FeatureGlossaryLookup:     {Enabled: true, Limit: 10, Period: PeriodDaily},
				FeatureChromeExtension:    {Enabled: false},
			},
		},
		PlanPro: {
			ID:       PlanPro,
			Name:     "Pro",
			Price:    Money{Amount: 499, Currency: "USD"},
			Interval: BillingIntervalMonthly,
			Features: map[Feature]FeatureLimit{
				FeatureAIQuery:            {Enabled: true, Limit: 500, Period: PeriodMonthly},
				FeatureDocumentAnalysis:   {Enabled: true, Limit: 50, Period: PeriodMonthly},
				FeatureVoiceQuery:         {Enabled: true, Limit: 100, Period: PeriodMonthly},
				FeaturePDFReport:          {Enabled: true, Limit: 20, Period: PeriodMonthly},
				FeatureContractComparison: {Enabled: true, Limit: 10, Period: PeriodDaily},
				FeatureGlossaryLookup:     {Enabled: true, Limit: 100, Period: PeriodDaily},
				FeatureChromeExtension:    {Enabled: true, Limit: Unlimited},
			},
		},
		PlanEnterprise: {
			ID:       PlanEnterprise,
			Name:     "Enterprise",
			Price:    Money{Amount: 2499, Currency: "USD"},
			Interval: BillingIntervalMonthly,
			Features: map[Feature]FeatureLimit{
				FeatureAIQuery:            {Enabled: true, Limit: Unlimited, Period: PeriodMonthly},
				FeatureDocumentAnalysis:   {Enabled: true, Limit: Unlimited, Period: PeriodMonthly},
				FeatureVoiceQuery:         {Enabled: true, Limit: Unlimited, Period: PeriodMonthly},
				FeaturePDFReport:          {Enabled: true, Limit: Unlimited, Period: PeriodMonthly},
				FeatureContractComparison: {Enabled: true, Limit: Unlimited, Period: PeriodDaily},
				FeatureGlossaryLookup:     {Enabled: true, Limit: Unlimited, Period: PeriodDaily},
				FeatureChromeExtension:    {Enabled: true, Limit: Unlimited},
			},
		},
	}
}
