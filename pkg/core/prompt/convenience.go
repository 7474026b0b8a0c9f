package prompt

// PromptIDs contains all known prompt identifiers
var PromptIDs = struct {
	AnalystSystem     string
	FilterTranslation string

	// Analysis templates, in catalog order
	TemplateOverview         string
	TemplateBusinessAndRisk  string
	TemplateStrategicOutlook string
	TemplateRiskFactorsYears string
	TemplateSWOT             string
}{
	AnalystSystem:     "analysis.analyst_system",
	FilterTranslation: "retrieval.filter_translation",

	TemplateOverview:         "template.overview",
	TemplateBusinessAndRisk:  "template.business_and_risk",
	TemplateStrategicOutlook: "template.strategic_outlook",
	TemplateRiskFactorsYears: "template.risk_factors_years",
	TemplateSWOT:             "template.swot",
}

// Templates returns the analysis templates in catalog order.
func (r *Registry) Templates() []*PromptTemplate {
	return r.ListByCategory(CategoryTemplate)
}
