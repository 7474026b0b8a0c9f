package prompt

import "log"

// Categories used by the built-in prompts.
const (
	CategoryAnalysis  = "analysis"
	CategoryRetrieval = "retrieval"
	CategoryTemplate  = "template"
)

// Template variables shared by every analysis template.
var templateVariables = []PromptVariable{
	{Name: "Symbol", Type: "string", Description: "Company ticker", Required: true},
	{Name: "LatestYear", Type: "string", Description: "Most recent indexed filing year"},
	{Name: "YearsList", Type: "string", Description: "Indexed years joined with \", \""},
	{Name: "YearsPhrase", Type: "string", Description: "\"year\", \"two years\", \"three years\" or \"last N years\""},
}

const analystSystemPrompt = "You are a professional financial analyst, a very disciplined value investor."

const analystUserTemplate = `Use this context to answer the question:
{{.Context}}
Question: {{.Question}}`

const filterTranslationSystemPrompt = `Your goal is to structure the user's query to match the request schema provided below.

<< Structured Request Schema >>
When responding use a markdown code snippet with a JSON object formatted in the following schema:

` + "```json" + `
{
    "query": string \ text string to compare to document contents
    "filter": string \ logical condition statement for filtering documents
}
` + "```" + `

The query string should contain only text that is expected to match the contents of documents. Any conditions in the filter should not be mentioned in the query as well.

A logical condition statement is composed of one or more comparison and logical operation statements.

A comparison statement takes the form: ` + "`comp(attr, val)`" + `:
- ` + "`comp`" + ` (eq | ne | gt | gte | lt | lte | in | nin): comparator
- ` + "`attr`" + ` (string): name of attribute to apply the comparison to
- ` + "`val`" + ` (string or list): is the comparison value

A logical operation statement takes the form ` + "`op(statement1, statement2, ...)`" + `:
- ` + "`op`" + ` (and | or | not): logical operator
- ` + "`statement1`, `statement2`, ..." + ` (comparison statements or logical operation statements): one or more statements to apply the operation to

Make sure that you only use the comparators and logical operators listed above and no others.
Make sure that filters only refer to attributes that exist in the data source.
Make sure that filters only use the attributed names with its function names if there are functions applied on them.
Make sure that filters take into account the descriptions of attributes and only make comparisons that are feasible given the type of data being stored.
Make sure that filters are only used as needed. If there are no filters that should be applied return "NO_FILTER" for the filter value.

<< Data Source >>
` + "```json" + `
{
    "content": "Yearly financial reports of the company",
    "attributes": {
        "year": {
            "description": "The year of the document",
            "type": "integer"
        },
        "type": {
            "description": "The section of the 10-K filing, one of 'Item 1', 'Item 1A', 'Item 7', 'Item 7A', 'Item 8', 'Item 9'",
            "type": "string"
        }
    }
}
` + "```" + `

<< Example 1. >>
User Query:
The Item1 in 2023 financial report

Structured Request:
` + "```json" + `
{
    "query": "get the Item1 for 2023",
    "filter": "and(in(\"year\", [\"2023\"]),in(\"type\", [\"Item 1\"]))"
}
` + "```" + `

<< Example 2. >>
User Query:
The Item8 in 2022 financial report

Structured Request:
` + "```json" + `
{
    "query": "get the Item8 for 2022",
    "filter": "and(in(\"year\", [\"2022\"]),in(\"type\", [\"Item 8\"]))"
}
` + "```" + `

<< Example 3. >>
User Query:
All items in 2022 financial report

Structured Request:
` + "```json" + `
{
    "query": "get all items for 2022",
    "filter": "and(in(\"year\", [\"2022\"]))"
}
` + "```"

const filterTranslationUserTemplate = `User Query:
{{.Query}}

Structured Request:`

const structuredQuerySchema = `{
  "type": "object",
  "properties": {
    "query": {"type": "string"},
    "filter": {"type": "string"}
  },
  "required": ["query", "filter"]
}`

const overviewTemplate = `Based on the comprehensive review of all items of the latest year {{.LatestYear}} of 10-K filing of {{.Symbol}}, identify and analyze three positive and three negative aspects regarding the company's prospects.
Organize your analysis in the following format:

1. **Positive Insights**:
- **Strengths and Opportunities**: Detail three major strengths or opportunities that {{.Symbol}} is poised to capitalize on.
- **Potential Positive Outcomes**: Discuss the possible beneficial outcomes if these strengths and opportunities are effectively leveraged.

2. **Negative Insights**:
- **Challenges and Threats**: Enumerate three significant challenges or threats facing {{.Symbol}}.
- **Potential Negative Consequences**: Explore the potential adverse impacts these challenges could have on {{.Symbol}}'s future performance.
`

const businessAndRiskTemplate = `Using the combined information from Item 1 (Business Overview), Item 1A (Risk Factors), Item 7 (Management’s Discussion and Analysis),
Item 7A (Quantitative and Qualitative Disclosures About Market Risk), and Item 8 (Financial Statements) from the latest 10-K filing
of {{.Symbol}}, perform a detailed analysis to provide:

1. **Business and Financial Overview**:
- **Core Business Operations**: Summarize the main activities and market positions outlined in Item 1.
- **Financial Health**: From Item 8, highlight key financial metrics and year-over-year changes.
- **Management Analysis**: Extract key insights from Item 7 about financial trends, operational challenges, and management's strategic focus.

2. **Integrated Risk Profile**:
- **Risk Landscape**: Using information from Item 1A and Item 7A of the latest 10-K filing of {{.Symbol}}, identify and describe the major operational and market risks.
- **Impact and Mitigation**: Discuss the potential impacts of these risks on the business and financial performance, and outline the risk mitigation strategies provided by management across these sections.

Provide this analysis in a structured format, aiming to offer stakeholders a clear and concise overview of both opportunities and threats,
as well as the company’s preparedness to handle its market and operational challenges.
`

const strategicOutlookTemplate = `With reference to the information available in Item 1 (Business Overview), Item 1A (Risk Factors), Item 7 (Management’s Discussion and Analysis),
Item 7A (Quantitative and Qualitative Disclosures About Market Risk), and Item 8 (Financial Statements)
of {{.Symbol}}'s recent 10-K filing, synthesize a strategic report that addresses:

1. **Strategic Positioning and Opportunities**:
- **Market Dynamics**: Analyze the business landscape as described in Item 1 and Item 7, focusing on competitive positioning and market opportunities.
- **Operational Strengths**: Highlight operational strengths and efficiencies that bolster the company's market position.

2. **Future Financial Prospects**:
- **Financial Projections**: Discuss future financial prospects based on trends and data from Item 7 and Item 8.
- **Risk and Opportunities Balance**: Weigh the financial risks (Item 1A and 7A) against potential opportunities, and discuss how the company plans to leverage its strengths to mitigate these risks and capitalize on market trends.

This analysis should offer a forward-looking perspective, aiming to provide potential investors and company stakeholders with a deep understanding of the company’s strategic initiatives, market risks, and financial outlook.
`

const riskFactorsYearsTemplate = `Based on the information available in Item 1A (Risk Factors) and Item 7A (Quantitative and Qualitative Disclosures About Market Risk) of 10-K filings of {{.Symbol}} for last {{.YearsPhrase}} ({{.YearsList}}),
Provide a structured analysis how risks have changed and what impacts they have had over the years, starting from the least recent to the present, to gain insights into how the company has identified and categorized its risks over time.
- **Identify key themes**: Look for recurring themes or new risks that have emerged.
- **Assess Changes in Language and Tone**: identify and evaluate any shifts in the company's risk perception or management's approach to risk management.
- **Quantify Impact**: For each risk factor, assess the potential impact on the company's operations, financial performance, and reputation.
- **Consider External Factors**: Evaluate how external factors such as regulatory changes, economic conditions, or technological advancements may have influenced the risk factors over the years.
- **Summarize Findings**: Provide a concise summary of the key findings changes in risk factors, highlighting any new risks that have emerged, risks that have been downplayed, and any significant shifts in the company’s risk profile.
`

const swotTemplate = `Create a SWOT analysis with reference to the information available in Item 1 (Business Overview) and Item 1A (Risk Factors) and
Item 7 (Management's Discussion and Analysis) and Item 7A (Quantitative and Qualitative Disclosures About Market Risk) and Item 8 (Financial Statements)
of {{.LatestYear}} for {{.Symbol}}'s 10-K filing
`

// Builtins returns fresh copies of the prompts compiled into the binary.
func Builtins() []*PromptTemplate {
	return []*PromptTemplate{
		{
			ID:             PromptIDs.AnalystSystem,
			Name:           "Analyst",
			Category:       CategoryAnalysis,
			Description:    "Answers a question from retrieved 10-K sections",
			SystemPrompt:   analystSystemPrompt,
			UserPromptTmpl: analystUserTemplate,
			Variables: []PromptVariable{
				{Name: "Context", Type: "string", Description: "Formatted retrieved sections", Required: true},
				{Name: "Question", Type: "string", Description: "Rendered analysis template", Required: true},
			},
			Version: "1",
		},
		{
			ID:               PromptIDs.FilterTranslation,
			Name:             "Filter Translation",
			Category:         CategoryRetrieval,
			Description:      "Turns a natural-language constraint into a query and filter expression",
			SystemPrompt:     filterTranslationSystemPrompt,
			UserPromptTmpl:   filterTranslationUserTemplate,
			ResponseSchemaID: "structured_query",
			Variables: []PromptVariable{
				{Name: "Query", Type: "string", Description: "Natural-language retrieval request", Required: true},
			},
			Version: "1",
		},
		templatePrompt(PromptIDs.TemplateOverview, "Overview", 1, overviewTemplate),
		templatePrompt(PromptIDs.TemplateBusinessAndRisk, "Business and Risk", 2, businessAndRiskTemplate),
		templatePrompt(PromptIDs.TemplateStrategicOutlook, "Strategic Outlook and Future Projections", 3, strategicOutlookTemplate),
		templatePrompt(PromptIDs.TemplateRiskFactorsYears, "Risk Factors Years", 4, riskFactorsYearsTemplate),
		templatePrompt(PromptIDs.TemplateSWOT, "SWOT", 5, swotTemplate),
	}
}

func templatePrompt(id, name string, order int, body string) *PromptTemplate {
	return &PromptTemplate{
		ID:             id,
		Name:           name,
		Category:       CategoryTemplate,
		Description:    name + " analysis of a company's 10-K filings",
		UserPromptTmpl: body,
		Variables:      templateVariables,
		Order:          order,
		Version:        "1",
	}
}

// RegisterBuiltins seeds r with the built-in prompts and response schemas.
func RegisterBuiltins(r *Registry) {
	for _, pt := range Builtins() {
		if err := r.Register(pt); err != nil {
			log.Printf("[prompt] failed to register built-in %q: %v", pt.ID, err)
		}
	}
	if err := r.RegisterSchema(&ResponseSchema{
		ID:          "structured_query",
		Name:        "Structured Query",
		Description: "Query text plus filter expression",
		JSONSchema:  structuredQuerySchema,
	}); err != nil {
		log.Printf("[prompt] failed to register schema: %v", err)
	}
}
