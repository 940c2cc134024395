package mcpserver

// FilterFormatContract describes the canonical filter config JSON format
// that LLM consumers should follow when building or saving filters.
const FilterFormatContract = `# Ansuz Filter Config Contract

Every filter config is a JSON object with a required ` + "`type`" + ` field.
The four built-in types and their fields:

## TAG

` + "```" + `json
{
  "type": "TAG",
  "tags": ["work", "urgent"],
  "excludeTags": ["archived"],
  "operator": "OR",
  "caseSensitive": false
}
` + "```" + `

Rules:
- At least one of ` + "`tags`" + ` / ` + "`excludeTags`" + ` must be non-empty.
- ` + "`operator`" + ` is ` + "`AND`" + ` or ` + "`OR`" + ` (default ` + "`OR`" + `) and applies to ` + "`tags`" + ` only.
- A note carrying any excluded tag never matches, regardless of operator.

## DATE_RANGE

` + "```" + `json
{
  "type": "DATE_RANGE",
  "field": "created_at",
  "preset": "LAST_7_DAYS"
}
` + "```" + `

Rules:
- ` + "`field`" + ` is ` + "`created_at`" + ` or ` + "`modified_at`" + ` (required).
- Give either a ` + "`preset`" + ` or explicit unix-second ` + "`start`" + `/` + "`end`" + ` bounds
  (either bound may be omitted for an open range; both bounds are inclusive).
- Presets: TODAY, YESTERDAY, LAST_7_DAYS, LAST_30_DAYS, LAST_90_DAYS,
  THIS_WEEK (Monday start), LAST_WEEK, THIS_MONTH, LAST_MONTH, THIS_YEAR,
  LAST_YEAR. Presets resolve when the filter runs, not when it is saved.

## CONTENT

` + "```" + `json
{
  "type": "CONTENT",
  "query": "standup",
  "operator": "CONTAINS",
  "caseSensitive": false,
  "searchTitle": true,
  "searchContent": true
}
` + "```" + `

Rules:
- Give ` + "`query`" + ` or ` + "`pattern`" + ` (use ` + "`pattern`" + ` with ` + "`MATCHES_REGEX`" + `).
- Operators: EQUALS, NOT_EQUALS, CONTAINS (default), NOT_CONTAINS,
  STARTS_WITH, ENDS_WITH, MATCHES_REGEX.
- At least one of ` + "`searchTitle`" + `/` + "`searchContent`" + ` must stay enabled.

## COMPOSITE

` + "```" + `json
{
  "type": "COMPOSITE",
  "operator": "AND",
  "filters": [
    {"type": "TAG", "tags": ["work"]},
    {"type": "DATE_RANGE", "field": "created_at", "preset": "LAST_7_DAYS"}
  ]
}
` + "```" + `

Rules:
- ` + "`operator`" + ` is AND, OR, or NOT.
- ` + "`filters`" + ` needs at least one child; NOT takes exactly one.
- Composites nest, but depth beyond 3 draws a warning and depth beyond 5
  is rejected.
`
