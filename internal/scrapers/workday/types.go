package workday

// SearchRequest is the body of POST <base>/jobs.
type SearchRequest struct {
	AppliedFacets map[string]any `json:"appliedFacets"`
	Limit         int            `json:"limit"`
	Offset        int            `json:"offset"`
	SearchText    string         `json:"searchText"`
}

// SearchResponse is one page of postings. Postings are kept as decoded JSON
// objects since tenants differ in which fields they fill.
type SearchResponse struct {
	Total       int              `json:"total"`
	JobPostings []map[string]any `json:"jobPostings"`
}
