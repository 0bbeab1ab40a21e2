// Package types contains wire shapes shared by the API, the CLI and the
// evaluation report.
package types

// Row is one contingency table row.
type Row struct {
	Event     string `json:"event"`
	Correct   int    `json:"correct"`
	Incorrect int    `json:"incorrect"`
}

// Outcome is the decision for a single ground-truth event.
type Outcome struct {
	Event        string `json:"event"`
	Frame        int    `json:"frame"`
	Correct      bool   `json:"correct"`
	MatchedFrame *int   `json:"matched_frame,omitempty"`
}
