package models

// ResultDescriptor is what a completed search hands to the presentation layer
type ResultDescriptor struct {
	ActionID    string            `json:"action_id,omitempty"`
	Name        string            `json:"name"`
	EntityType  string            `json:"entity_type"`
	Filter      string            `json:"filter"`
	Context     map[string]string `json:"context"`
	Order       string            `json:"order"`
	SearchValue string            `json:"search_value"`
	RecordIDs   []int64           `json:"record_ids,omitempty"`
}
