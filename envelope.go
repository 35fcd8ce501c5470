package pagou

// ListMeta is the pagination block of a list response. Total is
// authoritative: the auto-paging iterator terminates on it, never on a
// client-side guess about page fullness.
type ListMeta struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// DataEnvelope is the wire shape of a single-object response.
type DataEnvelope[T any] struct {
	Success   bool   `json:"success"`
	RequestID string `json:"requestId"`
	Data      T      `json:"data"`
}

// ListEnvelope is the wire shape of a list response.
type ListEnvelope[T any] struct {
	Success   bool     `json:"success"`
	RequestID string   `json:"requestId"`
	Meta      ListMeta `json:"metadata"`
	Data      []T      `json:"data"`
}
