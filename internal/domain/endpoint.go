package domain

// EndpointState is the pool's view of one RPC endpoint.
type EndpointState struct {
	URL         string `json:"url"`
	LastUsedAt  int64  `json:"lastUsedAt"` // Unix ms, zero if never used
	Uses        uint64 `json:"uses"`
	RateLimited uint64 `json:"rateLimited"`
	Primary     bool   `json:"primary"`
}
