package sources

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Risk is one finding of a RugCheck report.
type Risk struct {
	Name        string  `json:"name"`
	Level       string  `json:"level"` // "danger" | "warn" | "info"
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// RiskReport is the subset of the RugCheck token report the screen uses.
type RiskReport struct {
	Score  float64 `json:"score"`
	Risks  []Risk  `json:"risks"`
	Rugged bool    `json:"rugged"`
}

// Dangers returns the danger-level findings in report order.
func (r *RiskReport) Dangers() []Risk {
	var out []Risk
	for _, risk := range r.Risks {
		if risk.Level == "danger" {
			out = append(out, risk)
		}
	}
	return out
}

// RugCheck queries api.rugcheck.xyz token reports.
type RugCheck struct {
	client
}

// NewRugCheck creates a RugCheck client. hc may be nil.
func NewRugCheck(baseURL string, spacing, timeout time.Duration, hc *http.Client) *RugCheck {
	return &RugCheck{client: newClient("rugcheck", baseURL, spacing, timeout, hc)}
}

// Report fetches the report of mint.
func (c *RugCheck) Report(ctx context.Context, mint string) (*RiskReport, error) {
	var report RiskReport
	if err := c.getJSON(ctx, c.baseURL+"/"+url.PathEscape(mint)+"/report", &report); err != nil {
		return nil, err
	}
	return &report, nil
}
