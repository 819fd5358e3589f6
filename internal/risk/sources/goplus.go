package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"
)

// Flag decodes GoPlus boolean indicators, which arrive as "1"/"0", as
// numbers, or as {"status":"1"} objects depending on the field.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = false
	case len(b) > 0 && b[0] == '{':
		var obj struct {
			Status json.RawMessage `json:"status"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		if len(obj.Status) == 0 {
			*f = false
			return nil
		}
		return f.UnmarshalJSON(obj.Status)
	default:
		s := string(bytes.Trim(b, `"`))
		*f = s == "1" || s == "true"
	}
	return nil
}

// TokenSecurity is the subset of a GoPlus Solana token security result
// the screen treats as disqualifying.
type TokenSecurity struct {
	Honeypot           Flag `json:"is_honeypot"`
	Blacklisted        Flag `json:"is_blacklisted"`
	OwnerChangeBalance Flag `json:"owner_change_balance"`
	CannotSellAll      Flag `json:"cannot_sell_all"`
}

// GoPlus queries the GoPlus Solana token security endpoint.
type GoPlus struct {
	client
}

// NewGoPlus creates a GoPlus client. hc may be nil.
func NewGoPlus(baseURL string, spacing, timeout time.Duration, hc *http.Client) *GoPlus {
	return &GoPlus{client: newClient("goplus", baseURL, spacing, timeout, hc)}
}

// TokenSecurity returns the security record of mint, or nil when GoPlus has
// not indexed the token.
func (c *GoPlus) TokenSecurity(ctx context.Context, mint string) (*TokenSecurity, error) {
	var resp struct {
		Code    int                      `json:"code"`
		Message string                   `json:"message"`
		Result  map[string]TokenSecurity `json:"result"`
	}
	if err := c.getJSON(ctx, c.baseURL+"?contract_addresses="+url.QueryEscape(mint), &resp); err != nil {
		return nil, err
	}
	sec, ok := resp.Result[mint]
	if !ok {
		return nil, nil
	}
	return &sec, nil
}
