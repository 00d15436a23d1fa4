package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/ConnorBritain/pidgeon/pkg/circuitbreaker"
)

// RemoteTableProvider fetches code tables from a value-set service over HTTP
// (PHIN VADS-style JSON). Calls run through a circuit breaker; when the
// circuit is open, or the service errors, lookups fall back to the local
// provider so composition keeps working on bundled tables.
type RemoteTableProvider struct {
	baseURL  string
	client   *http.Client
	breaker  *circuitbreaker.Breaker
	fallback TableProvider
	logger   *zap.Logger
}

// NewRemoteTableProvider builds a provider against baseURL. fallback may be
// nil, in which case remote failures surface as errors.
func NewRemoteTableProvider(baseURL string, fallback TableProvider, logger *zap.Logger) (*RemoteTableProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	breaker, err := circuitbreaker.New(circuitbreaker.DefaultConfig("table-service"), logger)
	if err != nil {
		return nil, err
	}
	return &RemoteTableProvider{
		baseURL:  baseURL,
		client:   &http.Client{Timeout: 10 * time.Second},
		breaker:  breaker,
		fallback: fallback,
		logger:   logger,
	}, nil
}

// valueSetResponse is the wire shape of a value-set lookup.
type valueSetResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Concepts []struct {
		Code    string `json:"code"`
		Display string `json:"display"`
	} `json:"concepts"`
}

// Table implements TableProvider.
func (p *RemoteTableProvider) Table(ctx context.Context, id string) (*TableDefinition, error) {
	result, err := p.breaker.Execute(ctx, func() (interface{}, error) {
		return p.fetch(ctx, id)
	})
	if err != nil {
		if p.fallback != nil {
			p.logger.Warn("remote table lookup failed, using local tables",
				zap.String("table_id", id),
				zap.Error(err))
			return p.fallback.Table(ctx, id)
		}
		return nil, err
	}
	return result.(*TableDefinition), nil
}

func (p *RemoteTableProvider) fetch(ctx context.Context, id string) (*TableDefinition, error) {
	u := fmt.Sprintf("%s/valuesets/%s", p.baseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch table %s: %w", id, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("table %s: %w", id, ErrNotFound)
	default:
		return nil, fmt.Errorf("fetch table %s: unexpected status %d", id, resp.StatusCode)
	}

	var vs valueSetResponse
	if err := json.NewDecoder(resp.Body).Decode(&vs); err != nil {
		return nil, fmt.Errorf("decode table %s: %w", id, err)
	}

	def := &TableDefinition{ID: id, Name: vs.Name}
	for _, c := range vs.Concepts {
		def.Entries = append(def.Entries, TableEntry{Code: c.Code, Description: c.Display})
	}
	if len(def.Entries) == 0 {
		return nil, fmt.Errorf("table %s: %w", id, ErrNotFound)
	}
	return def, nil
}
