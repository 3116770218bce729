package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/clearfield-labs/inquiry-core/internal/core/domain"
	"github.com/clearfield-labs/inquiry-core/internal/core/ports/driven"
)

// Ensure Registry implements DomainRegistry
var _ driven.DomainRegistry = (*Registry)(nil)

// Registry serves domain configs from an in-memory snapshot refreshed
// from the engine's domain listing. Reads never block on the network;
// the janitor refreshes the snapshot when it goes stale.
type Registry struct {
	baseURL string
	apiKey  string
	client  *http.Client

	mu       sync.RWMutex
	configs  []domain.DomainConfig
	lastSync time.Time
}

// NewRegistry creates a registry client. The snapshot starts empty
// (only the built-in default domain) until the first Refresh.
func NewRegistry(baseURL, apiKey string) (*Registry, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("engine base URL is required")
	}

	return &Registry{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// domainsResponse is the engine's domain listing body
type domainsResponse struct {
	Domains []struct {
		DomainID      string   `json:"domain_id"`
		Name          string   `json:"name"`
		Description   string   `json:"description"`
		Keywords      []string `json:"keywords"`
		VectorStoreID string   `json:"default_vectorstore_id"`
	} `json:"domains"`
}

// List returns the current snapshot, default domain included.
func (r *Registry) List() []domain.DomainConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.withDefault(r.configs)
}

// Exists reports whether a domain id is currently registered.
func (r *Registry) Exists(id string) bool {
	if id == domain.DefaultDomainID {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.configs {
		if c.ID == id {
			return true
		}
	}
	return false
}

// Default returns the fallback domain config.
func (r *Registry) Default() domain.DomainConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.configs {
		if c.ID == domain.DefaultDomainID {
			return c
		}
	}
	return domain.DomainConfig{ID: domain.DefaultDomainID, Name: "Default"}
}

// Refresh replaces the snapshot with the engine's current domain listing.
// On failure the previous snapshot stays in place.
func (r *Registry) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", r.baseURL+"/domains", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if r.apiKey != "" {
		req.Header.Set("X-API-Key", r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch domains: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read domains response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("engine returned status %d: %s", resp.StatusCode, truncateBody(body))
	}

	var listing domainsResponse
	if err := json.Unmarshal(body, &listing); err != nil {
		return fmt.Errorf("parse domains response: %w", err)
	}

	now := time.Now().UTC()
	configs := make([]domain.DomainConfig, 0, len(listing.Domains))
	for _, d := range listing.Domains {
		if d.DomainID == "" {
			continue
		}
		configs = append(configs, domain.DomainConfig{
			ID:            d.DomainID,
			Name:          d.Name,
			Description:   d.Description,
			Keywords:      d.Keywords,
			VectorStoreID: d.VectorStoreID,
			LastSyncedAt:  now,
		})
	}

	r.mu.Lock()
	r.configs = configs
	r.lastSync = now
	r.mu.Unlock()

	return nil
}

// LastSyncedAt is when the snapshot was last refreshed.
func (r *Registry) LastSyncedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastSync
}

// withDefault appends the built-in default domain when upstream
// does not register one. Callers hold at least a read lock.
func (r *Registry) withDefault(configs []domain.DomainConfig) []domain.DomainConfig {
	out := make([]domain.DomainConfig, len(configs))
	copy(out, configs)
	for _, c := range out {
		if c.ID == domain.DefaultDomainID {
			return out
		}
	}
	return append(out, domain.DomainConfig{ID: domain.DefaultDomainID, Name: "Default"})
}
