package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clearfield-labs/inquiry-core/internal/core/domain"
)

const domainsListing = `{
	"domains": [
		{
			"domain_id": "mutual-funds",
			"name": "Mutual Funds",
			"description": "Mutual funds, SIPs and fund analytics",
			"keywords": ["mutual fund", "sip", "expense ratio"],
			"default_vectorstore_id": "vs-mf"
		},
		{
			"domain_id": "insurance",
			"name": "Insurance",
			"description": "Insurance products and claims",
			"keywords": ["insurance", "premium"],
			"default_vectorstore_id": "vs-ins"
		}
	]
}`

func TestNewRegistry_RequiresBaseURL(t *testing.T) {
	if _, err := NewRegistry("", ""); err == nil {
		t.Error("expected error for empty base URL")
	}
}

func TestRegistry_EmptyBeforeRefresh(t *testing.T) {
	r, err := NewRegistry("http://engine.local", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	configs := r.List()
	if len(configs) != 1 || configs[0].ID != domain.DefaultDomainID {
		t.Errorf("expected only the default domain before refresh, got %v", configs)
	}
	if !r.LastSyncedAt().IsZero() {
		t.Error("expected zero sync time before first refresh")
	}
}

func TestRegistry_Refresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/domains" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("X-API-Key") != "secret" {
			t.Error("expected API key header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(domainsListing))
	}))
	defer server.Close()

	r, err := NewRegistry(server.URL, "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	configs := r.List()
	if len(configs) != 3 {
		t.Fatalf("expected 2 domains + default, got %d", len(configs))
	}

	if !r.Exists("mutual-funds") || !r.Exists("insurance") {
		t.Error("expected refreshed domains to exist")
	}
	if r.Exists("crypto") {
		t.Error("expected unknown domain to not exist")
	}
	if !r.Exists(domain.DefaultDomainID) {
		t.Error("expected default domain to always exist")
	}

	mf := configs[0]
	if mf.ID != "mutual-funds" {
		t.Fatalf("unexpected first config: %s", mf.ID)
	}
	if len(mf.Keywords) != 3 {
		t.Errorf("expected 3 keywords, got %d", len(mf.Keywords))
	}
	if mf.VectorStoreID != "vs-mf" {
		t.Errorf("expected vector store id, got %q", mf.VectorStoreID)
	}

	if r.LastSyncedAt().IsZero() {
		t.Error("expected sync time after refresh")
	}
}

func TestRegistry_RefreshFailureKeepsSnapshot(t *testing.T) {
	failing := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(domainsListing))
	}))
	defer server.Close()

	r, _ := NewRegistry(server.URL, "")
	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	firstSync := r.LastSyncedAt()

	failing = true
	if err := r.Refresh(context.Background()); err == nil {
		t.Error("expected error for failed refresh")
	}

	if !r.Exists("mutual-funds") {
		t.Error("expected previous snapshot to survive a failed refresh")
	}
	if !r.LastSyncedAt().Equal(firstSync) {
		t.Error("expected sync time unchanged after failed refresh")
	}
}

func TestRegistry_Default(t *testing.T) {
	r, _ := NewRegistry("http://engine.local", "")

	def := r.Default()
	if def.ID != domain.DefaultDomainID {
		t.Errorf("expected default domain, got %s", def.ID)
	}
}
