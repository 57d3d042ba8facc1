// Package brain talks to chat-completion reasoning services used for fact
// verification and fact summaries.
package brain

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by providers without credentials.
var ErrNotConfigured = errors.New("brain: provider not configured")

// Provider is the interface for reasoning services
type Provider interface {
	// Name returns the provider name (e.g., "groq", "grok")
	Name() string

	// Available returns true if the provider is configured and ready
	Available() bool

	// Generate sends a prompt and returns the response
	Generate(ctx context.Context, req Request) (Response, error)
}

// Request is a prompt request to a reasoning service
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
}

// Response is the reasoning service's response
type Response struct {
	Content     string
	Model       string
	RawResponse string // raw body for debugging
}

// ProviderManager picks among several providers with fallback
type ProviderManager struct {
	providers []Provider
	preferred string
}

// NewProviderManager creates a manager over providers, in fallback order.
func NewProviderManager(providers ...Provider) *ProviderManager {
	return &ProviderManager{providers: providers}
}

// SetPreferred sets the preferred provider by name
func (pm *ProviderManager) SetPreferred(name string) {
	pm.preferred = name
}

// GetAvailable returns the preferred provider when available, otherwise
// the first available one, otherwise nil.
func (pm *ProviderManager) GetAvailable() Provider {
	if pm.preferred != "" {
		for _, p := range pm.providers {
			if p.Name() == pm.preferred && p.Available() {
				return p
			}
		}
	}
	for _, p := range pm.providers {
		if p.Available() {
			return p
		}
	}
	return nil
}

// ListAvailable returns names of all available providers
func (pm *ProviderManager) ListAvailable() []string {
	var names []string
	for _, p := range pm.providers {
		if p.Available() {
			names = append(names, p.Name())
		}
	}
	return names
}

// Name implements Provider for the manager itself.
func (pm *ProviderManager) Name() string {
	if p := pm.GetAvailable(); p != nil {
		return p.Name()
	}
	return "none"
}

// Available reports whether any provider is available.
func (pm *ProviderManager) Available() bool {
	return pm.GetAvailable() != nil
}

// Generate routes the request to the chosen provider.
func (pm *ProviderManager) Generate(ctx context.Context, req Request) (Response, error) {
	p := pm.GetAvailable()
	if p == nil {
		return Response{}, ErrNotConfigured
	}
	return p.Generate(ctx, req)
}
