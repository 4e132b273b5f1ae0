package config

import (
	"fmt"

	supa "github.com/supabase-community/supabase-go"
)

// NewSupabaseClient connects to the configured Supabase project with the
// service key.
func NewSupabaseClient(cfg SupabaseConfig) (*supa.Client, error) {
	if cfg.URL == "" || cfg.ServiceKey == "" {
		return nil, fmt.Errorf("supabase url and service key must be set")
	}
	client, err := supa.NewClient(cfg.URL, cfg.ServiceKey, nil)
	if err != nil {
		return nil, fmt.Errorf("initializing Supabase client: %w", err)
	}
	return client, nil
}
