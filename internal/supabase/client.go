package supabase

import (
	"fmt"

	"github.com/supabase-community/supabase-go"
)

const storagePath = "/storage/v1"

type Client struct {
	Supabase   *supabase.Client
	storageURL string
}

// NewClient connects with the service role key, which bypasses bucket policies.
func NewClient(projectURL, serviceKey string) (*Client, error) {
	client, err := supabase.NewClient(projectURL, serviceKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}

	return &Client{
		Supabase:   client,
		storageURL: projectURL + storagePath,
	}, nil
}
