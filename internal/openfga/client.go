package openfga

import (
	"context"
	"fmt"
	"log/slog"

	"stabledesk/internal/config"

	"github.com/openfga/go-sdk/client"
	"github.com/openfga/go-sdk/credentials"
)

// Tuple is an OpenFGA relationship such as "user:<id> owner organization:<id>".
type Tuple struct {
	User     string `json:"user"`
	Relation string `json:"relation"`
	Object   string `json:"object"`
}

func (t Tuple) String() string {
	return t.User + " " + t.Relation + " " + t.Object
}

// Client writes relationship tuples. A disabled client accepts every call
// and does nothing.
type Client struct {
	logger *slog.Logger
	fga    *client.OpenFgaClient
	config config.OpenFGAConfig
}

func NewClient(logger *slog.Logger, cfg config.OpenFGAConfig) (*Client, error) {
	if !cfg.Enabled {
		logger.Info("OpenFGA is disabled")
		return &Client{logger: logger, config: cfg}, nil
	}

	clientCfg := &client.ClientConfiguration{
		ApiUrl:               cfg.APIURL,
		StoreId:              cfg.StoreID,
		AuthorizationModelId: cfg.AuthorizationModelID,
	}
	if cfg.APIToken != "" {
		clientCfg.Credentials = &credentials.Credentials{
			Method: credentials.CredentialsMethodApiToken,
			Config: &credentials.Config{
				ApiToken: cfg.APIToken,
			},
		}
	}

	fgaClient, err := client.NewSdkClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("openfga: failed to create client: %w", err)
	}

	logger.Info("OpenFGA client initialized", "store_id", cfg.StoreID, "model_id", cfg.AuthorizationModelID)
	return &Client{logger: logger, fga: fgaClient, config: cfg}, nil
}

func (c *Client) IsEnabled() bool {
	return c != nil && c.config.Enabled && c.fga != nil
}

// Ping reads the configured store to confirm connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if !c.IsEnabled() {
		return nil
	}
	store, err := c.fga.GetStore(ctx).Execute()
	if err != nil {
		return fmt.Errorf("openfga: failed to get store: %w", err)
	}
	if store.Id != c.config.StoreID {
		return fmt.Errorf("openfga: store id mismatch: expected %s, got %s", c.config.StoreID, store.Id)
	}
	return nil
}

func (c *Client) Write(ctx context.Context, tuples ...Tuple) error {
	if !c.IsEnabled() || len(tuples) == 0 {
		return nil
	}

	writes := make([]client.ClientTupleKey, 0, len(tuples))
	for _, t := range tuples {
		writes = append(writes, client.ClientTupleKey{User: t.User, Relation: t.Relation, Object: t.Object})
	}

	if _, err := c.fga.Write(ctx).Body(client.ClientWriteRequest{Writes: writes}).Execute(); err != nil {
		c.logger.ErrorContext(ctx, "OpenFGA write failed", "tuples", len(tuples), "error", err)
		return fmt.Errorf("openfga: failed to write tuples: %w", err)
	}
	c.logger.DebugContext(ctx, "OpenFGA tuples written", "tuples", len(tuples))
	return nil
}

func (c *Client) Delete(ctx context.Context, tuples ...Tuple) error {
	if !c.IsEnabled() || len(tuples) == 0 {
		return nil
	}

	deletes := make([]client.ClientTupleKeyWithoutCondition, 0, len(tuples))
	for _, t := range tuples {
		deletes = append(deletes, client.ClientTupleKeyWithoutCondition{User: t.User, Relation: t.Relation, Object: t.Object})
	}

	if _, err := c.fga.Write(ctx).Body(client.ClientWriteRequest{Deletes: deletes}).Execute(); err != nil {
		c.logger.ErrorContext(ctx, "OpenFGA delete failed", "tuples", len(tuples), "error", err)
		return fmt.Errorf("openfga: failed to delete tuples: %w", err)
	}
	c.logger.DebugContext(ctx, "OpenFGA tuples deleted", "tuples", len(tuples))
	return nil
}

// Check reports whether the tuple holds. It allows everything when disabled.
func (c *Client) Check(ctx context.Context, t Tuple) (bool, error) {
	if !c.IsEnabled() {
		return true, nil
	}
	resp, err := c.fga.Check(ctx).Body(client.ClientCheckRequest{User: t.User, Relation: t.Relation, Object: t.Object}).Execute()
	if err != nil {
		return false, fmt.Errorf("openfga: failed to check %s: %w", t, err)
	}
	return resp.GetAllowed(), nil
}
