package optool

import (
	"context"

	"go.uber.org/zap"
)

// Client issues single op commands and classifies their results. It never
// retries; retries belong to the reliability package.
type Client struct {
	runner     Runner
	classifier Classifier
	logger     *zap.Logger
}

// NewClient creates a client on top of runner. A nil logger disables logging.
func NewClient(runner Runner, classifier Classifier, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		runner:     runner,
		classifier: classifier,
		logger:     logger.Named("optool"),
	}
}

// Invoke runs one logical command. JSON-emitting commands get --format=json.
func (c *Client) Invoke(ctx context.Context, command string, args ...string) OperationResult {
	if c.classifier.EmitsJSON(command) {
		args = append(args, "--format=json")
	}

	inv := c.runner.Run(ctx, command, args)
	res := c.classifier.Classify(inv)

	fields := []zap.Field{
		zap.String("event_id", res.EventID),
		zap.String("command", command),
		zap.Stringer("status", res.Status),
		zap.Int("exit_code", res.ExitCode),
		zap.Duration("duration", res.Duration),
	}
	if res.Status != StatusSuccess {
		fields = append(fields, zap.String("stderr", res.Error))
	}
	if res.DecodeErr != nil {
		fields = append(fields, zap.Error(res.DecodeErr))
	}
	c.logger.Debug("op command finished", fields...)

	return res
}

// CreateVault issues a single `op vault create` attempt.
func (c *Client) CreateVault(ctx context.Context, name string) OperationResult {
	return c.Invoke(ctx, CommandVaultCreate, "vault", "create", name)
}

// DeleteVault issues a single `op vault delete` attempt. identifier is an id or a name.
func (c *Client) DeleteVault(ctx context.Context, identifier string) OperationResult {
	return c.Invoke(ctx, CommandVaultDelete, "vault", "delete", identifier)
}

// ListVaults returns the current vault inventory.
func (c *Client) ListVaults(ctx context.Context) ([]VaultRecord, error) {
	res := c.Invoke(ctx, CommandVaultList, "vault", "list")
	if err := ResultError(res, 0); err != nil {
		return nil, err
	}
	return DecodeVaultList(res)
}

// WhoAmI returns the identity op is signed in as.
func (c *Client) WhoAmI(ctx context.Context) (WhoAmIResponse, error) {
	res := c.Invoke(ctx, CommandWhoAmI, "whoami")
	if err := ResultError(res, 0); err != nil {
		return WhoAmIResponse{}, err
	}
	return DecodeWhoAmI(res)
}
