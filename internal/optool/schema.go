package optool

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// CreateVaultResponse is the document printed by `op vault create --format=json`.
type CreateVaultResponse struct {
	ID               string    `json:"id" validate:"required"`
	Name             string    `json:"name" validate:"required"`
	ContentVersion   int       `json:"content_version" validate:"gte=0"`
	CreatedAt        time.Time `json:"created_at" validate:"required"`
	UpdatedAt        time.Time `json:"updated_at"`
	Items            int       `json:"items" validate:"gte=0"`
	AttributeVersion int       `json:"attribute_version" validate:"gte=0"`
	Type             string    `json:"type"`
}

// VaultRecord is one entry of `op vault list --format=json`.
type VaultRecord struct {
	ID             string     `json:"id" validate:"required"`
	Name           string     `json:"name" validate:"required"`
	ContentVersion *int       `json:"content_version,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
	Items          *int       `json:"items,omitempty"`
}

// WhoAmIResponse is the document printed by `op whoami --format=json`.
type WhoAmIResponse struct {
	URL         string `json:"url" validate:"required,url"`
	UserUUID    string `json:"user_uuid" validate:"required"`
	AccountUUID string `json:"account_uuid"`
	UserType    string `json:"user_type"`
}

// DecodeCreateVault decodes and validates a create payload.
func DecodeCreateVault(res OperationResult) (CreateVaultResponse, error) {
	var out CreateVaultResponse
	if err := decodeStrict(res, &out); err != nil {
		return CreateVaultResponse{}, err
	}
	return out, nil
}

// DecodeVaultList decodes and validates the inventory listing.
func DecodeVaultList(res OperationResult) ([]VaultRecord, error) {
	var out []VaultRecord
	if err := decodePayload(res, &out); err != nil {
		return nil, err
	}
	for i := range out {
		if err := validate.Struct(out[i]); err != nil {
			return nil, &OutputParseError{Command: res.Command, Err: fmt.Errorf("entry %d: %w", i, err)}
		}
	}
	return out, nil
}

// DecodeWhoAmI decodes and validates the identity document.
func DecodeWhoAmI(res OperationResult) (WhoAmIResponse, error) {
	var out WhoAmIResponse
	if err := decodeStrict(res, &out); err != nil {
		return WhoAmIResponse{}, err
	}
	return out, nil
}

func decodeStrict(res OperationResult, out any) error {
	if err := decodePayload(res, out); err != nil {
		return err
	}
	if err := validate.Struct(out); err != nil {
		return &OutputParseError{Command: res.Command, Err: err}
	}
	return nil
}

func decodePayload(res OperationResult, out any) error {
	if res.DecodeErr != nil {
		return &OutputParseError{Command: res.Command, Err: res.DecodeErr}
	}
	if len(res.Payload) == 0 {
		return &OutputParseError{Command: res.Command, Err: fmt.Errorf("no JSON payload")}
	}
	if err := json.Unmarshal(res.Payload, out); err != nil {
		return &OutputParseError{Command: res.Command, Err: err}
	}
	return nil
}
