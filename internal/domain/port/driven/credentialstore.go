package driven

import (
	"context"
	"errors"

	"github.com/pvanburen/azpanel/internal/domain/model"
)

// ErrEncryptionKeyNotSet is returned by CredentialStore operations when
// AZPANEL_SECRET_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set AZPANEL_SECRET_KEY")

// CredentialStore defines the driven port for encrypted credential
// persistence. The adapter layer is responsible for encryption/decryption;
// this interface operates on plaintext values at the domain boundary.
type CredentialStore interface {
	// Set stores or replaces the named credential with the provided
	// plaintext value. Returns ErrEncryptionKeyNotSet if the adapter was
	// constructed without an encryption key.
	Set(ctx context.Context, name, plaintext string) error

	// Get retrieves the plaintext credential for the given name.
	// Returns ("", nil) if no credential exists under that name.
	Get(ctx context.Context, name string) (string, error)

	// List returns all stored credentials with decrypted values.
	List(ctx context.Context) ([]model.Credential, error)

	// Delete removes the named credential.
	Delete(ctx context.Context, name string) error
}
