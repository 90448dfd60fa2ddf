package gdrive

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/drive/v3"

	"github.com/Ning0612/Stowage/internal/domain"
)

// Scopes requested for the service account
var Scopes = []string{
	drive.DriveScope,                 // Full access to files
	drive.DriveMetadataReadonlyScope, // Folder graph walks
}

// NormalizePrivateKey restores newlines that were escaped as "\n",
// as happens when a PEM key is stored in a single-line env variable.
func NormalizePrivateKey(key string) string {
	return strings.ReplaceAll(key, `\n`, "\n")
}

// JWTConfig returns the service account configuration for the given credentials
func JWTConfig(clientEmail, privateKey string) (*jwt.Config, error) {
	if clientEmail == "" || privateKey == "" {
		return nil, fmt.Errorf("%w: service account email and private key are required", domain.ErrConfigInvalid)
	}

	return &jwt.Config{
		Email:      clientEmail,
		PrivateKey: []byte(NormalizePrivateKey(privateKey)),
		Scopes:     Scopes,
		TokenURL:   google.JWTTokenURL,
	}, nil
}

// NewServiceAccountClient returns an HTTP client that signs requests with
// tokens obtained for the service account. Tokens are refreshed on expiry.
func NewServiceAccountClient(ctx context.Context, clientEmail, privateKey string) (*http.Client, error) {
	cfg, err := JWTConfig(clientEmail, privateKey)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, cfg.TokenSource(ctx)), nil
}
