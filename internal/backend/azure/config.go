package azure

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mdarezzo/massundelete/internal/errors"
)

// Config contains all configuration necessary to connect to an Azure storage
// account container.
type Config struct {
	// AccountURL is the storage account endpoint, e.g.
	// https://myaccount.dfs.core.windows.net. Both the blob and the dfs
	// endpoint are accepted, the SDK derives the sibling endpoint itself.
	AccountURL string
	Container  string

	// AccountKey is the shared key for the storage account. When empty,
	// ambient credentials (environment, managed identity, Azure CLI) are
	// used instead.
	AccountKey string

	// Prefix restricts listing to deleted paths below this directory.
	Prefix string

	// ForceCliCredential disables the default credential chain and
	// authenticates through the Azure CLI only.
	ForceCliCredential bool

	ListMaxItems int32
}

const defaultListMaxItems = 5000

// NewConfig returns a new Config with the default values filled in.
func NewConfig() Config {
	return Config{
		ListMaxItems: defaultListMaxItems,
	}
}

var accountURLPattern = regexp.MustCompile(`^https://([a-z0-9]{3,24})\.(blob|dfs)\.core\.windows\.net$`)
var containerPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// Validate checks the account URL and container name. Errors returned here
// are startup errors, the caller is expected to abort.
func (cfg Config) Validate() error {
	if !accountURLPattern.MatchString(cfg.AccountURL) {
		return errors.Fatalf("invalid account URL %q, expected https://<account>.(blob|dfs).core.windows.net", cfg.AccountURL)
	}

	name := cfg.Container
	if len(name) < 3 || len(name) > 63 {
		return errors.Fatal("container name must be between 3 and 63 characters")
	}
	if !containerPattern.MatchString(name) {
		return errors.Fatal("container name can only contain lowercase letters, numbers and hyphens")
	}
	if strings.HasPrefix(name, "-") || strings.HasSuffix(name, "-") {
		return errors.Fatal("container name cannot start or end with a hyphen")
	}

	return nil
}

// AccountName extracts the storage account name from the account URL. It
// must only be called on a validated config.
func (cfg Config) AccountName() string {
	m := accountURLPattern.FindStringSubmatch(cfg.AccountURL)
	if m == nil {
		return ""
	}
	return m[1]
}

// ContainerURL returns the URL of the configured container.
func (cfg Config) ContainerURL() string {
	return fmt.Sprintf("%s/%s", cfg.AccountURL, cfg.Container)
}

// BlobContainerURL returns the container URL on the blob endpoint, which is
// the only endpoint serving the undelete operation.
func (cfg Config) BlobContainerURL() string {
	return fmt.Sprintf("%s/%s", strings.Replace(cfg.AccountURL, ".dfs.", ".blob.", 1), cfg.Container)
}
