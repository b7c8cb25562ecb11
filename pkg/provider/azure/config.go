// Package azure implements the provider interface for Azure Blob Storage.
package azure

import (
	"strings"
)

// Config configures an Azure Blob provider.
//
// Authentication priority:
//  1. AccountKey (shared key)
//  2. SASToken appended to the service URL
//  3. Anonymous access, when Anonymous is set (public containers, Azurite)
//  4. DefaultAzureCredential: environment, workload identity, managed
//     identity, Azure CLI login
type Config struct {
	// Account is the storage account name (required).
	Account string

	// Container is the container the provider is bound to. It may be empty
	// when the provider is only used to list containers.
	Container string

	// AccountKey is a shared key for the account.
	AccountKey string

	// SASToken is a shared access signature, with or without leading '?'.
	SASToken string

	// Anonymous skips credentials entirely.
	Anonymous bool

	// EndpointSuffix is the blob service domain.
	// Defaults to blob.core.windows.net.
	EndpointSuffix string

	// Endpoint overrides the service URL. Azurite uses
	// http://127.0.0.1:10000/devstoreaccount1.
	Endpoint string

	// MaxKeys is the default page size for List operations.
	// Zero uses DefaultMaxKeys. Values over MaxAllowedKeys are clamped.
	MaxKeys int
}

// DefaultMaxKeys is the default page size for List operations.
const DefaultMaxKeys = 5000

// MaxAllowedKeys is the largest page the blob service returns.
const MaxAllowedKeys = 5000

// DefaultEndpointSuffix is the public cloud blob service domain.
const DefaultEndpointSuffix = "blob.core.windows.net"

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Account == "" && c.Endpoint == "" {
		return &ConfigError{Field: "Account", Message: "storage account name is required"}
	}
	if c.AccountKey != "" && c.Account == "" {
		return &ConfigError{Field: "Account", Message: "account name is required with an account key"}
	}
	if c.AccountKey != "" && c.SASToken != "" {
		return &ConfigError{
			Field:   "AccountKey/SASToken",
			Message: "use either an account key or a SAS token, not both",
		}
	}
	return nil
}

// ServiceURL returns the blob service URL, ending in '/'.
func (c *Config) ServiceURL() string {
	base := c.Endpoint
	if base == "" {
		suffix := c.EndpointSuffix
		if suffix == "" {
			suffix = DefaultEndpointSuffix
		}
		base = "https://" + c.Account + "." + suffix
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base
}

// sasURL returns ServiceURL with the SAS token as its query.
func (c *Config) sasURL() string {
	return c.ServiceURL() + "?" + strings.TrimPrefix(c.SASToken, "?")
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "azure config: " + e.Field + ": " + e.Message
}
