// Package azuri parses az:// addresses into account, container and path.
//
// Two address forms share one scheme:
//
//	az://account/container/path   (account form)
//	az://container/path           (legacy form)
//
// The first segment is read as a storage account name when it could be one
// (3-24 lowercase letters or digits). A container whose name satisfies the
// same rule is therefore always read as an account; callers that need the
// legacy reading for such names must pass the account explicitly.
package azuri

import (
	"errors"
	"fmt"
	"strings"
)

// Scheme is the address prefix handled by this package.
const Scheme = "az://"

// ErrInvalidURI indicates the address could not be parsed.
var ErrInvalidURI = errors.New("invalid URI")

// Components is a resolved address.
//
// Container is never absent but may be empty: an empty Container with
// HasAccount set means "enumerate the account's containers". Path, when
// present, never starts with the scheme.
type Components struct {
	Account    string
	HasAccount bool

	Container string

	Path    string
	HasPath bool
}

// IsAccountListing reports whether the address names an account only.
func (c *Components) IsAccountListing() bool {
	return c.HasAccount && c.Container == "" && !c.HasPath
}

// PathOrEmpty returns Path, or "" when the path is absent.
func (c *Components) PathOrEmpty() string {
	if !c.HasPath {
		return ""
	}
	return c.Path
}

// String returns the address in canonical form.
func (c *Components) String() string {
	return Format(*c)
}

// IsURI reports whether s uses the az:// scheme.
func IsURI(s string) bool {
	return strings.HasPrefix(s, Scheme)
}

// IsStorageAccountName reports whether s satisfies the storage account
// naming rule: 3 to 24 characters, lowercase ASCII letters and digits only.
func IsStorageAccountName(s string) bool {
	if len(s) < 3 || len(s) > 24 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// Resolve parses an az:// address.
//
// Examples:
//
//	az://acct/photos/2024/a.jpg -> {acct, photos, "2024/a.jpg"}
//	az://acct/photos/           -> {acct, photos, -}
//	az://acct                   -> {acct, "", -}
//	az://My_Container/a/b       -> {-, My_Container, "a/b"}
//	az://acct/photos//          -> {acct, photos, "/"}
func Resolve(address string) (*Components, error) {
	if !IsURI(address) {
		return nil, fmt.Errorf("%w: %q must start with %s", ErrInvalidURI, address, Scheme)
	}

	rest := address[len(Scheme):]
	parts := strings.SplitN(rest, "/", 3)
	if rest == "" || parts[0] == "" {
		return nil, fmt.Errorf("%w: %q: storage account or container name is required", ErrInvalidURI, address)
	}

	if IsStorageAccountName(parts[0]) {
		c := &Components{Account: parts[0], HasAccount: true}
		if len(parts) == 1 {
			return c, nil
		}
		c.Container = parts[1]
		if len(parts) == 3 && parts[2] != "" {
			c.Path = parts[2]
			c.HasPath = true
		}
		return c, nil
	}

	c := &Components{Container: parts[0]}
	if len(parts) > 1 {
		if joined := strings.Join(parts[1:], "/"); joined != "" {
			c.Path = joined
			c.HasPath = true
		}
	}
	return c, nil
}

// Format renders components as an address.
//
// Format is the inverse of Resolve for components whose container does not
// itself satisfy the account naming rule in the legacy form.
func Format(c Components) string {
	var b strings.Builder
	b.WriteString(Scheme)
	if c.HasAccount {
		b.WriteString(c.Account)
		b.WriteByte('/')
		if c.Container == "" && !c.HasPath {
			return b.String()
		}
	}
	b.WriteString(c.Container)
	if c.HasPath {
		b.WriteByte('/')
		b.WriteString(c.Path)
	}
	return b.String()
}

// Join builds the display address of a blob or prefix name.
func Join(account, container, name string) string {
	if account == "" {
		return Scheme + container + "/" + name
	}
	return Scheme + account + "/" + container + "/" + name
}
