package cmd

import (
	"github.com/3leaps/azst/pkg/azuri"
)

// Target is a resolved command argument: a blob address or a local path.
type Target struct {
	// Local is set for arguments without the az:// scheme; Path then holds
	// the filesystem path.
	Local bool
	Path  string

	Account   string
	Container string

	// BlobPath is the path below the container, possibly with wildcards.
	BlobPath string
}

// ParseTarget resolves arg. An empty arg names the containers of
// defaultAccount. The account in an account-form address wins over
// defaultAccount.
func ParseTarget(arg, defaultAccount string) (*Target, error) {
	if arg == "" {
		return &Target{Account: defaultAccount}, nil
	}
	if !azuri.IsURI(arg) {
		return &Target{Local: true, Path: arg}, nil
	}

	c, err := azuri.Resolve(arg)
	if err != nil {
		return nil, err
	}

	t := &Target{
		Account:   defaultAccount,
		Container: c.Container,
		BlobPath:  c.PathOrEmpty(),
	}
	if c.HasAccount {
		t.Account = c.Account
	}
	return t, nil
}

// IsAccount reports whether the target names an account's containers.
func (t *Target) IsAccount() bool {
	return !t.Local && t.Container == ""
}

// URI returns the display address of name within the target container.
func (t *Target) URI(name string) string {
	return azuri.Join(t.Account, t.Container, name)
}

// ContainerURI returns the display address of a container of the target
// account.
func (t *Target) ContainerURI(container string) string {
	return azuri.Join(t.Account, container, "")
}

// String returns the display address of the target itself.
func (t *Target) String() string {
	switch {
	case t.Local:
		return t.Path
	case t.IsAccount():
		if t.Account == "" {
			return azuri.Scheme
		}
		return azuri.Scheme + t.Account + "/"
	default:
		return t.URI(t.BlobPath)
	}
}
