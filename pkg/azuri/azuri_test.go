package azuri

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Components
		wantErr bool
	}{
		{
			name:  "account container path",
			input: "az://acct/photos/2024/a.jpg",
			want:  Components{Account: "acct", HasAccount: true, Container: "photos", Path: "2024/a.jpg", HasPath: true},
		},
		{
			name:  "account container trailing slash",
			input: "az://acct/photos/",
			want:  Components{Account: "acct", HasAccount: true, Container: "photos"},
		},
		{
			name:  "account container no slash",
			input: "az://acct/photos",
			want:  Components{Account: "acct", HasAccount: true, Container: "photos"},
		},
		{
			name:  "account only",
			input: "az://acct",
			want:  Components{Account: "acct", HasAccount: true},
		},
		{
			name:  "account only trailing slash",
			input: "az://acct/",
			want:  Components{Account: "acct", HasAccount: true},
		},
		{
			name:  "doubled slash keeps root path",
			input: "az://acct/photos//",
			want:  Components{Account: "acct", HasAccount: true, Container: "photos", Path: "/", HasPath: true},
		},
		{
			name:  "path with wildcards",
			input: "az://acct/photos/*/2024/*.jpg",
			want:  Components{Account: "acct", HasAccount: true, Container: "photos", Path: "*/2024/*.jpg", HasPath: true},
		},
		{
			name:  "legacy mixed case",
			input: "az://My_Container/a/b.txt",
			want:  Components{Container: "My_Container", Path: "a/b.txt", HasPath: true},
		},
		{
			name:  "legacy with hyphen",
			input: "az://my-container",
			want:  Components{Container: "my-container"},
		},
		{
			name:  "legacy trailing slash",
			input: "az://my-container/",
			want:  Components{Container: "my-container"},
		},
		{
			name:  "legacy doubled slash",
			input: "az://my-container//",
			want:  Components{Container: "my-container", Path: "/", HasPath: true},
		},
		{
			name:  "two char segment is not an account",
			input: "az://ab/container/x",
			want:  Components{Container: "ab", Path: "container/x", HasPath: true},
		},
		{
			name:  "25 char segment is not an account",
			input: "az://abcdefghijklmnopqrstuvwxy/c",
			want:  Components{Container: "abcdefghijklmnopqrstuvwxy", Path: "c", HasPath: true},
		},
		{
			name:  "24 char segment is an account",
			input: "az://abcdefghijklmnopqrstuvwx/c",
			want:  Components{Account: "abcdefghijklmnopqrstuvwx", HasAccount: true, Container: "c"},
		},
		{name: "missing scheme", input: "acct/photos", wantErr: true},
		{name: "other scheme", input: "s3://bucket/key", wantErr: true},
		{name: "empty remainder", input: "az://", wantErr: true},
		{name: "empty first segment", input: "az:///photos", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidURI)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestFormatRoundTrip(t *testing.T) {
	cases := []Components{
		{Account: "acct", HasAccount: true},
		{Account: "acct", HasAccount: true, Container: "Photos_2024"},
		{Account: "acct", HasAccount: true, Container: "my-photos", Path: "2024/a.jpg", HasPath: true},
		{Account: "store01", HasAccount: true, Container: "c", Path: "/", HasPath: true},
		{Container: "My_Container"},
		{Container: "My_Container", Path: "deep/nested/key.txt", HasPath: true},
		{Container: "x-y", Path: "a", HasPath: true},
	}

	for _, c := range cases {
		t.Run(Format(c), func(t *testing.T) {
			got, err := Resolve(Format(c))
			require.NoError(t, err)
			assert.Equal(t, c, *got)
		})
	}
}

func TestIsStorageAccountName(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"abc", true},
		{"store01", true},
		{"ab", false},
		{"Store01", false},
		{"store_01", false},
		{"store-01", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, IsStorageAccountName(tt.input))
		})
	}
}

func TestComponentsHelpers(t *testing.T) {
	c, err := Resolve("az://acct/")
	require.NoError(t, err)
	assert.True(t, c.IsAccountListing())
	assert.Equal(t, "", c.PathOrEmpty())
	assert.Equal(t, "az://acct/", c.String())

	c, err = Resolve("az://acct/photos/2024/")
	require.NoError(t, err)
	assert.False(t, c.IsAccountListing())
	assert.Equal(t, "2024/", c.PathOrEmpty())

	assert.True(t, IsURI("az://x"))
	assert.False(t, IsURI("/tmp/x"))
	assert.Equal(t, "az://acct/photos/a.jpg", Join("acct", "photos", "a.jpg"))
	assert.Equal(t, "az://My_C/a.jpg", Join("", "My_C", "a.jpg"))
}
