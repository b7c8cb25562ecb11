package cmd

import (
	"testing"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		in      string
		want    *byteRange
		wantErr bool
	}{
		{in: "", want: nil},
		{in: "0-99", want: &byteRange{Start: 0, End: 99}},
		{in: "100-", want: &byteRange{Start: 100, End: -1}},
		{in: "-512", want: &byteRange{Last: 512, End: -1}},
		{in: "5-5", want: &byteRange{Start: 5, End: 5}},
		{in: "9-2", wantErr: true},
		{in: "-0", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "a-b", wantErr: true},
		{in: "1-x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseRange(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRange)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestByteRange_Resolve(t *testing.T) {
	tests := []struct {
		name       string
		rng        byteRange
		size       int64
		start, end int64
	}{
		{"explicit", byteRange{Start: 2, End: 5}, 10, 2, 5},
		{"open ended", byteRange{Start: 7, End: -1}, 10, 7, -1},
		{"last bytes", byteRange{Last: 3, End: -1}, 10, 7, 9},
		{"last more than size", byteRange{Last: 30, End: -1}, 10, 0, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := tt.rng.resolve(tt.size)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.end, end)
		})
	}
}

func TestCat(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"whole blob", []string{"cat", "az://store01/media/readme.txt"}, "hello range world"},
		{"range", []string{"cat", "--range", "6-10", "az://store01/media/readme.txt"}, "range"},
		{"open range", []string{"cat", "--range", "12-", "az://store01/media/readme.txt"}, "world"},
		{"last bytes", []string{"cat", "--range", "-5", "az://store01/media/readme.txt"}, "world"},
		{"range past end", []string{"cat", "--range", "100-200", "az://store01/media/readme.txt"}, ""},
		{"several blobs", []string{"cat", "az://store01/media/photos/2024/a.jpg", "az://store01/media/photos/2024/b.jpg"}, "aaaabb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useFixture(t)
			out, errOut, err := runCLI(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
			assert.Empty(t, errOut)
		})
	}
}

func TestCat_Header(t *testing.T) {
	useFixture(t)
	out, errOut, err := runCLI(t, "cat", "--header", "az://store01/media/photos/2023/c.jpg", "az://store01/logs/app/1.log")
	require.NoError(t, err)
	assert.Equal(t, "clog line\n", out)
	assert.Equal(t, "==> az://store01/media/photos/2023/c.jpg <==\n\n==> az://store01/logs/app/1.log <==\n", errOut)
}

func TestCat_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"invalid range", []string{"cat", "--range", "9-2", "az://store01/media/readme.txt"}, foundry.ExitInvalidArgument},
		{"wildcard", []string{"cat", "az://store01/media/*.txt"}, foundry.ExitInvalidArgument},
		{"container only", []string{"cat", "az://store01/media/"}, foundry.ExitInvalidArgument},
		{"local path", []string{"cat", "/data/media/readme.txt"}, foundry.ExitInvalidArgument},
		{"missing blob", []string{"cat", "az://store01/media/missing.txt"}, foundry.ExitExternalServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useFixture(t)
			_, _, err := runCLI(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, ExitCode(err))
		})
	}
}
