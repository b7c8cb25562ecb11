package cmd

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/azst/pkg/output"
)

func TestDu(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "directories",
			args: []string{"du", "az://store01/media/photos/"},
			want: "1   az://store01/media/photos/2023/\n" +
				"14  az://store01/media/photos/2024/\n" +
				"8   az://store01/media/photos/2024/raw/\n",
		},
		{
			name: "with total",
			args: []string{"du", "-c", "az://store01/media/photos/"},
			want: "1   az://store01/media/photos/2023/\n" +
				"14  az://store01/media/photos/2024/\n" +
				"8   az://store01/media/photos/2024/raw/\n" +
				"15  az://store01/media/photos/ (total)\n",
		},
		{
			name: "summarize",
			args: []string{"du", "-s", "az://store01/media/photos/"},
			want: "15  az://store01/media/photos/\n",
		},
		{
			name: "human readable",
			args: []string{"du", "-s", "-H", "az://store01/media/"},
			want: "32 B  az://store01/media/\n",
		},
		{
			name: "pattern restricts blobs",
			args: []string{"du", "-c", "az://store01/media/photos/*/*.jpg"},
			want: "1  az://store01/media/photos/2023/\n" +
				"6  az://store01/media/photos/2024/\n" +
				"7  az://store01/media/photos/ (total)\n",
		},
		{
			name: "exclude",
			args: []string{"du", "-s", "--exclude", "**/*.cr2", "az://store01/media/photos/"},
			want: "7  az://store01/media/photos/\n",
		},
		{
			name: "account",
			args: []string{"du", "az://store01/"},
			want: "9   az://store01/logs/\n32  az://store01/media/\n",
		},
		{
			name: "account total",
			args: []string{"du", "-c", "az://store01/"},
			want: "9   az://store01/logs/\n32  az://store01/media/\n41  az://store01/ (total)\n",
		},
		{
			name: "account summarize",
			args: []string{"du", "-s", "az://store01/"},
			want: "41  az://store01/\n",
		},
		{
			name: "local summarize",
			args: []string{"du", "-s", "/data/media/photos"},
			want: "15  /data/media/photos\n",
		},
		{
			name: "local tree",
			args: []string{"du", "/data/media/photos"},
			want: "15  /data/media/photos\n" +
				"1   /data/media/photos/2023\n" +
				"14  /data/media/photos/2024\n" +
				"8   /data/media/photos/2024/raw\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useFixture(t)
			out, _, err := runCLI(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestDu_ExcludeHidden(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"hidden counted by default", []string{"du", "-s", "az://store01/media/"}, "39  az://store01/media/
"},
		{"container", []string{"du", "-s", "--exclude-hidden", "az://store01/media/"}, "32  az://store01/media/
"},
		{"local", []string{"du", "-s", "--exclude-hidden", "/data/media"}, "32  /data/media
"},
		{"local exclude", []string{"du", "-s", "--exclude", "**/*.cr2", "/data/media/photos"}, "7  /data/media/photos
"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useFixture(t)
			addHiddenFiles(t)
			out, _, err := runCLI(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestDu_JSONL(t *testing.T) {
	useFixture(t)
	out, _, err := runCLI(t, "--output", "jsonl", "du", "-c", "az://store01/logs/")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)

	var rows []output.UsageRecord
	for _, line := range lines {
		var rec output.Record
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		assert.Equal(t, output.TypeUsage, rec.Type)

		var row output.UsageRecord
		require.NoError(t, json.Unmarshal(rec.Data, &row))
		rows = append(rows, row)
	}
	assert.Equal(t, []output.UsageRecord{
		{Path: "az://store01/logs/app/", Size: 9},
		{Path: "az://store01/logs/", Size: 9, Total: true},
	}, rows)
}

func TestDu_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"missing argument", []string{"du"}, 1},
		{"invalid uri", []string{"du", "az://"}, foundry.ExitInvalidArgument},
		{"missing container", []string{"du", "az://store01/nope/"}, foundry.ExitExternalServiceUnavailable},
		{"missing local path", []string{"du", "/nowhere"}, foundry.ExitFileNotFound},
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
