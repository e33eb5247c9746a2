package flagx

import (
	"flag"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSet() *flag.FlagSet {
	fs := flag.NewFlagSet("t", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.String("d", "", "")
	fs.String("remote", "", "")
	fs.Bool("v", false, "")
	return fs
}

func TestKnown(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"empty", nil, []string{}},
		{"separate value", []string{"-d", "/tmp/v", "-x", "1"}, []string{"-d", "/tmp/v"}},
		{"equals form", []string{"-remote=https://dav", "-x=1"}, []string{"-remote=https://dav"}},
		{"double dash", []string{"--remote", "s3://b", "--d=/x"}, []string{"--remote", "s3://b", "--d=/x"}},
		{"unknown only", []string{"-x", "1", "positional"}, []string{}},
		{"missing value at end", []string{"-d"}, []string{"-d"}},
		{"next token is a flag", []string{"-d", "-v"}, []string{"-d", "-v"}},
		{"bool does not eat value", []string{"-v", "positional", "-d", "a"}, []string{"-v", "-d", "a"}},
		{"terminator stops scan", []string{"-d", "a", "--", "-remote", "b"}, []string{"-d", "a"}},
		{"single dash is not a flag", []string{"-", "-d", "a"}, []string{"-d", "a"}},
		{"repeated keeps order", []string{"-d", "one", "-d", "two"}, []string{"-d", "one", "-d", "two"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Known(testSet(), tt.args)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("Known() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestKnown_ResultParses(t *testing.T) {
	fs := testSet()
	args := []string{"-k", "webdav", "--remote=https://dav", "-v", "-d", "/data", "extra"}

	require.NoError(t, fs.Parse(Known(fs, args)))
	assert.Equal(t, "https://dav", fs.Lookup("remote").Value.String())
	assert.Equal(t, "/data", fs.Lookup("d").Value.String())
	assert.Equal(t, "true", fs.Lookup("v").Value.String())
}

func TestConfigPath(t *testing.T) {
	assert.Equal(t, "/etc/pv.json", ConfigPath([]string{"-d", "x", "-c", "/etc/pv.json"}))
	assert.Equal(t, "a.json", ConfigPath([]string{"--config=a.json"}))
	assert.Equal(t, "b.json", ConfigPath([]string{"-c", "a.json", "-config", "b.json"}))
	assert.Empty(t, ConfigPath([]string{"-x", "1"}))
	assert.Empty(t, ConfigPath(nil))
}
