package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/DjordjeVuckovic/lantern/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_EntryLoadsAsDirectory(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"-email", " Editor@Lantern.News ", "-name", "Desk Editor", "-id", "editor-1", "-cost", "4"},
		strings.NewReader("s3cret pass\n"), &out)
	require.NoError(t, err)

	doc := "staff:\n" + indent(out.String())
	dir, err := auth.LoadDirectory(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 1, dir.Len())

	actor, found, err := dir.Lookup(t.Context(), "editor@lantern.news")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "editor-1", actor.ID)
	assert.Equal(t, "Desk Editor", actor.DisplayName)
	assert.NotContains(t, out.String(), "s3cret")
}

func TestRun_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		stdin string
	}{
		{"missing email", []string{"-password", "x"}, ""},
		{"cost out of range", []string{"-email", "a@b.c", "-password", "x", "-cost", "99"}, ""},
		{"empty password", []string{"-email", "a@b.c"}, "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			assert.Error(t, run(tt.args, strings.NewReader(tt.stdin), &out))
			assert.Empty(t, out.String())
		})
	}
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n") + "\n"
}
