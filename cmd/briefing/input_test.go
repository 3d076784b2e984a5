package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"briefing/internal/domain"
)

func TestValidateRequest(t *testing.T) {
	cases := []struct {
		name string
		task domain.Task
		req  domain.Request
		want error
	}{
		{"empty text", domain.TaskExtract, domain.Request{}, errNoText},
		{"whitespace text", domain.TaskSimplify, domain.Request{Text: " \n\t "}, errNoText},
		{"blank question", domain.TaskAsk, domain.Request{Text: "doc", Question: "  "}, errNoQuestion},
		{"text checked first", domain.TaskAsk, domain.Request{Question: "why?"}, errNoText},
		{"question ignored outside ask", domain.TaskSummarize, domain.Request{Text: "doc"}, nil},
		{"ok ask", domain.TaskAsk, domain.Request{Text: "doc", Question: "why?"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, validateRequest(tc.task, tc.req))
		})
	}
}

func TestCommandsRejectBlankInput(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.txt")
	doc := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(empty, []byte("  \n"), 0o600))
	require.NoError(t, os.WriteFile(doc, []byte("Quarterly plan."), 0o600))
	// Never read: validation fails before the config is loaded.
	cfgPath := filepath.Join(dir, "missing.yaml")

	cases := []struct {
		name string
		cmd  *cobra.Command
		args []string
		want error
	}{
		{"extract", extractCMD(&cfgPath), []string{empty}, errNoText},
		{"summarize", summarizeCMD(&cfgPath), []string{empty}, errNoText},
		{"simplify", simplifyCMD(&cfgPath), []string{empty}, errNoText},
		{"ask empty text", askCMD(&cfgPath), []string{"-q", "when?", empty}, errNoText},
		{"ask blank question", askCMD(&cfgPath), []string{"-q", "", doc}, errNoQuestion},
		{"tui", tuiCMD(&cfgPath), []string{empty}, errNoText},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			tc.cmd.SetOut(&out)
			tc.cmd.SetErr(&out)
			tc.cmd.SetArgs(tc.args)
			tc.cmd.SilenceUsage = true
			err := tc.cmd.Execute()
			assert.ErrorIs(t, err, tc.want)
			assert.NotContains(t, out.String(), "success")
		})
	}
}
