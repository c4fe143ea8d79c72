package util

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jorisdejosselin/install-sync/pkg/config"
)

// mockInput points the prompt helpers at a scripted stdin and a capture
// buffer for stdout, undoing everything when the test finishes.
func mockInput(t *testing.T, input string) *bytes.Buffer {
	oldStdin, oldStdout, oldReader := stdin, stdout, lineReader

	out := &bytes.Buffer{}
	stdin = strings.NewReader(input)
	stdout = out
	lineReader = nil

	t.Cleanup(func() {
		stdin, stdout, lineReader = oldStdin, oldStdout, oldReader
	})
	return out
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		defaultYes bool
		exp        bool
	}{
		{"Yes", "y\n", false, true},
		{"YesWord", "yes\n", false, true},
		{"No", "n\n", true, false},
		{"EmptyTakesDefaultYes", "\n", true, true},
		{"EmptyTakesDefaultNo", "\n", false, false},
		{"GarbageTakesDefault", "maybe\n", true, true},
		{"EOFTakesDefault", "", false, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			out := mockInput(t, test.input)
			assert.Equal(t, test.exp, Confirm("Proceed?", test.defaultYes))
			assert.Contains(t, out.String(), "Proceed?")
		})
	}
}

func TestConfirmSuffix(t *testing.T) {
	out := mockInput(t, "\n")
	Confirm("Proceed?", true)
	assert.Contains(t, out.String(), "[Y/n]")

	out = mockInput(t, "\n")
	Confirm("Proceed?", false)
	assert.Contains(t, out.String(), "[y/N]")
}

func TestPrompt(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		defaultValue string
		exp          string
	}{
		{"Answer", "custom\n", "default", "custom"},
		{"EmptyTakesDefault", "\n", "default", "default"},
		{"WhitespaceTakesDefault", "   \n", "default", "default"},
		{"EOFTakesDefault", "", "default", "default"},
		{"TrimsAnswer", "  spaced  \n", "", "spaced"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			out := mockInput(t, test.input)
			assert.Equal(t, test.exp, Prompt("Name", test.defaultValue))
			assert.Contains(t, out.String(), "Name")
		})
	}
}

// Consecutive prompts must share the buffered reader, or the second answer
// gets swallowed by the first reader's buffer.
func TestConsecutivePrompts(t *testing.T) {
	mockInput(t, "first\nsecond\n")
	assert.Equal(t, "first", Prompt("One", ""))
	assert.Equal(t, "second", Prompt("Two", ""))
}

func TestShouldSync(t *testing.T) {
	boolPtr := func(value bool) *bool { return &value }

	tests := []struct {
		name   string
		flags  GitFlags
		global config.Global
		input  string
		exp    bool
	}{
		{
			name:  "NoGitWins",
			flags: GitFlags{NoGit: true, AutoGit: true},
			exp:   false,
		},
		{
			name:   "AutoGitSkipsPrompt",
			flags:  GitFlags{AutoGit: true},
			global: config.Global{GitPrompt: true},
			exp:    true,
		},
		{
			name:   "GlobalAutoCommitDisabled",
			global: config.Global{GitAutoCommit: boolPtr(false)},
			exp:    false,
		},
		{
			name:   "GlobalAutoPushDisabled",
			global: config.Global{GitAutoPush: boolPtr(false)},
			exp:    false,
		},
		{
			name:   "PromptAccepted",
			global: config.Global{GitPrompt: true},
			input:  "y\n",
			exp:    true,
		},
		{
			name:   "PromptDeclined",
			global: config.Global{GitPrompt: true},
			input:  "n\n",
			exp:    false,
		},
		{
			name: "DefaultEnabled",
			exp:  true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			mockInput(t, test.input)
			session := &Session{Global: test.global}
			assert.Equal(t, test.exp, session.ShouldSync(test.flags))
		})
	}
}
