package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/sesslog/internal/clean"
	"github.com/Zuo-Peng/sesslog/internal/prompt"
)

func classify(texts ...string) []prompt.ClassifiedLine {
	lines := make([]clean.Line, len(texts))
	for i, t := range texts {
		lines[i] = clean.Line{Index: i, Text: t}
	}
	return prompt.NewRecognizer().Classify(lines)
}

func TestSegmentScenario(t *testing.T) {
	units := Segment(classify(
		"instance-id: i-0abc",
		"user@host:~$ ls",
		"file1.txt",
		"file2.txt",
		"user@host:~$ ",
	))

	require.Len(t, units, 3)

	assert.Equal(t, "", units[0].Command)
	assert.True(t, units[0].IsPreamble())
	assert.Equal(t, []string{"instance-id: i-0abc"}, units[0].Output)

	assert.Equal(t, "ls", units[1].Command)
	assert.Equal(t, 1, units[1].Line)
	assert.Equal(t, "user-host", units[1].Dialect)
	assert.Equal(t, []string{"file1.txt", "file2.txt"}, units[1].Output)

	assert.Equal(t, "", units[2].Command)
	assert.False(t, units[2].IsPreamble())
	assert.Empty(t, units[2].Output)
}

func TestSegmentConsecutivePrompts(t *testing.T) {
	units := Segment(classify("sh-4.2$ ", "sh-4.2$ ", "sh-4.2$ pwd", "/usr/bin"))

	require.Len(t, units, 3)
	assert.Empty(t, units[0].Output)
	assert.Empty(t, units[1].Output)
	assert.Equal(t, "pwd", units[2].Command)
	assert.Equal(t, []string{"/usr/bin"}, units[2].Output)
}

func TestSegmentNoPrompt(t *testing.T) {
	units := Segment(classify("alice@mac ~ % ls", "a.txt"))

	require.Len(t, units, 1)
	assert.True(t, units[0].IsPreamble())
	assert.Equal(t, "", units[0].Command)
	assert.Equal(t, []string{"alice@mac ~ % ls", "a.txt"}, units[0].Output)
}

func TestSegmentEmpty(t *testing.T) {
	assert.Empty(t, Segment(nil))
}

func TestSegmentUnitCount(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  int
	}{
		{"prompt first", []string{"$ a", "x", "$ b"}, 2},
		{"preamble", []string{"banner", "$ a", "x"}, 2},
		{"only content", []string{"x", "y"}, 1},
		{"only prompts", []string{"$ ", "$ ", "$ "}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, Segment(classify(tt.lines...)), tt.want)
		})
	}
}

func TestSegmentCoverage(t *testing.T) {
	inputs := [][]string{
		{},
		{"only output"},
		{"banner", "", "sh-4.2$ ls", "a", "", "b", "sh-4.2$ ", "sh-4.2$ exit", "exit"},
		{"$ echo hi", "hi", "# comment run as root", "$ "},
		{"[ec2-user@web ~]$ sudo -i", "[root@web ~]# id", "uid=0(root)", "# not a prompt now"},
	}
	for _, in := range inputs {
		units := Segment(classify(in...))
		if len(in) == 0 {
			assert.Empty(t, Lines(units))
			continue
		}
		assert.Equal(t, in, Lines(units))
	}
}

func TestCommands(t *testing.T) {
	units := Segment(classify("banner", "$ a", "$ b"))
	cmds := Commands(units)
	require.Len(t, cmds, 2)
	assert.Equal(t, "a", cmds[0].Command)
	assert.Equal(t, "b", cmds[1].Command)
}
