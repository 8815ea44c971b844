package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/sesslog/internal/clean"
)

func linesOf(texts ...string) []clean.Line {
	out := make([]clean.Line, len(texts))
	for i, t := range texts {
		out[i] = clean.Line{Index: i, Text: t}
	}
	return out
}

func TestMatchDefaultDialects(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		dialect string
		command string
	}{
		{"ssm shell", "sh-4.2$ ls -la", "ssm-sh", "ls -la"},
		{"ssm shell root", "sh-4.2# whoami", "ssm-sh", "whoami"},
		{"ssm shell via agent", "sh-5.2(via ssm-agent-session)$ uptime", "ssm-sh", "uptime"},
		{"ssm shell no command", "sh-4.2$ ", "ssm-sh", ""},
		{"bash default", "bash-4.2$ ls", "ssm-sh", "ls"},
		{"bash default root", "bash-5.1# id", "ssm-sh", "id"},
		{"user host", "user@host:~$ ls", "user-host", "ls"},
		{"user host root", "root@ip-10-0-0-1:/var/log# tail -n 5 syslog", "user-host", "tail -n 5 syslog"},
		{"user host dollar in command", "user@host:~$ echo $HOME", "user-host", "echo $HOME"},
		{"user host bare", "user@host:/tmp$", "user-host", ""},
		{"bracketed", "[ec2-user@ip-172-31-0-9 ~]$ df -h", "bracketed", "df -h"},
		{"bracketed root", "[root@web01 conf.d]# nginx -t", "bracketed", "nginx -t"},
		{"posix", "$ make test", "posix", "make test"},
		{"posix bare", "$", "posix", ""},
		{"root", "# reboot", "root", "reboot"},
	}

	r := NewRecognizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Classify(linesOf(tt.line))
			require.Len(t, got, 1)
			assert.Equal(t, RolePrompt, got[0].Role)
			assert.Equal(t, tt.dialect, got[0].Dialect)
			assert.Equal(t, tt.command, got[0].Command)
			assert.True(t, strings.HasPrefix(tt.line, got[0].Prompt))
		})
	}
}

func TestContentLines(t *testing.T) {
	lines := []string{
		"file1.txt",
		"total 48",
		"drwxr-xr-x 2 root root 4096 May  1 10:00 .",
		"$HOME is not set",
		"#!/bin/bash",
		"git@github.com:org/repo.git",
		"Script started on 2024-05-01 10:00:00+00:00 [TERM=\"xterm\"]",
		"",
	}

	got := NewRecognizer().Classify(linesOf(lines...))
	for _, c := range got {
		assert.Equal(t, RoleContent, c.Role, "line %q", c.Text)
		assert.Empty(t, c.Dialect)
	}
}

func TestBannerIsNeverPrompt(t *testing.T) {
	banner, err := NewDialect("greedy", `.*?: `)
	require.NoError(t, err)

	for _, r := range []*Recognizer{NewRecognizer(), NewRecognizer(append([]Dialect{banner}, DefaultDialects()...)...)} {
		got := r.Classify(linesOf("instance-id: i-0123456789abcdef0", "sh-4.2$ ls"))
		assert.Equal(t, RoleContent, got[0].Role)
		assert.Equal(t, RolePrompt, got[1].Role)
	}
}

func TestGenericDialectsStopAfterQualifiedPrompt(t *testing.T) {
	got := NewRecognizer().Classify(linesOf(
		"# before any real prompt",
		"user@host:~$ cat /etc/fstab",
		"# /etc/fstab: static file system information.",
		"$ not a prompt either",
		"root@host:~# exit",
	))

	assert.Equal(t, RolePrompt, got[0].Role)
	assert.Equal(t, "root", got[0].Dialect)
	assert.Equal(t, RolePrompt, got[1].Role)
	assert.Equal(t, RoleContent, got[2].Role)
	assert.Equal(t, RoleContent, got[3].Role)
	assert.Equal(t, RolePrompt, got[4].Role)
	assert.Equal(t, "exit", got[4].Command)
}

func TestFirstMatchWins(t *testing.T) {
	custom, err := NewDialect("kube", `\S+@\S+:\S*\$ `)
	require.NoError(t, err)

	got := NewRecognizer(custom, userHost).Classify(linesOf("user@host:~$ ls"))
	assert.Equal(t, "kube", got[0].Dialect)

	got = NewRecognizer(userHost, custom).Classify(linesOf("user@host:~$ ls"))
	assert.Equal(t, "user-host", got[0].Dialect)
}

func TestUnknownShellDegradesToContent(t *testing.T) {
	zsh := linesOf("alice@mac ~ % ls", "a.txt", "alice@mac ~ % exit")
	for _, c := range NewRecognizer().Classify(zsh) {
		assert.Equal(t, RoleContent, c.Role)
	}

	custom, err := NewDialect("zsh", `\S+@\S+ \S+ % `)
	require.NoError(t, err)
	got := NewRecognizer(custom).Classify(zsh)
	assert.Equal(t, RolePrompt, got[0].Role)
	assert.Equal(t, "ls", got[0].Command)
	assert.Equal(t, RoleContent, got[1].Role)
}

func TestClassifyKeepsEveryLine(t *testing.T) {
	lines := linesOf("a", "sh-4.2$ ls", "b", "sh-4.2$ ")
	got := NewRecognizer().Classify(lines)
	require.Len(t, got, len(lines))
	for i := range lines {
		assert.Equal(t, lines[i], got[i].Line)
	}
}

func TestNewDialectErrors(t *testing.T) {
	_, err := NewDialect("", `\$ `)
	assert.Error(t, err)

	_, err = NewDialect("broken", `(`)
	assert.Error(t, err)
}

func TestSelect(t *testing.T) {
	all, err := Select(nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, len(DefaultDialects()))

	some, err := Select([]string{"root", "ssm-sh"}, []CustomSpec{{Name: "zsh", Pattern: `\S+ % `}})
	require.NoError(t, err)
	require.Len(t, some, 3)
	assert.Equal(t, "zsh", some[0].Name)
	assert.Equal(t, "ssm-sh", some[1].Name)
	assert.Equal(t, "root", some[2].Name)

	_, err = Select([]string{"fish"}, nil)
	assert.Error(t, err)
}
