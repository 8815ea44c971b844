package render

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/sesslog/internal/config"
	"github.com/Zuo-Peng/sesslog/internal/index"
)

const capture = "Script started on 2024-05-01 10:15:42+00:00 [TERM=\"xterm\"]\r\n" +
	"instance-id: i-0aaa\r\n" +
	"sh-4.2$ ls /var/log\r\n" +
	"nginx  messages\r\n" +
	"sh-4.2$ systemctl restart nginx\r\n" +
	"sh-4.2$ ls -la\r\n" +
	"total 0\r\n" +
	"sh-4.2$ exit\r\n"

func setup(t *testing.T) *index.DB {
	t.Helper()
	root := t.TempDir()
	path := filepath.Join(root, "111", "alice-1.log")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(capture), 0o644))

	db, err := index.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{LogRoot: root, Extensions: []string{".log"}, Workers: 1}
	_, err = index.IndexAll(context.Background(), db, cfg, index.Options{})
	require.NoError(t, err)
	return db
}

func TestRenderSessionWindow(t *testing.T) {
	db := setup(t)

	out, hitLine, err := RenderSession(db, "111/alice-1", Options{HitSeq: 2, Context: 1, Query: "nginx"})
	require.NoError(t, err)

	lines := strings.Split(ansi.Strip(out), "\n")
	require.Greater(t, len(lines), hitLine)
	assert.Equal(t, ">> sh-4.2$ systemctl restart nginx", lines[hitLine])
	assert.Equal(t, "--- 111/alice-1 ---", lines[0])
	assert.Equal(t, "user=alice account=111 instance=i-0aaa started=2024-05-01 10:15:42+00:00", lines[1])
	assert.Contains(t, lines, "... (1 commands before) ...")
	assert.Contains(t, lines, "... (1 commands after) ...")
	assert.Contains(t, lines, "  nginx  messages")
	assert.NotContains(t, out, "exit")

	// keyword highlighting
	assert.Contains(t, out, colorBoldRed+"nginx"+colorReset)
}

func TestRenderSessionAll(t *testing.T) {
	db := setup(t)

	out, hitLine, err := RenderSession(db, "111/alice-1", Options{HitSeq: -1, Context: -1})
	require.NoError(t, err)
	assert.Equal(t, -1, hitLine)

	plain := ansi.Strip(out)
	assert.Contains(t, plain, "(before first prompt)")
	assert.Contains(t, plain, "  instance-id: i-0aaa")
	assert.Contains(t, plain, "sh-4.2$ exit :8")
	assert.NotContains(t, plain, "commands before")
}

func TestRenderSessionNotFound(t *testing.T) {
	db := setup(t)

	_, _, err := RenderSession(db, "nope", Options{HitSeq: -1})
	assert.ErrorIs(t, err, index.ErrSessionNotFound)
}

func TestHighlightKeywords(t *testing.T) {
	got := highlightKeywords("Restart NGINX now", "nginx AND restart")
	assert.Equal(t, colorBoldRed+"Restart"+colorReset+" "+colorBoldRed+"NGINX"+colorReset+" now", got)

	assert.Equal(t, "plain", highlightKeywords("plain", ""))
	assert.Equal(t, "plain", highlightKeywords("plain", "OR"))
}

func TestWrapLine(t *testing.T) {
	assert.Equal(t, []string{"abcdef"}, wrapLine("abcdef", 0))
	assert.Equal(t, []string{"abc"}, wrapLine("abc", 5))
	assert.Equal(t, []string{"abc", "def"}, wrapLine("abcdef", 3))

	colored := colorDim + "abcdef" + colorReset
	wrapped := wrapLine(colored, 3)
	require.Len(t, wrapped, 2)
	assert.Equal(t, "abc", ansi.Strip(wrapped[0]))
	assert.Equal(t, "def", ansi.Strip(wrapped[1]))
}

func TestIndentLines(t *testing.T) {
	assert.Equal(t, "  a\n  b", indentLines("a\nb", "  "))
}
