package export

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/sesslog/internal/config"
	"github.com/Zuo-Peng/sesslog/internal/enrich"
)

const capture = "Script started on 2024-05-01 10:15:42+00:00 [TERM=\"xterm\"]\r\n" +
	"instance-id: i-0aaa\r\n" +
	"sh-4.2$ ls\r\n" +
	"a  b\r\n" +
	"sh-4.2$ \r\n" +
	"sh-4.2$ exit\r\n"

func TestWriteJSONL(t *testing.T) {
	var buf bytes.Buffer
	err := WriteJSONL(&buf, []enrich.Record{
		{User: "alice", Command: "ls", Output: "a  b"},
		{Command: "echo <x> & y"},
	})
	require.NoError(t, err)

	want := `{"session_start_time":null,"instance_id":null,"session_id":null,"user":"alice","aws_account_id":null,"command":"ls","output":"a  b"}
{"session_start_time":null,"instance_id":null,"session_id":null,"user":null,"aws_account_id":null,"command":"echo <x> & y","output":""}
`
	assert.Equal(t, want, buf.String())
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/out", "111", "alice-1.json"), OutputPath("/out", "111/alice-1.log"))
	assert.Equal(t, filepath.Join("/out", "111", "us", "bob-2.json"), OutputPath("/out", "111/us/bob-2.log.gz"))
	assert.Equal(t, filepath.Join("/out", "carol-3.json"), OutputPath("/out", "carol-3.txt"))
}

func readLines(t *testing.T, path string) []enrich.Record {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []enrich.Record
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r enrich.Record
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		out = append(out, r)
	}
	require.NoError(t, sc.Err())
	return out
}

func setup(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		LogRoot:      root,
		ProcessedDir: filepath.Join(root, "processed_logs"),
		Extensions:   []string{".log"},
		Workers:      2,
	}
	for rel, body := range map[string]string{
		"111/alice-1.log": capture,
		"111/bob-2.log":   "no prompts at all\r\n",
	} {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	return cfg
}

func TestRunCommandsOnly(t *testing.T) {
	cfg := setup(t)

	stats, err := Run(context.Background(), cfg, Options{CommandsOnly: true})
	require.NoError(t, err)
	assert.Equal(t, Stats{Scanned: 2, Written: 1, Empty: 1}, stats)

	out := filepath.Join(cfg.ProcessedDir, "111", "alice-1.json")
	records := readLines(t, out)
	require.Len(t, records, 2)
	assert.Equal(t, "ls", records[0].Command)
	assert.Equal(t, "a  b", records[0].Output)
	assert.Equal(t, "exit", records[1].Command)
	for _, r := range records {
		assert.Equal(t, "alice", r.User)
		assert.Equal(t, "1", r.SessionID)
		assert.Equal(t, "111", r.AccountID)
		assert.Equal(t, "i-0aaa", r.InstanceID)
		assert.Equal(t, "2024-05-01 10:15:42+00:00", r.SessionStartTime)
	}

	_, err = os.Stat(filepath.Join(cfg.ProcessedDir, "111", "bob-2.json"))
	assert.True(t, os.IsNotExist(err))

	// a second run does not pick up its own output
	stats, err = Run(context.Background(), cfg, Options{CommandsOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Scanned)
}

func TestRunAllRecords(t *testing.T) {
	cfg := setup(t)

	_, err := Run(context.Background(), cfg, Options{})
	require.NoError(t, err)

	records := readLines(t, filepath.Join(cfg.ProcessedDir, "111", "alice-1.json"))
	require.Len(t, records, 4)
	assert.Equal(t, "", records[0].Command)
	assert.Contains(t, records[0].Output, "instance-id: i-0aaa")
	assert.Equal(t, "", records[2].Command)
}

func TestRunCancelled(t *testing.T) {
	cfg := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, cfg, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}
