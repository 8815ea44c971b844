package open

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/Zuo-Peng/sesslog/internal/index"
)

// OpenSession opens the raw capture of sessionKey in $EDITOR, positioned on
// the prompt line of record hitSeq (the first line when hitSeq < 0).
func OpenSession(db *index.DB, sessionKey string, hitSeq int) error {
	session, err := db.GetSessionByKey(sessionKey)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}

	filePath := session.FilePath
	if _, err := os.Stat(filePath); err != nil {
		return fmt.Errorf("file not found: %s", filePath)
	}

	lineNum, err := LineFor(db, sessionKey, hitSeq)
	if err != nil {
		return err
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "less"
	}

	cmd := editorCommand(editor, filePath, lineNum)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// LineFor returns the 1-based raw line of record seq's prompt.
func LineFor(db *index.DB, sessionKey string, seq int) (int, error) {
	if seq < 0 {
		return 1, nil
	}
	records, err := db.GetRecords(sessionKey)
	if err != nil {
		return 0, fmt.Errorf("get records: %w", err)
	}
	for _, r := range records {
		if r.Seq == seq && r.LineNumber > 0 {
			return r.LineNumber, nil
		}
	}
	return 1, nil
}

func editorCommand(editor, filePath string, lineNum int) *exec.Cmd {
	// $EDITOR may carry flags, e.g. "code -w"
	fields := strings.Fields(editor)
	if len(fields) == 0 {
		fields = []string{"less"}
	}
	name, args := fields[0], fields[1:]

	switch {
	case strings.Contains(name, "vim") || strings.Contains(name, "nvim") ||
		strings.Contains(name, "nano") || strings.Contains(name, "less"):
		args = append(args, "+"+strconv.Itoa(lineNum), filePath)
	case strings.Contains(name, "code"):
		args = append(args, "--goto", filePath+":"+strconv.Itoa(lineNum))
	default:
		args = append(args, filePath)
	}
	return exec.Command(name, args...)
}
