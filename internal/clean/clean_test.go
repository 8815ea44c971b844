package clean

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrip(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "hello world\n", "hello world\n"},
		{"color sequence", "\x1b[01;32mgreen\x1b[0m text", "green text"},
		{"cursor movement", "a\x1b[2Kb\x1b[1Gc", "abc"},
		{"private mode", "\x1b[?2004hsh-4.2$ \x1b[?2004l", "sh-4.2$ "},
		{"osc title with bel", "\x1b]0;ec2-user@ip-10-0-0-1:~\x07prompt", "prompt"},
		{"osc title with st", "\x1b]2;title\x1b\\after", "after"},
		{"8-bit csi", "\x9b31mred", "red"},
		{"charset designation", "\x1b(Bplain", "plain"},
		{"keypad mode", "\x1b=\x1b>keys", "keys"},
		{"truncated csi at end", "visible\x1b[38;5", "visible"},
		{"lone escape at end", "visible\x1b", "visible"},
		{"truncated osc at end", "visible\x1b]0;never closed", "visible"},
		{"unterminated osc ends at newline", "a\x1b]0;title\nb\n", "a\nb\n"},
		{"unterminated dcs ends at newline", "a\x1bPq#0\nb\n", "a\nb\n"},
		{"keeps editing controls", "a\rb\bc\td\n", "a\rb\bc\td\n"},
		{"drops bell and nul", "ding\x07\x00dong", "dingdong"},
		{"drops delete", "ab\x7fc", "abc"},
		{"keeps utf-8", "héllo → wörld", "héllo → wörld"},
		{"drops invalid utf-8", "a\xffb\xc3", "ab"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(Strip([]byte(tt.in))))
		})
	}
}

func TestStripDoesNotReorder(t *testing.T) {
	in := []byte("1\x1b[1m2\x1b[0m3\r4\b5")
	assert.Equal(t, "123\r4\b5", string(Strip(in)))
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"backspace overwrites", "abc\bd\n", []string{"abd"}},
		{"carriage return overwrite", "progress 10%\rprogress 99%\n", []string{"progress 99%"}},
		{"shorter redraw trims leftovers", "progress 10%\rdone\n", []string{"done"}},
		{"crlf keeps line", "ls -la\r\n", []string{"ls -la"}},
		{"trailing cr keeps line", "output\r\r\n", []string{"output"}},
		{"trailing backspace drops char", "abc\b\n", []string{"ab"}},
		{"erase sequence", "abc\b \b\n", []string{"ab"}},
		{"readline erase then crlf", "lss\b\r\n", []string{"ls"}},
		{"backspace then cr keeps cut", "abc\b\b\r\n", []string{"a"}},
		{"edited line loses trailing blanks", "ab  x\b \n", []string{"ab"}},
		{"backspace clamps at zero", "\b\b\bxy\n", []string{"xy"}},
		{"cursor left then insert keeps tail", "abcdef\b\b\bX\n", []string{"abcXef"}},
		{"several redraws", "1%\r25%\r50%\r100%\n", []string{"100%"}},
		{"tab expands to stop", "a\tb\n", []string{"a       b"}},
		{"tab at stop", "12345678\tx\n", []string{"12345678        x"}},
		{"unterminated final line", "one\ntwo", []string{"one", "two"}},
		{"empty lines kept", "a\n\nb\n", []string{"a", "", "b"}},
		{"only newline", "\n", []string{""}},
		{"multibyte overwrite", "héllo\b\b\bLLO\n", []string{"héLLO"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Texts(Resolve([]byte(tt.in))))
		})
	}
}

func TestResolveEmpty(t *testing.T) {
	assert.Empty(t, Resolve(nil))
	assert.Empty(t, Resolve([]byte("")))
}

func TestResolveIsIdentityWithoutControls(t *testing.T) {
	in := "Script started on 2024-05-01\ninstance-id: i-0abc\nuser@host:~$ ls  \nfile1.txt\n"
	got := Texts(Resolve([]byte(in)))
	assert.Equal(t, []string{
		"Script started on 2024-05-01",
		"instance-id: i-0abc",
		"user@host:~$ ls  ",
		"file1.txt",
	}, got)
}

func TestResolveIndexes(t *testing.T) {
	lines := Resolve([]byte("a\nb\nc"))
	require.Len(t, lines, 3)
	for i, l := range lines {
		assert.Equal(t, i, l.Index)
	}
}

func TestResolveTabWidth(t *testing.T) {
	got := Texts(Resolve([]byte("a\tb\n"), WithTabWidth(4)))
	assert.Equal(t, []string{"a   b"}, got)

	got = Texts(Resolve([]byte("a\tb\n"), WithTabWidth(0)))
	assert.Equal(t, []string{"a       b"}, got)
}

func TestResolveIsDeterministicAcrossRedraws(t *testing.T) {
	once := Texts(Clean([]byte("downloading 100%\n")))
	many := Texts(Clean([]byte("downloading 1%\rdownloading 10%\r\x1b[Kdownloading 55%\rdownloading 100%\n")))
	assert.Equal(t, once, many)
}

func TestCleanColoredPrompt(t *testing.T) {
	raw := "\x1b[?2004h\x1b]0;ec2-user@ip-10-0-0-5:~\x07\x1b[01;32mec2-user@ip-10-0-0-5\x1b[00m:\x1b[01;34m~\x1b[00m$ lss\b \b -l\r\n"
	got := Texts(Clean([]byte(raw)))
	assert.Equal(t, []string{"ec2-user@ip-10-0-0-5:~$ ls -l"}, got)
}

func TestCleanUnterminatedTitleKeepsLines(t *testing.T) {
	raw := "\x1b]0;user@host: ~\r\nuser@host:~$ ls\r\nfile1\r\nuser@host:~$ pwd\r\n/home\r\n"
	got := Texts(Clean([]byte(raw)))
	assert.Equal(t, []string{"", "user@host:~$ ls", "file1", "user@host:~$ pwd", "/home"}, got)
}

func TestCleanReadlineErase(t *testing.T) {
	raw := "user@host:~$ lss\b\x1b[K\r\nfile1\r\n"
	got := Texts(Clean([]byte(raw)))
	assert.Equal(t, []string{"user@host:~$ ls", "file1"}, got)
}
