package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/yeisme/gradevault/pkg/internal/transfer"
)

// cliConfig 写一份使用 sqlite 文件的配置，多次命令调用之间数据保持.
func cliConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	body := "server:\n  reload_config: false\n" +
		"log:\n  level: error\n  enable_file: false\n" +
		"store:\n  backend: sql\n" +
		"db:\n  type: sqlite\n  database: " + filepath.Join(dir, "gv") + "\n"

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return path
}

func run(t *testing.T, cfg string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", cfg}, args...))

	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()

	return out.String(), err
}

var uploadedID = regexp.MustCompile(`-> (\S+) \((\d+) chunks\)`)

func TestFilesCommands(t *testing.T) {
	cfg := cliConfig(t)
	dir := t.TempDir()

	data := bytes.Repeat([]byte("worksheet "), 200)
	src := filepath.Join(dir, "notes.pdf")

	if err := os.WriteFile(src, data, 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}

	out, err := run(t, cfg, "files", "upload", "grade7", src)
	if err != nil {
		t.Fatalf("files upload: %v\n%s", err, out)
	}

	m := uploadedID.FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("upload output has no id: %q", out)
	}

	id := m[1]

	if !strings.Contains(out, "[1/1] notes.pdf") {
		t.Errorf("upload progress = %q", out)
	}

	dst := filepath.Join(dir, "copy.pdf")

	if out, err := run(t, cfg, "files", "get", "grade7", id, "-o", dst); err != nil {
		t.Fatalf("files get: %v\n%s", err, out)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}

	if !bytes.Equal(got, data) {
		t.Fatal("downloaded content differs")
	}

	out, err = run(t, cfg, "files", "verify", "grade7", id)
	if err != nil || !strings.Contains(out, "ok: notes.pdf") {
		t.Fatalf("files verify = %q, %v", out, err)
	}

	out, err = run(t, cfg, "files", "ls", "grade7")
	if err != nil || !strings.Contains(out, id) {
		t.Fatalf("files ls = %q, %v", out, err)
	}

	if out, err := run(t, cfg, "files", "rm", "grade7", id); err != nil {
		t.Fatalf("files rm: %v\n%s", err, out)
	}

	if _, err := run(t, cfg, "files", "get", "grade7", id, "-o", dst); !errors.Is(err, transfer.ErrNotFound) {
		t.Fatalf("files get after rm = %v, want ErrNotFound", err)
	}

	out, err = run(t, cfg, "files", "ls", "grade7")
	if err != nil || strings.Contains(out, id) {
		t.Fatalf("files ls after rm = %q, %v", out, err)
	}
}

func TestFilesUpload_UnknownGrade(t *testing.T) {
	cfg := cliConfig(t)

	src := filepath.Join(t.TempDir(), "notes.pdf")
	if err := os.WriteFile(src, []byte("x"), 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}

	out, err := run(t, cfg, "files", "upload", "grade42", src)
	if err == nil {
		t.Fatalf("upload to unknown grade succeeded: %q", out)
	}

	if !strings.Contains(out, "[1/1] notes.pdf:") {
		t.Errorf("failure not reported per file: %q", out)
	}
}

func TestAdminCommands(t *testing.T) {
	cfg := cliConfig(t)

	if out, err := run(t, cfg, "admin", "add", "Teacher@School.edu"); err != nil {
		t.Fatalf("admin add: %v\n%s", err, out)
	}

	out, err := run(t, cfg, "admin", "check", "teacher@school.edu")
	if err != nil || !strings.Contains(out, "admin=true") {
		t.Fatalf("admin check = %q, %v", out, err)
	}

	out, err = run(t, cfg, "admin", "check", "student@school.edu")
	if err != nil || !strings.Contains(out, "admin=false") {
		t.Fatalf("admin check for non-admin = %q, %v", out, err)
	}

	out, err = run(t, cfg, "admin", "ls")
	if err != nil || !strings.Contains(out, "teacher@school.edu") {
		t.Fatalf("admin ls = %q, %v", out, err)
	}

	if out, err := run(t, cfg, "admin", "rm", "teacher@school.edu"); err != nil {
		t.Fatalf("admin rm: %v\n%s", err, out)
	}

	out, err = run(t, cfg, "admin", "check", "teacher@school.edu")
	if err != nil || !strings.Contains(out, "admin=false") {
		t.Fatalf("admin check after rm = %q, %v", out, err)
	}
}
