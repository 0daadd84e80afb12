package agent

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func coreToolsFixture(t *testing.T) (*ToolRegistry, *LocalEnv) {
	t.Helper()
	reg := NewToolRegistry()
	RegisterCoreTools(reg, 10000, 60000)
	return reg, NewLocalEnv(t.TempDir())
}

func runTool(t *testing.T, reg *ToolRegistry, env ExecutionEnvironment, name string, args map[string]interface{}) (string, error) {
	t.Helper()
	tool := reg.Get(name)
	if tool == nil {
		t.Fatalf("tool %s not registered", name)
	}
	return tool.Executor(context.Background(), args, env)
}

func TestCoreToolsRegistered(t *testing.T) {
	reg, _ := coreToolsFixture(t)
	for _, name := range []string{"read_file", "write_file", "edit_file", "shell", "grep", "glob", "list_dir"} {
		if reg.Get(name) == nil {
			t.Errorf("%s missing", name)
		}
	}
}

func TestReadFileNumbering(t *testing.T) {
	reg, env := coreToolsFixture(t)
	path := filepath.Join(env.WorkingDirectory(), "f.txt")
	if err := os.WriteFile(path, []byte("alpha\nbeta\ngamma"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := runTool(t, reg, env, "read_file", map[string]interface{}{"file_path": "f.txt"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "     1\talpha\n") || !strings.Contains(out, "     3\tgamma\n") {
		t.Errorf("output = %q", out)
	}
}

func TestReadFileOffsetAndLimit(t *testing.T) {
	reg, env := coreToolsFixture(t)
	var lines []string
	for i := 1; i <= 20; i++ {
		lines = append(lines, "line")
	}
	path := filepath.Join(env.WorkingDirectory(), "f.txt")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := runTool(t, reg, env, "read_file", map[string]interface{}{
		"file_path": "f.txt",
		"offset":    float64(10),
		"limit":     float64(3),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "    10\t") || strings.Contains(out, "    13\t") {
		t.Errorf("window wrong: %q", out)
	}
}

func TestReadFileMissingArgs(t *testing.T) {
	reg, env := coreToolsFixture(t)
	if _, err := runTool(t, reg, env, "read_file", map[string]interface{}{}); err == nil {
		t.Error("want error for missing file_path")
	}
	if _, err := runTool(t, reg, env, "read_file", map[string]interface{}{"file_path": "absent.txt"}); err == nil {
		t.Error("want error for missing file")
	}
}

func TestWriteThenEditFile(t *testing.T) {
	reg, env := coreToolsFixture(t)

	out, err := runTool(t, reg, env, "write_file", map[string]interface{}{
		"file_path": "nested/dir/a.go",
		"content":   "package main\n\nvar x = 1\n",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "nested/dir/a.go") {
		t.Errorf("output = %q", out)
	}

	if _, err := runTool(t, reg, env, "edit_file", map[string]interface{}{
		"file_path":  "nested/dir/a.go",
		"old_string": "var x = 1",
		"new_string": "var x = 2",
	}); err != nil {
		t.Fatal(err)
	}

	content, err := env.ReadFile("nested/dir/a.go")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(content, "var x = 2") {
		t.Errorf("content = %q", content)
	}
}

func TestEditFileAmbiguousMatch(t *testing.T) {
	reg, env := coreToolsFixture(t)
	if err := env.WriteFile("f.txt", "dup\ndup\n"); err != nil {
		t.Fatal(err)
	}

	_, err := runTool(t, reg, env, "edit_file", map[string]interface{}{
		"file_path":  "f.txt",
		"old_string": "dup",
		"new_string": "x",
	})
	if err == nil || !strings.Contains(err.Error(), "2 times") {
		t.Errorf("err = %v", err)
	}

	if _, err := runTool(t, reg, env, "edit_file", map[string]interface{}{
		"file_path":   "f.txt",
		"old_string":  "dup",
		"new_string":  "x",
		"replace_all": true,
	}); err != nil {
		t.Fatal(err)
	}
	content, _ := env.ReadFile("f.txt")
	if content != "x\nx\n" {
		t.Errorf("content = %q", content)
	}
}

func TestEditFileNotFound(t *testing.T) {
	reg, env := coreToolsFixture(t)
	if err := env.WriteFile("f.txt", "hello"); err != nil {
		t.Fatal(err)
	}
	_, err := runTool(t, reg, env, "edit_file", map[string]interface{}{
		"file_path":  "f.txt",
		"old_string": "absent",
		"new_string": "x",
	})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("err = %v", err)
	}
}

func TestShellExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("bash test")
	}
	reg, env := coreToolsFixture(t)

	out, err := runTool(t, reg, env, "shell", map[string]interface{}{"command": "echo hi"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "hi" {
		t.Errorf("output = %q", out)
	}

	out, err = runTool(t, reg, env, "shell", map[string]interface{}{"command": "exit 3"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "[Exit code: 3]") {
		t.Errorf("output = %q", out)
	}
}

func TestShellTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("bash test")
	}
	reg, env := coreToolsFixture(t)

	out, err := runTool(t, reg, env, "shell", map[string]interface{}{
		"command":    "sleep 5",
		"timeout_ms": float64(50),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "timed out") {
		t.Errorf("output = %q", out)
	}
}

func TestGlobTool(t *testing.T) {
	reg, env := coreToolsFixture(t)
	for _, name := range []string{"a.go", "b.go", "c.txt"} {
		if err := env.WriteFile(name, ""); err != nil {
			t.Fatal(err)
		}
	}

	out, err := runTool(t, reg, env, "glob", map[string]interface{}{"pattern": "*.go"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "a.go") || !strings.Contains(out, "b.go") || strings.Contains(out, "c.txt") {
		t.Errorf("output = %q", out)
	}

	out, err = runTool(t, reg, env, "glob", map[string]interface{}{"pattern": "*.rs"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "No files matched the pattern." {
		t.Errorf("output = %q", out)
	}
}

func TestListDirTool(t *testing.T) {
	reg, env := coreToolsFixture(t)
	if err := env.WriteFile("sub/inner.txt", "x"); err != nil {
		t.Fatal(err)
	}
	if err := env.WriteFile("top.txt", "hello"); err != nil {
		t.Fatal(err)
	}

	out, err := runTool(t, reg, env, "list_dir", map[string]interface{}{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "sub/") || !strings.Contains(out, "top.txt (5 bytes)") {
		t.Errorf("output = %q", out)
	}
}

func TestSensitiveEnvFiltering(t *testing.T) {
	if !isSensitiveEnv("OPENAI_API_KEY") || !isSensitiveEnv("db_password") {
		t.Error("sensitive names not flagged")
	}
	if isSensitiveEnv("PATH") || isSensitiveEnv("EDITOR") {
		t.Error("benign names flagged")
	}
}
