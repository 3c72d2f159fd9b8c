package tools

import (
	"context"
	"strings"
	"testing"
)

func TestFilesystemToolRoundtrip(t *testing.T) {
	fs := NewFilesystemTool(t.TempDir())
	ctx := context.Background()

	if _, err := fs.Execute(ctx, `{"command": "write", "filename": "notes/a.txt", "content": "hello"}`); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	out, err := fs.Execute(ctx, `{"command": "read", "filename": "notes/a.txt"}`)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if out != "hello" {
		t.Errorf("expected 'hello', got %q", out)
	}

	out, err = fs.Execute(ctx, `{"command": "list", "filename": "notes"}`)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out, "a.txt") {
		t.Errorf("list missing file: %q", out)
	}

	if _, err := fs.Execute(ctx, `{"command": "delete", "filename": "notes/a.txt"}`); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := fs.Execute(ctx, `{"command": "read", "filename": "notes/a.txt"}`); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestFilesystemToolRefusesEscape(t *testing.T) {
	fs := NewFilesystemTool(t.TempDir())
	ctx := context.Background()

	for _, name := range []string{"../outside.txt", "../../etc/passwd", ".."} {
		input := `{"command": "read", "filename": "` + name + `"}`
		if _, err := fs.Execute(ctx, input); err == nil {
			t.Errorf("expected refusal for path %q", name)
		}
	}
}
