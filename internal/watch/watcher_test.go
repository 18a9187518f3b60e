package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

func startWatcher(t *testing.T, root string) <-chan Change {
	t.Helper()
	changes := make(chan Change, 16)
	w := New(root, zerolog.Nop(),
		WithDebounce(20*time.Millisecond),
		WithOnChange(func(c Change) { changes <- c }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-errCh; err != nil {
			t.Errorf("Run: %v", err)
		}
	})

	select {
	case <-w.Ready():
	case err := <-errCh:
		t.Fatalf("Run exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher not ready")
	}
	return changes
}

func waitChange(t *testing.T, changes <-chan Change, path string) Change {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-changes:
			if c.Path == path {
				return c
			}
		case <-deadline:
			t.Fatalf("no change reported for %s", path)
		}
	}
}

func TestWatcher_ReportsWrite(t *testing.T) {
	root := t.TempDir()
	changes := startWatcher(t, root)

	if err := os.WriteFile(filepath.Join(root, "app.js"), []byte("console.log(1)"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	c := waitChange(t, changes, "app.js")
	if c.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		t.Errorf("op = %v, want create or write", c.Op)
	}
}

func TestWatcher_NestedAndNewDirectories(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "lib"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	changes := startWatcher(t, root)

	if err := os.WriteFile(filepath.Join(root, "lib", "engine.wasm"), []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitChange(t, changes, "lib/engine.wasm")

	if err := os.Mkdir(filepath.Join(root, "fresh"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	waitChange(t, changes, "fresh")

	if err := os.WriteFile(filepath.Join(root, "fresh", "a.css"), []byte("a{}"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitChange(t, changes, "fresh/a.css")
}

func TestWatcher_IgnoresHidden(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".git"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	changes := startWatcher(t, root)

	if err := os.WriteFile(filepath.Join(root, ".git", "HEAD"), []byte("ref"), 0644); err != nil {
		t.Fatalf("write hidden: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "visible.txt"), []byte("v"), 0644); err != nil {
		t.Fatalf("write visible: %v", err)
	}

	// visible.txt is written last; anything hidden would have arrived first
	// or within the same debounce window.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-changes:
			if c.Path == "visible.txt" {
				return
			}
			t.Errorf("unexpected change %+v", c)
		case <-deadline:
			t.Fatal("no change reported for visible.txt")
		}
	}
}

func TestWatcher_MissingRoot(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "nope"), zerolog.Nop())
	if err := w.Run(context.Background()); err == nil {
		t.Fatal("Run() on missing root succeeded")
	}
}

func TestHidden(t *testing.T) {
	tests := []struct {
		rel  string
		want bool
	}{
		{".", false},
		{"index.html", false},
		{"lib/app.js", false},
		{".git", true},
		{".git/HEAD", true},
		{"lib/.cache/x", true},
	}

	for _, tt := range tests {
		if got := hidden(tt.rel); got != tt.want {
			t.Errorf("hidden(%q) = %v, want %v", tt.rel, got, tt.want)
		}
	}
}

func TestWatcher_RunTwice(t *testing.T) {
	w := New(t.TempDir(), zerolog.Nop())

	for i := 0; i < 2; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- w.Run(ctx) }()

		select {
		case <-w.Ready():
		case err := <-errCh:
			t.Fatalf("run %d exited early: %v", i, err)
		case <-time.After(5 * time.Second):
			t.Fatalf("run %d: watcher not ready", i)
		}
		cancel()
		if err := <-errCh; err != nil {
			t.Errorf("run %d: %v", i, err)
		}
	}
}
