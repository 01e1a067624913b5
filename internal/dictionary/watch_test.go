package dictionary_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatch_ReloadsOnChange(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	e := newEngine(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Watch(ctx, dir, 20*time.Millisecond) }()

	// The watcher registers asynchronously, so keep touching the file until
	// the reload lands.
	deadline := time.Now().Add(5 * time.Second)
	for i := 0; !e.IsValid("gizmo"); i++ {
		if time.Now().After(deadline) {
			t.Fatal("dictionary was not reloaded after the file changed")
		}
		data := fmt.Sprintf("# rev %d\ngizmoo\tgizmo\t0.9\n", i)
		if err := os.WriteFile(filepath.Join(dir, "general.txt"), []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(50 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
