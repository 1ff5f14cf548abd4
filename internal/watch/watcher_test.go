package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/perthro/internal/sse"
)

var artifactExts = []string{".csv", ".json", ".txt"}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) cb(evidence bool, kind, rel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	class := "artifact"
	if evidence {
		class = "evidence"
	}
	r.events = append(r.events, class+":"+kind+":"+rel)
}

func (r *recorder) has(want string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == want {
			return true
		}
	}
	return false
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func startWatcher(t *testing.T, root string) *recorder {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	w := New(root, artifactExts, WithDebounce(20*time.Millisecond), WithLogger(logger))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	t.Cleanup(func() {
		cancel()
		<-done
	})

	rec := &recorder{}
	go func() {
		defer close(done)
		if err := w.Run(ctx, rec.cb); err != nil {
			t.Errorf("Run: %v", err)
		}
	}()
	time.Sleep(100 * time.Millisecond)
	return rec
}

func TestClassify(t *testing.T) {
	w := New("/case", artifactExts)
	cases := []struct {
		rel                string
		evidence, relevant bool
	}{
		{"anomalies/task.txt", true, true},
		{"ioc/feed.TXT", true, true},
		{"reports/apt.pdf", true, true},
		{"reports/notes.txt", false, true},
		{"ioc/old/feed.txt", false, true},
		{"logs/dns.txt", false, true},
		{"MFT.csv", false, true},
		{"image.raw", false, false},
		{"reports/deep/r.pdf", false, false},
	}
	for _, tc := range cases {
		evidence, relevant := w.Classify(tc.rel)
		if evidence != tc.evidence || relevant != tc.relevant {
			t.Errorf("Classify(%q) = (%v, %v), want (%v, %v)", tc.rel, evidence, relevant, tc.evidence, tc.relevant)
		}
	}
}

func TestWatcher_EvidenceAndArtifactEvents(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"ioc", "logs"} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	rec := startWatcher(t, root)

	_ = os.WriteFile(filepath.Join(root, "ioc", "feed.txt"), []byte("evil.example.com\n"), 0o644)
	_ = os.WriteFile(filepath.Join(root, "logs", "dns.txt"), []byte("query\n"), 0o644)
	_ = os.WriteFile(filepath.Join(root, "logs", "image.raw"), []byte("bytes"), 0o644)

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return rec.has("evidence:created:ioc/feed.txt") && rec.has("artifact:created:logs/dns.txt")
	}, "expected evidence and artifact created events")

	time.Sleep(100 * time.Millisecond)
	for _, e := range rec.snapshot() {
		if filepath.Ext(e) == ".raw" {
			t.Errorf("unexpected event for ignored extension: %s", e)
		}
	}
}

func TestWatcher_NewDirWatched(t *testing.T) {
	root := t.TempDir()
	rec := startWatcher(t, root)

	sub := filepath.Join(root, "anomalies")
	_ = os.MkdirAll(sub, 0o755)
	time.Sleep(100 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(sub, "note.txt"), []byte("updater.exe"), 0o644)

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return rec.has("evidence:created:anomalies/note.txt")
	}, "file in new subdir not reported")
}

func TestWatcher_DeleteReported(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "events.json")
	_ = os.WriteFile(path, []byte("{}"), 0o644)
	rec := startWatcher(t, root)

	_ = os.Remove(path)

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return rec.has("artifact:deleted:events.json")
	}, "expected deleted event")
}

func TestPending_Merge(t *testing.T) {
	p := &pending{kinds: map[string]string{}}
	p.add("a", sse.KindCreated)
	p.add("a", sse.KindUpdated)
	p.add("b", sse.KindDeleted)
	p.add("b", sse.KindCreated)
	p.add("c", sse.KindUpdated)
	p.add("c", sse.KindDeleted)

	got := p.drain()
	want := map[string]string{"a": sse.KindCreated, "b": sse.KindUpdated, "c": sse.KindDeleted}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
	if len(p.drain()) != 0 {
		t.Error("drain should reset pending state")
	}
}

func TestPublishTo(t *testing.T) {
	b := sse.NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	PublishTo(b)(false, sse.KindCreated, "x.csv")

	select {
	case msg := <-ch:
		if got := string(msg); got == "" {
			t.Error("empty message")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for broker message")
	}
}
