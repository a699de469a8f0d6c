package session_test

import (
	"errors"
	"path/filepath"
	"testing"

	"keepsake/internal/session"
	"keepsake/internal/testsupport"
)

func openStore(t *testing.T) *session.Store {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store, err := session.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateAndGet(t *testing.T) {
	store := openStore(t)
	sess := session.New("제주도 여행", "/in/audio.m4a", "/in/photo.jpg")
	if err := store.Create(t.Context(), sess); err != nil {
		t.Fatalf("create: %v", err)
	}

	loaded, err := store.GetByID(t.Context(), sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.Title != "제주도 여행" || loaded.Status != session.StatusPending {
		t.Fatalf("unexpected session: %+v", loaded)
	}
	if loaded.AudioPath != "/in/audio.m4a" {
		t.Fatalf("audio path lost: %q", loaded.AudioPath)
	}
}

func TestGetByShortID(t *testing.T) {
	store := openStore(t)
	sess := session.New("t", "", "")
	if err := store.Create(t.Context(), sess); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.GetByID(t.Context(), sess.ShortID())
	if err != nil {
		t.Fatalf("get by short id: %v", err)
	}
	if loaded.ID != sess.ID {
		t.Fatalf("wrong session: %s", loaded.ID)
	}

	if _, err := store.GetByID(t.Context(), "nope"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStatusTransitions(t *testing.T) {
	store := openStore(t)
	sess := session.New("t", "", "")
	if err := store.Create(t.Context(), sess); err != nil {
		t.Fatal(err)
	}

	if err := store.MarkFailed(t.Context(), sess, errors.New("whisper exited 1")); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	loaded, _ := store.GetByID(t.Context(), sess.ID)
	if loaded.Status != session.StatusFailed || loaded.ErrorMessage != "whisper exited 1" {
		t.Fatalf("failure not recorded: %+v", loaded)
	}

	if err := store.SetStatus(t.Context(), sess, session.StatusTranscribed); err != nil {
		t.Fatalf("set status: %v", err)
	}
	loaded, _ = store.GetByID(t.Context(), sess.ID)
	if loaded.Status != session.StatusTranscribed || loaded.ErrorMessage != "" {
		t.Fatalf("error message not cleared: %+v", loaded)
	}
}

func TestListFilterAndStats(t *testing.T) {
	store := openStore(t)
	a := session.New("a", "", "")
	b := session.New("b", "", "")
	for _, sess := range []*session.Session{a, b} {
		if err := store.Create(t.Context(), sess); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.SetStatus(t.Context(), b, session.StatusCompleted); err != nil {
		t.Fatal(err)
	}

	all, err := store.List(t.Context())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(all))
	}

	completed, err := store.List(t.Context(), session.StatusCompleted)
	if err != nil {
		t.Fatalf("list completed: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != b.ID {
		t.Fatalf("unexpected filter result: %+v", completed)
	}

	stats, err := store.Stats(t.Context())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats[session.StatusPending] != 1 || stats[session.StatusCompleted] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}

func TestRemove(t *testing.T) {
	store := openStore(t)
	sess := session.New("t", "", "")
	if err := store.Create(t.Context(), sess); err != nil {
		t.Fatal(err)
	}
	removed, err := store.Remove(t.Context(), sess.ID)
	if err != nil || !removed {
		t.Fatalf("remove: %v removed=%v", err, removed)
	}
	removed, err = store.Remove(t.Context(), sess.ID)
	if err != nil || removed {
		t.Fatalf("second remove should be a no-op: %v removed=%v", err, removed)
	}
}

func TestStatusOrdering(t *testing.T) {
	if !session.StatusVideosReady.ReachedAtLeast(session.StatusExtracted) {
		t.Fatal("videos_ready should have reached extracted")
	}
	if session.StatusPending.ReachedAtLeast(session.StatusTranscribed) {
		t.Fatal("pending has not reached transcribed")
	}
	if session.StatusFailed.ReachedAtLeast(session.StatusPending) {
		t.Fatal("failed should never report progress")
	}
	if !session.StatusCompleted.Valid() || session.Status("bogus").Valid() {
		t.Fatal("status validity broken")
	}
}

func TestPathsLayout(t *testing.T) {
	paths := session.NewPaths("/data/sessions", "abc")
	if paths.Transcript() != filepath.Join("/data/sessions", "abc", "transcript.txt") {
		t.Fatalf("unexpected transcript path: %s", paths.Transcript())
	}
	if paths.Crop("p1.png") != filepath.Join("/data/sessions", "abc", "crops", "p1.png") {
		t.Fatalf("unexpected crop path: %s", paths.Crop("p1.png"))
	}
	if filepath.Dir(paths.FinalVideo()) != paths.Root {
		t.Fatal("final video should live at the session root")
	}
}

func TestLockExclusion(t *testing.T) {
	paths := session.NewPaths(t.TempDir(), "abc")
	lock, err := session.AcquireLock(paths)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer lock.Release()

	if _, err := session.AcquireLock(paths); err == nil {
		t.Fatal("second acquire should fail while lock held")
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	again, err := session.AcquireLock(paths)
	if err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
	again.Release()
}
