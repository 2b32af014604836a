package cache

import (
    "context"
    "encoding/json"
    "os"
    "path/filepath"
    "testing"
    "time"
)

func TestPageCache_SaveLoad(t *testing.T) {
    t.Parallel()
    c := &PageCache{Dir: t.TempDir()}
    url := "https://example.com/prices"
    if err := c.Save(context.Background(), url, "text/html", `"v1"`, "Mon, 02 Jan 2006 15:04:05 GMT", []byte("<table></table>")); err != nil {
        t.Fatalf("save: %v", err)
    }
    meta, err := c.LoadMeta(context.Background(), url)
    if err != nil {
        t.Fatalf("load meta: %v", err)
    }
    if meta.ETag != `"v1"` || meta.URL != url || meta.SavedAt.IsZero() {
        t.Fatalf("unexpected meta: %+v", meta)
    }
    body, err := c.LoadBody(context.Background(), url)
    if err != nil || string(body) != "<table></table>" {
        t.Fatalf("body=%q err=%v", body, err)
    }
    if _, err := c.LoadMeta(context.Background(), "https://example.com/other"); err == nil {
        t.Fatalf("expected miss for unknown url")
    }
}

func TestPageCache_StrictPerms(t *testing.T) {
    t.Parallel()
    dir := filepath.Join(t.TempDir(), "pages")
    c := &PageCache{Dir: dir, StrictPerms: true}
    url := "https://example.com/x"
    if err := c.Save(context.Background(), url, "text/html", "etag", "", []byte("hello")); err != nil {
        t.Fatalf("save: %v", err)
    }
    info, err := os.Stat(dir)
    if err != nil {
        t.Fatalf("stat dir: %v", err)
    }
    if got := info.Mode() & 0o777; got != 0o700 {
        t.Fatalf("dir mode = %o, want 0700", got)
    }
    k := key(url)
    for _, f := range []string{filepath.Join(dir, k+".body"), filepath.Join(dir, k+".meta.json")} {
        finfo, err := os.Stat(f)
        if err != nil {
            t.Fatalf("stat %s: %v", f, err)
        }
        if got := finfo.Mode() & 0o777; got != 0o600 {
            t.Fatalf("%s mode = %o, want 0600", f, got)
        }
    }
}

func TestPurgeByAge(t *testing.T) {
    t.Parallel()
    dir := t.TempDir()
    c := &PageCache{Dir: dir}
    ctx := context.Background()
    if err := c.Save(ctx, "https://a/old", "text/html", "", "", []byte("old")); err != nil {
        t.Fatalf("save: %v", err)
    }
    if err := c.Save(ctx, "https://a/new", "text/html", "", "", []byte("new")); err != nil {
        t.Fatalf("save: %v", err)
    }
    // Backdate the first entry.
    metaPath := c.metaPath(key("https://a/old"))
    b, _ := os.ReadFile(metaPath)
    var e PageEntry
    _ = json.Unmarshal(b, &e)
    e.SavedAt = time.Now().Add(-48 * time.Hour).UTC()
    b, _ = json.Marshal(e)
    if err := os.WriteFile(metaPath, b, 0o644); err != nil {
        t.Fatalf("backdate: %v", err)
    }

    removed, err := PurgeByAge(dir, 24*time.Hour)
    if err != nil {
        t.Fatalf("purge: %v", err)
    }
    if removed != 1 {
        t.Fatalf("removed = %d, want 1", removed)
    }
    if _, err := c.LoadBody(ctx, "https://a/old"); err == nil {
        t.Fatalf("old body should be gone")
    }
    if _, err := c.LoadBody(ctx, "https://a/new"); err != nil {
        t.Fatalf("new body should remain: %v", err)
    }
}

func TestClearDir(t *testing.T) {
    t.Parallel()
    dir := t.TempDir()
    if err := os.WriteFile(filepath.Join(dir, "x.body"), []byte("x"), 0o644); err != nil {
        t.Fatalf("write: %v", err)
    }
    if err := ClearDir(dir); err != nil {
        t.Fatalf("clear: %v", err)
    }
    entries, err := os.ReadDir(dir)
    if err != nil || len(entries) != 0 {
        t.Fatalf("expected empty dir, got %d entries err=%v", len(entries), err)
    }
    if err := ClearDir("  "); err == nil {
        t.Fatalf("expected error for empty dir")
    }
}
