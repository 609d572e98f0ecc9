package whitelist

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"

	"bskyfollow/pkg/logger"
)

func TestStoreAddContainsRemove(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, ScopeUnfollow, logger.NewNopLogger())
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}

	added, err := store.Add("@Alice.bsky.social")
	if err != nil || !added {
		t.Fatalf("Add() = %v, %v; want true, nil", added, err)
	}
	if added, _ := store.Add("alice.BSKY.social"); added {
		t.Error("Adding the same handle with different case should not add it again")
	}
	if !store.Contains("ALICE.bsky.social") {
		t.Error("Contains should ignore case")
	}
	if store.Len() != 1 {
		t.Errorf("Expected 1 handle, got %d", store.Len())
	}

	removed, err := store.Remove("alice.bsky.social")
	if err != nil || !removed {
		t.Fatalf("Remove() = %v, %v; want true, nil", removed, err)
	}
	if removed, _ := store.Remove("alice.bsky.social"); removed {
		t.Error("Removing an absent handle should report false")
	}
}

func TestStorePersistsJSONArray(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, ScopeFollow, logger.NewNopLogger())
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	for _, h := range []string{"carol.test", "Bob.test", "alice.test"} {
		if _, err := store.Add(h); err != nil {
			t.Fatalf("Add(%q) failed: %v", h, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "follow-whitelist.json"))
	if err != nil {
		t.Fatalf("Failed to read whitelist file: %v", err)
	}
	var handles []string
	if err := json.Unmarshal(data, &handles); err != nil {
		t.Fatalf("Whitelist file is not a JSON array: %v", err)
	}
	want := []string{"alice.test", "bob.test", "carol.test"}
	if !reflect.DeepEqual(handles, want) {
		t.Errorf("Expected %v, got %v", want, handles)
	}

	if _, err := os.Stat(filepath.Join(dir, "follow-whitelist.json.tmp")); !os.IsNotExist(err) {
		t.Error("Temporary file should not remain after save")
	}

	reopened, err := Open(dir, ScopeFollow, logger.NewNopLogger())
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	if !reflect.DeepEqual(reopened.List(), want) {
		t.Errorf("Reopened list = %v, want %v", reopened.List(), want)
	}
}

func TestScopesAreIndependent(t *testing.T) {
	dir := t.TempDir()
	unfollow, _ := Open(dir, ScopeUnfollow, logger.NewNopLogger())
	follow, _ := Open(dir, ScopeFollow, logger.NewNopLogger())

	if _, err := unfollow.Add("alice.test"); err != nil {
		t.Fatal(err)
	}
	if follow.Contains("alice.test") {
		t.Error("Follow scope should not see unfollow scope entries")
	}
}

func TestCorruptFileLoadsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "whitelist.json"), []byte("{broken"), 0644); err != nil {
		t.Fatal(err)
	}

	log := logger.NewTestLogger()
	store, err := Open(dir, ScopeUnfollow, log)
	if err != nil {
		t.Fatalf("Corrupt file should not fail Open: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("Expected empty whitelist, got %v", store.List())
	}
	if len(log.GetMessagesByLevel("WARN")) == 0 {
		t.Error("Expected a warning about the corrupt file")
	}
}

func TestSet(t *testing.T) {
	store, _ := Open(t.TempDir(), ScopeUnfollow, logger.NewNopLogger())

	if err := store.Set("dave.test", true); err != nil {
		t.Fatal(err)
	}
	if !store.Contains("dave.test") {
		t.Error("Set(true) should protect the handle")
	}
	if err := store.Set("dave.test", false); err != nil {
		t.Fatal(err)
	}
	if store.Contains("dave.test") {
		t.Error("Set(false) should unprotect the handle")
	}
}

func TestAddRejectsEmpty(t *testing.T) {
	store, _ := Open(t.TempDir(), ScopeUnfollow, logger.NewNopLogger())
	if _, err := store.Add("  @ "); err == nil {
		t.Error("Expected error for empty handle")
	}
}

func TestDataDirectoryHonorsXDG(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("XDG only applies on unix")
	}
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg")
	dir, err := DataDirectory()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join("/tmp/xdg", "bskyfollow"); dir != want {
		t.Errorf("Expected %s, got %s", want, dir)
	}
}
