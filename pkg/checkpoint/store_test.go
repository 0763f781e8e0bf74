// file: pkg/checkpoint/store_test.go

package checkpoint

import (
	"path/filepath"
	"testing"
)

func TestStore(t *testing.T) {
	// t.TempDir() 会在测试结束后自动清理目录
	path := filepath.Join(t.TempDir(), "state.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}

	t.Run("LoadMissing", func(t *testing.T) {
		version, err := store.Load("previewenvironments")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if version != "" {
			t.Errorf("Expected empty token for unknown resource, got %q", version)
		}
	})

	t.Run("SaveAndLoad", func(t *testing.T) {
		if err := store.Save("previewenvironments", "12345"); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		version, err := store.Load("previewenvironments")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if version != "12345" {
			t.Errorf("Expected token %q, got %q", "12345", version)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		if err := store.Save("previewenvironments", "200"); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		version, _ := store.Load("previewenvironments")
		if version != "200" {
			t.Errorf("Expected token %q, got %q", "200", version)
		}
	})

	t.Run("ResourcesAreIndependent", func(t *testing.T) {
		if err := store.Save("deployments", "7"); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		version, _ := store.Load("previewenvironments")
		if version != "200" {
			t.Errorf("Token for previewenvironments changed unexpectedly: %q", version)
		}
	})

	// 令牌在重新打开后仍然可读
	t.Run("SurvivesReopen", func(t *testing.T) {
		if err := store.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}

		reopened, err := Open(path)
		if err != nil {
			t.Fatalf("Failed to reopen store: %v", err)
		}
		defer reopened.Close()

		version, err := reopened.Load("previewenvironments")
		if err != nil {
			t.Fatalf("Load after reopen failed: %v", err)
		}
		if version != "200" {
			t.Errorf("Expected token %q after reopen, got %q", "200", version)
		}
	})
}

func TestResourceTokens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	tokens := store.ForResource("previewenvironments")

	if err := tokens.Save("42"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	version, err := tokens.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if version != "42" {
		t.Errorf("Expected token %q, got %q", "42", version)
	}
}
