package testutil

import (
	"errors"
	"net/http"
	"os"
	"testing"
)

func TestAssertHelpers(t *testing.T) {
	t.Parallel()

	// Passing cases must not fail the test.
	AssertStatusCode(t, http.StatusOK, http.StatusOK)
	AssertNoError(t, nil)
	AssertError(t, errors.New("boom"))
}

func TestNewTestRequest(t *testing.T) {
	t.Parallel()
	req := NewTestRequest(http.MethodPost, "/api/annotations")
	if req.Method != http.MethodPost {
		t.Errorf("method = %s, want POST", req.Method)
	}
	if req.URL.Path != "/api/annotations" {
		t.Errorf("path = %s, want /api/annotations", req.URL.Path)
	}
}

func TestWriteTempFile(t *testing.T) {
	t.Parallel()
	path := WriteTempFile(t, "sample.json", `{"ok": true}`)
	data, err := os.ReadFile(path)
	AssertNoError(t, err)
	if string(data) != `{"ok": true}` {
		t.Errorf("contents = %q", data)
	}
}
