// Package testutil provides HTTP record/replay helpers for tests that talk
// to the generator API.
package testutil

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/dnaeon/go-vcr.v2/cassette"
	"gopkg.in/dnaeon/go-vcr.v2/recorder"
)

// CassettePath returns the on-disk path of a named cassette.
func CassettePath(name string) string {
	return filepath.Join("testdata", "fixtures", name)
}

// HasCassette reports whether a recorded cassette exists. Tests that replay
// real generator traffic skip when nothing has been recorded.
func HasCassette(name string) bool {
	_, err := os.Stat(CassettePath(name) + ".yaml")
	return err == nil
}

// NewVCRRecorder creates a recorder in replay mode, or record mode when
// VCR_MODE=record is set.
func NewVCRRecorder(t *testing.T, cassetteName string) (*recorder.Recorder, func()) {
	t.Helper()

	mode := recorder.ModeReplaying
	if os.Getenv("VCR_MODE") == "record" {
		mode = recorder.ModeRecording
	}

	r, err := recorder.NewAsMode(CassettePath(cassetteName), mode, nil)
	if err != nil {
		t.Fatalf("failed to create VCR recorder: %v", err)
	}

	// Generator request bodies embed prompts that change between revisions;
	// match on method and URL only.
	r.SetMatcher(func(r *http.Request, i cassette.Request) bool {
		return r.Method == i.Method && r.URL.String() == i.URL
	})

	cleanup := func() {
		if err := r.Stop(); err != nil {
			t.Errorf("failed to stop VCR recorder: %v", err)
		}
	}
	return r, cleanup
}

// VCRHTTPClient returns an HTTP client whose transport replays through r.
func VCRHTTPClient(r *recorder.Recorder) *http.Client {
	return &http.Client{Transport: r}
}
