package ports

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveScannerDeviceConfiguredPathWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "myscanner")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	r := DeviceResolver{ConfiguredPath: path}
	if got := r.ResolveScannerDevice(); got != path {
		t.Fatalf("got %q, want %q", got, path)
	}
}

func TestResolveScannerDeviceFallsBackWhenConfiguredMissing(t *testing.T) {
	r := DeviceResolver{ConfiguredPath: "/nonexistent/path/does-not-exist"}
	got := r.ResolveScannerDevice()
	if got == "" {
		t.Fatal("expected a non-empty fallback device path")
	}
}

func TestResolveUserExactMatch(t *testing.T) {
	r := DeviceResolver{UserMap: map[string]string{
		"/dev/input/event3": "alice",
	}}
	if got := r.ResolveUser("/dev/input/event3"); got != "alice" {
		t.Fatalf("got %q", got)
	}
}

func TestResolveUserBasenameSuffixMatch(t *testing.T) {
	r := DeviceResolver{UserMap: map[string]string{
		"event3": "bob",
	}}
	if got := r.ResolveUser("/dev/input/event3"); got != "bob" {
		t.Fatalf("got %q", got)
	}
}

func TestResolveUserNoMatch(t *testing.T) {
	r := DeviceResolver{UserMap: map[string]string{
		"event3": "bob",
	}}
	if got := r.ResolveUser("/dev/input/event9"); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}
