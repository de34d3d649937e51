package cursor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Iron-Ham/screenreel/internal/errors"
	"github.com/Iron-Ham/screenreel/internal/testutil"
)

func TestTracker_CollectsSamples(t *testing.T) {
	fp := testutil.NewFakePlatform()
	fp.SetPointer(120, 340)

	tr := NewTracker(fp, 5*time.Millisecond, nil)
	tr.Start()
	testutil.WaitFor(t, 2*time.Second, "cursor samples", func() bool { return tr.Len() >= 5 })
	tr.Stop()

	samples := tr.Samples()
	if len(samples) < 5 {
		t.Fatalf("len(samples) = %d, want at least 5", len(samples))
	}
	for i, s := range samples {
		if s.X != 120 || s.Y != 340 {
			t.Errorf("samples[%d] = %+v, want (120, 340)", i, s)
		}
		if i > 0 && s.TimestampMs < samples[i-1].TimestampMs {
			t.Errorf("timestamps not monotonic at %d: %d < %d", i, s.TimestampMs, samples[i-1].TimestampMs)
		}
	}
	if samples[0].TimestampMs > 50 {
		t.Errorf("first sample at %dms, want close to 0", samples[0].TimestampMs)
	}
}

func TestTracker_StopJoins(t *testing.T) {
	fp := testutil.NewFakePlatform()
	tr := NewTracker(fp, time.Millisecond, nil)
	tr.Start()
	testutil.WaitFor(t, 2*time.Second, "a sample", func() bool { return tr.Len() > 0 })
	tr.Stop()

	n := tr.Len()
	queries := fp.PointerQueries()
	time.Sleep(30 * time.Millisecond)
	if tr.Len() != n || fp.PointerQueries() != queries {
		t.Error("tracker kept sampling after Stop returned")
	}
	if tr.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
}

func TestTracker_FailedQueriesAreSkipped(t *testing.T) {
	fp := testutil.NewFakePlatform()
	fp.SetPointerErr(errors.New("no display"))

	tr := NewTracker(fp, time.Millisecond, nil)
	tr.Start()
	testutil.WaitFor(t, 2*time.Second, "pointer queries", func() bool { return fp.PointerQueries() >= 5 })
	tr.Stop()

	if got := tr.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0 when every query fails", got)
	}
}

func TestTracker_StartResetsAndIsIdempotent(t *testing.T) {
	fp := testutil.NewFakePlatform()
	tr := NewTracker(fp, time.Millisecond, nil)

	tr.Start()
	tr.Start()
	testutil.WaitFor(t, 2*time.Second, "samples", func() bool { return tr.Len() >= 3 })
	tr.Stop()
	tr.Stop()

	fp.SetPointerErr(errors.New("gone"))
	tr.Start()
	defer tr.Stop()
	if got := tr.Len(); got != 0 {
		t.Errorf("Len() after restart = %d, want 0", got)
	}
}

func TestNewTracker_DefaultInterval(t *testing.T) {
	tr := NewTracker(testutil.NewFakePlatform(), 0, nil)
	if tr.interval != DefaultInterval {
		t.Errorf("interval = %v, want %v", tr.interval, DefaultInterval)
	}
}

func TestTracker_SaveAndLoad(t *testing.T) {
	fp := testutil.NewFakePlatform()
	fp.SetPointer(1.5, 2.5)
	tr := NewTracker(fp, time.Millisecond, nil)
	tr.Start()
	testutil.WaitFor(t, 2*time.Second, "samples", func() bool { return tr.Len() >= 2 })
	tr.Stop()

	path := SidecarPath(filepath.Join(t.TempDir(), "rec.mp4"))
	if err := tr.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "\n  {") || !strings.Contains(string(data), `"timestamp_ms"`) {
		t.Errorf("sidecar is not an indented array of samples:\n%s", data)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	want := tr.Samples()
	if len(loaded) != len(want) {
		t.Fatalf("loaded %d samples, want %d", len(loaded), len(want))
	}
	for i := range want {
		if loaded[i] != want[i] {
			t.Errorf("loaded[%d] = %+v, want %+v", i, loaded[i], want[i])
		}
	}
}

func TestTracker_SaveEmpty(t *testing.T) {
	tr := NewTracker(testutil.NewFakePlatform(), 0, nil)
	path := filepath.Join(t.TempDir(), "empty.mouse.json")
	if err := tr.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "[]" {
		t.Errorf("empty sidecar = %q, want []", data)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadFromFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("LoadFromFile() of a missing file succeeded")
	}
	bad := filepath.Join(dir, "bad.json")
	_ = os.WriteFile(bad, []byte("{not json"), 0644)
	if _, err := LoadFromFile(bad); err == nil {
		t.Error("LoadFromFile() of invalid JSON succeeded")
	}
}

func TestSidecarPath(t *testing.T) {
	if got := SidecarPath("/rec/a.mp4"); got != "/rec/a.mp4.mouse.json" {
		t.Errorf("SidecarPath() = %q", got)
	}
}
