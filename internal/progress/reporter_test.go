package progress

import (
	"bytes"
	"testing"
)

func TestCIReporter(t *testing.T) {
	var buf bytes.Buffer
	r := &CIReporter{Task: "Generating bills", Out: &buf}

	r.Start(2)
	r.Update(1, "Asha Rao")
	r.Update(2, "Ravi Kumar")
	r.Finish()

	want := "Generating bills: 2 to process\n" +
		"[1/2] Asha Rao\n" +
		"[2/2] Ravi Kumar\n" +
		"Generating bills: done\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestNewReporterInCI(t *testing.T) {
	t.Setenv("CI", "true")
	if _, ok := NewReporter("Seeding").(*CIReporter); !ok {
		t.Error("expected a CIReporter when CI is set")
	}
}
