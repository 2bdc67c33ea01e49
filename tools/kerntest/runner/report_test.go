package runner

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	yaml "gopkg.in/yaml.v2"
)

func TestReport(t *testing.T) {
	cfg := &Config{
		Targets: map[string]*Target{
			"basicboot":  {Name: "basicboot", Image: "/b/basicboot.img", Expect: OutcomeSuccess},
			"shouldfail": {Name: "shouldfail", Image: "/b/shouldfail.img", Expect: OutcomeFailed},
			"heapalloc":  {Name: "heapalloc", Image: "/b/heapalloc.img", Expect: OutcomeSuccess},
		},
	}
	names := []string{"basicboot", "shouldfail", "heapalloc"}
	results := []*Result{
		{Target: "basicboot", Outcome: OutcomeSuccess, ExitStatus: 33, Duration: 1500 * time.Millisecond, SerialLog: "/l/basicboot.serial.log"},
		{Target: "shouldfail", Outcome: OutcomeTimeout, ExitStatus: -1, Duration: 2 * time.Second},
		nil,
	}

	rep := NewReport(cfg, names, results)

	exp := &Report{
		Passed: 1,
		Failed: 1,
		Targets: []TargetReport{
			{Name: "basicboot", Image: "/b/basicboot.img", Expected: OutcomeSuccess, Got: OutcomeSuccess, ExitStatus: 33, Duration: "1.5s", Passed: true, SerialLog: "/l/basicboot.serial.log"},
			{Name: "shouldfail", Image: "/b/shouldfail.img", Expected: OutcomeFailed, Got: OutcomeTimeout, ExitStatus: -1, Duration: "2s"},
		},
	}
	if diff := cmp.Diff(exp, rep); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}

	var buf bytes.Buffer
	if err := rep.Write(&buf); err != nil {
		t.Fatal(err)
	}

	var decoded Report
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(exp, &decoded); diff != "" {
		t.Fatalf("decoded report mismatch (-want +got):\n%s", diff)
	}
	if !bytes.Contains(buf.Bytes(), []byte("serial_log: /l/basicboot.serial.log")) {
		t.Fatalf("expected serial_log key in report:\n%s", buf.String())
	}
}
