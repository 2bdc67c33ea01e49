package debugexit

import (
	"kestrel/device"
	"kestrel/device/bus/bustest"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var _ device.Driver = (*Device)(nil)

func TestExit(t *testing.T) {
	for _, code := range []ExitCode{Success, Failed} {
		var ports bustest.RecordingPorts
		d := NewDevice(&ports)
		d.Exit(code)

		exp := []bustest.PortAccess{{Write: true, Port: 0xf4, Width: 32, Value: uint32(code)}}
		if diff := cmp.Diff(exp, ports.Log); diff != "" {
			t.Errorf("[%s] unexpected port writes (-want +got):\n%s", code, diff)
		}
	}
}

func TestHostStatus(t *testing.T) {
	specs := []struct {
		code      ExitCode
		expStatus int
		expName   string
	}{
		{Success, 33, "success"},
		{Failed, 35, "failed"},
		{ExitCode(0), 1, "unknown"},
	}

	for _, spec := range specs {
		if got := spec.code.HostStatus(); got != spec.expStatus {
			t.Errorf("[0x%x] expected host status %d; got %d", uint32(spec.code), spec.expStatus, got)
		}
		if got := spec.code.String(); got != spec.expName {
			t.Errorf("[0x%x] expected name %q; got %q", uint32(spec.code), spec.expName, got)
		}
	}
}
