package runner

import (
	"io"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// Report summarizes a set of runs in a form that can be archived by CI.
type Report struct {
	Passed  int            `yaml:"passed"`
	Failed  int            `yaml:"failed"`
	Targets []TargetReport `yaml:"targets"`
}

// TargetReport is the entry of a single target in a Report.
type TargetReport struct {
	Name       string  `yaml:"name"`
	Image      string  `yaml:"image"`
	Expected   Outcome `yaml:"expected"`
	Got        Outcome `yaml:"got"`
	ExitStatus int     `yaml:"exit_status"`
	Duration   string  `yaml:"duration"`
	Passed     bool    `yaml:"passed"`
	SerialLog  string  `yaml:"serial_log,omitempty"`
}

// NewReport builds a report from the results returned by RunAll for names.
// Targets without a result are omitted.
func NewReport(cfg *Config, names []string, results []*Result) *Report {
	rep := &Report{}
	for i, name := range names {
		if i >= len(results) || results[i] == nil {
			continue
		}
		t, ok := cfg.Targets[name]
		if !ok {
			continue
		}

		res := results[i]
		entry := TargetReport{
			Name:       name,
			Image:      t.Image,
			Expected:   t.Expect,
			Got:        res.Outcome,
			ExitStatus: res.ExitStatus,
			Duration:   res.Duration.Round(time.Millisecond).String(),
			Passed:     res.Passed(t),
			SerialLog:  res.SerialLog,
		}
		if entry.Passed {
			rep.Passed++
		} else {
			rep.Failed++
		}
		rep.Targets = append(rep.Targets, entry)
	}
	return rep
}

// Write encodes the report as YAML.
func (rep *Report) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(rep); err != nil {
		return err
	}
	return enc.Close()
}
