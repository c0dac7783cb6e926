// Package baseline runs declarative search and evaluation plans and
// collects the metrics scraped from the evaluation tools' output.
package baseline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"github.com/ricesearch/irtools/internal/pkg/errors"
)

// Scrape modes.
const (
	// ScrapeNone discards the step output.
	ScrapeNone = ""
	// ScrapeFirst reads the first and third whitespace tokens of the output
	// as metric name and value.
	ScrapeFirst = "first"
	// ScrapeAll reads every "<name> <topic> <value>" line whose topic is "all".
	ScrapeAll = "all"
)

// Step is one external invocation.
type Step struct {
	Name    string   `yaml:"name"`
	Program string   `yaml:"program,omitempty"`
	Args    []string `yaml:"args,omitempty"`
	// Command is a shell-quoted alternative to Program and Args.
	Command string `yaml:"command,omitempty"`
	Scrape  string `yaml:"scrape,omitempty"`
}

// Resolve returns the program and arguments to execute.
func (s Step) Resolve() (string, []string, error) {
	if s.Command != "" {
		if s.Program != "" || len(s.Args) > 0 {
			return "", nil, errors.ValidationError(fmt.Sprintf("step %q: command and program/args are mutually exclusive", s.Name))
		}
		parts, err := shlex.Split(s.Command)
		if err != nil {
			return "", nil, errors.Wrap(errors.CodeValidation, fmt.Sprintf("step %q: parsing command", s.Name), err)
		}
		if len(parts) == 0 {
			return "", nil, errors.ValidationError(fmt.Sprintf("step %q: empty command", s.Name))
		}
		return parts[0], parts[1:], nil
	}

	if s.Program == "" {
		return "", nil, errors.ValidationError(fmt.Sprintf("step %q: program or command is required", s.Name))
	}
	return s.Program, s.Args, nil
}

// String renders the step as a shell-like command line.
func (s Step) String() string {
	program, args, err := s.Resolve()
	if err != nil {
		return s.Command
	}
	return strings.Join(append([]string{program}, args...), " ")
}

// Metric is one scraped measurement.
type Metric struct {
	Name  string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`
}

// ScrapeOutput extracts metrics from tool output according to mode.
func ScrapeOutput(mode string, output []byte) ([]Metric, error) {
	switch mode {
	case ScrapeNone:
		return nil, nil
	case ScrapeFirst:
		fields := strings.Fields(string(output))
		if len(fields) < 3 {
			return nil, fmt.Errorf("expected at least 3 tokens, got %d", len(fields))
		}
		value, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("metric %s: %w", fields[0], err)
		}
		return []Metric{{Name: fields[0], Value: value}}, nil
	case ScrapeAll:
		var metrics []Metric
		for _, line := range strings.Split(string(output), "\n") {
			fields := strings.Fields(line)
			if len(fields) != 3 || fields[1] != "all" {
				continue
			}
			value, err := strconv.ParseFloat(fields[2], 64)
			if err != nil {
				return nil, fmt.Errorf("metric %s: %w", fields[0], err)
			}
			metrics = append(metrics, Metric{Name: fields[0], Value: value})
		}
		if len(metrics) == 0 {
			return nil, fmt.Errorf("no aggregate metrics in output")
		}
		return metrics, nil
	default:
		return nil, fmt.Errorf("unknown scrape mode %q", mode)
	}
}
