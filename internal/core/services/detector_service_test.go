package services

import (
	"context"
	"errors"
	"testing"

	"github.com/mongodesk/backend/internal/infrastructure/logger"
)

func boolProbe(name string, value bool) Probe {
	return Probe{
		Name: name,
		Check: func(ctx context.Context) (bool, error) {
			return value, nil
		},
	}
}

func errorProbe(name string) Probe {
	return Probe{
		Name: name,
		Check: func(ctx context.Context) (bool, error) {
			return false, errors.New("probe exploded")
		},
	}
}

func TestIsInstalledMajorityVote(t *testing.T) {
	tests := []struct {
		name   string
		probes []Probe
		want   bool
	}{
		{
			name:   "all pass",
			probes: []Probe{boolProbe("a", true), boolProbe("b", true), boolProbe("c", true)},
			want:   true,
		},
		{
			name:   "two of three pass",
			probes: []Probe{boolProbe("a", true), boolProbe("b", true), boolProbe("c", false)},
			want:   true,
		},
		{
			name:   "one of three passes",
			probes: []Probe{boolProbe("a", true), boolProbe("b", false), boolProbe("c", false)},
			want:   false,
		},
		{
			name:   "erroring probe counts as false but majority holds",
			probes: []Probe{errorProbe("a"), boolProbe("b", true), boolProbe("c", true)},
			want:   true,
		},
		{
			name:   "erroring probe breaks the majority",
			probes: []Probe{errorProbe("a"), boolProbe("b", true), boolProbe("c", false)},
			want:   false,
		},
		{
			name:   "no probes means not installed",
			probes: nil,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetectorServiceWithProbes(logger.Nop(), tt.probes...)
			if got := d.IsInstalled(context.Background()); got != tt.want {
				t.Fatalf("IsInstalled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsInstalledIsIdempotent(t *testing.T) {
	d := NewDetectorServiceWithProbes(logger.Nop(),
		boolProbe("a", true), boolProbe("b", true), boolProbe("c", false))

	first := d.IsInstalled(context.Background())
	second := d.IsInstalled(context.Background())
	if first != second {
		t.Fatalf("verdict changed between identical calls: %v then %v", first, second)
	}
}

func TestParseMongodVersion(t *testing.T) {
	tests := []struct {
		out  string
		want bool
	}{
		{"db version v8.0.6\nBuild Info: ...", true},
		{"db version v7.0.0", true},
		{"db version", false},
		{"", false},
		{"garbage output v", false},
	}

	for _, tt := range tests {
		if got := parseMongodVersion(tt.out); got != tt.want {
			t.Errorf("parseMongodVersion(%q) = %v, want %v", tt.out, got, tt.want)
		}
	}
}
