// Package sysmon samples system load as a percentage. It backs the sysload
// mode, which maps the busiest of the selected metrics onto a color.
package sysmon

import (
	"context"
	"log/slog"
	"math"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

// Metric names accepted by New.
const (
	MetricCPU    = "cpu"
	MetricMemory = "memory"
	MetricDisk   = "disk"
)

// All lists every supported metric, in the order they are reported.
var All = []string{MetricCPU, MetricMemory, MetricDisk}

// ErrNoMetrics is returned by New when the selection contains no metrics.
var ErrNoMetrics = errors.New("no metrics given")

type sampler struct {
	name   string
	sample func(ctx context.Context) (float64, error)
}

// Monitor samples a fixed selection of system metrics.
type Monitor struct {
	logger   *slog.Logger
	samplers []sampler
}

// New builds a monitor for the named metrics. Unknown names are an error
// rather than being silently dropped, as is an empty selection.
func New(names []string, logger *slog.Logger) (*Monitor, error) {
	if len(names) == 0 {
		return nil, ErrNoMetrics
	}

	m := &Monitor{logger: logger}
	for _, name := range names {
		switch name {
		case MetricCPU:
			m.samplers = append(m.samplers, sampler{name, cpuPercent})
		case MetricMemory:
			m.samplers = append(m.samplers, sampler{name, memoryPercent})
		case MetricDisk:
			m.samplers = append(m.samplers, sampler{name, diskPercent})
		default:
			return nil, errors.Errorf("unknown metric %q", name)
		}
	}
	return m, nil
}

// MaxUsage samples every selected metric and returns the highest usage
// percentage in [0, 100].
func (m *Monitor) MaxUsage(ctx context.Context) (float64, error) {
	var max float64
	for _, s := range m.samplers {
		usage, err := s.sample(ctx)
		if err != nil {
			return 0, errors.Wrapf(err, "failed to sample %s usage", s.name)
		}

		m.logger.Info("sampled metric",
			"metric", s.name,
			"usage_percent", math.Round(usage))

		if usage > max {
			max = usage
		}
	}
	return max, nil
}

func cpuPercent(ctx context.Context) (float64, error) {
	// Interval 0 measures since the previous call, like psutil does. The
	// first reading after startup is therefore since boot; acceptable for a
	// load indicator.
	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, err
	}
	if len(percents) == 0 {
		return 0, errors.New("no cpu usage reported")
	}
	return percents[0], nil
}

func memoryPercent(ctx context.Context) (float64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return vm.UsedPercent, nil
}

// diskPercent reports the fullest mounted filesystem.
func diskPercent(ctx context.Context) (float64, error) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return 0, err
	}

	var max float64
	for _, part := range parts {
		usage, err := disk.UsageWithContext(ctx, part.Mountpoint)
		if err != nil {
			// Pseudo filesystems come and go; skip what cannot be statted.
			continue
		}
		if usage.UsedPercent > max {
			max = usage.UsedPercent
		}
	}
	return max, nil
}
