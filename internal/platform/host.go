package platform

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostInfo summarises the machine capture runs on. Preview capture is CPU
// bound, so the capabilities report includes it.
type HostInfo struct {
	OS            string  `json:"os" yaml:"os"`
	Arch          string  `json:"arch" yaml:"arch"`
	LogicalCPUs   int     `json:"logical_cpus" yaml:"logical_cpus"`
	CPUModel      string  `json:"cpu_model,omitempty" yaml:"cpu_model,omitempty"`
	TotalMemoryMB uint64  `json:"total_memory_mb" yaml:"total_memory_mb"`
	UsedMemoryPct float64 `json:"used_memory_pct" yaml:"used_memory_pct"`
}

// ProbeHost gathers CPU and memory information.
func ProbeHost(ctx context.Context) (HostInfo, error) {
	info := HostInfo{OS: runtime.GOOS, Arch: runtime.GOARCH}

	n, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return info, fmt.Errorf("count CPUs: %w", err)
	}
	info.LogicalCPUs = n

	if stats, err := cpu.InfoWithContext(ctx); err == nil && len(stats) > 0 {
		info.CPUModel = stats[0].ModelName
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return info, fmt.Errorf("read memory stats: %w", err)
	}
	info.TotalMemoryMB = vm.Total / (1024 * 1024)
	info.UsedMemoryPct = vm.UsedPercent

	return info, nil
}
