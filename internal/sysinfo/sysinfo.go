// Package sysinfo reports host facts for the health endpoint.
package sysinfo

import (
	"context"
	"math"
	"runtime"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Info is a small summary of the machine the server runs on
type Info struct {
	Hostname          string  `json:"hostname"`
	OS                string  `json:"os"`
	Platform          string  `json:"platform"`
	PlatformVersion   string  `json:"platform_version,omitempty"`
	CPUs              int     `json:"cpus"`
	GoVersion         string  `json:"go_version"`
	MemoryTotalMB     uint64  `json:"memory_total_mb,omitempty"`
	MemoryUsedPercent float64 `json:"memory_used_percent"`
}

// Collect gathers host and memory information. Fields that cannot be read
// are left empty; Collect never fails.
func Collect(ctx context.Context) Info {
	info := Info{
		OS:        runtime.GOOS,
		CPUs:      runtime.NumCPU(),
		GoVersion: runtime.Version(),
	}

	if h, err := host.InfoWithContext(ctx); err == nil {
		info.Hostname = h.Hostname
		info.Platform = h.Platform
		info.PlatformVersion = h.PlatformVersion
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.MemoryTotalMB = vm.Total / (1 << 20)
		info.MemoryUsedPercent = math.Round(vm.UsedPercent*10) / 10
	}
	return info
}
