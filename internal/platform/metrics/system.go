package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// RegisterSystemGauges adds host CPU and memory gauges sampled on scrape.
func (m *Metrics) RegisterSystemGauges() error {
	memUsed := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "system_memory_used_percent",
		Help:      "Host memory in use, percent",
	}, func() float64 {
		vm, err := mem.VirtualMemory()
		if err != nil {
			return 0
		}
		return vm.UsedPercent
	})

	cpuUsed := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "system_cpu_used_percent",
		Help:      "Host CPU in use since the previous scrape, percent",
	}, func() float64 {
		// interval 0 compares against the previous call
		pct, err := cpu.Percent(0, false)
		if err != nil || len(pct) == 0 {
			return 0
		}
		return pct[0]
	})

	for _, c := range []prometheus.Collector{memUsed, cpuUsed} {
		if err := m.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}
