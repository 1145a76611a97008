package system

import (
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/sourcegraph/conc"
)

// Collector 进程资源采集器，定期刷新一份快照
type Collector struct {
	proc *process.Process

	mu      sync.RWMutex
	stats   Stats
	running bool
	stopCh  chan struct{}
	wg      conc.WaitGroup
}

// Stats 进程资源快照
type Stats struct {
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	MemoryBytes   uint64    `json:"memory_bytes"`
	Goroutines    int       `json:"goroutines"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// New 创建采集器
func New() (*Collector, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &Collector{proc: proc}, nil
}

// Start 启动定期采集，重复调用无效
func (c *Collector) Start(interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.stopCh = make(chan struct{})
	stopCh := c.stopCh
	c.mu.Unlock()

	c.collect()

	c.wg.Go(func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-stopCh:
				return
			}
		}
	})
}

// Stop 停止采集并等待后台 goroutine 退出
func (c *Collector) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.stopCh)
	c.mu.Unlock()

	c.wg.Wait()
}

func (c *Collector) collect() {
	var stats Stats

	if cpuPercent, err := c.proc.CPUPercent(); err == nil {
		stats.CPUPercent = cpuPercent
	}
	if memInfo, err := c.proc.MemoryInfo(); err == nil {
		stats.MemoryBytes = memInfo.RSS
		if vm, err := mem.VirtualMemory(); err == nil && vm.Total > 0 {
			stats.MemoryPercent = float64(memInfo.RSS) / float64(vm.Total) * 100
		}
	}
	stats.Goroutines = runtime.NumGoroutine()
	stats.UpdatedAt = time.Now()

	c.mu.Lock()
	c.stats = stats
	c.mu.Unlock()
}

// GetStats 当前快照
func (c *Collector) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// Register 以 GaugeFunc 的形式暴露快照
func (c *Collector) Register(reg prometheus.Registerer, namespace string) error {
	gauges := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "process", Name: "cpu_percent",
			Help: "Process CPU usage percent.",
		}, func() float64 { return c.GetStats().CPUPercent }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "process", Name: "memory_percent",
			Help: "Process RSS as percent of system memory.",
		}, func() float64 { return c.GetStats().MemoryPercent }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "process", Name: "memory_rss_bytes",
			Help: "Process resident set size.",
		}, func() float64 { return float64(c.GetStats().MemoryBytes) }),
	}
	for _, g := range gauges {
		if err := reg.Register(g); err != nil {
			return err
		}
	}
	return nil
}
