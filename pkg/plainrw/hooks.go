package plainrw

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Hooks are told the number of tracked directories when a storage attaches and detaches.
type Hooks interface {
	OnAttach(size int)
	OnDetach(size int)
}

type NopHooks struct{}

func (NopHooks) OnAttach(int) {}
func (NopHooks) OnDetach(int) {}

// PrometheusHooks keeps a gauge of the directory map size per disk
type PrometheusHooks struct {
	gauge prometheus.Gauge
}

var _ Hooks = (*PrometheusHooks)(nil)

// NewPrometheusHooks registers the directory map size gauge with reg. Several disks
// can share one registry.
func NewPrometheusHooks(reg prometheus.Registerer, disk string) (*PrometheusHooks, error) {
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "plainrw",
		Subsystem: "metadata",
		Name:      "directory_map_size",
		Help:      "Number of local directories mapped to remote prefixes.",
	}, []string{"disk"})

	if err := reg.Register(vec); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		vec = are.ExistingCollector.(*prometheus.GaugeVec)
	}

	return &PrometheusHooks{gauge: vec.WithLabelValues(disk)}, nil
}

func (h *PrometheusHooks) OnAttach(size int) {
	h.gauge.Add(float64(size))
}

func (h *PrometheusHooks) OnDetach(size int) {
	h.gauge.Sub(float64(size))
}

// Gauge returns the gauge of the disk
func (h *PrometheusHooks) Gauge() prometheus.Gauge {
	return h.gauge
}
