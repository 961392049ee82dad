package metrics

var (
	nilGauge    Gauge    = nop{}
	nilCounter  Counter  = nop{}
	nilObserver Observer = nop{}
)

// nop stands in for every collector while metrics are disabled.
type nop struct{}

func (nop) Inc()            {}
func (nop) Dec()            {}
func (nop) Add(float64)     {}
func (nop) Set(float64)     {}
func (nop) Observe(float64) {}
