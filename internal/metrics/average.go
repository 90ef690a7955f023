package metrics

// Average accumulates a time average of a scalar observable over a
// measurement window.
type Average struct {
	name    string
	sum     float64
	samples int
}

func NewAverage(name string) *Average {
	return &Average{name: name}
}

func (a *Average) Name() string { return a.name }

func (a *Average) Observe(v float64) {
	a.sum += v
	a.samples++
}

func (a *Average) Value() float64 {
	if a.samples == 0 {
		return 0
	}
	return a.sum / float64(a.samples)
}

func (a *Average) Reset() {
	a.sum = 0
	a.samples = 0
}
