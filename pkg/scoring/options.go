package scoring

import "time"

// Params are the reliability combiner weights and the acceptance threshold.
type Params struct {
	Sigma float64 `json:"sigma"`
	Mu    float64 `json:"mu"`
	Theta float64 `json:"theta"`
}

// DefaultParams are the raw-scoring weights.
func DefaultParams() Params {
	return Params{Sigma: 1, Mu: 0, Theta: 0.4}
}

// TunedParams are the weights used to suppress false positives.
func TunedParams() Params {
	return Params{Sigma: 1.8, Mu: 0.8, Theta: 0.4}
}

// Options configure an Engine.
type Options struct {
	Params       Params
	IMax         float64
	R            float64
	TopK         int
	MaxPathDepth int
	Workers      int
	QueryTimeout time.Duration
	QueryRetries int
	// QueryBackoff is the wait before the first retry, doubled for each
	// further one.
	QueryBackoff time.Duration
}

func DefaultOptions() Options {
	return Options{
		Params:       DefaultParams(),
		IMax:         1000,
		R:            400,
		TopK:         3,
		MaxPathDepth: 3,
		Workers:      4,
		QueryTimeout: 30 * time.Second,
		QueryRetries: 2,
		QueryBackoff: 200 * time.Millisecond,
	}
}

func (o Options) querier() querier {
	return querier{timeout: o.QueryTimeout, retries: o.QueryRetries, backoff: o.QueryBackoff}
}

func (o Options) workers() int {
	return max(o.Workers, 1)
}

// Override returns p with every non-nil argument replacing its weight.
func (p Params) Override(sigma, mu, theta *float64) Params {
	if sigma != nil {
		p.Sigma = *sigma
	}
	if mu != nil {
		p.Mu = *mu
	}
	if theta != nil {
		p.Theta = *theta
	}
	return p
}
