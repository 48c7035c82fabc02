package main

import (
	"time"

	"github.com/OFFIS-RIT/ris/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// runFlags overlay the loaded RunConfig; only flags set on the command line
// take effect.
type runFlags struct {
	sigma, mu, theta float64
	iMax, r          float64
	topK, maxDepth   int
	workers, retries int
	timeout, backoff time.Duration
}

func (f *runFlags) register(fs *pflag.FlagSet, withWeights bool) {
	if withWeights {
		fs.Float64Var(&f.sigma, "sigma", 0, "weight of CSSM")
		fs.Float64Var(&f.mu, "mu", 0, "weight of FSCM")
		fs.Float64Var(&f.theta, "theta", 0, "acceptance threshold")
	}
	fs.Float64Var(&f.iMax, "i-max", 0, "degree normalizer, <= 0 derives it from the graph")
	fs.Float64Var(&f.r, "r", 0, "relation type normalizer, <= 0 derives it from the graph")
	fs.IntVar(&f.topK, "top-k", 0, "number of distinct support degrees / rules to keep")
	fs.IntVar(&f.maxDepth, "max-depth", 0, "maximum path length in hops")
	fs.IntVar(&f.workers, "workers", 0, "parallel scoring workers")
	fs.IntVar(&f.retries, "retries", 0, "retries per failed graph query")
	fs.DurationVar(&f.timeout, "timeout", 0, "timeout per graph query")
	fs.DurationVar(&f.backoff, "backoff", 0, "wait before the first retry of a failed graph query")
}

func (f *runFlags) apply(cmd *cobra.Command, r *config.RunConfig) {
	fs := cmd.Flags()
	set := func(name string, fn func()) {
		if fs.Changed(name) {
			fn()
		}
	}
	set("sigma", func() { r.Sigma = f.sigma })
	set("mu", func() { r.Mu = f.mu })
	set("theta", func() { r.Theta = f.theta })
	set("i-max", func() { r.IMax = f.iMax })
	set("r", func() { r.R = f.r })
	set("top-k", func() { r.TopK = f.topK })
	set("max-depth", func() { r.MaxPathDepth = f.maxDepth })
	set("workers", func() { r.Workers = f.workers })
	set("retries", func() { r.QueryRetries = f.retries })
	set("timeout", func() { r.QueryTimeout = f.timeout })
	set("backoff", func() { r.QueryBackoff = f.backoff })
}
