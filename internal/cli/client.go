package cli

import (
	"github.com/prometheus/client_golang/prometheus"

	"yogrt/internal/config"
	logx "yogrt/pkg/logx"
	"yogrt/pkg/yogrt"
)

func newClient(cfg *config.Config, e env, log logx.Logger, reg prometheus.Registerer) *yogrt.Client {
	opts := []yogrt.OptionsFunc{
		yogrt.WithConfig(cfg),
		yogrt.WithLogger(log),
		yogrt.WithRegistry(e.registry),
	}
	if reg != nil {
		opts = append(opts, yogrt.WithMetrics(reg))
	}
	return yogrt.New(opts...)
}
