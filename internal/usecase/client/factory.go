package client

import (
	"kairos/internal/application/port/output"
	"kairos/internal/domain/entity"
)

// Factory picks the model transport for a request's provider.
type Factory struct {
	llms    output.LLMFactory
	tools   output.ToolProviderFactory
	logger  output.LoggerPort
	metrics output.MetricsPort
	opts    Options
}

func NewFactory(
	llms output.LLMFactory,
	tools output.ToolProviderFactory,
	logger output.LoggerPort,
	metrics output.MetricsPort,
	opts Options,
) *Factory {
	return &Factory{llms: llms, tools: tools, logger: logger, metrics: metrics, opts: opts}
}

func (f *Factory) New(req entity.EvaluationRequest) (output.EvaluationClient, error) {
	provider, err := entity.ParseProvider(string(req.Provider))
	if err != nil {
		return nil, err
	}

	llm, err := f.llms(provider, req.Model)
	if err != nil {
		return nil, err
	}

	return New(provider, llm, f.tools, f.logger, f.metrics, req.Temperature, f.opts), nil
}
