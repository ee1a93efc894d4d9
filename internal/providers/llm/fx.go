package llm

import (
	"github.com/smallbiznis/seatwise/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.llm",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config, log *zap.Logger) Provider {
	if cfg.LLM.APIKey == "" {
		log.Info("llm api key not set; executive summaries disabled")
		return NoOpProvider{}
	}
	return NewOpenAI(Config{
		BaseURL:   cfg.LLM.BaseURL,
		APIKey:    cfg.LLM.APIKey,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
		Timeout:   cfg.LLM.Timeout,
		Referer:   cfg.PublicURL,
		Title:     cfg.AppName,
	})
}
