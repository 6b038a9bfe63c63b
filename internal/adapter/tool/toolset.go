package tool

import (
	"log/slog"

	"botbrain/internal/adapter/fetcher"
	"botbrain/internal/domain"
)

// ForBot builds the tool registry a bot's capability flags allow. The tool
// set is closed: only the time and webpage tools exist, and each appears
// exactly when its flag is set. A bot with no flags gets an empty registry
// and the conversation runs without function calling.
func ForBot(bot domain.BotConfig, llm domain.LLMProvider, f fetcher.PageFetcher, logger *slog.Logger) *Registry {
	r := NewRegistry(logger)

	if bot.FunctionTime {
		if err := r.Register(NewCurrentTimeTool(logger)); err != nil {
			logger.Warn("register current_time tool", "bot", bot.ID, "error", err)
		}
	}
	if bot.FunctionInternet {
		if err := r.Register(NewWebpageTool(f, llm, logger)); err != nil {
			logger.Warn("register webpage tool", "bot", bot.ID, "error", err)
		}
	}

	return r
}
