package usecase

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"botbrain/internal/domain"
	"botbrain/internal/infra/tracer"
)

// maxToolCalls is the tool invocation budget for one inbound message. The
// counter is shared by the concurrent tool tasks; calls past the budget
// are skipped and answered with giveUpText instead of being executed.
const maxToolCalls = 5

// giveUpText is the tool result recorded for a skipped over-budget call.
const giveUpText = "More than 5 attempts to get function response. I give up!"

// apologyText is the fixed reply when a conversation cannot be completed.
// The real failure is logged and traced, never shown to the user.
const apologyText = "I'm sorry, I couldn't process your request right now. Please try again later."

// ToolsetFactory builds the tool set one bot is allowed to use. The
// completion provider is passed in because some tools call the model
// themselves.
type ToolsetFactory func(bot domain.BotConfig, llm domain.LLMProvider) domain.ToolExecutor

// Orchestrator runs the conversation loop: retrieve knowledge, assemble
// the prompt, call the model, execute requested tools, repeat until the
// model answers in plain text or the tool budget runs out. It implements
// domain.MessageHandler semantics: the reply is always a user-facing
// string, never an error.
type Orchestrator struct {
	clients   domain.ClientRegistry
	retriever *Retriever
	memory    *Memory
	toolset   ToolsetFactory
	logger    *slog.Logger
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(clients domain.ClientRegistry, retriever *Retriever, memory *Memory, toolset ToolsetFactory, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		clients:   clients,
		retriever: retriever,
		memory:    memory,
		toolset:   toolset,
		logger:    logger,
	}
}

// respondState enumerates the phases of handling one inbound message.
type respondState int

const (
	stateQuery respondState = iota
	stateTools
	stateFinish
	stateFail
)

// Respond handles one inbound message and returns the reply text. Memory
// is only written when the conversation finishes successfully, so a failed
// exchange leaves no trace in the buffer.
func (o *Orchestrator) Respond(ctx context.Context, bot domain.BotConfig, msg domain.InboundMessage) string {
	reqID := ulid.Make().String()
	log := o.logger.With("request", reqID, "bot", bot.ID, "conversation", msg.ConversationID)

	ctx, span := tracer.StartSpan(ctx, "orchestrator.respond",
		trace.WithAttributes(
			tracer.StringAttr("request.id", reqID),
			tracer.StringAttr("bot.id", bot.ID),
			tracer.StringAttr("conversation.id", msg.ConversationID),
		),
	)
	defer span.End()

	llm := o.clients.Completions(bot.APIKey)
	tools := o.toolset(bot, llm)
	schemas := tools.Schemas()

	msgs := o.buildPrompt(ctx, bot, msg)

	var (
		state     = stateQuery
		toolCalls atomic.Int64
		gaveUp    bool
		pending   []domain.ToolCall
		finalText string
	)

	for {
		switch state {
		case stateQuery:
			resp, err := llm.Chat(ctx, domain.ChatRequest{
				Model:       bot.Model,
				Messages:    msgs,
				Tools:       schemas,
				Temperature: 0,
			})
			if err != nil {
				log.Error("completion failed", "error", err)
				tracer.RecordError(span, err)
				state = stateFail
				continue
			}

			msgs = append(msgs, resp.Message)
			if len(resp.Message.ToolCalls) == 0 {
				finalText = resp.Message.Content
				state = stateFinish
				continue
			}
			// The model got the give-up errors and still wants tools; no
			// further progress is possible.
			if gaveUp {
				log.Warn("tool budget exhausted")
				tracer.RecordError(span, domain.ErrMaxToolCalls)
				state = stateFail
				continue
			}
			pending = resp.Message.ToolCalls
			state = stateTools

		case stateTools:
			// Execute tool calls in parallel; results keep the call order.
			// Each task draws from the shared budget before running.
			before := toolCalls.Load()
			results := make([]domain.Message, len(pending))
			var wg sync.WaitGroup
			for i, call := range pending {
				wg.Add(1)
				go func(idx int, c domain.ToolCall) {
					defer wg.Done()
					results[idx] = o.executeTool(ctx, tools, c, &toolCalls)
				}(i, call)
			}
			wg.Wait()
			msgs = append(msgs, results...)
			pending = nil
			if before >= maxToolCalls {
				// Every call in the batch was skipped; the give-up errors
				// go back to the model exactly once.
				gaveUp = true
			}
			state = stateQuery

		case stateFinish:
			o.memory.Append(bot, msg.ConversationID, msg.UserText, finalText)
			span.SetAttributes(tracer.IntAttr("respond.tool_calls", int(toolCalls.Load())))
			tracer.SetOK(span)
			return finalText

		case stateFail:
			return apologyText
		}
	}
}

// buildPrompt assembles the message list for the first completion call:
// the bot's persona, retrieved knowledge, buffered conversation memory,
// and finally the user's message.
func (o *Orchestrator) buildPrompt(ctx context.Context, bot domain.BotConfig, msg domain.InboundMessage) []domain.Message {
	msgs := []domain.Message{
		{Role: domain.RoleSystem, Content: bot.Context},
	}

	if knowledge := o.retriever.Retrieve(ctx, bot, msg.UserText); knowledge != "" {
		msgs = append(msgs, domain.Message{
			Role:    domain.RoleAssistant,
			Content: "Here is what I know that may be relevant:\n\n" + knowledge,
		})
	}

	msgs = append(msgs, o.memory.History(msg.ConversationID)...)
	msgs = append(msgs, domain.Message{
		Role:      domain.RoleUser,
		Content:   msg.UserText,
		Timestamp: time.Now(),
	})
	return msgs
}

// executeTool runs a single tool call and returns the result as a tool
// message. The shared budget counter is drawn atomically; an over-budget
// call is not executed and its result carries giveUpText. Tool failures
// become error content for the model to react to.
func (o *Orchestrator) executeTool(ctx context.Context, tools domain.ToolExecutor, call domain.ToolCall, used *atomic.Int64) domain.Message {
	ctx, span := tracer.StartSpan(ctx, "orchestrator.execute_tool",
		trace.WithAttributes(tracer.StringAttr("tool.name", call.Name)),
	)
	defer span.End()

	toolMsg := func(content string) domain.Message {
		return domain.Message{
			Role:    domain.RoleTool,
			Name:    call.Name,
			Content: content,
			ToolCalls: []domain.ToolCall{{
				ID:   call.ID,
				Name: call.Name,
			}},
			Timestamp: time.Now(),
		}
	}

	if used.Add(1) > maxToolCalls {
		tracer.RecordError(span, domain.ErrMaxToolCalls)
		return toolMsg(giveUpText)
	}

	t, err := tools.Get(call.Name)
	if err != nil {
		tracer.RecordError(span, err)
		return toolMsg(err.Error())
	}

	result, err := t.Execute(ctx, call.Arguments)
	if err != nil {
		tracer.RecordError(span, err)
		return toolMsg(err.Error())
	}

	if result.IsError {
		tracer.RecordError(span, domain.NewDomainError("Orchestrator.executeTool", domain.ErrToolFailure, result.Content))
	} else {
		tracer.SetOK(span)
	}
	return toolMsg(result.Content)
}
