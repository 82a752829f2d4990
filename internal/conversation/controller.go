package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/antoniostano/zinger/internal/generator"
	"github.com/antoniostano/zinger/internal/knowledge"
	"github.com/antoniostano/zinger/internal/observability"
	"github.com/antoniostano/zinger/internal/policy"
	"github.com/antoniostano/zinger/internal/prompt"
)

const (
	DefaultMaxTurns      = 5
	DefaultMinReplyRunes = 20

	// Decoration is appended once to every assistant reply.
	Decoration = " 😊🛋️"

	apologyFormat = "Ups, nešto nije u redu. Molim te ponovi pitanje. 🤷‍♀️ Detalji: %s"

	logQuestionRunes = 160
)

// ErrTerminated is returned for a turn on a session that hit the turn cutoff.
var ErrTerminated = errors.New("conversation terminated; reset required")

type Config struct {
	// MaxTurns is the number of user and assistant turns a session may hold
	// before it terminates. The turn that pushes the count past it is still
	// answered.
	MaxTurns int
	// MinReplyRunes is the trimmed length below which a generated reply is
	// replaced by a matching FAQ answer.
	MinReplyRunes int
}

func (c Config) withDefaults() Config {
	if c.MaxTurns <= 0 {
		c.MaxTurns = DefaultMaxTurns
	}
	if c.MinReplyRunes <= 0 {
		c.MinReplyRunes = DefaultMinReplyRunes
	}
	return c
}

// Controller runs one turn at a time against a State value it does not own.
type Controller struct {
	assembler *prompt.Assembler
	generator generator.Generator
	knowledge *knowledge.Base
	cfg       Config
	logger    *zap.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

func NewController(
	assembler *prompt.Assembler,
	gen generator.Generator,
	kb *knowledge.Base,
	cfg Config,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		assembler: assembler,
		generator: gen,
		knowledge: kb,
		cfg:       cfg.withDefaults(),
		logger:    logger.Named("conversation"),
		metrics:   metrics,
		now:       time.Now,
	}
}

func (c *Controller) Config() Config { return c.cfg }

// NewState returns a fresh conversation holding only the persona turn.
func (c *Controller) NewState() State {
	return State{
		History: []Turn{{
			Role: RoleSystem,
			Text: c.assembler.Persona(),
			At:   c.now().UTC(),
		}},
		Status:    StatusAwaitingInput,
		Knowledge: c.knowledge,
	}
}

// Reset discards the history of s and starts over. Any state, including a
// terminated one, can be reset.
func (c *Controller) Reset(State) State {
	return c.NewState()
}

// Respond runs one turn. The returned State carries the user turn and the
// assistant turn; the input State is left untouched. Generation failures never
// surface as errors: they become an apology reply.
func (c *Controller) Respond(ctx context.Context, state State, text string) (State, Turn, error) {
	if state.Terminated() {
		return state, Turn{}, ErrTerminated
	}
	if state.Knowledge == nil {
		state.Knowledge = c.knowledge
	}

	started := c.now()
	next := state.withTurn(Turn{Role: RoleUser, Text: text, At: started.UTC()})
	next.Status = StatusGenerating

	reply, source := c.reply(ctx, next.Knowledge, text)
	assistant := Turn{
		Role:   RoleAssistant,
		Text:   decorate(reply),
		Source: source,
		At:     c.now().UTC(),
	}
	next.History = append(next.History, assistant)

	if next.ConversationTurns() > c.cfg.MaxTurns {
		next.Status = StatusTerminated
		c.metrics.SessionEvent("terminated")
	} else {
		next.Status = StatusAwaitingInput
	}

	c.metrics.ObserveReply(string(source))
	c.metrics.ObserveTurnStage("turn_total", c.now().Sub(started))
	return next, assistant, nil
}

func (c *Controller) reply(ctx context.Context, kb *knowledge.Base, text string) (string, Source) {
	req := c.assembler.Assemble(text)

	genStart := c.now()
	completion, err := c.generator.Generate(ctx, req)
	c.metrics.ObserveGeneration(c.now().Sub(genStart))
	if err != nil {
		var genErr *generator.GenerationError
		if errors.As(err, &genErr) {
			c.metrics.ObserveGenerationError(genErr.Provider, string(genErr.Kind))
		} else {
			c.metrics.ObserveGenerationError(generator.ProviderName(c.generator), "unknown")
		}
		c.logger.Warn("generation failed",
			zap.String("question", policy.ForLog(text, logQuestionRunes)),
			zap.Error(err),
		)
		return fmt.Sprintf(apologyFormat, err.Error()), SourceApology
	}

	generated := completion.Text
	if utf8.RuneCountInString(strings.TrimSpace(generated)) >= c.cfg.MinReplyRunes {
		return generated, SourceGenerated
	}
	if entry, ok := kb.Match(text); ok {
		c.metrics.Count("fallback_hit")
		c.logger.Debug("short reply replaced by faq answer",
			zap.String("question", policy.ForLog(text, logQuestionRunes)),
			zap.String("faq", entry.Question),
		)
		return entry.Answer, SourceFallback
	}
	c.metrics.Count("fallback_miss")
	c.logger.Info("short reply without faq match",
		zap.String("question", policy.ForLog(text, logQuestionRunes)),
		zap.Int("reply_runes", utf8.RuneCountInString(strings.TrimSpace(generated))),
	)
	return generated, SourceGenerated
}

func decorate(text string) string {
	return strings.TrimSuffix(text, Decoration) + Decoration
}
