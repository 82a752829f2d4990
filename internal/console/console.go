// Package console runs the line-based chat loop on a terminal.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/antoniostano/zinger/internal/conversation"
)

const (
	Banner         = "🌟 Zerina Zinger's Interior Design Bot 🛋️"
	InputPrompt    = "Vi: "
	farewellReply  = "AI: Doviđenja! Hvala što ste koristili bot."
	interruptReply = "Prekinuli ste. Hvala na razgovoru!"
	finishedReply  = "AI: Hvala na razgovoru, doviđenja!"
)

var farewells = []string{"doviđenja", "cao", "ćao"}

// IsFarewell reports whether the line is one of the goodbye phrases.
func IsFarewell(line string) bool {
	line = strings.ToLower(strings.TrimSpace(line))
	for _, f := range farewells {
		if line == f {
			return true
		}
	}
	return false
}

// Responder is the part of the conversation controller the console needs.
type Responder interface {
	NewState() conversation.State
	Respond(ctx context.Context, state conversation.State, text string) (conversation.State, conversation.Turn, error)
}

// Run reads user lines from in until a farewell, EOF, cancellation or the
// turn cutoff, printing replies to out. Blank lines are skipped.
func Run(ctx context.Context, r Responder, in io.Reader, out io.Writer, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	state := r.NewState()
	fmt.Fprintln(out, Banner)
	if len(state.History) > 0 && state.History[0].Role == conversation.RoleSystem {
		fmt.Fprintln(out, state.History[0].Text)
	}
	for {
		fmt.Fprint(out, InputPrompt)

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\n"+interruptReply)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out, "\n"+interruptReply)
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("read input: %w", err)
					}
				default:
				}
				return nil
			}
			line = l
		}

		if IsFarewell(line) {
			fmt.Fprintln(out, farewellReply)
			return nil
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		next, turn, err := r.Respond(ctx, state, line)
		if errors.Is(err, conversation.ErrTerminated) {
			fmt.Fprintln(out, finishedReply)
			return nil
		}
		if err != nil {
			return fmt.Errorf("respond: %w", err)
		}
		state = next
		fmt.Fprintf(out, "AI: %s\n", turn.Text)
		logger.Debug("console turn", zap.String("source", string(turn.Source)), zap.Int("turns", state.ConversationTurns()))

		if state.Terminated() {
			fmt.Fprintln(out, finishedReply)
			return nil
		}
	}
}
