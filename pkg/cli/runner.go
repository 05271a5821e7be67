package cli

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/agentmesh/meshchat/pkg/chat"
	"github.com/agentmesh/meshchat/pkg/monitor"
	"github.com/agentmesh/meshchat/pkg/task"
)

var (
	// ErrCanceled is returned by Send when the user canceled the response.
	ErrCanceled = errors.New("response canceled")
	// ErrTurnFailed is returned by Send when the turn ended with an error
	// notification. The notification has already been printed.
	ErrTurnFailed = errors.New("response failed")
)

// Send submits text through store and prints the agent's reply as it
// streams in. It returns once the response is over. Canceling ctx asks the
// backend to cancel the task.
func Send(ctx context.Context, store *chat.Store, out *Printer, text string) error {
	changes, unsubscribe := store.Subscribe()
	defer unsubscribe()

	before := len(store.Snapshot().Messages)

	store.SetUserInput(text)
	// Submit ties the response stream to its context; the caller's ctx is
	// only used to decide when to cancel.
	if err := store.Submit(context.WithoutCancel(ctx)); err != nil {
		return err
	}

	w := replyWriter{out: out}
	var failure string
	for {
		st := store.Snapshot()
		w.update(st.Messages[min(before, len(st.Messages)):])
		for _, n := range st.Notifications {
			if n.Kind == chat.NotifyError {
				out.PrintNotification(n)
				failure = cmp.Or(failure, n.Text)
			}
			store.DismissNotification(n.ID)
		}
		if !st.IsResponding {
			w.finish()
			if failure != "" {
				return fmt.Errorf("%w: %s", ErrTurnFailed, failure)
			}
			return nil
		}

		select {
		case <-changes:
		case <-ctx.Done():
			cancelErr := store.Cancel(context.WithoutCancel(ctx))
			w.finish()
			if cancelErr != nil {
				return cancelErr
			}
			return ErrCanceled
		}
	}
}

// replyWriter prints the new part of the streamed messages since the last
// update.
type replyWriter struct {
	out     *Printer
	printed map[int]int
	status  string
	open    bool
}

func (w *replyWriter) update(msgs []chat.Message) {
	if w.printed == nil {
		w.printed = make(map[int]int)
	}
	for i, m := range msgs {
		switch {
		case m.IsUser:
		case m.IsStatusBubble:
			if m.Text != w.status && m.Text != chat.DefaultStatusText {
				w.finishLine()
				w.out.PrintStatus(m.Text)
			}
			w.status = m.Text
		default:
			done := w.printed[i]
			if len(m.Text) > done {
				w.out.Printf("%s", m.Text[done:])
				w.printed[i] = len(m.Text)
				w.open = !strings.HasSuffix(m.Text, "\n")
			}
			if m.IsComplete {
				w.finishLine()
			}
		}
	}
}

func (w *replyWriter) finishLine() {
	if w.open {
		w.out.Println()
		w.open = false
	}
}

func (w *replyWriter) finish() {
	w.finishLine()
}

// Watch connects mon and prints every task change until ctx is done.
func Watch(ctx context.Context, mon *monitor.Monitor, out *Printer) error {
	changes, unsubscribe := mon.Subscribe()
	defer unsubscribe()

	if err := mon.Connect(ctx); err != nil {
		slog.Warn("Task stream unavailable, retrying", "error", err)
		out.PrintStatus("Task stream unavailable, retrying...")
	}
	defer mon.Disconnect()

	seen := make(map[string]watched)
	for {
		st := mon.Snapshot()
		for _, t := range st.OrderedTasks() {
			prev, known := seen[t.ID]
			if !known || prev.status != t.Status {
				out.PrintTask(t, "", false)
			}
			for _, s := range t.Steps[min(prev.steps, len(t.Steps)):] {
				out.PrintStep(t.ID, s)
			}
			seen[t.ID] = watched{status: t.Status, steps: len(t.Steps)}
		}
		if !st.IsConnected && !st.IsConnecting && !st.IsReconnecting && st.LastError != nil {
			return fmt.Errorf("watching tasks: %w", st.LastError)
		}

		select {
		case <-changes:
		case <-ctx.Done():
			return nil
		}
	}
}

type watched struct {
	status task.Status
	steps  int
}
