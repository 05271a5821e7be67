package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/agentmesh/meshchat/pkg/chat"
)

const instrumentation = "github.com/agentmesh/meshchat/pkg/telemetry"

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// Backend traces every call to a chat backend. A submit span stays open
// until the response stream closes.
type Backend struct {
	next   chat.Backend
	tracer trace.Tracer
}

// TraceBackend wraps next using the global tracer provider.
func TraceBackend(next chat.Backend) *Backend {
	return TraceBackendWith(next, otel.GetTracerProvider())
}

func TraceBackendWith(next chat.Backend, tp trace.TracerProvider) *Backend {
	return &Backend{next: next, tracer: tp.Tracer(instrumentation)}
}

func (b *Backend) CreateSession(ctx context.Context) (chat.SessionInfo, error) {
	ctx, span := b.tracer.Start(ctx, "chat.session.create")
	info, err := b.next.CreateSession(ctx)
	span.SetAttributes(attribute.String("session.id", info.ID))
	endSpan(span, err)
	return info, err
}

func (b *Backend) ListSessions(ctx context.Context) ([]chat.SessionInfo, error) {
	ctx, span := b.tracer.Start(ctx, "chat.session.list")
	sessions, err := b.next.ListSessions(ctx)
	span.SetAttributes(attribute.Int("session.count", len(sessions)))
	endSpan(span, err)
	return sessions, err
}

func (b *Backend) LoadSession(ctx context.Context, sessionID string) ([]chat.Message, error) {
	ctx, span := b.tracer.Start(ctx, "chat.session.load", trace.WithAttributes(
		attribute.String("session.id", sessionID),
	))
	messages, err := b.next.LoadSession(ctx, sessionID)
	span.SetAttributes(attribute.Int("message.count", len(messages)))
	endSpan(span, err)
	return messages, err
}

func (b *Backend) Submit(ctx context.Context, req chat.SubmitRequest) (<-chan chat.Delta, error) {
	ctx, span := b.tracer.Start(ctx, "chat.submit", trace.WithAttributes(
		attribute.String("session.id", req.SessionID),
		attribute.String("agent", req.AgentName),
	))
	deltas, err := b.next.Submit(ctx, req)
	if err != nil {
		endSpan(span, err)
		return nil, err
	}

	out := make(chan chat.Delta)
	go func() {
		defer close(out)
		count := 0
		defer func() {
			span.SetAttributes(attribute.Int("delta.count", count))
			endSpan(span, nil)
		}()
		for d := range deltas {
			count++
			if d.Kind == chat.DeltaTaskStarted {
				span.SetAttributes(attribute.String("task.id", d.TaskID))
			}
			select {
			case out <- d:
			case <-ctx.Done():
				span.AddEvent("stream abandoned")
				return
			}
		}
	}()
	return out, nil
}

func (b *Backend) Cancel(ctx context.Context, sessionID, taskID string) error {
	ctx, span := b.tracer.Start(ctx, "chat.cancel", trace.WithAttributes(
		attribute.String("session.id", sessionID),
		attribute.String("task.id", taskID),
	))
	err := b.next.Cancel(ctx, sessionID, taskID)
	endSpan(span, err)
	return err
}

// ArtifactStore traces the calls to an artifact store.
type ArtifactStore struct {
	next   chat.ArtifactStore
	tracer trace.Tracer
}

func TraceArtifacts(next chat.ArtifactStore) *ArtifactStore {
	return TraceArtifactsWith(next, otel.GetTracerProvider())
}

func TraceArtifactsWith(next chat.ArtifactStore, tp trace.TracerProvider) *ArtifactStore {
	return &ArtifactStore{next: next, tracer: tp.Tracer(instrumentation)}
}

func (a *ArtifactStore) start(ctx context.Context, name, sessionID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("session.id", sessionID))
	return a.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (a *ArtifactStore) List(ctx context.Context, sessionID string) ([]chat.ArtifactInfo, error) {
	ctx, span := a.start(ctx, "artifacts.list", sessionID)
	list, err := a.next.List(ctx, sessionID)
	span.SetAttributes(attribute.Int("artifact.count", len(list)))
	endSpan(span, err)
	return list, err
}

func (a *ArtifactStore) Versions(ctx context.Context, sessionID, filename string) ([]int, error) {
	ctx, span := a.start(ctx, "artifacts.versions", sessionID, attribute.String("artifact.filename", filename))
	versions, err := a.next.Versions(ctx, sessionID, filename)
	endSpan(span, err)
	return versions, err
}

func (a *ArtifactStore) Fetch(ctx context.Context, sessionID, filename string, version int) ([]byte, error) {
	ctx, span := a.start(ctx, "artifacts.fetch", sessionID,
		attribute.String("artifact.filename", filename),
		attribute.Int("artifact.version", version),
	)
	content, err := a.next.Fetch(ctx, sessionID, filename, version)
	span.SetAttributes(attribute.Int("artifact.size", len(content)))
	endSpan(span, err)
	return content, err
}

func (a *ArtifactStore) Upload(ctx context.Context, sessionID, filename, mimeType string, content []byte) (chat.ArtifactInfo, error) {
	ctx, span := a.start(ctx, "artifacts.upload", sessionID,
		attribute.String("artifact.filename", filename),
		attribute.String("artifact.mime_type", mimeType),
		attribute.Int("artifact.size", len(content)),
	)
	info, err := a.next.Upload(ctx, sessionID, filename, mimeType, content)
	span.SetAttributes(attribute.Int("artifact.version", info.Version))
	endSpan(span, err)
	return info, err
}

func (a *ArtifactStore) Delete(ctx context.Context, sessionID, filename string) error {
	ctx, span := a.start(ctx, "artifacts.delete", sessionID, attribute.String("artifact.filename", filename))
	err := a.next.Delete(ctx, sessionID, filename)
	endSpan(span, err)
	return err
}

func (a *ArtifactStore) BatchDelete(ctx context.Context, sessionID string, filenames []string) ([]string, error) {
	ctx, span := a.start(ctx, "artifacts.batch_delete", sessionID, attribute.Int("artifact.count", len(filenames)))
	deleted, err := a.next.BatchDelete(ctx, sessionID, filenames)
	span.SetAttributes(attribute.Int("artifact.deleted", len(deleted)))
	endSpan(span, err)
	return deleted, err
}
