package editor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/cyp0633/rruledit/recurrence"
	"github.com/cyp0633/rruledit/storage"
)

// Binding makes a stored calendar object the external owner of an editor's
// rule: the object's RRULE and DTSTART are reflected into the editor, and every
// rule the editor emits is written back to the object.
type Binding struct {
	store      storage.Storage
	calendarID string
	objectID   string
	editor     *Editor
	logger     *slog.Logger

	mu      sync.Mutex
	lastErr error
}

// Bind loads the object and creates an editor driven by it. opts are applied to
// the editor after the object's rule and start date.
func Bind(ctx context.Context, store storage.Storage, calendarID, objectID string, opts ...Option) (*Binding, error) {
	obj, err := store.GetObject(ctx, calendarID, objectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load object %s/%s: %w", calendarID, objectID, err)
	}

	b := &Binding{
		store:      store,
		calendarID: calendarID,
		objectID:   objectID,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	source := recurrence.ExtractRuleFromComponent(obj.Component)
	editorOpts := []Option{WithValue(source.Rule)}
	if source.HasStart {
		editorOpts = append(editorOpts, WithStart(source.Start))
	}
	editorOpts = append(editorOpts, opts...)
	editorOpts = append(editorOpts, WithOnChange(b.persist))

	b.editor = New(editorOpts...)
	b.logger = b.editor.logger.With("calendar_id", calendarID, "object_id", objectID)
	b.logger.Info("bound editor to object", "rule", source.Rule)

	return b, nil
}

// Editor returns the bound editor
func (b *Binding) Editor() *Editor {
	return b.editor
}

// Object returns the stored object
func (b *Binding) Object(ctx context.Context) (*storage.Object, error) {
	return b.store.GetObject(ctx, b.calendarID, b.objectID)
}

// Err returns the error of the most recent write-back, or nil if it succeeded
func (b *Binding) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// Refresh re-reads the object and reflects its rule and start date into the
// editor. A changed start date may itself produce a write-back.
func (b *Binding) Refresh(ctx context.Context) error {
	obj, err := b.Object(ctx)
	if err != nil {
		return fmt.Errorf("failed to reload object: %w", err)
	}

	source := recurrence.ExtractRuleFromComponent(obj.Component)
	b.editor.SetValue(source.Rule)
	if source.HasStart {
		b.editor.SetStart(source.Start)
	}
	return nil
}

// persist writes an emitted rule back to the stored object
func (b *Binding) persist(rule string) {
	err := b.write(context.Background(), rule)

	b.mu.Lock()
	b.lastErr = err
	b.mu.Unlock()

	if err != nil {
		b.logger.Error("failed to store recurrence rule",
			"rule", rule,
			"error", err)
		return
	}
	b.logger.Debug("stored recurrence rule", "rule", rule)
}

func (b *Binding) write(ctx context.Context, rule string) error {
	obj, err := b.store.GetObject(ctx, b.calendarID, b.objectID)
	if err != nil {
		return err
	}
	recurrence.ApplyRuleToComponent(obj.Component, rule)
	return b.store.UpdateObject(ctx, obj)
}
