// memory based implementation for tests and the command line tool
package memory

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cyp0633/rruledit/recurrence"
	"github.com/cyp0633/rruledit/storage"
	"github.com/emersion/go-ical"
	"github.com/google/uuid"
)

// Store implements storage.Storage using an in-memory map
type Store struct {
	mu      sync.RWMutex
	objects map[string]*storage.Object // key: calendarID/objectID
	engine  *recurrence.Engine
	logger  *slog.Logger
}

// Option represents a configuration option for the Store
type Option func(*Store)

// WithLogger sets the logger for the store
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEngine sets the engine used to match recurring objects against time ranges
func WithEngine(engine *recurrence.Engine) Option {
	return func(s *Store) {
		if engine != nil {
			s.engine = engine
		}
	}
}

// New creates a new in-memory storage
func New(opts ...Option) *Store {
	s := &Store{
		objects: make(map[string]*storage.Object),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = recurrence.NewEngineWithConfig(recurrence.UncachedConfig)
	}

	return s
}

func (s *Store) objectKey(calendarID, objectID string) string {
	return fmt.Sprintf("%s/%s", calendarID, objectID)
}

// generateETag hashes the event's properties in name order, since go-ical
// keeps them in a map.
func generateETag(event *ical.Event) string {
	hasher := sha1.New()
	writeComponent(hasher, event.Component)
	return `"` + hex.EncodeToString(hasher.Sum(nil)) + `"`
}

func writeComponent(w io.Writer, comp *ical.Component) {
	fmt.Fprintf(w, "BEGIN:%s\n", comp.Name)

	names := make([]string, 0, len(comp.Props))
	for name := range comp.Props {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, prop := range comp.Props[name] {
			params := make([]string, 0, len(prop.Params))
			for param, values := range prop.Params {
				params = append(params, param+"="+strings.Join(values, ","))
			}
			sort.Strings(params)
			fmt.Fprintf(w, "%s;%s:%s\n", name, strings.Join(params, ";"), prop.Value)
		}
	}

	for _, child := range comp.Children {
		writeComponent(w, child)
	}
	fmt.Fprintf(w, "END:%s\n", comp.Name)
}

// cloneObject copies obj deep enough that callers and the store never share
// a component, its properties or its children.
func cloneObject(obj *storage.Object) *storage.Object {
	clone := *obj
	if obj.Event != nil {
		clone.Event = &ical.Event{Component: cloneComponent(obj.Component)}
	}
	return &clone
}

func cloneComponent(comp *ical.Component) *ical.Component {
	if comp == nil {
		return nil
	}
	clone := &ical.Component{Name: comp.Name}
	if comp.Props != nil {
		clone.Props = make(ical.Props, len(comp.Props))
		for name, props := range comp.Props {
			copied := make([]ical.Prop, len(props))
			for i, prop := range props {
				copied[i] = ical.Prop{Name: prop.Name, Value: prop.Value}
				if prop.Params != nil {
					copied[i].Params = make(ical.Params, len(prop.Params))
					for param, values := range prop.Params {
						copied[i].Params[param] = append([]string(nil), values...)
					}
				}
			}
			clone.Props[name] = copied
		}
	}
	if comp.Children != nil {
		clone.Children = make([]*ical.Component, len(comp.Children))
		for i, child := range comp.Children {
			clone.Children[i] = cloneComponent(child)
		}
	}
	return clone
}

func (s *Store) GetObject(_ context.Context, calendarID, objectID string) (*storage.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[s.objectKey(calendarID, objectID)]
	if !ok {
		return nil, &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "object not found",
		}
	}

	return cloneObject(obj), nil
}

func (s *Store) ListObjects(_ context.Context, calendarID string, opts *storage.ListOptions) ([]*storage.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var objects []*storage.Object
	for _, obj := range s.objects {
		if obj.CalendarID != calendarID {
			continue
		}
		if opts != nil && !s.matches(obj, opts) {
			continue
		}
		objects = append(objects, cloneObject(obj))
	}

	sort.Slice(objects, func(i, j int) bool {
		return objects[i].ID < objects[j].ID
	})
	return objects, nil
}

func (s *Store) matches(obj *storage.Object, opts *storage.ListOptions) bool {
	source := recurrence.ExtractRuleFromComponent(obj.Component)
	if opts.RecurringOnly && source.Rule == "" {
		return false
	}
	if opts.Start == nil && opts.End == nil {
		return true
	}
	if !source.HasStart {
		return false
	}

	rangeStart := source.Start
	if opts.Start != nil {
		rangeStart = *opts.Start
	}
	rangeEnd := rangeStart.AddDate(100, 0, 0)
	if opts.End != nil {
		rangeEnd = *opts.End
	}

	if source.Rule == "" {
		end, err := obj.DateTimeEnd(nil)
		if err != nil || end.Before(source.Start) {
			end = source.Start
		}
		return !end.Before(rangeStart) && !source.Start.After(rangeEnd)
	}

	occurrences, err := s.engine.Between(source.Start, source.Rule, rangeStart, rangeEnd)
	if err != nil {
		s.logger.Warn("skipping object with invalid recurrence rule",
			"calendar_id", obj.CalendarID,
			"object_id", obj.ID,
			"error", err)
		return false
	}
	return len(occurrences) > 0
}

func (s *Store) CreateObject(_ context.Context, obj *storage.Object) error {
	if obj == nil || obj.Event == nil {
		return &storage.Error{
			Type:    storage.ErrInvalidInput,
			Message: "object has no event",
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if obj.ID == "" {
		obj.ID = uuid.NewString()
	}
	key := s.objectKey(obj.CalendarID, obj.ID)
	if _, exists := s.objects[key]; exists {
		return &storage.Error{
			Type:    storage.ErrAlreadyExists,
			Message: "object already exists",
		}
	}

	if obj.Props.Get(ical.PropUID) == nil {
		obj.Props.SetText(ical.PropUID, obj.ID)
	}

	etag := generateETag(obj.Event)

	now := time.Now()
	obj.Created = now
	obj.Modified = now
	obj.ETag = etag
	s.objects[key] = cloneObject(obj)

	s.logger.Debug("object created",
		"calendar_id", obj.CalendarID,
		"object_id", obj.ID,
		"etag", etag)
	return nil
}

func (s *Store) UpdateObject(_ context.Context, obj *storage.Object) error {
	if obj == nil || obj.Event == nil {
		return &storage.Error{
			Type:    storage.ErrInvalidInput,
			Message: "object has no event",
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.objectKey(obj.CalendarID, obj.ID)
	existing, exists := s.objects[key]
	if !exists {
		return &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "object not found",
		}
	}
	if obj.ETag != "" && obj.ETag != existing.ETag {
		return &storage.Error{
			Type:    storage.ErrConflict,
			Message: fmt.Sprintf("etag mismatch: have %s, got %s", existing.ETag, obj.ETag),
		}
	}

	etag := generateETag(obj.Event)

	obj.Created = existing.Created
	obj.Modified = time.Now()
	obj.ETag = etag
	s.objects[key] = cloneObject(obj)

	s.logger.Debug("object updated",
		"calendar_id", obj.CalendarID,
		"object_id", obj.ID,
		"etag", etag)
	return nil
}

func (s *Store) DeleteObject(_ context.Context, calendarID, objectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.objectKey(calendarID, objectID)
	if _, exists := s.objects[key]; !exists {
		return &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "object not found",
		}
	}

	delete(s.objects, key)
	return nil
}
