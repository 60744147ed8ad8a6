package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rehber/rehber/internal/models"
	"github.com/rehber/rehber/internal/phone"
	"github.com/rehber/rehber/internal/repository"
	"github.com/rehber/rehber/internal/telemetry"
	"github.com/rehber/rehber/internal/util/logger"
)

// ContactService handles contact business logic on top of the store.
type ContactService interface {
	List(ctx context.Context, query string) ([]models.Contact, error)
	Get(ctx context.Context, id models.ContactID) (*models.Contact, error)
	Create(ctx context.Context, c models.Contact) (*models.Contact, error)
	Update(ctx context.Context, id models.ContactID, patch json.RawMessage) (*models.Contact, error)
	Delete(ctx context.Context, id models.ContactID) error
	Import(ctx context.Context, contacts []models.Contact) (int, error)
	Merge(ctx context.Context, id models.ContactID, incoming models.Contact) (*models.Contact, error)
	ToggleFavorite(ctx context.Context, id models.ContactID) (*models.Contact, error)
	Card(ctx context.Context, id models.ContactID) (*Card, error)
	View(ctx context.Context, state ViewState) (*View, error)
}

// Metrics receives counters from the service. A nil Metrics is allowed.
type Metrics interface {
	ObserveContacts(n int)
	PhoneRejected(kind string)
}

// Deps wires the service to its collaborators.
type Deps struct {
	Repo    repository.ContactRepository
	Images  repository.ImageStore
	Events  telemetry.Publisher
	Metrics Metrics
}

// contactService implements ContactService
type contactService struct {
	repo    repository.ContactRepository
	images  repository.ImageStore
	events  telemetry.Publisher
	metrics Metrics
	tracer  trace.Tracer
	newID   func() string
	now     func() time.Time

	// mu serialises read-modify-write cycles on the store.
	mu sync.Mutex
}

func NewContactService(d Deps) ContactService {
	s := &contactService{
		repo:    d.Repo,
		images:  d.Images,
		events:  d.Events,
		metrics: d.Metrics,
		tracer:  otel.Tracer("github.com/rehber/rehber/internal/service"),
		newID:   uuid.NewString,
		now:     time.Now,
	}
	if s.events == nil {
		s.events = telemetry.NopPublisher{}
	}
	return s
}

func (s *contactService) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "ContactService."+op, trace.WithAttributes(attrs...))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// loadForRead reads the store. A corrupt store reads as empty, matching what the
// list screen has always shown; mutations still see the error.
func (s *contactService) loadForRead(ctx context.Context) ([]models.Contact, error) {
	list, err := s.repo.Load(ctx)
	if errors.Is(err, repository.ErrCorruptStore) {
		logger.Warnf("serving empty contact list: %v", err)
		return []models.Contact{}, nil
	}
	return list, err
}

func (s *contactService) save(ctx context.Context, list []models.Contact) error {
	if err := s.repo.Save(ctx, list); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.ObserveContacts(len(list))
	}
	return nil
}

func (s *contactService) publish(typ telemetry.ContactEventType, c *models.Contact, count int) {
	ev := telemetry.ContactEvent{Timestamp: s.now().UTC(), Type: typ, Count: count}
	if c != nil {
		ev.ContactID = c.ID.String()
		ev.Name = c.DisplayName()
	}
	s.events.Publish(ev)
}

func (s *contactService) List(ctx context.Context, query string) (_ []models.Contact, err error) {
	ctx, span := s.start(ctx, "List")
	defer func() { finish(span, err) }()

	list, err := s.loadForRead(ctx)
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return list, nil
	}
	out := make([]models.Contact, 0, len(list))
	for i := range list {
		if matches(&list[i], query) {
			out = append(out, list[i])
		}
	}
	return out, nil
}

func (s *contactService) Get(ctx context.Context, id models.ContactID) (_ *models.Contact, err error) {
	ctx, span := s.start(ctx, "Get", attribute.String("contact.id", id.String()))
	defer func() { finish(span, err) }()

	list, err := s.loadForRead(ctx)
	if err != nil {
		return nil, err
	}
	idx := indexOf(list, id)
	if idx < 0 {
		return nil, ErrNotFound
	}
	return &list[idx], nil
}

func (s *contactService) Create(ctx context.Context, c models.Contact) (_ *models.Contact, err error) {
	ctx, span := s.start(ctx, "Create")
	defer func() { finish(span, err) }()

	prepare(&c)
	if isBlank(c.Name) && isBlank(c.Phone) && isBlank(c.Company) {
		return nil, ErrMissingInfo
	}
	if err := s.checkPhones(&c); err != nil {
		return nil, err
	}
	if err := validateContact(&c); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	if conflict := findConflict(list, &c); conflict != nil {
		span.SetAttributes(attribute.String("conflict.type", string(conflict.Type)))
		return nil, conflict
	}

	c.ID = models.ContactID(s.newID())
	list = append([]models.Contact{c}, list...)
	if err := s.save(ctx, list); err != nil {
		return nil, err
	}

	logger.Infof("contact created: %s", c.ID)
	s.publish(telemetry.ContactCreated, &c, 0)
	return &c, nil
}

func (s *contactService) Update(ctx context.Context, id models.ContactID, patch json.RawMessage) (_ *models.Contact, err error) {
	ctx, span := s.start(ctx, "Update", attribute.String("contact.id", id.String()))
	defer func() { finish(span, err) }()

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(patch, &fields); err != nil || fields == nil {
		return nil, ErrInvalidPatch
	}
	delete(fields, "id")

	var partial models.Contact
	if err := json.Unmarshal(patch, &partial); err != nil {
		return nil, ErrInvalidPatch
	}
	if err := s.checkPhones(&partial); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	idx := indexOf(list, id)
	if idx < 0 {
		return nil, ErrNotFound
	}
	old := list[idx]

	updated, err := overlay(old, fields)
	if err != nil {
		return nil, err
	}
	updated.ID = old.ID
	rederive(&updated, fields)
	prepare(&updated)
	if err := validateContact(&updated); err != nil {
		return nil, err
	}

	list[idx] = updated
	if err := s.save(ctx, list); err != nil {
		return nil, err
	}
	if old.Photo != "" && old.Photo != updated.Photo {
		s.removePhoto(ctx, old.Photo)
	}

	s.publish(telemetry.ContactUpdated, &updated, 0)
	return &updated, nil
}

func (s *contactService) Delete(ctx context.Context, id models.ContactID) (err error) {
	ctx, span := s.start(ctx, "Delete", attribute.String("contact.id", id.String()))
	defer func() { finish(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	idx := indexOf(list, id)
	if idx < 0 {
		return nil
	}
	removed := list[idx]
	list = append(list[:idx], list[idx+1:]...)
	if err := s.save(ctx, list); err != nil {
		return err
	}
	if removed.Photo != "" {
		s.removePhoto(ctx, removed.Photo)
	}

	s.publish(telemetry.ContactDeleted, &removed, 0)
	return nil
}

func (s *contactService) Import(ctx context.Context, contacts []models.Contact) (_ int, err error) {
	ctx, span := s.start(ctx, "Import", attribute.Int("import.count", len(contacts)))
	defer func() { finish(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if path, err := s.repo.Backup(ctx); err != nil {
		logger.Warnf("backup before import failed: %v", err)
	} else if path != "" {
		logger.Infof("backup written to %s", path)
	}

	list, err := s.repo.Load(ctx)
	if err != nil {
		return 0, err
	}

	imported := make([]models.Contact, 0, len(contacts)+len(list))
	for _, c := range contacts {
		c.ID = models.ContactID(s.newID())
		prepare(&c)
		imported = append(imported, c)
	}
	n := len(imported)
	imported = append(imported, list...)
	if err := s.save(ctx, imported); err != nil {
		return 0, err
	}

	logger.Infof("imported %d contacts", n)
	s.publish(telemetry.ContactsImported, nil, n)
	return n, nil
}

func (s *contactService) Merge(ctx context.Context, id models.ContactID, incoming models.Contact) (_ *models.Contact, err error) {
	ctx, span := s.start(ctx, "Merge", attribute.String("contact.id", id.String()))
	defer func() { finish(span, err) }()

	if err := s.checkPhones(&incoming); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	idx := indexOf(list, id)
	if idx < 0 {
		return nil, ErrNotFound
	}

	merged := mergeContacts(list[idx], incoming)
	prepare(&merged)
	if err := validateContact(&merged); err != nil {
		return nil, err
	}
	list[idx] = merged
	if err := s.save(ctx, list); err != nil {
		return nil, err
	}

	s.publish(telemetry.ContactMerged, &merged, 0)
	return &merged, nil
}

func (s *contactService) ToggleFavorite(ctx context.Context, id models.ContactID) (_ *models.Contact, err error) {
	ctx, span := s.start(ctx, "ToggleFavorite", attribute.String("contact.id", id.String()))
	defer func() { finish(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	idx := indexOf(list, id)
	if idx < 0 {
		return nil, ErrNotFound
	}
	list[idx].IsFavorite = !list[idx].IsFavorite
	if err := s.save(ctx, list); err != nil {
		return nil, err
	}

	c := list[idx]
	s.publish(telemetry.ContactUpdated, &c, 0)
	return &c, nil
}

func (s *contactService) Card(ctx context.Context, id models.ContactID) (*Card, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return BuildCard(c), nil
}

func (s *contactService) View(ctx context.Context, state ViewState) (_ *View, err error) {
	ctx, span := s.start(ctx, "View")
	defer func() { finish(span, err) }()

	list, err := s.loadForRead(ctx)
	if err != nil {
		return nil, err
	}
	return BuildView(list, state), nil
}

func (s *contactService) checkPhones(c *models.Contact) error {
	err := phone.ValidateInputs(phoneInputs(c))
	var verr *phone.ValidationError
	if errors.As(err, &verr) && s.metrics != nil {
		s.metrics.PhoneRejected(verr.Kind.String())
	}
	return err
}

func (s *contactService) removePhoto(ctx context.Context, url string) {
	if s.images == nil {
		return
	}
	if err := s.images.Remove(ctx, url); err != nil {
		logger.Warnf("remove photo %s: %v", url, err)
	}
}

// prepare drops blank collection entries and fills the derived name and
// primary phone.
func prepare(c *models.Contact) {
	c.Phones = dropBlank(c.Phones, isBlank)
	c.Emails = dropBlank(c.Emails, isBlank)
	c.URLs = dropBlank(c.URLs, isBlank)
	c.Dates = dropBlank(c.Dates, isBlank)
	c.Addresses = dropBlank(c.Addresses, models.Address.IsEmpty)

	if isBlank(c.Name) {
		c.Name = c.ComposedName()
	}
	if isBlank(c.Phone) {
		c.Phone = c.PrimaryPhone()
	}
}

var nameParts = []string{"prefix", "firstName", "middleName", "lastName", "suffix", "company", "nickname"}

// rederive clears derived fields whose sources the patch changed without
// also sending the derived value, so prepare recomputes them.
func rederive(c *models.Contact, fields map[string]json.RawMessage) {
	if _, ok := fields["phone"]; !ok {
		if _, ok := fields["phones"]; ok {
			c.Phone = ""
		}
	}
	if _, ok := fields["name"]; ok {
		return
	}
	for _, k := range nameParts {
		if _, ok := fields[k]; ok {
			c.Name = ""
			return
		}
	}
}

func dropBlank[V any](m map[string]V, empty func(V) bool) map[string]V {
	for k, v := range m {
		if empty(v) {
			delete(m, k)
		}
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// overlay applies the top-level fields of a patch over c, leaving fields the
// patch does not mention untouched.
func overlay(c models.Contact, fields map[string]json.RawMessage) (models.Contact, error) {
	base, err := json.Marshal(c)
	if err != nil {
		return models.Contact{}, err
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(base, &doc); err != nil {
		return models.Contact{}, err
	}
	for k, v := range fields {
		doc[k] = v
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return models.Contact{}, err
	}
	var out models.Contact
	if err := json.Unmarshal(merged, &out); err != nil {
		return models.Contact{}, ErrInvalidPatch
	}
	return out, nil
}

func indexOf(list []models.Contact, id models.ContactID) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

// findConflict reports an existing record sharing a phone number (compared by
// canonical key) or, failing that, the same name ignoring case and padding.
func findConflict(list []models.Contact, c *models.Contact) *ConflictError {
	keys := map[string]bool{}
	for _, p := range c.AllPhones() {
		if k := phone.CanonicalKey(p.Value); k != "" {
			keys[k] = true
		}
	}
	if len(keys) > 0 {
		for i := range list {
			for _, p := range list[i].AllPhones() {
				if keys[phone.CanonicalKey(p.Value)] {
					return &ConflictError{Type: ConflictPhone, Existing: list[i]}
				}
			}
		}
	}

	name := lowerTR(strings.TrimSpace(c.Name))
	if name == "" {
		return nil
	}
	for i := range list {
		if lowerTR(strings.TrimSpace(list[i].Name)) == name {
			return &ConflictError{Type: ConflictName, Existing: list[i]}
		}
	}
	return nil
}
