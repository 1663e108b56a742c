package engagement

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ignite/engagement-tracker/internal/domain"
)

// Service implements engagement business logic. All public methods are safe
// for concurrent use if the underlying repository is concurrency-safe.
type Service struct {
	repo     Repository
	validate *validator.Validate
	now      func() time.Time
	newID    func() (string, error)
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source used for sentAt/openedAt/clickedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides tracking id generation.
func WithIDGenerator(fn func() (string, error)) Option {
	return func(s *Service) { s.newID = fn }
}

// NewService creates an engagement service backed by the given repository.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		validate: newValidator(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    NewTrackingID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterInput holds the fields accepted by Register.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,trackemail,max=320"`
	Name     string `json:"name" validate:"max=200"`
	Campaign string `json:"campaign" validate:"max=200"`
}

// Register upserts the contact for the given email and issues a fresh
// tracking record for it.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.TrackingRecord, error) {
	in.Email = domain.NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	in.Campaign = strings.TrimSpace(in.Campaign)

	if err := s.validate.Struct(in); err != nil {
		return nil, translateValidation(err)
	}

	id, err := s.newID()
	if err != nil {
		return nil, persistence("generate tracking id", err)
	}

	now := s.now()
	contact := &domain.Contact{
		Email:     in.Email,
		Name:      in.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	rec := &domain.TrackingRecord{
		TrackingID:   id,
		CampaignName: in.Campaign,
		SentAt:       now,
	}

	if err := s.repo.Register(ctx, contact, rec); err != nil {
		return nil, persistence("register contact", err)
	}
	return rec, nil
}

// Outcome describes what a tracking event did to the store. The open and
// click endpoints log it and then drop it: their response never depends on
// whether tracking succeeded.
type Outcome struct {
	TrackingID string
	Event      domain.TrackingEventType
	Matched    bool
	Err        error
}

// RecordOpen marks the tracking record and its contact as opened. An unknown
// id yields an unmatched Outcome with no error.
func (s *Service) RecordOpen(ctx context.Context, trackingID string) Outcome {
	return s.record(ctx, trackingID, domain.EventOpen)
}

// RecordClick marks the tracking record and its contact as clicked.
func (s *Service) RecordClick(ctx context.Context, trackingID string) Outcome {
	return s.record(ctx, trackingID, domain.EventClick)
}

func (s *Service) record(ctx context.Context, trackingID string, event domain.TrackingEventType) Outcome {
	out := Outcome{TrackingID: trackingID, Event: event}

	err := s.repo.RecordEvent(ctx, trackingID, event, s.now())
	switch {
	case err == nil:
		out.Matched = true
	case errors.Is(err, ErrNotFound):
	default:
		out.Err = persistence(fmt.Sprintf("record %s", event), err)
	}
	return out
}

// ClickDestination validates the redirect target of a click.
func (s *Service) ClickDestination(raw string) (string, error) {
	dest := strings.TrimSpace(raw)
	if dest == "" {
		return "", invalid("url", ErrURLRequired)
	}
	return dest, nil
}

// Stats computes the aggregate open/click report.
func (s *Service) Stats(ctx context.Context) (*domain.Stats, error) {
	counts, err := s.repo.Counts(ctx)
	if err != nil {
		return nil, persistence("count contacts", err)
	}
	stats := counts.Stats()
	return &stats, nil
}

// FilterContacts returns the contacts selected by the raw filter type.
// Unknown types return every contact.
func (s *Service) FilterContacts(ctx context.Context, raw string) ([]domain.ContactSummary, error) {
	list, err := s.repo.ListContacts(ctx, domain.ParseContactFilter(raw))
	if err != nil {
		return nil, persistence("list contacts", err)
	}
	if list == nil {
		list = []domain.ContactSummary{}
	}
	return list, nil
}

// Ping checks store connectivity for health probes.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// NewTrackingID returns 128 bits from crypto/rand, hex encoded.
func NewTrackingID() (string, error) {
	b := make([]byte, domain.TrackingIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	// Registration cannot fail for a static tag and a non-nil func.
	_ = v.RegisterValidation("trackemail", func(fl validator.FieldLevel) bool {
		return domain.ValidEmail(fl.Field().String())
	})
	return v
}

func translateValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return invalid("", err)
	}
	fe := verrs[0]
	switch {
	case fe.Field() == "email" && fe.Tag() == "required":
		return invalid("email", ErrEmailRequired)
	case fe.Field() == "email" && fe.Tag() == "trackemail":
		return invalid("email", ErrInvalidEmail)
	case fe.Tag() == "max":
		return invalid(fe.Field(), fmt.Errorf("%s must not exceed %s characters", fe.Field(), fe.Param()))
	default:
		return invalid(fe.Field(), fmt.Errorf("%s is invalid", fe.Field()))
	}
}
