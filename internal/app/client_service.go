package app

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/cimillas/client-ledger/internal/clock"
	"github.com/cimillas/client-ledger/internal/domain"
	"github.com/cimillas/client-ledger/internal/logging"
	"github.com/shopspring/decimal"
)

const (
	maxNameLen    = 100
	maxEmailLen   = 50
	maxAddressLen = 250
	minKeywordLen = 3
)

var (
	emailPattern = regexp.MustCompile(`^.+@.+\..+$`)
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
)

type ClientService struct {
	repo   ClientRepository
	clock  clock.Clock
	logger *slog.Logger
}

func NewClientService(repo ClientRepository, clk clock.Clock, logger *slog.Logger) *ClientService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &ClientService{repo: repo, clock: clk, logger: logger}
}

type CreateClientInput struct {
	Name     string
	LastName string
	Email    string
	Address  string
	Phone    string
	// OpeningProfit seeds the balance. Scenario fixtures use it; the HTTP
	// surface always leaves it zero.
	OpeningProfit decimal.Decimal
}

func (in *CreateClientInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Address = strings.TrimSpace(in.Address)
	in.Phone = strings.TrimSpace(in.Phone)
}

// Validate expects a normalized input.
func (in CreateClientInput) Validate() error {
	ve := &domain.ValidationError{}
	checkRequired(ve, "name", in.Name, maxNameLen)
	checkRequired(ve, "last_name", in.LastName, maxNameLen)
	checkRequired(ve, "email", in.Email, maxEmailLen)
	if in.Email != "" && !emailPattern.MatchString(in.Email) {
		ve.Add("email", "must be a valid email address")
	}
	if utf8.RuneCountInString(in.Address) > maxAddressLen {
		ve.Add("address", fmt.Sprintf("must be at most %d characters", maxAddressLen))
	}
	if in.Phone != "" && !phonePattern.MatchString(in.Phone) {
		ve.Add("phone", "must be a valid international number")
	}
	return ve.Err()
}

func checkRequired(ve *domain.ValidationError, field, value string, max int) {
	switch {
	case value == "":
		ve.Add(field, "is required")
	case utf8.RuneCountInString(value) > max:
		ve.Add(field, fmt.Sprintf("must be at most %d characters", max))
	}
}

func (s *ClientService) Create(ctx context.Context, in CreateClientInput) (domain.Client, error) {
	in.normalize()
	if err := in.Validate(); err != nil {
		return domain.Client{}, err
	}
	if err := s.checkContactsFree(ctx, in.Email, in.Phone, ""); err != nil {
		return domain.Client{}, err
	}

	client := domain.Client{
		ID:           newID(),
		Name:         in.Name,
		LastName:     in.LastName,
		Email:        in.Email,
		Address:      in.Address,
		Phone:        in.Phone,
		Active:       true,
		Profit:       in.OpeningProfit,
		Version:      1,
		StateVersion: 1,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.repo.CreateClient(ctx, client); err != nil {
		return domain.Client{}, err
	}
	s.logger.InfoContext(ctx, "client created", "client_id", client.ID)
	return client, nil
}

func (s *ClientService) checkContactsFree(ctx context.Context, email, phone, excludeID string) error {
	if email != "" {
		taken, err := s.repo.ExistsByEmail(ctx, email, excludeID)
		if err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if taken {
			return domain.ErrEmailTaken
		}
	}
	if phone != "" {
		taken, err := s.repo.ExistsByPhone(ctx, phone, excludeID)
		if err != nil {
			return fmt.Errorf("check phone: %w", err)
		}
		if taken {
			return domain.ErrPhoneTaken
		}
	}
	return nil
}

// Get returns an active client; inactive clients read as not found.
func (s *ClientService) Get(ctx context.Context, id string) (domain.Client, error) {
	id, ok := canonicalID(id)
	if !ok {
		return domain.Client{}, domain.ErrInvalidID
	}
	c, err := s.repo.FindClient(ctx, id)
	if err != nil {
		return domain.Client{}, err
	}
	if !c.Active {
		return domain.Client{}, domain.ErrClientNotFound
	}
	return c, nil
}

func (s *ClientService) Profit(ctx context.Context, id string) (decimal.Decimal, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return c.Profit, nil
}

// Search matches keyword against name, last name, email and address of active clients.
func (s *ClientService) Search(ctx context.Context, keyword string, page domain.Page) ([]domain.Client, error) {
	keyword = strings.TrimSpace(keyword)
	if utf8.RuneCountInString(keyword) < minKeywordLen {
		return nil, domain.NewValidationError("q", domain.ErrKeywordTooShort)
	}
	return s.repo.SearchActiveClients(ctx, keyword, page.Normalize())
}

// ListByProfit returns clients whose balance lies in [min, max].
func (s *ClientService) ListByProfit(ctx context.Context, min, max decimal.Decimal, page domain.Page) ([]domain.Client, error) {
	if min.GreaterThan(max) {
		ve := &domain.ValidationError{}
		ve.Add("min", "must not exceed max")
		return nil, ve
	}
	return s.repo.ListClientsByProfit(ctx, min, max, page.Normalize())
}

// UpdateClientInput is a partial update; nil fields are left unchanged.
type UpdateClientInput struct {
	Name     *string
	LastName *string
	Email    *string
	Address  *string
	Phone    *string
}

func (in UpdateClientInput) validate() (UpdateClientInput, error) {
	ve := &domain.ValidationError{}
	trim := func(p *string, lower bool) *string {
		if p == nil {
			return nil
		}
		v := strings.TrimSpace(*p)
		if lower {
			v = strings.ToLower(v)
		}
		return &v
	}
	out := UpdateClientInput{
		Name:     trim(in.Name, false),
		LastName: trim(in.LastName, false),
		Email:    trim(in.Email, true),
		Address:  trim(in.Address, false),
		Phone:    trim(in.Phone, false),
	}
	if out.Name != nil {
		checkRequired(ve, "name", *out.Name, maxNameLen)
	}
	if out.LastName != nil {
		checkRequired(ve, "last_name", *out.LastName, maxNameLen)
	}
	if out.Email != nil {
		checkRequired(ve, "email", *out.Email, maxEmailLen)
		if *out.Email != "" && !emailPattern.MatchString(*out.Email) {
			ve.Add("email", "must be a valid email address")
		}
	}
	if out.Address != nil {
		checkRequired(ve, "address", *out.Address, maxAddressLen)
	}
	if out.Phone != nil {
		if !phonePattern.MatchString(*out.Phone) {
			ve.Add("phone", "must be a valid international number")
		}
	}
	return out, ve.Err()
}

// Update applies a partial update to an active client. A concurrent profile
// change or lifecycle transition fails it with domain.ErrVersionConflict.
func (s *ClientService) Update(ctx context.Context, id string, in UpdateClientInput) (domain.Client, error) {
	in, err := in.validate()
	if err != nil {
		return domain.Client{}, err
	}
	client, err := s.Get(ctx, id)
	if err != nil {
		return domain.Client{}, err
	}

	var email, phone string
	if in.Email != nil && *in.Email != client.Email {
		email = *in.Email
	}
	if in.Phone != nil && *in.Phone != client.Phone {
		phone = *in.Phone
	}
	if err := s.checkContactsFree(ctx, email, phone, client.ID); err != nil {
		s.logger.WarnContext(ctx, "client update rejected", "client_id", id, "error", err)
		return domain.Client{}, err
	}

	expected := client.StateVersion
	apply(&client.Name, in.Name)
	apply(&client.LastName, in.LastName)
	apply(&client.Email, in.Email)
	apply(&client.Address, in.Address)
	apply(&client.Phone, in.Phone)

	if err := s.repo.UpdateClient(ctx, client, expected); err != nil {
		return domain.Client{}, err
	}
	client.StateVersion++
	s.logger.InfoContext(ctx, "client updated", "client_id", id)
	return client, nil
}

func apply(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// ResetAllProfit zeroes every balance. Orders are left untouched. Every
// balance Version advances, so commits computed before the reset conflict.
func (s *ClientService) ResetAllProfit(ctx context.Context) (int64, error) {
	n, err := s.repo.ResetAllProfit(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "profit reset", "clients", n)
	return n, nil
}
