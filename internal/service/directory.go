package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"ridebook/internal/domain"
	"ridebook/internal/logger"
	"ridebook/internal/pricing"
	"ridebook/internal/repository"
)

const (
	// MaxRecentRides caps the recent rides listing.
	MaxRecentRides = 200

	defaultCurrency = "USD"
)

// RegisterDriverRequest contains the parameters for registering a driver.
type RegisterDriverRequest struct {
	Name  string `validate:"required,max=200"`
	Email string `validate:"omitempty,email,max=254"`
}

// CreateAccountRequest contains the parameters for opening a bank account.
type CreateAccountRequest struct {
	PersonName     string `validate:"required,max=200"`
	BankNum        string `validate:"required,max=64"`
	Currency       string `validate:"omitempty,alpha"`
	BalanceDollars decimal.Decimal
}

// DirectoryService manages the people, drivers and accounts around rides,
// and serves ride lookups.
type DirectoryService struct {
	tx        repository.TxManager
	repos     repository.Repositories
	resolver  *Resolver
	summaries SummaryCache
	validate  *validator.Validate
	log       *logger.Logger
}

// NewDirectoryService creates a new DirectoryService. summaries may be nil.
func NewDirectoryService(tx repository.TxManager, repos repository.Repositories, resolver *Resolver, summaries SummaryCache, log *logger.Logger) *DirectoryService {
	return &DirectoryService{
		tx:        tx,
		repos:     repos,
		resolver:  resolver,
		summaries: summaries,
		validate:  validator.New(),
		log:       log,
	}
}

// RegisterDriver makes the named person an available driver, creating the
// person first if needed.
func (s *DirectoryService) RegisterDriver(ctx context.Context, req RegisterDriverRequest) (*domain.Driver, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingField, err)
	}

	var driver *domain.Driver
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		personID, err := s.resolver.ResolvePerson(ctx, repos, req.Name, req.Email)
		if err != nil {
			return err
		}
		driver, err = repos.Drivers.Create(ctx, personID)
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrDriverExists
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).WithFields(map[string]any{"driver_id": driver.ID, "person_id": driver.PersonID}).Info("driver registered")
	return driver, nil
}

// ListDrivers returns drivers ordered by name.
func (s *DirectoryService) ListDrivers(ctx context.Context, onlyAvailable bool) ([]*domain.Driver, error) {
	return s.repos.Drivers.GetAll(ctx, onlyAvailable)
}

// ListRiders returns every known person ordered by name.
func (s *DirectoryService) ListRiders(ctx context.Context) ([]*domain.Person, error) {
	return s.repos.People.GetAll(ctx)
}

// ListBankAccounts returns the accounts of a person.
func (s *DirectoryService) ListBankAccounts(ctx context.Context, personID int64) ([]*domain.BankAccount, error) {
	if personID <= 0 {
		return nil, ErrInvalidID
	}
	return s.repos.Accounts.ListByPerson(ctx, personID)
}

// GetBankAccount returns one account, including its current balance.
func (s *DirectoryService) GetBankAccount(ctx context.Context, accountID int64) (*domain.BankAccount, error) {
	if accountID <= 0 {
		return nil, ErrInvalidID
	}
	return s.repos.Accounts.GetByID(ctx, accountID)
}

// RideLedger returns the ledger entries posted for a ride, oldest first. A
// cash ride has none.
func (s *DirectoryService) RideLedger(ctx context.Context, rideID int64) ([]*domain.LedgerEntry, error) {
	if rideID <= 0 {
		return nil, ErrInvalidID
	}
	if _, err := s.repos.Rides.GetSummary(ctx, rideID); err != nil {
		return nil, err
	}
	return s.repos.Ledger.ListByRide(ctx, rideID)
}

// CreateBankAccount returns the active account of the named person, opening
// one when there is none. A person unknown by name is created the way a
// booking would create the rider. created reports whether a new account was
// opened.
func (s *DirectoryService) CreateBankAccount(ctx context.Context, req CreateAccountRequest) (account *domain.BankAccount, created bool, err error) {
	req.PersonName = strings.TrimSpace(req.PersonName)
	req.BankNum = strings.TrimSpace(req.BankNum)
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if err := s.validate.Struct(req); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrMissingField, err)
	}
	if req.Currency == "" {
		req.Currency = defaultCurrency
	}
	if len(req.Currency) > 3 {
		req.Currency = req.Currency[:3]
	}

	balanceCents, err := pricing.DollarsToCents(req.BalanceDollars)
	if err != nil {
		return nil, false, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var personID int64
		person, err := repos.People.GetByName(ctx, req.PersonName)
		switch {
		case err == nil:
			personID = person.ID
		case errors.Is(err, repository.ErrNotFound):
			if personID, err = s.resolver.ResolvePerson(ctx, repos, req.PersonName, ""); err != nil {
				return err
			}
		default:
			return fmt.Errorf("lookup person: %w", err)
		}

		existing, err := repos.Accounts.GetActiveForPerson(ctx, personID)
		if err == nil {
			account = existing
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("lookup account: %w", err)
		}

		account = &domain.BankAccount{
			PersonID:     personID,
			BankNum:      req.BankNum,
			BalanceCents: balanceCents,
			Currency:     req.Currency,
			Status:       domain.AccountStatusActive,
			Kind:         domain.AccountKindPersonal,
		}
		if err := repos.Accounts.Create(ctx, account); err != nil {
			return fmt.Errorf("create account: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		s.log.WithContext(ctx).WithFields(map[string]any{"account_id": account.ID, "person_id": account.PersonID}).Info("bank account opened")
	}
	return account, created, nil
}

// RecentRides returns the newest rides matching filter, at most MaxRecentRides.
func (s *DirectoryService) RecentRides(ctx context.Context, filter domain.RideFilter) ([]*domain.RideSummary, error) {
	filter.Rider = strings.TrimSpace(filter.Rider)
	filter.Driver = strings.TrimSpace(filter.Driver)
	filter.Category = strings.TrimSpace(filter.Category)
	if filter.Limit <= 0 || filter.Limit > MaxRecentRides {
		filter.Limit = MaxRecentRides
	}
	return s.repos.Rides.ListRecent(ctx, filter)
}

// GetRide returns the summary of a ride, from cache when possible.
func (s *DirectoryService) GetRide(ctx context.Context, rideID int64) (*domain.RideSummary, error) {
	if rideID <= 0 {
		return nil, ErrInvalidID
	}

	if s.summaries != nil {
		cached, err := s.summaries.GetRideSummary(ctx, rideID)
		if err != nil {
			s.log.WithContext(ctx).WithError(err).Warn("ride summary cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	summary, err := s.repos.Rides.GetSummary(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if s.summaries != nil {
		if err := s.summaries.SetRideSummary(ctx, summary); err != nil {
			s.log.WithContext(ctx).WithError(err).Warn("ride summary cache write failed")
		}
	}
	return summary, nil
}
