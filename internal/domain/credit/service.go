package credit

import (
	"context"

	"github.com/google/uuid"
)

// Service exposes balance and history reads. Writes go through the
// repository's Apply/ApplyTx from the flows that own them, so the
// ledger has a single choke point.
type Service struct {
	repo *Repository
}

// NewService creates a new credit service
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Balance returns the user's current credit balance
func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.GetBalance(ctx, userID)
}

// History returns a page of ledger entries with the total count
func (s *Service) History(ctx context.Context, userID uuid.UUID, page, perPage int) ([]LedgerEntry, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	offset := (page - 1) * perPage

	return s.repo.ListEntries(ctx, userID, perPage, offset)
}

// PackageCatalog returns the purchasable bundles
func (s *Service) PackageCatalog() []Package {
	return Packages()
}
