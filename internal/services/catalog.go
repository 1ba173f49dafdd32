package services

import (
	"context"
	"strings"

	"github.com/Agustinnra/turicanje-bot/internal/database"
	"github.com/Agustinnra/turicanje-bot/internal/models"
)

// CatalogService answers the tiered place lookups against Postgres.
// Every query returns rows in ranking pre-order: cashback first, then
// priority, then id for a stable tail.
type CatalogService struct {
	db *database.DB
}

func NewCatalogService(db *database.DB) *CatalogService {
	return &CatalogService{db: db}
}

const rankingOrder = "cashback DESC, priority DESC, id ASC"

// ByExactName matches a folded business name exactly. The SQL fold
// mirrors the accent table used to fold terms in Go, so both sides of
// the comparison agree.
func (s *CatalogService) ByExactName(ctx context.Context, folded string, limit int) ([]models.Place, error) {
	var places []models.Place
	err := s.db.WithContext(ctx).
		Where("translate(lower(name), 'áéíóúüñ', 'aeiouun') = ?", folded).
		Order(rankingOrder).
		Limit(limit).
		Find(&places).Error
	return places, err
}

// ByCategoryExact matches any of the terms against whole category
// elements, case-insensitively.
func (s *CatalogService) ByCategoryExact(ctx context.Context, terms []string, limit int) ([]models.Place, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	lowered := lowerAll(terms)

	var places []models.Place
	err := s.db.WithContext(ctx).
		Where(`EXISTS (
			SELECT 1 FROM jsonb_array_elements_text(coalesce(categories, '[]'::jsonb)) AS c(value)
			WHERE lower(c.value) IN ?
		)`, lowered).
		Order(rankingOrder).
		Limit(limit).
		Find(&places).Error
	return places, err
}

// ByBroadMatch substring-matches the terms against category elements,
// product elements and the legacy single category column.
func (s *CatalogService) ByBroadMatch(ctx context.Context, terms []string, limit int) ([]models.Place, error) {
	if len(terms) == 0 {
		return nil, nil
	}

	query := s.db.WithContext(ctx).Model(&models.Place{})

	var conds []string
	var args []interface{}
	for _, term := range terms {
		pattern := "%" + strings.ToLower(term) + "%"
		conds = append(conds,
			`EXISTS (SELECT 1 FROM jsonb_array_elements_text(coalesce(categories, '[]'::jsonb)) AS c(value) WHERE c.value ILIKE ?)`,
			`EXISTS (SELECT 1 FROM jsonb_array_elements_text(coalesce(products, '[]'::jsonb)) AS p(value) WHERE p.value ILIKE ?)`,
			`category ILIKE ?`,
		)
		args = append(args, pattern, pattern, pattern)
	}

	var places []models.Place
	err := query.
		Where(strings.Join(conds, " OR "), args...).
		Order(rankingOrder).
		Limit(limit).
		Find(&places).Error
	return places, err
}

// AnyRanked returns the top of the whole catalog, used as the nearby
// fallback when everything matching a craving is closed.
func (s *CatalogService) AnyRanked(ctx context.Context, limit int) ([]models.Place, error) {
	var places []models.Place
	err := s.db.WithContext(ctx).
		Order(rankingOrder).
		Limit(limit).
		Find(&places).Error
	return places, err
}

func lowerAll(terms []string) []string {
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = strings.ToLower(t)
	}
	return out
}
