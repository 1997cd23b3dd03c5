package services

import (
	"fmt"

	"github.com/google/uuid"

	"fefe/internal/domain"
	"fefe/internal/repos"
	"fefe/internal/validate"
)

type CatalogService struct {
	Prods *repos.ProductRepo
}

func NewCatalogService(prods *repos.ProductRepo) *CatalogService {
	return &CatalogService{Prods: prods}
}

func (s *CatalogService) List(category, q string, page, pageSize int) ([]domain.Product, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 50 {
		pageSize = 12
	}
	offset := (page - 1) * pageSize
	return s.Prods.List(category, q, pageSize, offset)
}

func (s *CatalogService) Get(id string) (*domain.Product, error) {
	return s.Prods.Get(id)
}

// Availability converts variant stock into IN_STOCK / LOW_STOCK / OUT_OF_STOCK.
func (s *CatalogService) Availability(productID, sku string) (domain.Availability, error) {
	qty, err := s.Prods.VariantStock(productID, sku)
	if err != nil {
		return domain.Availability{}, err
	}

	status := "OUT_OF_STOCK"
	switch {
	case qty >= 5:
		status = "IN_STOCK"
	case qty > 0:
		status = "LOW_STOCK"
	}
	return domain.Availability{Status: status, Qty: qty}, nil
}

func (s *CatalogService) AddReview(productID, userID string, rating int, comment string) (*domain.Review, error) {
	if !validate.Rating(rating) {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", domain.ErrValidation)
	}
	if _, err := s.Prods.Get(productID); err != nil {
		return nil, err
	}
	rev := domain.Review{
		ID:        uuid.NewString(),
		ProductID: productID,
		UserID:    userID,
		Rating:    rating,
		Comment:   comment,
	}
	if err := s.Prods.AddReview(rev); err != nil {
		return nil, err
	}
	return &rev, nil
}

func (s *CatalogService) Reviews(productID string, limit int) ([]domain.Review, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	return s.Prods.Reviews(productID, limit)
}

// Restock sets or raises variant stock. Admin surface.
func (s *CatalogService) Restock(productID, sku string, stock int) error {
	if stock < 0 {
		return fmt.Errorf("%w: stock cannot be negative", domain.ErrValidation)
	}
	p, err := s.Prods.Get(productID)
	if err != nil {
		return err
	}
	for _, v := range p.Variants {
		if v.SKU == sku {
			v.Stock = stock
			return s.Prods.UpsertVariant(v)
		}
	}
	return fmt.Errorf("variant %s: %w", sku, domain.ErrNotFound)
}
