package products

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/tripmarket-backend/pkg/db/models"
)

// ProductSummary is the slice of an event product embedded in order views.
type ProductSummary struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
	Price int64     `json:"price"`
}

func SummaryFromModel(p *models.Product) *ProductSummary {
	if p == nil {
		return nil
	}
	return &ProductSummary{ID: p.ID, Title: p.Title, Price: p.Price}
}
