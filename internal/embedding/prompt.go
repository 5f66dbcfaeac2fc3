package embedding

import (
	"fmt"

	"github.com/pushkindt/pushkind-crawlers/internal/core"
)

// Prompt renders the text embedded for a product, benchmark or category,
// field order and layout fixed so identical records always produce the
// same prompt text.
func Prompt(s core.EmbeddingSource) string {
	return fmt.Sprintf(
		"Name: %s\nSKU: %s\nCategory: %s\nUnits: %s\nPrice: %v\nAmount: %v\nDescription: %s",
		s.Name, s.SKU, s.Category, s.Units, s.Price, s.Amount, s.Description,
	)
}
