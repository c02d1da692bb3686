package seeders

import (
	"gorm.io/gorm"

	"github.com/humanebio/storefront/app/models"
)

func init() { Register("products", seedProducts) }

var starterCatalogue = []models.Product{
	{
		Name:        "BPC 157",
		Category:    models.CategoryPeptide,
		Description: "Body protection compound studied for tissue repair and gut health.",
		Price:       7999,
		ScientificLinks: models.StringList{
			"https://pubmed.ncbi.nlm.nih.gov/?term=BPC-157",
		},
		Active: true,
	},
	{
		Name:        "Semax",
		Category:    models.CategoryPeptide,
		Description: "Synthetic ACTH fragment researched for focus and neuroprotection.",
		Price:       4999,
		ScientificLinks: models.StringList{
			"https://pubmed.ncbi.nlm.nih.gov/?term=Semax",
		},
		Active: true,
	},
	{
		Name:        "Selank",
		Category:    models.CategoryPeptide,
		Description: "Tuftsin analogue studied for anxiolytic effects.",
		Price:       4499,
		Active:      true,
	},
	{
		Name:        "L-Theanine + Caffeine",
		Category:    models.CategoryNootropic,
		Description: "Classic calm-focus stack in a 2:1 ratio.",
		Price:       2499,
		Active:      true,
	},
	{
		Name:        "Noopept",
		Category:    models.CategoryNootropic,
		Description: "Racetam-like compound researched for memory and learning.",
		Price:       1999,
		Active:      true,
	},
}

// seedProducts adds the starter catalogue to an empty products table.
func seedProducts(db *gorm.DB) error {
	var n int64
	if err := db.Model(&models.Product{}).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	rows := append([]models.Product(nil), starterCatalogue...)
	return db.Create(&rows).Error
}
