package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Category is the product line.
type Category string

const (
	CategoryNootropic Category = "nootropic"
	CategoryPeptide   Category = "peptide"
)

func (c Category) Valid() bool { return c == CategoryNootropic || c == CategoryPeptide }

// Product is a catalogue entry. Price is in cents. Inactive products are
// hidden from the public catalogue and cannot be bought.
type Product struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Name            string     `gorm:"size:255;not null" json:"name"`
	Category        Category   `gorm:"size:32;not null;index" json:"category"`
	Description     string     `gorm:"type:text" json:"description"`
	Image           string     `gorm:"type:text" json:"image"`
	Price           int64      `gorm:"not null" json:"price"`
	ScientificLinks StringList `gorm:"type:text" json:"scientificLinks"`
	Active          bool       `gorm:"not null;index" json:"active"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// ProductPatch carries the fields of an admin product update; nil fields
// are left unchanged.
type ProductPatch struct {
	Name            *string
	Category        *Category
	Description     *string
	Image           *string
	Price           *int64
	ScientificLinks *[]string
	Active          *bool
}

// Columns returns the column→value map of the non-nil fields.
func (p ProductPatch) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	if p.Category != nil {
		cols["category"] = *p.Category
	}
	if p.Description != nil {
		cols["description"] = *p.Description
	}
	if p.Image != nil {
		cols["image"] = *p.Image
	}
	if p.Price != nil {
		cols["price"] = *p.Price
	}
	if p.ScientificLinks != nil {
		cols["scientific_links"] = StringList(*p.ScientificLinks)
	}
	if p.Active != nil {
		cols["active"] = *p.Active
	}
	return cols
}

// StringList is a []string stored as a JSON array in a text column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("models: cannot scan %T into StringList", src)
	}
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	return json.Unmarshal(raw, (*[]string)(l))
}
