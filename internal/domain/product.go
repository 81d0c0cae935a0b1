package domain

import "time"

type ProductType string

const (
	ProductCourse ProductType = "course"
	ProductBundle ProductType = "bundle"
)

func (t ProductType) Valid() bool {
	return t == ProductCourse || t == ProductBundle
}

type Product struct {
	ID           string      `json:"id"`
	Type         ProductType `json:"type"`
	Title        string      `json:"title"`
	Description  string      `json:"description,omitempty"`
	Price        float64     `json:"price"`
	ValidityDays int         `json:"validityDays"`
	// EnrollID is the product's access identifier on the learning platform.
	EnrollID string `json:"enrollId"`
	// Children maps included course id -> that course's enroll id. Set for bundles only.
	Children  map[string]string `json:"children,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}
