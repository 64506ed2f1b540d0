package model

// Vehicle is a registered vehicle record.
// ID is assigned by the record store on creation and never changes afterwards.
type Vehicle struct {
	ID    int64  `json:"id"`
	Brand string `json:"brand" validate:"required"`
	Model string `json:"model" validate:"required"`
	Year  int    `json:"year" validate:"required,gt=0"`
	Color string `json:"color" validate:"required"`

	// Plate is unique across all records.
	Plate string `json:"plate" validate:"required"`

	Price *float64 `json:"price" validate:"omitempty,gte=0"`
}

// Clone returns a deep copy of v.
func (v *Vehicle) Clone() *Vehicle {
	if v == nil {
		return nil
	}
	out := *v
	if v.Price != nil {
		p := *v.Price
		out.Price = &p
	}
	return &out
}
