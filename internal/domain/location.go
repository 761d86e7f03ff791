package domain

// Location is a named point shared between users
type Location struct {
	ID   int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string  `gorm:"size:200;not null;uniqueIndex" json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// TableName Specify table name
func (Location) TableName() string {
	return "users_location"
}
