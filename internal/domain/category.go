package domain

// Category groups ads; names are unique and double as the lookup key when
// an ad is created.
type Category struct {
	ID   int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"size:100;not null;uniqueIndex" json:"name"`
}

// TableName Specify table name
func (Category) TableName() string {
	return "ads_category"
}
