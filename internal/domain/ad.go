package domain

import "time"

// Ad classified advertisement
type Ad struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"size:200;not null" json:"name"`
	Price       float64   `gorm:"not null;default:0;index" json:"price"`
	Description string    `gorm:"size:2000" json:"description"`
	IsPublished bool      `gorm:"not null;default:false;index" json:"is_published"`
	CategoryID  int64     `gorm:"not null;index" json:"category_id"`
	Category    *Category `json:"-"`
	UserID      int64     `gorm:"not null;index" json:"user_id"`
	User        *User     `json:"-"`
	Image       string    `gorm:"size:1024" json:"image"` // media store key, empty when no image
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Ad) TableName() string {
	return "ads_ad"
}

// HasImage reports whether an image has been attached
func (a *Ad) HasImage() bool {
	return a.Image != ""
}
