package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StringList is a jsonb-backed list of free-text tags
type StringList []string

// Value implements driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for StringList: %T", value)
	}
	return json.Unmarshal(data, l)
}

// Place represents a business record in the catalog.
// DB: places
type Place struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"column:name;size:255;not null;index:idx_places_name" json:"name"`

	// Search surface
	Categories StringList `gorm:"column:categories;type:jsonb" json:"categories,omitempty"`
	Products   StringList `gorm:"column:products;type:jsonb" json:"products,omitempty"`
	Category   *string    `gorm:"column:category;size:100" json:"category,omitempty"`

	// Ranking attributes
	Cashback bool `gorm:"column:cashback;not null;default:false;index:idx_places_cashback" json:"cashback"`
	Afiliado bool `gorm:"column:afiliado;not null;default:false" json:"afiliado"`
	Priority int  `gorm:"column:priority;not null;default:0" json:"priority"`

	// Location
	Lat *float64 `gorm:"column:lat;type:double precision" json:"lat,omitempty"`
	Lng *float64 `gorm:"column:lng;type:double precision" json:"lng,omitempty"`

	// Hours: one optional open/close pair per weekday, "HH:MM[:SS]" text
	Timezone *string `gorm:"column:timezone;size:64" json:"timezone,omitempty"`
	MonOpen  *string `gorm:"column:mon_open;size:8" json:"mon_open,omitempty"`
	MonClose *string `gorm:"column:mon_close;size:8" json:"mon_close,omitempty"`
	TueOpen  *string `gorm:"column:tue_open;size:8" json:"tue_open,omitempty"`
	TueClose *string `gorm:"column:tue_close;size:8" json:"tue_close,omitempty"`
	WedOpen  *string `gorm:"column:wed_open;size:8" json:"wed_open,omitempty"`
	WedClose *string `gorm:"column:wed_close;size:8" json:"wed_close,omitempty"`
	ThuOpen  *string `gorm:"column:thu_open;size:8" json:"thu_open,omitempty"`
	ThuClose *string `gorm:"column:thu_close;size:8" json:"thu_close,omitempty"`
	FriOpen  *string `gorm:"column:fri_open;size:8" json:"fri_open,omitempty"`
	FriClose *string `gorm:"column:fri_close;size:8" json:"fri_close,omitempty"`
	SatOpen  *string `gorm:"column:sat_open;size:8" json:"sat_open,omitempty"`
	SatClose *string `gorm:"column:sat_close;size:8" json:"sat_close,omitempty"`
	SunOpen  *string `gorm:"column:sun_open;size:8" json:"sun_open,omitempty"`
	SunClose *string `gorm:"column:sun_close;size:8" json:"sun_close,omitempty"`

	// Presentation
	Address   *string `gorm:"column:address;type:text" json:"address,omitempty"`
	Phone     *string `gorm:"column:phone;size:32" json:"phone,omitempty"`
	URLOrder  *string `gorm:"column:url_order;type:text" json:"url_order,omitempty"`
	URLExtra  *string `gorm:"column:url_extra;type:text" json:"url_extra,omitempty"`
	ImagenURL *string `gorm:"column:imagen_url;type:text" json:"imagen_url,omitempty"`
	Delivery  bool    `gorm:"column:delivery;not null;default:false" json:"delivery"`

	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (Place) TableName() string {
	return "places"
}

// SlotFor returns the open/close pair for the given weekday.
// A half-filled pair (only open or only close set) counts as no hours
// for that day.
func (p *Place) SlotFor(day time.Weekday) (open, close string, ok bool) {
	var o, c *string
	switch day {
	case time.Monday:
		o, c = p.MonOpen, p.MonClose
	case time.Tuesday:
		o, c = p.TueOpen, p.TueClose
	case time.Wednesday:
		o, c = p.WedOpen, p.WedClose
	case time.Thursday:
		o, c = p.ThuOpen, p.ThuClose
	case time.Friday:
		o, c = p.FriOpen, p.FriClose
	case time.Saturday:
		o, c = p.SatOpen, p.SatClose
	case time.Sunday:
		o, c = p.SunOpen, p.SunClose
	}
	if o == nil || c == nil || *o == "" || *c == "" {
		return "", "", false
	}
	return *o, *c, true
}

// HasAnyHours reports whether at least one weekday has a complete slot
func (p *Place) HasAnyHours() bool {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if _, _, ok := p.SlotFor(d); ok {
			return true
		}
	}
	return false
}

// MainURL prefers the ordering link over the extra link
func (p *Place) MainURL() string {
	if p.URLOrder != nil && *p.URLOrder != "" {
		return *p.URLOrder
	}
	if p.URLExtra != nil && *p.URLExtra != "" {
		return *p.URLExtra
	}
	return ""
}
