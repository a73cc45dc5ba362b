package model

import "time"

// Subscriber is an authorization record keyed by account number.
// This service only reads it.
type Subscriber struct {
	ID        uint      `gorm:"primaryKey" bson:"-" json:"id"`
	AccountNo string    `gorm:"size:64;not null;uniqueIndex" bson:"accountNo" json:"accountNo"`
	Name      string    `gorm:"size:120" bson:"name" json:"name"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

func (Subscriber) TableName() string {
	return "subscribers"
}
