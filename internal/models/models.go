package models

import "time"

// User 的 RootSlot 只有 root 用户为 true，其余为 NULL；唯一索引保证全库至多一个 root。
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;size:64;not null"`
	PasswordHash string `gorm:"not null"`
	IsRoot       bool   `gorm:"not null;default:false"`
	RootSlot     *bool  `gorm:"uniqueIndex"`
	CreatedAt    time.Time
}

type Room struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"uniqueIndex;size:128;not null"`
	CreatedBy string    `gorm:"size:64;not null"`
	CreatedAt time.Time `gorm:"index"`
	Messages  []Message `gorm:"constraint:OnDelete:CASCADE"`
}

// Message.Time 是毫秒时间戳，CreatedAt 用于排序。
type Message struct {
	ID        uint      `gorm:"primaryKey"`
	RoomID    uint      `gorm:"index:idx_msg_room_created,priority:1;not null"`
	Sender    string    `gorm:"size:64;index;not null"`
	Content   string    `gorm:"type:text;not null"`
	Time      int64     `gorm:"not null"`
	CreatedAt time.Time `gorm:"index:idx_msg_room_created,priority:2"`
}
