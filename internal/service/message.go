package service

import (
	"context"
	"errors"
	"time"

	"roomchat/internal/models"

	"gorm.io/gorm"
)

// MessageService 封装消息相关的业务逻辑。消息只追加、不编辑。
type MessageService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewMessageService(db *gorm.DB, now func() time.Time) *MessageService {
	if now == nil {
		now = time.Now
	}
	return &MessageService{db: db, now: now}
}

// Append 向房间追加一条消息，sender 必须是已认证的调用者。
// 房间不存在，或在写入前被并发删除（外键冲突），都返回 ErrRoomNotFound。
func (s *MessageService) Append(ctx context.Context, roomID uint, sender, content string) (*models.Message, error) {
	now := s.now()
	msg := models.Message{
		RoomID:    roomID,
		Sender:    sender,
		Content:   content,
		Time:      now.UnixMilli(),
		CreatedAt: now,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Room{}).Where("id = ?", roomID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrRoomNotFound
		}
		return tx.Create(&msg).Error
	})
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListByRoom 按创建时间升序返回房间内全部消息，同一时刻按 id 排序。
func (s *MessageService) ListByRoom(ctx context.Context, roomID uint) ([]models.Message, error) {
	var msgs []models.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Room{}).Where("id = ?", roomID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrRoomNotFound
		}
		return tx.Where("room_id = ?", roomID).Order("created_at asc").Order("id asc").Find(&msgs).Error
	})
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// Get 按 id 查询消息。
func (s *MessageService) Get(ctx context.Context, id uint) (*models.Message, error) {
	var msg models.Message
	if err := s.db.WithContext(ctx).First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return &msg, nil
}

func (s *MessageService) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Message{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}
