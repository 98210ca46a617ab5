package service

import (
	"context"
	"errors"

	"roomchat/internal/models"

	"gorm.io/gorm"
)

// RoomService 封装房间相关的业务逻辑。
type RoomService struct {
	db *gorm.DB
}

func NewRoomService(db *gorm.DB) *RoomService {
	return &RoomService{db: db}
}

// RoomSummary 是房间列表中的一项，LastMessage 为空表示房间还没有消息。
type RoomSummary struct {
	Room        models.Room
	LastMessage *models.Message
}

// Create 创建新房间。名称区分大小写且全局唯一，以唯一索引为准。
func (s *RoomService) Create(ctx context.Context, name, creator string) (*models.Room, error) {
	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.Room{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrRoomNameTaken
	}
	room := models.Room{Name: name, CreatedBy: creator}
	if err := s.insert(db, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// insert 写入房间，并把唯一索引冲突翻译成 ErrRoomNameTaken。
func (s *RoomService) insert(db *gorm.DB, room *models.Room) error {
	err := db.Create(room).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrRoomNameTaken
	}
	return err
}

// Get 按 id 查询房间。
func (s *RoomService) Get(ctx context.Context, id uint) (*models.Room, error) {
	var room models.Room
	if err := s.db.WithContext(ctx).First(&room, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

// List 按创建时间倒序返回全部房间，并附带各房间最新的一条消息。
// 房间与最新消息在同一个事务中读取。
func (s *RoomService) List(ctx context.Context) ([]RoomSummary, error) {
	var out []RoomSummary
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rooms []models.Room
		if err := tx.Order("created_at desc").Order("id desc").Find(&rooms).Error; err != nil {
			return err
		}
		latest, err := latestMessages(tx, rooms)
		if err != nil {
			return err
		}
		out = make([]RoomSummary, 0, len(rooms))
		for _, r := range rooms {
			sum := RoomSummary{Room: r}
			if m, ok := latest[r.ID]; ok {
				sum.LastMessage = &m
			}
			out = append(out, sum)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// latestMessages 批量获取每个房间 id 最大的消息，即最后追加的那条。
func latestMessages(tx *gorm.DB, rooms []models.Room) (map[uint]models.Message, error) {
	out := make(map[uint]models.Message, len(rooms))
	if len(rooms) == 0 {
		return out, nil
	}
	ids := make([]uint, 0, len(rooms))
	for _, r := range rooms {
		ids = append(ids, r.ID)
	}
	sub := tx.Model(&models.Message{}).Select("MAX(id)").Where("room_id IN ?", ids).Group("room_id")
	var msgs []models.Message
	if err := tx.Where("id IN (?)", sub).Find(&msgs).Error; err != nil {
		return nil, err
	}
	for _, m := range msgs {
		out[m.RoomID] = m
	}
	return out, nil
}

// Delete 在一个事务中删除房间及其全部消息，不会留下孤儿消息。
func (s *RoomService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Room{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRoomNotFound
		}
		return nil
	})
}
