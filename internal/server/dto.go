package server

import (
	"roomchat/internal/api"
	"roomchat/internal/models"
	"roomchat/internal/service"
)

func toUser(u *models.User) api.User {
	return api.User{ID: api.FormatID(u.ID), Username: u.Username, IsRoot: u.IsRoot, CreatedAt: u.CreatedAt}
}

func toMessage(m *models.Message) api.Message {
	return api.Message{
		MessageID: api.FormatID(m.ID),
		RoomID:    api.FormatID(m.RoomID),
		Sender:    m.Sender,
		Content:   m.Content,
		Time:      m.Time,
	}
}

func toMessages(ms []models.Message) []api.Message {
	out := make([]api.Message, 0, len(ms))
	for i := range ms {
		out = append(out, toMessage(&ms[i]))
	}
	return out
}

func toRoomSummaries(rs []service.RoomSummary) []api.RoomSummary {
	out := make([]api.RoomSummary, 0, len(rs))
	for _, r := range rs {
		sum := api.RoomSummary{RoomID: api.FormatID(r.Room.ID), RoomName: r.Room.Name, CreatedBy: r.Room.CreatedBy}
		if r.LastMessage != nil {
			m := toMessage(r.LastMessage)
			sum.LastMessage = &m
		}
		out = append(out, sum)
	}
	return out
}
