package http

import (
	"encoding/json"

	"github.com/roomcast/server/internal/core"
	"github.com/roomcast/server/internal/proto"
)

// inboundToCommand maps a wire envelope to a core command. The token identity
// on the client is authoritative; a join payload naming another user is
// rejected.
func inboundToCommand(client *core.Client, inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeJoin:
		var join proto.JoinData
		if err := json.Unmarshal(inbound.Data, &join); err != nil {
			return nil, nil, err
		}
		if join.UserID != 0 && join.UserID != client.UserID {
			return nil, &proto.Error{Code: core.ErrCodeUnauthorized, Msg: "user does not match token"}, nil
		}
		return &core.Command{Kind: core.CommandJoin}, nil, nil

	case proto.InboundTypeJoinRoom:
		var room proto.RoomData
		if err := json.Unmarshal(inbound.Data, &room); err != nil {
			return nil, nil, err
		}
		if room.Room == "" {
			return nil, &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "room is required"}, nil
		}
		return &core.Command{Kind: core.CommandJoinRoom, Room: room.Room}, nil, nil

	case proto.InboundTypeLeaveRoom:
		var room proto.RoomData
		if err := json.Unmarshal(inbound.Data, &room); err != nil {
			return nil, nil, err
		}
		if room.Room == "" {
			return nil, &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "room is required"}, nil
		}
		return &core.Command{Kind: core.CommandLeaveRoom, Room: room.Room}, nil, nil

	case proto.InboundTypeSendMessage:
		var msg proto.SendMessageData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, nil, err
		}
		return &core.Command{
			Kind: core.CommandSendMessage,
			Message: core.Message{
				// ID is assigned by the hub after persistence.
				Room:       msg.Room,
				ReceiverID: msg.Receiver,
				Content:    msg.Content,
				Type:       core.MessageType(msg.MessageType),
				FileURL:    msg.FileURL,
				FileName:   msg.FileName,
			},
		}, nil, nil

	case proto.InboundTypeTyping:
		var typing proto.TypingData
		if err := json.Unmarshal(inbound.Data, &typing); err != nil {
			return nil, nil, err
		}
		return &core.Command{
			Kind:       core.CommandTyping,
			Room:       typing.Room,
			ReceiverID: typing.Receiver,
			IsTyping:   typing.IsTyping,
		}, nil, nil

	case proto.InboundTypeMarkRead:
		var read proto.MarkReadData
		if err := json.Unmarshal(inbound.Data, &read); err != nil {
			return nil, nil, err
		}
		if read.MessageID == 0 {
			return nil, &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "messageId is required"}, nil
		}
		return &core.Command{Kind: core.CommandMarkRead, MessageID: read.MessageID}, nil, nil

	case proto.InboundTypeAddReaction:
		var reaction proto.AddReactionData
		if err := json.Unmarshal(inbound.Data, &reaction); err != nil {
			return nil, nil, err
		}
		if reaction.MessageID == 0 || reaction.Reaction == "" {
			return nil, &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "messageId and reaction are required"}, nil
		}
		return &core.Command{
			Kind:      core.CommandAddReaction,
			MessageID: reaction.MessageID,
			Reaction:  reaction.Reaction,
		}, nil, nil

	default:
		return nil, &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "unknown message type"}, nil
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventReceiveMessage:
		return proto.Outbound{Type: proto.OutboundReceiveMessage, Data: messagePayload(event.Message)}

	case core.EventPrivateMessage:
		return proto.Outbound{Type: proto.OutboundPrivateMessage, Data: messagePayload(event.Message)}

	case core.EventTyping:
		payload := proto.TypingPayload{
			UserID:   event.UserID,
			Username: event.Username,
			IsTyping: event.IsTyping,
			Room:     event.Room,
		}
		if event.Private {
			payload.Type = "private"
		}
		return proto.Outbound{Type: proto.OutboundTyping, Data: payload}

	case core.EventUserOnline:
		return proto.Outbound{Type: proto.OutboundUserOnline, Data: proto.PresencePayload{
			UserID:   event.UserID,
			Username: event.Username,
		}}

	case core.EventUserOffline:
		return proto.Outbound{Type: proto.OutboundUserOffline, Data: proto.PresencePayload{
			UserID:   event.UserID,
			Username: event.Username,
		}}

	case core.EventOnlineUsers:
		users := make([]proto.OnlineUserPayload, 0, len(event.Users))
		for _, u := range event.Users {
			users = append(users, proto.OnlineUserPayload{UserID: u.UserID, Username: u.Username, Online: true})
		}
		return proto.Outbound{Type: proto.OutboundOnlineUsers, Data: users}

	case core.EventUserJoinedRoom:
		return proto.Outbound{Type: proto.OutboundUserJoinedRoom, Data: proto.RoomEventPayload{
			UserID:   event.UserID,
			Username: event.Username,
			Room:     event.Room,
		}}

	case core.EventUserLeftRoom:
		return proto.Outbound{Type: proto.OutboundUserLeftRoom, Data: proto.RoomEventPayload{
			UserID:   event.UserID,
			Username: event.Username,
			Room:     event.Room,
		}}

	case core.EventRoomJoined:
		return proto.Outbound{Type: proto.OutboundRoomJoined, Data: proto.RoomJoinedPayload{Room: event.Room}}

	case core.EventMessageReaction:
		return proto.Outbound{Type: proto.OutboundMessageReaction, Data: proto.ReactionPayload{
			MessageID: event.MessageID,
			Reaction:  event.Reaction,
			UserID:    event.UserID,
			Username:  event.Username,
		}}

	case core.EventMessageRead:
		return proto.Outbound{Type: proto.OutboundMessageRead, Data: proto.ReadPayload{
			MessageID: event.MessageID,
			ReadBy:    event.ReadBy,
			ReadAt:    event.ReadAt,
		}}

	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundMessageError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{Type: proto.OutboundMessageError, Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message}}

	default:
		return proto.Outbound{Type: proto.OutboundMessageError, Error: &proto.Error{Code: "unknown", Msg: "unknown event"}}
	}
}

func messagePayload(msg *core.Message) proto.MessagePayload {
	return proto.MessagePayload{
		ID:          msg.ID,
		Sender:      msg.SenderID,
		SenderName:  msg.SenderName,
		Receiver:    msg.ReceiverID,
		Room:        msg.Room,
		Content:     msg.Content,
		MessageType: string(msg.Type),
		FileURL:     msg.FileURL,
		FileName:    msg.FileName,
		Read:        msg.Read,
		ReadAt:      msg.ReadAt,
		Timestamp:   msg.CreatedAt,
	}
}
