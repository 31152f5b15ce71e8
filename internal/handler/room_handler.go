package handler

import (
	"pulse_chat_server/internal/dto/request"
	"pulse_chat_server/internal/dto/respond"
	"pulse_chat_server/internal/service/room"

	"github.com/gin-gonic/gin"
)

// RoomHandler 房间与成员管理
type RoomHandler struct {
	rooms *room.Service
}

func NewRoomHandler(rooms *room.Service) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

// StartChat POST /api/room/direct
// 幂等：已有单聊房间时返回现有房间
func (h *RoomHandler) StartChat(c *gin.Context) {
	var req request.StartChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		FailParam(c, translateErr(err))
		return
	}
	r, err := h.rooms.CreateDirect(currentUser(c), req.PeerUuid)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, respond.RoomRespond{
		Uuid:    r.Uuid,
		IsGroup: r.IsGroup,
		OwnerId: r.OwnerId,
		Name:    r.Name,
	})
}

// CreateGroup POST /api/room/group
func (h *RoomHandler) CreateGroup(c *gin.Context) {
	var req request.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		FailParam(c, translateErr(err))
		return
	}
	r, err := h.rooms.CreateGroup(currentUser(c), req.Name, req.MemberUuids)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, respond.RoomRespond{
		Uuid:    r.Uuid,
		IsGroup: r.IsGroup,
		OwnerId: r.OwnerId,
		Name:    r.Name,
	})
}

// AddMember POST /api/room/member/add
func (h *RoomHandler) AddMember(c *gin.Context) {
	var req request.MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		FailParam(c, translateErr(err))
		return
	}
	if err := h.rooms.AddMember(currentUser(c), req.RoomUuid, req.UserUuid); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, nil)
}

// RemoveMember POST /api/room/member/remove
func (h *RoomHandler) RemoveMember(c *gin.Context) {
	var req request.MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		FailParam(c, translateErr(err))
		return
	}
	if err := h.rooms.RemoveMember(currentUser(c), req.RoomUuid, req.UserUuid); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, nil)
}

// Rename POST /api/room/rename
func (h *RoomHandler) Rename(c *gin.Context) {
	var req request.RenameGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		FailParam(c, translateErr(err))
		return
	}
	if err := h.rooms.RenameGroup(currentUser(c), req.RoomUuid, req.Name); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, nil)
}

// Members GET /api/room/members?room_uuid=
func (h *RoomHandler) Members(c *gin.Context) {
	roomUuid := c.Query("room_uuid")
	if roomUuid == "" {
		FailParam(c, "room_uuid 不能为空")
		return
	}
	members, err := h.rooms.GetMembers(currentUser(c), roomUuid)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, members)
}

// List GET /api/room/list
func (h *RoomHandler) List(c *gin.Context) {
	rooms, err := h.rooms.ListRooms(currentUser(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, rooms)
}
