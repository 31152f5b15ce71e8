// Package call 实现 WebRTC 通话信令转发与通话记录
// 服务端只转发 SDP 和 ICE candidate，媒体流不经过服务端
package call

import (
	"time"

	"pulse_chat_server/internal/dao/mysql/repository"
	"pulse_chat_server/internal/dto/request"
	"pulse_chat_server/internal/dto/respond"
	"pulse_chat_server/internal/infrastructure/metrics"
	"pulse_chat_server/internal/model"
	"pulse_chat_server/internal/service/chat"
	"pulse_chat_server/pkg/constants"
	"pulse_chat_server/pkg/errorx"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OnlineChecker 注册表在线查询
type OnlineChecker interface {
	IsOnline(userUuid string) (bool, error)
}

// DedupStore offer 去重用的 SetNX 窗口
type DedupStore interface {
	SetNX(key, value string, ttl time.Duration) (bool, error)
}

// Notifier 通知入口
type Notifier interface {
	Notify(ownerUuid, actorUuid, kind, payload string)
}

// Service 通话服务
type Service struct {
	rooms       repository.RoomRepository
	calls       repository.CallRepository
	fanout      chat.Fanout
	checker     OnlineChecker
	dedup       DedupStore
	notifier    Notifier
	dedupWindow time.Duration
}

// NewService 创建通话服务
func NewService(rooms repository.RoomRepository, calls repository.CallRepository, fanout chat.Fanout,
	checker OnlineChecker, dedup DedupStore, notifier Notifier, dedupWindow time.Duration) *Service {
	return &Service{
		rooms:       rooms,
		calls:       calls,
		fanout:      fanout,
		checker:     checker,
		dedup:       dedup,
		notifier:    notifier,
		dedupWindow: dedupWindow,
	}
}

func offerKey(roomUuid, targetUuid string) string {
	return "ws:offer:" + roomUuid + ":" + targetUuid
}

// Start 发起通话
// 只允许在两人单聊房间发起；对方离线直接记未接并落通知，不发信令
func (s *Service) Start(callerUuid string, req *request.CallOfferFrame) error {
	room, err := s.rooms.FindByUuid(req.RoomUuid)
	if err != nil {
		return err
	}
	if room.IsGroup {
		return errorx.New(errorx.CodeInvalidParam, "群聊房间不支持通话")
	}
	members, err := s.rooms.MemberIds(req.RoomUuid)
	if err != nil {
		return err
	}
	if len(members) != 2 {
		return errorx.New(errorx.CodeInvalidParam, "通话房间必须恰好两名成员")
	}

	receiverUuid := ""
	isMember := false
	for _, m := range members {
		if m == callerUuid {
			isMember = true
		} else {
			receiverUuid = m
		}
	}
	if !isMember {
		return errorx.ErrForbidden
	}

	kind := req.CallKind
	if kind != constants.CallAudio && kind != constants.CallVideo {
		return errorx.New(errorx.CodeInvalidParam, "未知的通话类型")
	}

	online, err := s.checker.IsOnline(receiverUuid)
	if err != nil {
		zap.L().Error("通话前在线检查失败", zap.String("receiverUuid", receiverUuid), zap.Error(err))
		online = false
	}

	// 同一房间对同一目标在去重窗口内只投一次 offer
	// 去重先于落库，防止被拒的重试留下孤儿 ongoing 记录
	if online && s.dedup != nil {
		ok, err := s.dedup.SetNX(offerKey(req.RoomUuid, receiverUuid), callerUuid, s.dedupWindow)
		if err != nil {
			zap.L().Error("offer 去重检查失败", zap.String("roomUuid", req.RoomUuid), zap.Error(err))
		} else if !ok {
			return errorx.New(errorx.CodeInvalidParam, "已有通话邀请待应答")
		}
	}

	record := &model.CallRecord{
		Uuid:       uuid.NewString(),
		RoomUuid:   req.RoomUuid,
		CallerId:   callerUuid,
		ReceiverId: receiverUuid,
		CallKind:   kind,
		Status:     constants.CallOngoing,
		StartTime:  time.Now(),
	}
	if err := s.calls.Create(record); err != nil {
		return err
	}

	if !online {
		return s.finish(record, callerUuid, constants.CallMissed)
	}

	frame, err := respond.MarshalFrame(respond.FrameCallOffer, respond.CallOfferFrame{
		CallId:   record.Uuid,
		RoomUuid: req.RoomUuid,
		CallerId: callerUuid,
		CallKind: kind,
		Sdp:      req.Sdp,
	})
	if err != nil {
		return err
	}
	return s.fanout.Publish(&chat.Envelope{
		Kind:    respond.FrameCallOffer,
		Targets: []string{receiverUuid},
		Frame:   frame,
	})
}

// Answer 应答通话
// 拒接立即终结为 rejected；接受只转发 SDP，状态保持 ongoing
func (s *Service) Answer(answererUuid string, req *request.CallAnswerFrame) error {
	record, err := s.calls.FindByUuid(req.CallId)
	if err != nil {
		return err
	}
	if record.ReceiverId != answererUuid {
		return errorx.ErrForbidden
	}
	if record.Status != constants.CallOngoing {
		return errorx.New(errorx.CodeInvalidParam, "通话已结束")
	}

	if !req.Accept {
		return s.finish(record, answererUuid, constants.CallRejected)
	}

	frame, err := respond.MarshalFrame(respond.FrameCallAnswer, respond.CallAnswerFrame{
		CallId:     record.Uuid,
		AnswererId: answererUuid,
		Accept:     true,
		Sdp:        req.Sdp,
	})
	if err != nil {
		return err
	}
	return s.fanout.Publish(&chat.Envelope{
		Kind:    respond.FrameCallAnswer,
		Targets: []string{record.CallerId},
		Frame:   frame,
	})
}

// RelayICE 转发 ICE candidate 给对端
func (s *Service) RelayICE(senderUuid string, req *request.IceCandidateFrame) error {
	record, err := s.calls.FindByUuid(req.CallId)
	if err != nil {
		return err
	}
	peer, err := s.peerOf(record, senderUuid)
	if err != nil {
		return err
	}

	frame, err := respond.MarshalFrame(respond.FrameIceCandidate, respond.IceCandidateFrame{
		CallId:    record.Uuid,
		SenderId:  senderUuid,
		Candidate: req.Candidate,
	})
	if err != nil {
		return err
	}
	return s.fanout.Publish(&chat.Envelope{
		Kind:    respond.FrameIceCandidate,
		Targets: []string{peer},
		Frame:   frame,
	})
}

// End 挂断通话，幂等
// 已终结的记录不再改写也不再二次广播
// 终态由服务端推导：显式挂断一律记 completed，missed 与 rejected 只产生于
// 离线和拒接路径；入站 call_ended 帧只带通话号，状态和时长不收客户端的值，
// 广播出去的 call_ended 帧才携带推导后的 status 与 duration
func (s *Service) End(enderUuid string, req *request.CallEndedFrame) error {
	record, err := s.calls.FindByUuid(req.CallId)
	if err != nil {
		return err
	}
	if _, err := s.peerOf(record, enderUuid); err != nil {
		return err
	}
	if record.Status != constants.CallOngoing {
		return nil
	}
	return s.finish(record, enderUuid, constants.CallCompleted)
}

// finish 终结通话记录并广播
// end_time IS NULL 条件保证并发挂断只有一次生效
func (s *Service) finish(record *model.CallRecord, endedBy, status string) error {
	endTime := time.Now()
	duration := 0
	if status == constants.CallCompleted {
		duration = int(endTime.Sub(record.StartTime).Seconds())
	}

	updated, err := s.calls.End(record.Uuid, status, endTime, duration)
	if err != nil {
		return err
	}
	if !updated {
		return nil
	}
	metrics.CallsTotal.WithLabelValues(status).Inc()

	record.Status = status
	record.Duration = duration
	targets := []string{record.CallerId, record.ReceiverId}

	endedFrame, err := respond.MarshalFrame(respond.FrameCallEnded, respond.CallEndedFrame{
		CallId:   record.Uuid,
		EndedBy:  endedBy,
		Status:   status,
		Duration: duration,
	})
	if err == nil {
		if err := s.fanout.Publish(&chat.Envelope{
			Kind:    respond.FrameCallEnded,
			Targets: targets,
			Frame:   endedFrame,
		}); err != nil {
			zap.L().Error("通话结束广播失败", zap.String("callId", record.Uuid), zap.Error(err))
		}
	}

	historyFrame, err := respond.MarshalFrame(respond.FrameCallHistoryUpdate, respond.CallHistoryUpdateFrame{
		Record: toRespond(record, endTime),
	})
	if err == nil {
		if err := s.fanout.Publish(&chat.Envelope{
			Kind:    respond.FrameCallHistoryUpdate,
			Targets: targets,
			Frame:   historyFrame,
		}); err != nil {
			zap.L().Error("通话记录推送失败", zap.String("callId", record.Uuid), zap.Error(err))
		}
	}

	if status == constants.CallMissed && s.notifier != nil {
		s.notifier.Notify(record.ReceiverId, record.CallerId, constants.NotifyCall, record.Uuid)
	}
	return nil
}

// History 用户的通话记录
func (s *Service) History(userUuid string, limit int) ([]respond.CallRecordRespond, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	records, err := s.calls.HistoryForUser(userUuid, limit)
	if err != nil {
		return nil, err
	}

	out := make([]respond.CallRecordRespond, 0, len(records))
	for _, r := range records {
		item := respond.CallRecordRespond{
			Uuid:       r.Uuid,
			RoomUuid:   r.RoomUuid,
			CallerId:   r.CallerId,
			ReceiverId: r.ReceiverId,
			CallKind:   r.CallKind,
			Status:     r.Status,
			StartTime:  r.StartTime.Format(time.RFC3339),
			Duration:   r.Duration,
		}
		if r.EndTime.Valid {
			item.EndTime = r.EndTime.Time.Format(time.RFC3339)
		}
		out = append(out, item)
	}
	return out, nil
}

// HasOngoingForUser 注册表决定是否发顶替信号时调用
func (s *Service) HasOngoingForUser(userUuid string) (bool, error) {
	return s.calls.HasOngoingForUser(userUuid)
}

func (s *Service) peerOf(record *model.CallRecord, userUuid string) (string, error) {
	switch userUuid {
	case record.CallerId:
		return record.ReceiverId, nil
	case record.ReceiverId:
		return record.CallerId, nil
	default:
		return "", errorx.ErrForbidden
	}
}

func toRespond(r *model.CallRecord, endTime time.Time) respond.CallRecordRespond {
	return respond.CallRecordRespond{
		Uuid:       r.Uuid,
		RoomUuid:   r.RoomUuid,
		CallerId:   r.CallerId,
		ReceiverId: r.ReceiverId,
		CallKind:   r.CallKind,
		Status:     r.Status,
		StartTime:  r.StartTime.Format(time.RFC3339),
		EndTime:    endTime.Format(time.RFC3339),
		Duration:   r.Duration,
	}
}
