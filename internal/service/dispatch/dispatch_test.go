package dispatch

import (
	"encoding/json"
	"testing"

	"pulse_chat_server/internal/dto/respond"
	"pulse_chat_server/internal/service/chat"
	"pulse_chat_server/pkg/errorx"
)

// 帧校验只依赖外层信封解析，服务指针不会被触达
func newConn() *chat.UserConn {
	return chat.NewUserConn("conn-1", "user-1", "sess-1", nil)
}

func readErrorFrame(t *testing.T, conn *chat.UserConn) respond.ErrorFrame {
	t.Helper()
	select {
	case raw := <-conn.SendTo:
		var outer respond.WsFrame
		if err := json.Unmarshal(raw, &outer); err != nil {
			t.Fatalf("解析出站帧: %v", err)
		}
		if outer.Type != respond.FrameError {
			t.Fatalf("帧类型应为 error, got %s", outer.Type)
		}
		inner, _ := json.Marshal(outer.Data)
		var ef respond.ErrorFrame
		if err := json.Unmarshal(inner, &ef); err != nil {
			t.Fatalf("解析错误帧: %v", err)
		}
		return ef
	default:
		t.Fatal("未收到错误帧")
		return respond.ErrorFrame{}
	}
}

func TestHandleFrameMalformedJSON(t *testing.T) {
	d := NewDispatcher(nil, nil, nil)
	conn := newConn()

	d.HandleFrame(conn, []byte("{not json"))

	ef := readErrorFrame(t, conn)
	if ef.Code != errorx.CodeInvalidParam {
		t.Fatalf("畸形帧应返回参数错误码, got %d", ef.Code)
	}
}

func TestHandleFrameUnknownType(t *testing.T) {
	d := NewDispatcher(nil, nil, nil)
	conn := newConn()

	d.HandleFrame(conn, []byte(`{"type":"no_such_frame","data":{}}`))

	ef := readErrorFrame(t, conn)
	if ef.Code != errorx.CodeInvalidParam {
		t.Fatalf("未知帧类型应返回参数错误码, got %d", ef.Code)
	}
}

func TestHandleFrameMalformedPayload(t *testing.T) {
	d := NewDispatcher(nil, nil, nil)
	conn := newConn()

	d.HandleFrame(conn, []byte(`{"type":"chat_message","data":"not-an-object"}`))

	ef := readErrorFrame(t, conn)
	if ef.Code != errorx.CodeInvalidParam {
		t.Fatalf("畸形载荷应返回参数错误码, got %d", ef.Code)
	}
}
