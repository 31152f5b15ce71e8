package jwt

import "testing"

func TestParseAccessToken(t *testing.T) {
	Init("test-secret", 30, 168)

	access, err := GenerateAccessToken("user-1")
	if err != nil {
		t.Fatalf("生成 Access Token: %v", err)
	}
	claims, err := ParseAccessToken(access)
	if err != nil {
		t.Fatalf("解析 Access Token: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("用户号不匹配, got %q", claims.UserID)
	}
}

func TestParseAccessTokenRejectsRefreshToken(t *testing.T) {
	Init("test-secret", 30, 168)

	refresh, _, err := GenerateRefreshToken("user-1")
	if err != nil {
		t.Fatalf("生成 Refresh Token: %v", err)
	}
	if _, err := ParseAccessToken(refresh); err == nil {
		t.Fatal("Refresh Token 不应通过 Access Token 校验")
	}
}

func TestParseAccessTokenRejectsTamperedToken(t *testing.T) {
	Init("test-secret", 30, 168)

	access, err := GenerateAccessToken("user-1")
	if err != nil {
		t.Fatalf("生成 Access Token: %v", err)
	}
	if _, err := ParseAccessToken(access + "x"); err == nil {
		t.Fatal("被篡改的 Token 不应通过校验")
	}
}
