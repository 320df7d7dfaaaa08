package jwt

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("minio-events", "secret", time.Hour)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	subject, err := ExtractSubjectFromToken(token, "secret")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if subject != "minio-events" {
		t.Fatalf("Expected subject minio-events, got %q", subject)
	}
}

func TestExtractSubjectFromToken_Rejects(t *testing.T) {
	expired, _ := GenerateToken("minio-events", "secret", -time.Minute)
	wrongKey, _ := GenerateToken("minio-events", "other", time.Hour)
	noSubject, _ := GenerateToken("", "secret", time.Hour)

	tests := map[string]string{
		"expired":    expired,
		"wrong key":  wrongKey,
		"no subject": noSubject,
		"garbage":    "not-a-token",
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ExtractSubjectFromToken(token, "secret"); err == nil {
				t.Fatal("Expected token to be rejected")
			}
		})
	}
}
