package domain

import (
	"errors"
	"testing"
)

func TestNewDraft(t *testing.T) {
	tests := []struct {
		name    string
		userID  string
		title   string
		url     string
		wantErr bool
	}{
		{name: "valid", userID: "u1", title: "Go", url: "https://go.dev"},
		{name: "trimmed", userID: " u1 ", title: "  Go  ", url: " https://go.dev "},
		{name: "empty title", userID: "u1", title: "", url: "http://x", wantErr: true},
		{name: "blank title", userID: "u1", title: "   ", url: "http://x", wantErr: true},
		{name: "empty url", userID: "u1", title: "A", url: "", wantErr: true},
		{name: "relative url", userID: "u1", title: "A", url: "not a url", wantErr: true},
		{name: "missing user", userID: "", title: "A", url: "http://a", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDraft(tt.userID, tt.title, tt.url)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("NewDraft() error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewDraft() unexpected error: %v", err)
			}
			if d.Title != "Go" || d.URL != "https://go.dev" || d.UserID != "u1" {
				t.Errorf("NewDraft() = %+v, want trimmed fields", d)
			}
		})
	}
}

func TestUserIDFromSubjectIsStable(t *testing.T) {
	a := UserIDFromSubject("google", "1234")
	b := UserIDFromSubject("google", "1234")
	c := UserIDFromSubject("google", "5678")

	if a != b {
		t.Errorf("same subject produced %s and %s", a, b)
	}
	if a == c {
		t.Error("different subjects produced the same id")
	}
}

func TestChangeKind(t *testing.T) {
	if got := ChangeKind(Inserted{Record: Bookmark{ID: "1"}}); got != "insert" {
		t.Errorf("ChangeKind(Inserted) = %s", got)
	}
	if got := ChangeKind(Updated{Record: Bookmark{ID: "1"}}); got != "update" {
		t.Errorf("ChangeKind(Updated) = %s", got)
	}
	if got := ChangeKind(Deleted{ID: "1"}); got != "delete" {
		t.Errorf("ChangeKind(Deleted) = %s", got)
	}
}
