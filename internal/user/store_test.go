package user

import (
	"context"
	"testing"
)

func TestMemoryStore_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	u := &User{Name: "Jane", Email: "  Jane@Example.COM "}
	if err := s.Save(ctx, u); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if u.ID == "" {
		t.Fatal("Save() did not assign an ID")
	}
	if u.Email != "jane@example.com" {
		t.Errorf("Save() email = %q, want lowercased", u.Email)
	}
	if u.CreatedAt.IsZero() || u.UpdatedAt.IsZero() {
		t.Error("Save() did not stamp timestamps")
	}

	byID, err := s.FindByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if byID.Name != "Jane" {
		t.Errorf("FindByID() name = %q", byID.Name)
	}

	byEmail, err := s.FindByEmail(ctx, "JANE@example.com")
	if err != nil {
		t.Fatalf("FindByEmail() error = %v", err)
	}
	if byEmail.ID != u.ID {
		t.Errorf("FindByEmail() id = %q, want %q", byEmail.ID, u.ID)
	}
}

func TestMemoryStore_NotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.FindByID(ctx, "missing"); err != ErrNotFound {
		t.Errorf("FindByID() error = %v, want ErrNotFound", err)
	}
	if _, err := s.FindByEmail(ctx, "missing@example.com"); err != ErrNotFound {
		t.Errorf("FindByEmail() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	u := &User{Email: "a@example.com", GoogleAccessToken: "cipher"}
	if err := s.Save(ctx, u); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, _ := s.FindByID(ctx, u.ID)
	got.GoogleAccessToken = "mutated"

	again, _ := s.FindByID(ctx, u.ID)
	if again.GoogleAccessToken != "cipher" {
		t.Error("mutating a loaded user changed persisted state")
	}
}

func TestMemoryStore_UniqueEmail(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Save(ctx, &User{Email: "dup@example.com"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.Save(ctx, &User{Email: "DUP@example.com"}); err == nil {
		t.Error("Save() allowed a duplicate email")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestUser_RefreshTokenFallback(t *testing.T) {
	tests := []struct {
		name     string
		user     User
		provider Provider
		want     string
	}{
		{
			name:     "per-provider token wins",
			user:     User{AuthProvider: ProviderMicrosoft, RefreshToken: "legacy", MicrosoftRefreshToken: "ms"},
			provider: ProviderMicrosoft,
			want:     "ms",
		},
		{
			name:     "legacy document uses shared token for its provider",
			user:     User{AuthProvider: ProviderGoogle, RefreshToken: "legacy"},
			provider: ProviderGoogle,
			want:     "legacy",
		},
		{
			name:     "legacy token is not lent to another provider",
			user:     User{AuthProvider: ProviderGoogle, RefreshToken: "legacy"},
			provider: ProviderYahoo,
		},
		{
			name:     "no fallback once any provider has its own token",
			user:     User{AuthProvider: ProviderGoogle, RefreshToken: "legacy", MicrosoftRefreshToken: "ms"},
			provider: ProviderGoogle,
		},
		{
			name:     "local provider",
			user:     User{AuthProvider: ProviderLocal, RefreshToken: "legacy"},
			provider: ProviderLocal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.RefreshTokenFor(tt.provider); got != tt.want {
				t.Errorf("RefreshTokenFor(%s) = %q, want %q", tt.provider, got, tt.want)
			}
		})
	}
}

func TestParseProvider(t *testing.T) {
	tests := []struct {
		in   string
		want Provider
		ok   bool
	}{
		{"google", ProviderGoogle, true},
		{" Microsoft ", ProviderMicrosoft, true},
		{"YAHOO", ProviderYahoo, true},
		{"local", ProviderLocal, true},
		{"aol", Provider("aol"), false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseProvider(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ParseProvider(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}
