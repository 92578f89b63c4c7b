package config

import (
	"os"
	"testing"
	"time"
)

func TestRequireEnv(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		value     string
		shouldSet bool
		wantPanic bool
	}{
		{
			name:      "variable set",
			key:       "TEST_VAR",
			value:     "test_value",
			shouldSet: true,
			wantPanic: false,
		},
		{
			name:      "variable not set",
			key:       "TEST_VAR_MISSING",
			shouldSet: false,
			wantPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.shouldSet {
				if err := os.Setenv(tt.key, tt.value); err != nil {
					t.Fatalf("failed to set env var: %v", err)
				}
				defer func() {
					if err := os.Unsetenv(tt.key); err != nil {
						t.Errorf("failed to unset env var: %v", err)
					}
				}()
			}

			if tt.wantPanic {
				defer func() {
					if r := recover(); r == nil {
						t.Errorf("requireEnv() should have panicked")
					}
				}()
			}

			result := requireEnv(tt.key)
			if !tt.wantPanic && result != tt.value {
				t.Errorf("requireEnv() = %v, want %v", result, tt.value)
			}
		})
	}
}

func TestRequireEnvInt(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		value     string
		expected  int
		wantPanic bool
	}{
		{
			name:      "valid integer",
			key:       "TEST_INT",
			value:     "42",
			expected:  42,
			wantPanic: false,
		},
		{
			name:      "invalid integer",
			key:       "TEST_INT_INVALID",
			value:     "not_a_number",
			wantPanic: true,
		},
		{
			name:      "missing variable",
			key:       "TEST_INT_MISSING",
			value:     "",
			wantPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				if err := os.Setenv(tt.key, tt.value); err != nil {
					t.Fatalf("failed to set env var: %v", err)
				}
				defer func() {
					if err := os.Unsetenv(tt.key); err != nil {
						t.Errorf("failed to unset env var: %v", err)
					}
				}()
			}

			if tt.wantPanic {
				defer func() {
					if r := recover(); r == nil {
						t.Errorf("requireEnvInt() should have panicked")
					}
				}()
			}

			result := requireEnvInt(tt.key)
			if !tt.wantPanic && result != tt.expected {
				t.Errorf("requireEnvInt() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected []string
	}{
		{
			name:     "single value",
			value:    "value1",
			expected: []string{"value1"},
		},
		{
			name:     "multiple values",
			value:    "value1, value2, value3",
			expected: []string{"value1", "value2", "value3"},
		},
		{
			name:     "quotes and blanks dropped",
			value:    `"https://a.ext", ,'https://b.ext'`,
			expected: []string{"https://a.ext", "https://b.ext"},
		},
		{
			name:     "empty",
			value:    "",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := splitAndTrim(tt.value)
			if len(result) != len(tt.expected) {
				t.Fatalf("splitAndTrim() length = %v, want %v", len(result), len(tt.expected))
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("splitAndTrim()[%d] = %v, want %v", i, result[i], tt.expected[i])
				}
			}
		})
	}
}

func TestMustDuration(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      time.Duration
		expected time.Duration
	}{
		{
			name:     "valid duration",
			key:      "TEST_DURATION",
			value:    "5s",
			def:      1 * time.Second,
			expected: 5 * time.Second,
		},
		{
			name:     "invalid duration uses default",
			key:      "TEST_DURATION_INVALID",
			value:    "invalid",
			def:      10 * time.Second,
			expected: 10 * time.Second,
		},
		{
			name:     "missing variable uses default",
			key:      "TEST_DURATION_MISSING",
			value:    "",
			def:      15 * time.Second,
			expected: 15 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				if err := os.Setenv(tt.key, tt.value); err != nil {
					t.Fatalf("failed to set env var: %v", err)
				}
				defer func() {
					if err := os.Unsetenv(tt.key); err != nil {
						t.Errorf("failed to unset env var: %v", err)
					}
				}()
			}

			result := mustDuration(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("mustDuration() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMustBool(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      bool
		expected bool
	}{
		{
			name:     "true value",
			key:      "TEST_BOOL",
			value:    "true",
			def:      false,
			expected: true,
		},
		{
			name:     "false value",
			key:      "TEST_BOOL_FALSE",
			value:    "false",
			def:      true,
			expected: false,
		},
		{
			name:     "invalid value uses default",
			key:      "TEST_BOOL_INVALID",
			value:    "invalid",
			def:      true,
			expected: true,
		},
		{
			name:     "missing variable uses default",
			key:      "TEST_BOOL_MISSING",
			value:    "",
			def:      false,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				if err := os.Setenv(tt.key, tt.value); err != nil {
					t.Fatalf("failed to set env var: %v", err)
				}
				defer func() {
					if err := os.Unsetenv(tt.key); err != nil {
						t.Errorf("failed to unset env var: %v", err)
					}
				}()
			}

			result := mustBool(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("mustBool() = %v, want %v", result, tt.expected)
			}
		})
	}
}


// setBaseEnv sets the variables Load cannot start without.
func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("KEEPER_REDIS_ADDR", "localhost:6379")
	t.Setenv("KEEPER_REDIS_PASSWORD", "hunter2")
	t.Setenv("KEEPER_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("KEEPER_GOOGLE_CLIENT_ID", "client-id")
	t.Setenv("KEEPER_GOOGLE_CLIENT_SECRET", "client-secret")
	t.Setenv("KEEPER_GOOGLE_REDIRECT_URL", "https://keeper.domain.ext/auth/callback")
	t.Setenv("KEEPER_LOG_LEVEL", "info")
}

func TestLoad(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("KEEPER_POSTGRES_DSN", "postgres://keeper@localhost/keeper")
	t.Setenv("KEEPER_ALLOWED_ORIGINS", "https://a.ext, https://b.ext")
	t.Setenv("KEEPER_VIEW_IDLE_TTL", "10m")

	cfg := Load()

	if cfg.Backend != BackendPostgres {
		t.Errorf("Backend = %q, want %q", cfg.Backend, BackendPostgres)
	}
	if cfg.ViewIdleTTL != 10*time.Minute {
		t.Errorf("ViewIdleTTL = %v, want 10m", cfg.ViewIdleTTL)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Errorf("AllowedOrigins = %v, want 2 entries", cfg.AllowedOrigins)
	}
	if cfg.TokenTTL != 12*time.Hour {
		t.Errorf("TokenTTL = %v, want default 12h", cfg.TokenTTL)
	}
}

func TestLoadBackendSelection(t *testing.T) {
	tests := []struct {
		name      string
		env       map[string]string
		want      string
		wantPanic bool
	}{
		{
			name: "postgres",
			env:  map[string]string{"KEEPER_BACKEND": "postgres", "KEEPER_POSTGRES_DSN": "postgres://x"},
			want: BackendPostgres,
		},
		{
			name:      "postgres without dsn",
			env:       map[string]string{"KEEPER_BACKEND": "postgres"},
			wantPanic: true,
		},
		{
			name: "supabase case insensitive",
			env: map[string]string{
				"KEEPER_BACKEND":      "Supabase",
				"KEEPER_SUPABASE_URL": "https://abc.supabase.co",
				"KEEPER_SUPABASE_KEY": "service-key",
			},
			want: BackendSupabase,
		},
		{
			name:      "supabase without key",
			env:       map[string]string{"KEEPER_BACKEND": "supabase", "KEEPER_SUPABASE_URL": "https://abc.supabase.co"},
			wantPanic: true,
		},
		{
			name:      "unknown backend",
			env:       map[string]string{"KEEPER_BACKEND": "sqlite"},
			wantPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv("KEEPER_POSTGRES_DSN", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			if tt.wantPanic {
				defer func() {
					if r := recover(); r == nil {
						t.Errorf("Load() should have panicked")
					}
				}()
			}

			cfg := Load()
			if !tt.wantPanic && cfg.Backend != tt.want {
				t.Errorf("Backend = %q, want %q", cfg.Backend, tt.want)
			}
		})
	}
}

func TestLoadRejectsShortSecret(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("KEEPER_POSTGRES_DSN", "postgres://x")
	t.Setenv("KEEPER_JWT_SECRET", "short")

	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Load() should have panicked on a short secret")
		}
	}()
	Load()
}

func TestLoadImportNeedsOwner(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("KEEPER_POSTGRES_DSN", "postgres://x")
	t.Setenv("KEEPER_IMPORT_FILE", "/data/bookmarks.yaml")
	t.Setenv("KEEPER_IMPORT_OWNER", "")

	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Load() should have panicked without an import owner")
		}
	}()
	Load()
}

func TestRedacted(t *testing.T) {
	cfg := &Config{
		RedisUser:          "default",
		RedisPassword:      "hunter2",
		JWTSecret:          "secret",
		GoogleClientSecret: "google",
		SupabaseKey:        "",
		PostgresDSN:        "postgres://user:pass@db/keeper",
	}

	r := cfg.Redacted()
	for name, v := range map[string]string{
		"RedisUser":          r.RedisUser,
		"RedisPassword":      r.RedisPassword,
		"JWTSecret":          r.JWTSecret,
		"GoogleClientSecret": r.GoogleClientSecret,
		"PostgresDSN":        r.PostgresDSN,
	} {
		if v != "***REDACTED***" {
			t.Errorf("%s = %q, want redacted", name, v)
		}
	}
	if r.SupabaseKey != "" {
		t.Errorf("empty SupabaseKey should stay empty, got %q", r.SupabaseKey)
	}
	if cfg.JWTSecret != "secret" {
		t.Error("Redacted() must not modify the receiver")
	}
}
