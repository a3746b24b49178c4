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
				t.Setenv(tt.key, tt.value)
			} else {
				os.Unsetenv(tt.key)
			}

			defer func() {
				r := recover()
				if tt.wantPanic && r == nil {
					t.Errorf("requireEnv(%q) did not panic", tt.key)
				}
				if !tt.wantPanic && r != nil {
					t.Errorf("requireEnv(%q) panicked: %v", tt.key, r)
				}
			}()

			got := requireEnv(tt.key)
			if !tt.wantPanic && got != tt.value {
				t.Errorf("requireEnv(%q) = %q, want %q", tt.key, got, tt.value)
			}
		})
	}
}

func TestGetenv(t *testing.T) {
	t.Setenv("TEST_GETENV", "set")
	if got := getenv("TEST_GETENV", "def"); got != "set" {
		t.Errorf("getenv = %q, want set", got)
	}
	if got := getenv("TEST_GETENV_MISSING", "def"); got != "def" {
		t.Errorf("getenv = %q, want def", got)
	}
}

func TestGetenvInt(t *testing.T) {
	tests := []struct {
		name  string
		value string
		def   int
		want  int
	}{
		{name: "valid int", value: "42", def: 1, want: 42},
		{name: "invalid int falls back", value: "nope", def: 7, want: 7},
		{name: "empty falls back", value: "", def: 3, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv("TEST_INT", tt.value)
			} else {
				os.Unsetenv("TEST_INT")
			}
			if got := getenvInt("TEST_INT", tt.def); got != tt.want {
				t.Errorf("getenvInt = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMustBool(t *testing.T) {
	tests := []struct {
		name  string
		value string
		def   bool
		want  bool
	}{
		{name: "true", value: "true", def: false, want: true},
		{name: "false", value: "false", def: true, want: false},
		{name: "numeric true", value: "1", def: false, want: true},
		{name: "invalid falls back", value: "yes please", def: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.value)
			if got := mustBool("TEST_BOOL", tt.def); got != tt.want {
				t.Errorf("mustBool = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMustDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		def   time.Duration
		want  time.Duration
	}{
		{name: "valid duration", value: "30s", def: time.Second, want: 30 * time.Second},
		{name: "invalid falls back", value: "soon", def: 2 * time.Second, want: 2 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DUR", tt.value)
			if got := mustDuration("TEST_DUR", tt.def); got != tt.want {
				t.Errorf("mustDuration = %v, want %v", got, tt.want)
			}
		})
	}
}
