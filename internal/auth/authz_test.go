package auth

import "testing"

func TestCanModify(t *testing.T) {
	tests := []struct {
		name     string
		callerID string
		ownerID  string
		want     bool
	}{
		{"owner can modify", "user-1", "user-1", true},
		{"other user cannot modify", "user-2", "user-1", false},
		{"empty caller cannot modify", "", "user-1", false},
		{"empty caller and owner cannot modify", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanModify(tt.callerID, tt.ownerID); got != tt.want {
				t.Errorf("CanModify(%q, %q) = %v, want %v", tt.callerID, tt.ownerID, got, tt.want)
			}
		})
	}
}
