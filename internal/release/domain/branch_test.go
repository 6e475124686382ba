package domain

import "testing"

func TestSanitizeBranch(t *testing.T) {
	tests := []struct {
		name   string
		branch string
		want   string
	}{
		{"punctuation and spaces", "feature/Add New Thing!!", "feature-add-new-thing"},
		{"already clean", "fix-login", "fix-login"},
		{"nested slashes", "user/jdoe/wip", "user-jdoe-wip"},
		{"leading and trailing separators", "/-feature-/", "feature"},
		{"underscores and dots", "JIRA_123.hotfix", "jira-123-hotfix"},
		{"unicode letters", "café/über", "caf---ber"},
		{"emoji only", "🚀", UnknownBranch},
		{"empty", "", UnknownBranch},
		{"only punctuation", "!!!", UnknownBranch},
		{"keeps inner double hyphen", "a--b", "a--b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeBranch(tt.branch); got != tt.want {
				t.Errorf("SanitizeBranch(%q) = %q, want %q", tt.branch, got, tt.want)
			}
		})
	}
}
