package s3

import "testing"

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "owner/cv.pdf", want: "owner/cv.pdf"},
		{name: "simple prefix", prefix: "documents", key: "owner/cv.pdf", want: "documents/owner/cv.pdf"},
		{name: "prefix trailing slash", prefix: "documents/", key: "owner/cv.pdf", want: "documents/owner/cv.pdf"},
		{name: "prefix and key slashes", prefix: "/documents/", key: "/owner/cv.pdf", want: "documents/owner/cv.pdf"},
		{name: "nested prefix", prefix: "documents/prod", key: "owner/cv.pdf", want: "documents/prod/owner/cv.pdf"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}
