package upload

import "testing"

func TestObjectURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		key  string
		want string
	}{
		{
			name: "aws virtual-hosted",
			cfg:  Config{Bucket: "cases", Region: "us-east-1"},
			key:  "docs/OEBC-001.pdf",
			want: "https://cases.s3.us-east-1.amazonaws.com/docs/OEBC-001.pdf",
		},
		{
			name: "custom endpoint path style",
			cfg:  Config{Bucket: "cases", Endpoint: "https://minio.local:9000/"},
			key:  "OEBC-001.pdf",
			want: "https://minio.local:9000/cases/OEBC-001.pdf",
		},
		{
			name: "public base url wins",
			cfg:  Config{Bucket: "cases", Endpoint: "https://minio.local", PublicBaseURL: "https://cdn.example.com/"},
			key:  "OEBC-001.pdf",
			want: "https://cdn.example.com/OEBC-001.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &S3Uploader{cfg: tt.cfg}
			if got := u.objectURL(tt.key); got != tt.want {
				t.Fatalf("objectURL = %q, want %q", got, tt.want)
			}
		})
	}
}
