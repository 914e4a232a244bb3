package compression

import "testing"

var testPolicy = Policy{
	MinSize:  1024,
	MaxSize:  10 * 1024 * 1024,
	MinRatio: 0.1,
}

func TestShouldCompress(t *testing.T) {
	tests := []struct {
		name     string
		size     int64
		mimeType string
		fileName string
		expected bool
	}{
		{"small text file", 500, "text/plain", "small.txt", false},
		{"small json file", 1023, "application/json", "a.json", false},
		{"text file", 2048, "text/plain", "test.txt", true},
		{"json file", 2048, "application/json", "test.json", true},
		{"xml file", 2048, "application/xml", "feed.xml", true},
		{"pdf file", 2048, "application/pdf", "doc.pdf", true},
		{"office document", 2048, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", "a.docx", true},
		{"zip by mime", 2048, "application/zip", "test.zip", false},
		{"zip by extension only", 2048, "", "test.zip", false},
		{"zip extension with text mime", 2048, "text/plain", "notes.ZIP", false},
		{"gzip extension", 2048, "application/octet-stream", "logs.tar.gz", false},
		{"7z mime", 2048, "application/x-7z-compressed", "backup", false},
		{"rar mime", 2048, "application/x-rar-compressed", "backup", false},
		{"jpeg", 2048, "image/jpeg", "photo.jpg", false},
		{"png", 2048, "image/png", "shot.png", false},
		{"webp", 2048, "image/webp", "shot.webp", false},
		{"video", 5 * 1024 * 1024, "video/mp4", "clip.mp4", false},
		{"audio", 5 * 1024 * 1024, "audio/mpeg", "song.mp3", false},
		{"small bmp", 2048, "image/bmp", "image.bmp", false},
		{"large bmp", 200 * 1024, "image/bmp", "image.bmp", true},
		{"unknown type at threshold", 100 * 1024, "application/octet-stream", "blob.bin", false},
		{"unknown type above threshold", 100*1024 + 1, "application/octet-stream", "blob.bin", true},
		{"huge text file", 20 * 1024 * 1024, "text/csv", "data.csv", true},
		{"huge binary file", 20 * 1024 * 1024, "application/octet-stream", "disk.img", false},
		{"mime is case insensitive", 2048, "TEXT/PLAIN", "README", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShouldCompress(tt.size, tt.mimeType, tt.fileName, testPolicy)
			if got != tt.expected {
				t.Errorf("ShouldCompress(%d, %q, %q) = %v, want %v",
					tt.size, tt.mimeType, tt.fileName, got, tt.expected)
			}
		})
	}
}

func TestShouldCompress_HugeFileBypassesArchiveRules(t *testing.T) {
	// The size > MaxSize rule is evaluated before the extension rule.
	if !ShouldCompress(20*1024*1024, "text/plain", "dump.txt.gz", testPolicy) {
		t.Error("expected huge text file to be compressed regardless of extension")
	}
}
