package models

import "time"

// SessionState is the lifecycle state of a transfer session.
type SessionState string

const (
	StateCreated    SessionState = "created"
	StateActive     SessionState = "active"
	StateDownloaded SessionState = "downloaded"
	StateExpired    SessionState = "expired"
)

// TransferSession is the record kept for one uploaded file, keyed by its
// 6-character code. The encryption key is stored alongside the object
// locator on purpose: the document store is trusted with both.
type TransferSession struct {
	Code           string    `bson:"_id" json:"code"`
	FileName       string    `bson:"file_name" json:"file_name"`
	FileSize       int64     `bson:"file_size" json:"file_size"`
	FileType       string    `bson:"file_type" json:"file_type"`
	Locator        string    `bson:"locator" json:"-"`
	EncryptionKey  string    `bson:"encryption_key" json:"-"`
	StoredSize     int64     `bson:"stored_size" json:"stored_size"`
	UploadDate     time.Time `bson:"upload_date" json:"upload_date"`
	ExpirationDate time.Time `bson:"expiration_date" json:"expiration_date"`
	Downloaded     bool      `bson:"downloaded" json:"downloaded"`
	DownloadCount  int       `bson:"download_count" json:"download_count"`
	DownloadedAt   time.Time `bson:"downloaded_at,omitempty" json:"downloaded_at,omitempty"`
	OwnerID        string    `bson:"owner_id" json:"owner_id"`

	WasCompressed        bool    `bson:"was_compressed" json:"was_compressed"`
	CompressionRatio     float64 `bson:"compression_ratio,omitempty" json:"compression_ratio,omitempty"`
	CompressionAlgorithm string  `bson:"compression_algorithm,omitempty" json:"compression_algorithm,omitempty"`
	OriginalFileName     string  `bson:"original_file_name,omitempty" json:"original_file_name,omitempty"`
	OriginalFileSize     int64   `bson:"original_file_size,omitempty" json:"original_file_size,omitempty"`
}

// StateAt derives the session state at now. Expiry wins over the
// downloaded flag.
func (s *TransferSession) StateAt(now time.Time) SessionState {
	switch {
	case now.After(s.ExpirationDate):
		return StateExpired
	case s.Downloaded:
		return StateDownloaded
	default:
		return StateActive
	}
}

// ObjectKey is the object-store key for a session's ciphertext.
func ObjectKey(code, fileName string) string {
	return "transfers/" + code + "/" + fileName + ".encrypted"
}
