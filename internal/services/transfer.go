package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/arzan03/SecureDrop/internal/compression"
	"github.com/arzan03/SecureDrop/internal/crypto"
	"github.com/arzan03/SecureDrop/internal/db"
	"github.com/arzan03/SecureDrop/internal/metrics"
	"github.com/arzan03/SecureDrop/internal/models"
	"github.com/arzan03/SecureDrop/internal/storage"
	"github.com/arzan03/SecureDrop/internal/utils"
)

// Sentinel errors for the transfer service.
var (
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrSessionNotFound    = errors.New("transfer session not found")
	ErrSessionExpired     = errors.New("this transfer has expired")
	ErrAlreadyDownloaded  = errors.New("this file has already been downloaded")
	ErrStoreUnavailable   = errors.New("storage backend unavailable")
	ErrForbidden          = errors.New("access denied")
	ErrCodeSpaceExhausted = errors.New("could not allocate a free session code")

	ErrEncryptionFailed        = crypto.ErrEncryptionFailed
	ErrInvalidKeyOrCorruptData = crypto.ErrInvalidKeyOrCorruptData
)

const ciphertextContentType = "application/octet-stream"

// SessionStore is the document store holding transfer sessions.
type SessionStore interface {
	Create(ctx context.Context, session *models.TransferSession) error
	Get(ctx context.Context, code string) (*models.TransferSession, error)
	Exists(ctx context.Context, code string) (bool, error)
	ClaimDownload(ctx context.Context, code string, now time.Time) (*models.TransferSession, error)
	Delete(ctx context.Context, code string) error
	ListExpired(ctx context.Context, before time.Time, limit int) ([]*models.TransferSession, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.TransferSession, error)
	List(ctx context.Context) ([]*models.TransferSession, error)
}

// ObjectStore holds the encrypted payloads.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, locator string) ([]byte, error)
	Delete(ctx context.Context, locator string) error
}

// TransferOptions configures a TransferService.
type TransferOptions struct {
	MaxFileSize     int64
	TTL             time.Duration
	Policy          compression.Policy
	BaseURL         string
	MaxCodeAttempts int
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// DefaultTransferOptions mirrors the stock configuration: 100MB cap, 24h TTL.
func DefaultTransferOptions() TransferOptions {
	return TransferOptions{
		MaxFileSize:     100 * 1024 * 1024,
		TTL:             24 * time.Hour,
		Policy:          compression.DefaultPolicy,
		MaxCodeAttempts: 5,
	}
}

// UploadRequest is one file handed in by a sender.
type UploadRequest struct {
	FileName    string
	ContentType string
	Data        []byte
	OwnerID     string
}

// UploadResult is returned to the sender after a successful upload.
type UploadResult struct {
	Code                 string    `json:"code"`
	Key                  string    `json:"key"`
	ShareLink            string    `json:"share_link"`
	ExpiresAt            time.Time `json:"expires_at"`
	FileName             string    `json:"file_name"`
	FileSize             int64     `json:"file_size"`
	StoredSize           int64     `json:"stored_size"`
	WasCompressed        bool      `json:"was_compressed"`
	CompressionRatio     float64   `json:"compression_ratio"`
	CompressionAlgorithm string    `json:"compression_algorithm"`
}

// DownloadResult is the decrypted file handed to a receiver.
type DownloadResult struct {
	FileName      string
	ContentType   string
	Data          []byte
	DownloadCount int
}

// SessionInfo is the public view of a session. It never carries the key.
type SessionInfo struct {
	Code             string              `json:"code"`
	FileName         string              `json:"file_name"`
	FileSize         int64               `json:"file_size"`
	FileSizeHuman    string              `json:"file_size_human"`
	FileType         string              `json:"file_type"`
	StoredSize       int64               `json:"stored_size"`
	UploadDate       time.Time           `json:"upload_date"`
	ExpirationDate   time.Time           `json:"expiration_date"`
	Downloaded       bool                `json:"downloaded"`
	DownloadCount    int                 `json:"download_count"`
	State            models.SessionState `json:"state"`
	WasCompressed    bool                `json:"was_compressed"`
	CompressionRatio float64             `json:"compression_ratio,omitempty"`
	OwnerID          string              `json:"owner_id,omitempty"`
	ShareLink        string              `json:"share_link"`
}

// TransferService runs the send and receive flows and owns the session
// lifecycle: created -> active -> downloaded | expired.
type TransferService struct {
	sessions SessionStore
	objects  ObjectStore
	opts     TransferOptions
	now      func() time.Time
}

// NewTransferService wires the service to its stores.
func NewTransferService(sessions SessionStore, objects ObjectStore, opts TransferOptions) *TransferService {
	defaults := DefaultTransferOptions()
	if opts.MaxCodeAttempts < 1 {
		opts.MaxCodeAttempts = 1
	}
	// Sessions must expire strictly after they are created.
	if opts.TTL <= 0 {
		opts.TTL = defaults.TTL
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = defaults.MaxFileSize
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &TransferService{
		sessions: sessions,
		objects:  objects,
		opts:     opts,
		now:      now,
	}
}

// Upload compresses (when worthwhile), encrypts and stores a file, then
// records an active session for it.
func (s *TransferService) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	size := int64(len(req.Data))
	if size > s.opts.MaxFileSize {
		metrics.UploadsTotal.WithLabelValues("too_large").Inc()
		return nil, ErrFileTooLarge
	}

	name := sanitizeFilename(req.FileName)

	key, err := utils.NewEncryptionKey()
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	art := compression.SmartCompress(req.Data, req.ContentType, name, s.opts.Policy)

	sealed, err := crypto.Encrypt(art.Data, key)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	now := s.now().UTC()
	session := &models.TransferSession{
		FileName:       name,
		FileSize:       size,
		FileType:       req.ContentType,
		EncryptionKey:  key,
		StoredSize:     int64(len(sealed)),
		UploadDate:     now,
		ExpirationDate: now.Add(s.opts.TTL),
		OwnerID:        req.OwnerID,
		WasCompressed:  art.Result.Compressed,
	}
	if art.Result.Compressed {
		session.CompressionRatio = art.Result.Ratio
		session.CompressionAlgorithm = art.Result.Algorithm
		session.OriginalFileName = name
		session.OriginalFileSize = size
	}

	if err := s.persist(ctx, session, sealed); err != nil {
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.UploadsTotal.WithLabelValues("ok").Inc()
	metrics.StoredBytesTotal.Add(float64(session.StoredSize))
	if session.WasCompressed {
		metrics.CompressionRatio.Observe(session.CompressionRatio)
	}

	slog.Info("transfer created",
		"code", session.Code,
		"file_name", name,
		"file_size", size,
		"stored_size", session.StoredSize,
		"compressed", session.WasCompressed,
		"ratio", session.CompressionRatio,
		"owner_id", req.OwnerID,
	)

	return &UploadResult{
		Code:                 session.Code,
		Key:                  key,
		ShareLink:            s.ShareLink(session.Code),
		ExpiresAt:            session.ExpirationDate,
		FileName:             name,
		FileSize:             size,
		StoredSize:           session.StoredSize,
		WasCompressed:        session.WasCompressed,
		CompressionRatio:     session.CompressionRatio,
		CompressionAlgorithm: art.Result.Algorithm,
	}, nil
}

// persist allocates a free code, stores the ciphertext and creates the
// session record. A code lost to a concurrent writer is regenerated within
// the attempt budget.
func (s *TransferService) persist(ctx context.Context, session *models.TransferSession, sealed []byte) error {
	for attempt := 1; attempt <= s.opts.MaxCodeAttempts; attempt++ {
		code, err := utils.NewSessionCode()
		if err != nil {
			return err
		}

		taken, err := s.sessions.Exists(ctx, code)
		if err != nil {
			return storeErr(err)
		}
		if taken {
			slog.Warn("session code collision, regenerating", "attempt", attempt)
			continue
		}

		locator, err := s.objects.Put(ctx, models.ObjectKey(code, session.FileName), sealed, ciphertextContentType)
		if err != nil {
			return storeErr(err)
		}

		session.Code = code
		session.Locator = locator

		err = s.sessions.Create(ctx, session)
		if err == nil {
			return nil
		}

		if errors.Is(err, db.ErrCodeTaken) {
			slog.Warn("session code taken during create, regenerating", "attempt", attempt)
			s.discardOrphan(ctx, code, locator)
			continue
		}

		// Clean up the stored object if the session record could not be written.
		if delErr := s.objects.Delete(ctx, locator); delErr != nil {
			slog.Error("failed to remove orphaned object", "locator", locator, "error", delErr)
		}
		return storeErr(err)
	}
	return ErrCodeSpaceExhausted
}

// discardOrphan removes an object written for a code another upload won,
// unless the winner's record points at the same key.
func (s *TransferService) discardOrphan(ctx context.Context, code, locator string) {
	winner, err := s.sessions.Get(ctx, code)
	if err == nil && winner.Locator == locator {
		slog.Warn("object key shared with concurrent upload", "code", code, "locator", locator)
		return
	}
	if err := s.objects.Delete(ctx, locator); err != nil {
		slog.Error("failed to remove orphaned object", "locator", locator, "error", err)
	}
}

// Download validates the session, decrypts its payload and marks it
// downloaded before returning the bytes. Only one concurrent caller can
// succeed for a given code.
func (s *TransferService) Download(ctx context.Context, rawCode string) (*DownloadResult, error) {
	session, err := s.load(ctx, rawCode)
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues("not_found").Inc()
		return nil, err
	}

	now := s.now().UTC()
	switch session.StateAt(now) {
	case models.StateExpired:
		metrics.DownloadsTotal.WithLabelValues("expired").Inc()
		return nil, ErrSessionExpired
	case models.StateDownloaded:
		metrics.DownloadsTotal.WithLabelValues("already_downloaded").Inc()
		return nil, ErrAlreadyDownloaded
	}

	sealed, err := s.objects.Get(ctx, session.Locator)
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues("error").Inc()
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: encrypted file missing", ErrSessionNotFound)
		}
		return nil, storeErr(err)
	}

	data, err := crypto.Decrypt(sealed, session.EncryptionKey)
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues("corrupt").Inc()
		slog.Error("failed to decrypt transfer", "code", session.Code, "error", err)
		return nil, err
	}

	name, contentType := session.FileName, session.FileType
	if session.WasCompressed {
		plain, err := compression.Decompress(data)
		if err != nil {
			// Hand back the gzip bytes rather than failing the download.
			slog.Warn("decompression failed, returning compressed file", "code", session.Code, "error", err)
			name += compression.GzipSuffix
			contentType = compression.GzipMimeType
		} else {
			data = plain
		}
	}

	claimed, err := s.sessions.ClaimDownload(ctx, session.Code, now)
	if err != nil {
		if errors.Is(err, db.ErrClaimConflict) {
			return nil, s.claimConflict(ctx, session.Code)
		}
		metrics.DownloadsTotal.WithLabelValues("error").Inc()
		slog.Error("failed to mark as downloaded", "code", session.Code, "error", err)
		return nil, storeErr(err)
	}

	metrics.DownloadsTotal.WithLabelValues("ok").Inc()
	slog.Info("transfer downloaded", "code", session.Code, "file_name", name, "size", len(data))

	return &DownloadResult{
		FileName:      name,
		ContentType:   contentType,
		Data:          data,
		DownloadCount: claimed.DownloadCount,
	}, nil
}

// claimConflict works out why a claim lost: the session expired, was
// deleted, or another receiver got it first.
func (s *TransferService) claimConflict(ctx context.Context, code string) error {
	current, err := s.sessions.Get(ctx, code)
	switch {
	case errors.Is(err, db.ErrSessionNotFound):
		metrics.DownloadsTotal.WithLabelValues("not_found").Inc()
		return ErrSessionNotFound
	case err != nil:
		metrics.DownloadsTotal.WithLabelValues("error").Inc()
		return storeErr(err)
	case current.StateAt(s.now().UTC()) == models.StateExpired:
		metrics.DownloadsTotal.WithLabelValues("expired").Inc()
		return ErrSessionExpired
	default:
		metrics.DownloadsTotal.WithLabelValues("already_downloaded").Inc()
		return ErrAlreadyDownloaded
	}
}

// GetSession returns the public view of a session in any state.
func (s *TransferService) GetSession(ctx context.Context, rawCode string) (*SessionInfo, error) {
	session, err := s.load(ctx, rawCode)
	if err != nil {
		return nil, err
	}
	info := s.info(session)
	return &info, nil
}

// ListByOwner returns the sessions a user created.
func (s *TransferService) ListByOwner(ctx context.Context, ownerID string) ([]SessionInfo, error) {
	sessions, err := s.sessions.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, storeErr(err)
	}
	return s.infos(sessions), nil
}

// ListAll returns every session. Admin only.
func (s *TransferService) ListAll(ctx context.Context) ([]SessionInfo, error) {
	sessions, err := s.sessions.List(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	return s.infos(sessions), nil
}

// Delete removes a session and its ciphertext. Only the owner or an admin
// may delete.
func (s *TransferService) Delete(ctx context.Context, rawCode, requesterID string, isAdmin bool) error {
	session, err := s.load(ctx, rawCode)
	if err != nil {
		return err
	}
	if !isAdmin && session.OwnerID != requesterID {
		return ErrForbidden
	}
	if err := s.Reclaim(ctx, session); err != nil {
		return err
	}
	slog.Info("transfer deleted", "code", session.Code, "by", requesterID, "admin", isAdmin)
	return nil
}

// AdminDelete force-deletes any session.
func (s *TransferService) AdminDelete(ctx context.Context, rawCode, adminID string) error {
	return s.Delete(ctx, rawCode, adminID, true)
}

// Reclaim deletes the object and the record of a session in parallel.
func (s *TransferService) Reclaim(ctx context.Context, session *models.TransferSession) error {
	errs := utils.RunParallel(
		func() error { return s.objects.Delete(ctx, session.Locator) },
		func() error {
			err := s.sessions.Delete(ctx, session.Code)
			if errors.Is(err, db.ErrSessionNotFound) {
				return nil
			}
			return err
		},
	)

	objErr, recErr := errs[0], errs[1]
	switch {
	case objErr != nil && recErr != nil:
		return storeErr(fmt.Errorf("failed to delete from both storage and database: %w", errors.Join(objErr, recErr)))
	case objErr != nil:
		return storeErr(objErr)
	case recErr != nil:
		return storeErr(recErr)
	}
	return nil
}

// ShareLink builds the receiver URL for a code.
func (s *TransferService) ShareLink(code string) string {
	return strings.TrimRight(s.opts.BaseURL, "/") + "/receive/" + code
}

// MaxFileSize is the configured upload cap.
func (s *TransferService) MaxFileSize() int64 {
	return s.opts.MaxFileSize
}

func (s *TransferService) load(ctx context.Context, rawCode string) (*models.TransferSession, error) {
	code := utils.NormalizeCode(rawCode)
	if !utils.ValidCode(code) {
		return nil, ErrSessionNotFound
	}

	session, err := s.sessions.Get(ctx, code)
	if err != nil {
		if errors.Is(err, db.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, storeErr(err)
	}
	return session, nil
}

func (s *TransferService) info(session *models.TransferSession) SessionInfo {
	return SessionInfo{
		Code:             session.Code,
		FileName:         session.FileName,
		FileSize:         session.FileSize,
		FileSizeHuman:    utils.FormatFileSize(session.FileSize),
		FileType:         session.FileType,
		StoredSize:       session.StoredSize,
		UploadDate:       session.UploadDate,
		ExpirationDate:   session.ExpirationDate,
		Downloaded:       session.Downloaded,
		DownloadCount:    session.DownloadCount,
		State:            session.StateAt(s.now()),
		WasCompressed:    session.WasCompressed,
		CompressionRatio: session.CompressionRatio,
		OwnerID:          session.OwnerID,
		ShareLink:        s.ShareLink(session.Code),
	}
}

func (s *TransferService) infos(sessions []*models.TransferSession) []SessionInfo {
	out := make([]SessionInfo, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, s.info(session))
	}
	return out
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

const maxFilenameLen = 255

// sanitizeFilename strips directory components and limits length without
// splitting a multi-byte character.
func sanitizeFilename(name string) string {
	name = strings.ToValidUTF8(name, "_")
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)

	if len(name) > maxFilenameLen {
		ext := filepath.Ext(name)
		if len(ext) > maxFilenameLen/2 {
			ext = ""
		}
		stem := name[:len(name)-len(ext)]
		name = truncateUTF8(stem, maxFilenameLen-len(ext)) + ext
	}

	if name == "" || name == "." || name == "/" || name == ".." {
		name = "file"
	}
	return name
}

// truncateUTF8 cuts s to at most n bytes on a rune boundary.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
