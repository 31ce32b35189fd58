package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	"image/png"
	"path"
	"regexp"
	"strings"
	"time"

	"forum/internal/featureflags"
	"forum/internal/models"
	"forum/internal/observability"
	"forum/internal/storage"

	_ "golang.org/x/image/bmp" // Register BMP decoder
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultAvatarMaxBytes     = 2 << 20
	DefaultAttachmentMaxBytes = 10 << 20
	// AvatarMaxSide bounds stored JPEG and PNG avatars; larger ones are scaled down.
	AvatarMaxSide = 512
	JPEGQuality   = 85
	timestampFmt  = "20060102_150405"
)

var (
	imageExtensions      = []string{"jpg", "jpeg", "png", "gif", "webp", "bmp"}
	documentExtensions   = []string{"pdf", "doc", "docx", "txt", "md", "rtf"}
	attachmentExtensions = append(append([]string{}, imageExtensions...), documentExtensions...)
	unsafeNameChars      = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

// UploadFile is one file received from a client.
type UploadFile struct {
	Filename string
	Content  []byte
}

// UploadFailure explains why one file of a batch was not stored.
type UploadFailure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// AttachmentResult reports a batch upload. Failures do not stop the batch.
type AttachmentResult struct {
	Post     *models.Post    `json:"post"`
	Uploaded []string        `json:"uploaded"`
	Failed   []UploadFailure `json:"failed"`
}

type UploadService struct {
	files              storage.FileStore
	users              *UserService
	posts              *PostService
	flags              *featureflags.Manager
	avatarMaxBytes     int64
	attachmentMaxBytes int64
	now                func() time.Time
}

func NewUploadService(
	files storage.FileStore,
	users *UserService,
	posts *PostService,
	flags *featureflags.Manager,
	avatarMaxBytes, attachmentMaxBytes int64,
) *UploadService {
	if avatarMaxBytes <= 0 {
		avatarMaxBytes = DefaultAvatarMaxBytes
	}
	if attachmentMaxBytes <= 0 {
		attachmentMaxBytes = DefaultAttachmentMaxBytes
	}
	return &UploadService{
		files:              files,
		users:              users,
		posts:              posts,
		flags:              flags,
		avatarMaxBytes:     avatarMaxBytes,
		attachmentMaxBytes: attachmentMaxBytes,
		now:                time.Now,
	}
}

// UploadAvatar stores a new avatar for username, replaces the profile URL and
// deletes the previous avatar file.
func (s *UploadService) UploadAvatar(ctx context.Context, username string, f UploadFile) (url string, err error) {
	defer func() { recordUpload("avatar", err) }()

	user, err := actor(ctx, s.users.userRepo, username)
	if err != nil {
		return "", err
	}
	ext, err := checkFile(f, s.avatarMaxBytes, imageExtensions, "Avatar")
	if err != nil {
		return "", err
	}
	content, err := prepareAvatar(f.Content)
	if err != nil {
		return "", err
	}

	key := path.Join("avatars", fmt.Sprintf("avatar_%s_%s.%s", user.Username, s.now().Format(timestampFmt), ext))
	url, err = s.files.Put(ctx, key, bytes.NewReader(content))
	if err != nil {
		return "", models.NewInternalError(err)
	}

	previous, err := s.users.SetAvatar(ctx, user.Username, url)
	if err != nil {
		_ = s.files.Delete(ctx, key)
		return "", err
	}
	if oldKey, ok := s.files.KeyFor(previous); ok && oldKey != key {
		_ = s.files.Delete(ctx, oldKey)
	}
	return url, nil
}

// UploadAttachments stores files on a post the user authored. Files that
// fail validation are reported in the result; the rest are attached.
func (s *UploadService) UploadAttachments(ctx context.Context, postID uint, username string, files []UploadFile) (*AttachmentResult, error) {
	user, err := actor(ctx, s.users.userRepo, username)
	if err != nil {
		return nil, err
	}
	if !s.flags.Enabled(featureflags.Attachments, user.ID) {
		return nil, models.NewForbiddenError("Attachments are disabled")
	}
	if err := s.posts.CanAttach(ctx, postID, username); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, models.NewValidationError("No files uploaded")
	}

	result := &AttachmentResult{Uploaded: []string{}, Failed: []UploadFailure{}}
	stamp := s.now().Format(timestampFmt)
	for _, f := range files {
		url, err := s.storeAttachment(ctx, postID, user.Username, stamp, f)
		recordUpload("attachment", err)
		if err != nil {
			result.Failed = append(result.Failed, UploadFailure{Filename: f.Filename, Error: err.Error()})
			continue
		}
		result.Uploaded = append(result.Uploaded, url)
	}

	if len(result.Uploaded) == 0 {
		post, err := s.posts.Get(ctx, postID)
		if err != nil {
			return nil, err
		}
		result.Post = post
		return result, nil
	}
	post, err := s.posts.AddAttachments(ctx, postID, username, result.Uploaded)
	if err != nil {
		return nil, err
	}
	result.Post = post
	return result, nil
}

func (s *UploadService) storeAttachment(ctx context.Context, postID uint, username, stamp string, f UploadFile) (string, error) {
	ext, err := checkFile(f, s.attachmentMaxBytes, attachmentExtensions, "Attachment")
	if err != nil {
		return "", err
	}
	if isImageExt(ext) {
		if _, _, err := image.DecodeConfig(bytes.NewReader(f.Content)); err != nil {
			return "", models.NewValidationError("Invalid image file")
		}
	}
	base := strings.TrimSuffix(path.Base(strings.ReplaceAll(f.Filename, `\`, "/")), path.Ext(f.Filename))
	base = unsafeNameChars.ReplaceAllString(base, "_")
	key := path.Join("attachments", fmt.Sprintf("%s_%d_%s_%s.%s", base, postID, username, stamp, ext))
	url, err := s.files.Put(ctx, key, bytes.NewReader(f.Content))
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return url, nil
}

// checkFile validates size and extension and returns the lowercase extension.
func checkFile(f UploadFile, maxBytes int64, allowed []string, kind string) (string, error) {
	if len(f.Content) == 0 {
		return "", models.NewValidationError(kind + " file cannot be empty")
	}
	if int64(len(f.Content)) > maxBytes {
		return "", models.NewValidationError(fmt.Sprintf("%s file size cannot exceed %s", kind, formatBytes(maxBytes)))
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(f.Filename), "."))
	for _, a := range allowed {
		if ext == a {
			return ext, nil
		}
	}
	return "", models.NewValidationError(fmt.Sprintf("File type not allowed. Supported types: %s", strings.Join(allowed, ", ")))
}

func isImageExt(ext string) bool {
	for _, e := range imageExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// prepareAvatar checks that content decodes as an image and scales JPEG and
// PNG avatars down to AvatarMaxSide.
func prepareAvatar(content []byte) ([]byte, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return nil, models.NewValidationError("Avatar must be a valid image")
	}
	if cfg.Width <= AvatarMaxSide && cfg.Height <= AvatarMaxSide {
		return content, nil
	}
	if format != "jpeg" && format != "png" {
		return content, nil
	}

	src, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, models.NewValidationError("Avatar must be a valid image")
	}
	dst := resizeToFit(src, AvatarMaxSide)

	var buf bytes.Buffer
	if format == "png" {
		err = png.Encode(&buf, dst)
	} else {
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: JPEGQuality})
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return buf.Bytes(), nil
}

func resizeToFit(src image.Image, maxSide int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w >= h {
		h = max(1, h*maxSide/w)
		w = maxSide
	} else {
		w = max(1, w*maxSide/h)
		h = maxSide
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}

func formatBytes(n int64) string {
	if n >= 1<<20 && n%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	if n >= 1<<10 && n%(1<<10) == 0 {
		return fmt.Sprintf("%dKB", n>>10)
	}
	return fmt.Sprintf("%d bytes", n)
}

func recordUpload(kind string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case models.StatusFor(err) < 500:
		result = "rejected"
	default:
		result = "error"
	}
	observability.UploadsTotal.WithLabelValues(kind, result).Inc()
}
