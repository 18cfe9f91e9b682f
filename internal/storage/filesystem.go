package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// FileSystem stores objects as files under basePath. Signed URLs point back
// at the API's file route with a short-lived token in the query string.
type FileSystem struct {
	basePath  string
	publicURL string
	secret    []byte
	logger    *slog.Logger
}

// FileClaims is the payload of a filesystem signed-URL token.
type FileClaims struct {
	Path         string `json:"path"`
	Attachment   bool   `json:"attachment,omitempty"`
	DownloadName string `json:"download_name,omitempty"`
	jwt.RegisteredClaims
}

// NewFileSystem resolves basePath to an absolute directory and creates it.
// publicURL is the absolute or root-relative prefix of the file route, e.g. "/api/files".
func NewFileSystem(basePath, publicURL string, secret []byte, logger *slog.Logger) (*FileSystem, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base_path required")
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("signing secret required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve base_path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return nil, fmt.Errorf("create base_path: %w", err)
	}

	return &FileSystem{
		basePath:  absPath,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		secret:    secret,
		logger:    logger.With("system", "storage"),
	}, nil
}

func (f *FileSystem) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	path, err := f.fullPath(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	f.logger.Debug("object stored", "key", key, "bytes", len(data), "content_type", contentType)
	return nil
}

func (f *FileSystem) Remove(ctx context.Context, keys []string) error {
	var errs []error
	for _, key := range keys {
		if err := f.remove(key); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func (f *FileSystem) remove(key string) error {
	path, err := f.fullPath(key)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if errors.Is(err, fs.ErrPermission) {
			return ErrPermissionDenied
		}
		return fmt.Errorf("remove file: %w", err)
	}

	if dir != f.basePath && strings.HasPrefix(dir, f.basePath) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			f.logger.Warn("failed to read directory for cleanup", "dir", dir, "error", err)
			return nil
		}
		if len(entries) == 0 {
			if err := os.Remove(dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
				f.logger.Warn("failed to remove empty directory", "dir", dir, "error", err)
			}
		}
	}
	return nil
}

func (f *FileSystem) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := f.fullPath(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		if errors.Is(err, fs.ErrPermission) {
			return nil, ErrPermissionDenied
		}
		return nil, fmt.Errorf("open file: %w", err)
	}
	return file, nil
}

func (f *FileSystem) SignedURL(ctx context.Context, key string, ttl time.Duration, opts SignOptions) (string, error) {
	if _, err := f.fullPath(key); err != nil {
		return "", err
	}
	if ttl <= 0 {
		ttl = DefaultSignedURLTTL
	}

	now := time.Now()
	claims := FileClaims{
		Path:         key,
		Attachment:   opts.Attachment,
		DownloadName: opts.DownloadName,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(f.secret)
	if err != nil {
		return "", fmt.Errorf("sign url: %w", err)
	}

	return f.publicURL + "/" + escapePath(key) + "?token=" + url.QueryEscape(token), nil
}

// VerifyToken checks a signed-URL token for key and returns its claims.
func (f *FileSystem) VerifyToken(key, token string) (FileClaims, error) {
	var claims FileClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return f.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return FileClaims{}, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	if claims.Path != key {
		return FileClaims{}, ErrPermissionDenied
	}
	return claims, nil
}

func (f *FileSystem) fullPath(key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}

	cleaned := filepath.Clean(key)
	if strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", ErrInvalidKey
	}

	fullPath := filepath.Join(f.basePath, cleaned)
	if !strings.HasPrefix(fullPath, f.basePath+string(os.PathSeparator)) {
		return "", ErrInvalidKey
	}
	return fullPath, nil
}

func escapePath(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
