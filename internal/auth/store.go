package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/benmeehan/ecobee-ts/internal/models"
	"github.com/benmeehan/ecobee-ts/pkg/file"
)

var (
	ErrNotRegistered     = errors.New("token file does not exist; run ecobeets-setup first")
	ErrAlreadyRegistered = errors.New("token file already exists; remove it to force re-authorization")
	ErrStoreConflict     = errors.New("credential record changed underneath the refresh")
)

// TokenStore persists the credential record. CompareAndSwap only writes when the
// stored record still matches old, which leaves room for a locking or key-value
// backed implementation.
type TokenStore interface {
	Exists(ctx context.Context) (bool, error)
	Load(ctx context.Context) (models.CredentialRecord, error)
	Create(ctx context.Context, record models.CredentialRecord) error
	CompareAndSwap(ctx context.Context, old, updated models.CredentialRecord) error
}

// FileTokenStore keeps the credential record as a JSON document on local disk.
type FileTokenStore struct {
	path    string
	fileOps file.FileOperations
}

// NewFileTokenStore returns a store for the token file at path.
func NewFileTokenStore(path string, fileOps file.FileOperations) *FileTokenStore {
	return &FileTokenStore{path: path, fileOps: fileOps}
}

// Path returns the location of the token file.
func (s *FileTokenStore) Path() string {
	return s.path
}

func (s *FileTokenStore) Exists(ctx context.Context) (bool, error) {
	return s.fileOps.IsFileExists(s.path)
}

// Load reads the whole credential record from disk.
func (s *FileTokenStore) Load(ctx context.Context) (models.CredentialRecord, error) {
	var record models.CredentialRecord

	exists, err := s.fileOps.IsFileExists(s.path)
	if err != nil {
		return record, fmt.Errorf("failed to stat token file %s: %w", s.path, err)
	}
	if !exists {
		return record, fmt.Errorf("%w: %s", ErrNotRegistered, s.path)
	}

	if err := s.fileOps.ReadJsonFile(s.path, &record); err != nil {
		return record, fmt.Errorf("failed to parse token file %s: %w", s.path, err)
	}
	return record, nil
}

// Create writes the first record. It refuses to overwrite an existing file.
func (s *FileTokenStore) Create(ctx context.Context, record models.CredentialRecord) error {
	exists, err := s.fileOps.IsFileExists(s.path)
	if err != nil {
		return fmt.Errorf("failed to stat token file %s: %w", s.path, err)
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, s.path)
	}
	return s.fileOps.WriteJsonFile(s.path, record)
}

// CompareAndSwap replaces the stored record with updated if the stored refresh
// token is still the one old was built from.
func (s *FileTokenStore) CompareAndSwap(ctx context.Context, old, updated models.CredentialRecord) error {
	current, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if current.RefreshToken != old.RefreshToken {
		return ErrStoreConflict
	}
	if err := s.fileOps.WriteJsonFile(s.path, updated); err != nil {
		return fmt.Errorf("failed to write token file %s: %w", s.path, err)
	}
	return nil
}
