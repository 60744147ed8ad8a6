package repository

import (
	"context"
	"errors"
	"io"

	"github.com/rehber/rehber/internal/models"
)

var (
	// ErrCorruptStore is returned when db.json exists but cannot be decoded.
	ErrCorruptStore = errors.New("repository: contact store is corrupt")
	// ErrInvalidImagePath is returned for image URLs outside the image directory.
	ErrInvalidImagePath = errors.New("repository: invalid image path")
)

// ContactRepository persists the whole contact list as one document.
type ContactRepository interface {
	// Load returns the stored contacts, newest first. A missing store is empty.
	Load(ctx context.Context) ([]models.Contact, error)
	// Save replaces the stored list.
	Save(ctx context.Context, contacts []models.Contact) error
	// Backup snapshots the current store and returns the snapshot path.
	Backup(ctx context.Context) (string, error)
	// Invalidate drops any cached copy so the next Load hits disk.
	Invalidate()
	// Path is the location of the backing file.
	Path() string
}

// ImageStore keeps contact photos on disk and hands out their public URLs.
type ImageStore interface {
	Save(ctx context.Context, name, ext string, r io.Reader) (string, error)
	Remove(ctx context.Context, url string) error
	Dir() string
}
