package samples

import (
	"time"

	"github.com/bryanwahyu/neuroscan/internal/domain/media"
)

// SampleID identifies a library image.
type SampleID string

// Image is a reusable sample in an owner's library.
// Its lifecycle is independent of any scan record that referenced it.
type Image struct {
	ID          SampleID  `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Name        string    `json:"name"`
	ImageRef    media.Ref `json:"imageRef"`
	StoragePath string    `json:"storagePath"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"createdAt"`
}
