package acquisition

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/bryanwahyu/neuroscan/internal/domain/media"
	"github.com/bryanwahyu/neuroscan/internal/domain/samples"
	"github.com/bryanwahyu/neuroscan/internal/domain/scans"
	"github.com/bryanwahyu/neuroscan/internal/logger"
)

const module = "acquisition"

// WarnMayNotDisplay flags an image that could not be decoded for preview.
// Acquisition still succeeds; analysis may still work.
const WarnMayNotDisplay = "image may not display correctly"

// Provenance of an acquisition.
type Provenance string

const (
	ProvenanceUpload Provenance = "upload"
	ProvenanceSample Provenance = "sample"
)

// Source is what the user picked: a LocalFile or a SampleRef.
type Source interface{ source() }

// LocalFile is an uploaded file.
type LocalFile struct {
	Filename string
	MimeType string
	Data     []byte
}

// SampleRef points at an image in the owner's sample library.
type SampleRef struct {
	OwnerID  string
	SampleID samples.SampleID
}

func (LocalFile) source() {}
func (SampleRef) source() {}

// Acquisition is a previewable, analyzable image.
// Data is nil when a sample is analyzed by reference.
type Acquisition struct {
	Data           []byte     `json:"-"`
	DisplaySource  media.Ref  `json:"displaySource"`
	MimeType       string     `json:"mimeType"`
	OriginFilename string     `json:"originFilename"`
	Provenance     Provenance `json:"provenance"`
	SampleID       string     `json:"sampleId,omitempty"`
	Warning        string     `json:"warning,omitempty"`
}

// ByReference reports whether the acquisition carries no bytes and must be scanned by sample id.
func (a Acquisition) ByReference() bool {
	return a.Provenance == ProvenanceSample && len(a.Data) == 0
}

// ScanProvenance converts to the provenance stored on results.
func (a Acquisition) ScanProvenance() scans.Provenance {
	if a.Provenance != ProvenanceSample {
		return scans.Provenance{}
	}
	return scans.Provenance{FromSample: true, SampleID: a.SampleID}
}

// SampleLookup resolves library entries.
type SampleLookup interface {
	Get(ctx context.Context, owner string, id samples.SampleID) (*samples.Image, error)
}

// Acquirer resolves sources into acquisitions.
type Acquirer struct {
	Samples SampleLookup
	Media   media.Store
	// ScanByReference skips fetching sample bytes; the dispatcher scans by sample id.
	ScanByReference bool
	Log             logger.ILogger
}

// Acquire never changes any state on failure.
func (a *Acquirer) Acquire(ctx context.Context, src Source) (Acquisition, error) {
	switch s := src.(type) {
	case LocalFile:
		return a.fromLocal(s)
	case SampleRef:
		return a.fromSample(ctx, s)
	default:
		return Acquisition{}, &Error{Reason: ReasonInvalidType, Err: fmt.Errorf("unsupported source %T", src)}
	}
}

func (a *Acquirer) fromLocal(f LocalFile) (Acquisition, error) {
	if len(f.Data) == 0 {
		return Acquisition{}, &Error{Reason: ReasonUnreadable, Err: errors.New("empty file")}
	}
	declared := baseMime(f.MimeType)
	if declared == "application/octet-stream" {
		declared = ""
	}
	if declared != "" && !isImage(declared) {
		return Acquisition{}, &Error{Reason: ReasonInvalidType, Err: fmt.Errorf("declared type %s", declared)}
	}
	detected := baseMime(mimetype.Detect(f.Data).String())
	mt := detected
	if !isImage(mt) {
		if declared == "" {
			return Acquisition{}, &Error{Reason: ReasonInvalidType, Err: fmt.Errorf("detected type %s", detected)}
		}
		// trust the declared image type; the display chain will flag it
		mt = declared
	}

	display, via, err := media.Resolve(
		media.Resolver{Name: "direct", Resolve: func() (media.Ref, error) { return direct(mt, f.Data) }},
		media.Resolver{Name: "reencode", Resolve: func() (media.Ref, error) { return reencode(f.Data) }},
		media.Present("as-is", media.DataURI(mt, f.Data)),
	)
	if err != nil {
		return Acquisition{}, &Error{Reason: ReasonUnreadable, Err: err}
	}
	acq := Acquisition{
		Data:           f.Data,
		DisplaySource:  display,
		MimeType:       mt,
		OriginFilename: EnsureExtension(f.Filename, mt),
		Provenance:     ProvenanceUpload,
	}
	if via == "as-is" {
		acq.Warning = WarnMayNotDisplay
		a.log().Warn(module, "preview fallback", map[string]interface{}{"file": acq.OriginFilename, "mime": mt})
	}
	return acq, nil
}

func (a *Acquirer) fromSample(ctx context.Context, ref SampleRef) (Acquisition, error) {
	if ref.OwnerID == "" || ref.SampleID == "" {
		return Acquisition{}, &Error{Reason: ReasonSampleNotFound, Err: errors.New("owner and sample id required")}
	}
	img, err := a.Samples.Get(ctx, ref.OwnerID, ref.SampleID)
	if err != nil {
		if errors.Is(err, samples.ErrNotFound) {
			return Acquisition{}, &Error{Reason: ReasonSampleNotFound, Err: err}
		}
		return Acquisition{}, &Error{Reason: ReasonFetchFailed, Err: err}
	}

	if a.ScanByReference {
		return Acquisition{
			DisplaySource:  img.ImageRef,
			MimeType:       img.ContentType,
			OriginFilename: img.Name,
			Provenance:     ProvenanceSample,
			SampleID:       string(img.ID),
		}, nil
	}

	data, err := a.Media.Get(ctx, img.StoragePath)
	if err != nil {
		return Acquisition{}, &Error{Reason: ReasonFetchFailed, Err: err}
	}
	acq, err := a.fromLocal(LocalFile{Filename: path.Base(img.StoragePath), MimeType: img.ContentType, Data: data})
	if err != nil {
		return Acquisition{}, err
	}
	acq.Provenance = ProvenanceSample
	acq.SampleID = string(img.ID)
	return acq, nil
}

// browsers render these without conversion
var displayable = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
}

func direct(mt string, data []byte) (media.Ref, error) {
	if !displayable[mt] {
		return "", fmt.Errorf("direct: %s not displayable", mt)
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("direct: %w", err)
	}
	return media.DataURI(mt, data), nil
}

func reencode(data []byte) (media.Ref, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("reencode: %w", err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return "", fmt.Errorf("reencode: %w", err)
	}
	return media.DataURI("image/jpeg", buf.Bytes()), nil
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/bmp":  ".bmp",
	"image/tiff": ".tif",
	"image/webp": ".webp",
}

// EnsureExtension appends an image extension when the filename has none.
func EnsureExtension(filename, mt string) string {
	name := strings.TrimSpace(filename)
	if name == "" {
		name = "scan"
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".bmp", ".tif", ".tiff", ".gif", ".webp":
		return name
	}
	if ext, ok := extensions[mt]; ok {
		return name + ext
	}
	return name + ".jpg"
}

func baseMime(mt string) string {
	mt = strings.ToLower(strings.TrimSpace(mt))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if mt == "image/x-ms-bmp" {
		return "image/bmp"
	}
	return mt
}

func isImage(mt string) bool { return strings.HasPrefix(mt, "image/") }

func (a *Acquirer) log() logger.ILogger {
	if a.Log == nil {
		return logger.NewNop()
	}
	return a.Log
}
