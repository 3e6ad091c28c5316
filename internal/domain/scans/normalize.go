package scans

import (
	"math"

	"github.com/bryanwahyu/neuroscan/internal/domain/inference"
	"github.com/bryanwahyu/neuroscan/internal/domain/media"
)

// NormalizeConfidence maps a fraction or a percentage into [0,1].
// Values above 1 are read as percentages, then clamped.
func NormalizeConfidence(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	if x > 1 {
		x /= 100
	}
	return math.Max(0, math.Min(1, x))
}

// Normalize converts an inference payload into a canonical Result.
// local is the acquisition's display source, used when the payload carries no original image.
func Normalize(resp inference.Response, local media.Ref, prov Provenance) Result {
	res := Result{
		Findings: Findings{
			HasTumor:   resp.HasTumor,
			Confidence: NormalizeConfidence(resp.Confidence),
		},
		Provenance: mergeProvenance(prov, resp),
	}
	if resp.HasTumor {
		res.TumorType = resp.TumorType
		res.TumorSize = resp.TumorSize
		res.TumorLocation = resp.TumorLocation
	}

	inline := media.Ref(resp.ProcessedImageData)
	if inline != "" && inline.Kind() != media.KindInline {
		// bare base64 payload, the service always renders JPEG
		inline = media.Ref("data:image/jpeg;base64," + resp.ProcessedImageData)
	}
	processed := media.Ref(resp.ProcessedImageURL)
	original := media.Ref(resp.OriginalImageURL)

	res.ImageRef = firstRef(
		media.Present("original", original),
		media.Present("local", local),
	)
	res.ProcessedImageRef, _, _ = media.Resolve(
		media.Present("inline", inline),
		media.Present("processed", processed),
	)
	res.DisplayRef = firstRef(
		media.Present("inline", inline),
		media.Present("processed", processed),
		media.Present("original", original),
		media.Present("local", local),
	)
	return res
}

// Sentinel is the uniform result for a failed analysis.
func Sentinel(local media.Ref, prov Provenance) Result {
	ref := firstRef(media.Present("local", local))
	return Result{
		ImageRef:   ref,
		DisplayRef: ref,
		Provenance: prov,
		Error:      true,
	}
}

func firstRef(chain ...media.Resolver) media.Ref {
	chain = append(chain, media.Present("placeholder", media.Placeholder))
	ref, _, _ := media.Resolve(chain...)
	return ref
}

func mergeProvenance(p Provenance, resp inference.Response) Provenance {
	if resp.FromSample {
		p.FromSample = true
	}
	if p.SampleID == "" && resp.SampleID != "" {
		p.SampleID = resp.SampleID
	}
	return p
}
