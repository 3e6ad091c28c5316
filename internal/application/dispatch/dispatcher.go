package dispatch

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/bryanwahyu/neuroscan/internal/application/acquisition"
	"github.com/bryanwahyu/neuroscan/internal/domain/inference"
	"github.com/bryanwahyu/neuroscan/internal/domain/scans"
	"github.com/bryanwahyu/neuroscan/internal/logger"
	"github.com/bryanwahyu/neuroscan/internal/metrics"
)

const module = "dispatch"

var tracer = otel.Tracer("neuroscan/dispatch")

// Dispatcher sends acquisitions to the inference service.
type Dispatcher struct {
	Client inference.Client
	Log    logger.ILogger
}

// Analyze never fails: transport and remote errors resolve to scans.Sentinel
// so callers render one shape. One attempt per call; callers may re-invoke.
func (d *Dispatcher) Analyze(ctx context.Context, acq acquisition.Acquisition, ownerID string) scans.Result {
	shape := "raw"
	if acq.ByReference() {
		shape = "by_reference"
	}
	ctx, span := tracer.Start(ctx, "dispatch.Analyze")
	defer span.End()
	span.SetAttributes(attribute.String("shape", shape))

	start := time.Now()
	var (
		resp inference.Response
		err  error
	)
	if acq.ByReference() {
		resp, err = d.Client.ScanSample(ctx, ownerID, acq.SampleID)
	} else {
		resp, err = d.Client.Analyze(ctx, inference.Upload{
			Filename: acq.OriginFilename,
			MimeType: acq.MimeType,
			Data:     acq.Data,
		}, ownerID)
	}

	prov := acq.ScanProvenance()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "inference failed")
		metrics.Analyses.WithLabelValues(shape, "error").Inc()
		d.log().Error(module, "inference failed", map[string]interface{}{
			"shape":    shape,
			"owner":    ownerID,
			"file":     acq.OriginFilename,
			"duration": time.Since(start).String(),
			"error":    err,
		})
		return scans.Sentinel(acq.DisplaySource, prov)
	}

	res := scans.Normalize(resp, acq.DisplaySource, prov)
	metrics.Analyses.WithLabelValues(shape, "ok").Inc()
	d.log().Info(module, "inference complete", map[string]interface{}{
		"shape":      shape,
		"owner":      ownerID,
		"has_tumor":  res.HasTumor,
		"confidence": res.Confidence,
		"duration":   time.Since(start).String(),
	})
	return res
}

func (d *Dispatcher) log() logger.ILogger {
	if d.Log == nil {
		return logger.NewNop()
	}
	return d.Log
}
