package payload

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gophlicense/internal/common"
	"github.com/dmitrijs2005/gophlicense/internal/protocol"
	"github.com/dmitrijs2005/gophlicense/internal/server/metrics"
)

// Deliverer loads the payload for every delivery, so replacing the files
// takes effect on the next login.
type Deliverer struct {
	source      Source
	imagePath   string
	offsetsPath string
	metrics     *metrics.Metrics
}

func NewDeliverer(source Source, imagePath, offsetsPath string, m *metrics.Metrics) *Deliverer {
	if m == nil {
		m = metrics.NewUnregistered()
	}
	return &Deliverer{
		source:      source,
		imagePath:   imagePath,
		offsetsPath: offsetsPath,
		metrics:     m,
	}
}

// Load fetches and parses both parts.
func (d *Deliverer) Load(ctx context.Context) (*protocol.Payload, error) {
	image, err := d.source.Fetch(ctx, d.imagePath)
	if err != nil {
		return nil, fmt.Errorf("load image: %w", err)
	}
	raw, err := d.source.Fetch(ctx, d.offsetsPath)
	if err != nil {
		return nil, fmt.Errorf("load offsets: %w", err)
	}
	offsets, err := ParseOffsets(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	return &protocol.Payload{Image: image, Offsets: offsets}, nil
}

// Deliver loads the payload and writes it to w.
func (d *Deliverer) Deliver(ctx context.Context, w io.Writer) error {
	p, err := d.Load(ctx)
	if err != nil {
		d.metrics.PayloadDeliveries.WithLabelValues("load_error").Inc()
		return err
	}

	n, err := protocol.WritePayload(w, p)
	d.metrics.PayloadBytes.Add(float64(n))
	if err != nil {
		d.metrics.PayloadDeliveries.WithLabelValues("write_error").Inc()
		return fmt.Errorf("%w: send payload: %w", common.ErrTransport, err)
	}

	d.metrics.PayloadDeliveries.WithLabelValues("ok").Inc()
	return nil
}
