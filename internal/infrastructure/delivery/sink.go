package delivery

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"strconv"
)

// ContentTypePDF is the media type of every receipt.
const ContentTypePDF = "application/pdf"

// Sink is where a saved receipt ends up. Save returning is the sink's
// acknowledgement that it is done with data.
type Sink interface {
	Save(ctx context.Context, fileName string, data []byte) error
	Name() string
}

// Locator is implemented by sinks that can say where a saved receipt can
// be fetched from afterwards.
type Locator interface {
	Locate(ctx context.Context, fileName string) (string, error)
}

// ResponseSink streams the receipt to an HTTP client as an attachment.
type ResponseSink struct {
	W http.ResponseWriter
}

// Save writes headers and body.
func (s ResponseSink) Save(_ context.Context, fileName string, data []byte) error {
	h := s.W.Header()
	h.Set("Content-Type", ContentTypePDF)
	h.Set("Content-Length", strconv.Itoa(len(data)))
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
	h.Set("Cache-Control", "no-store")
	s.W.WriteHeader(http.StatusOK)

	if _, err := s.W.Write(data); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

// Name identifies the sink in logs and metrics.
func (ResponseSink) Name() string { return "http" }
