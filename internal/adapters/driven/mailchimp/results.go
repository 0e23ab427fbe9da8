package mailchimp

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
	"github.com/custodia-labs/chimp-sync/internal/metrics"
	"github.com/custodia-labs/chimp-sync/internal/tracing"
)

// maxResultsSize caps the decompressed size of a results archive
const maxResultsSize = 256 << 20

// BatchResults downloads the results archive of a finished batch.
// The archive is a gzip-compressed tar of JSON files, each holding an array
// of operation results. The URL is pre-signed, so no credentials are sent.
func (c *Client) BatchResults(ctx context.Context, resultsURL string) ([]domain.OperationResult, error) {
	if resultsURL == "" {
		return nil, nil
	}

	ctx, span := tracing.Tracer().Start(ctx, "mailchimp.batch_results")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resultsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create results request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RemoteRequests.WithLabelValues(http.MethodGet, "error").Inc()
		span.RecordError(err)
		return nil, fmt.Errorf("%w: download batch results: %v", domain.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()
	metrics.RemoteRequests.WithLabelValues(http.MethodGet, statusClass(resp.StatusCode)).Inc()

	if resp.StatusCode >= 400 {
		return nil, decodeRemoteError(resp)
	}

	results, err := ParseResults(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return results, nil
}

// ParseResults reads every JSON file of a gzip-compressed tar archive
func ParseResults(r io.Reader) ([]domain.OperationResult, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open results archive: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(io.LimitReader(gz, maxResultsSize))
	var results []domain.OperationResult
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read results archive: %w", err)
		}
		if header.Typeflag != tar.TypeReg || !strings.HasSuffix(header.Name, ".json") {
			continue
		}

		var chunk []domain.OperationResult
		if err := json.NewDecoder(tr).Decode(&chunk); err != nil {
			return nil, fmt.Errorf("decode results file %s: %w", header.Name, err)
		}
		results = append(results, chunk...)
	}
	return results, nil
}
