package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/bft-labs/escapetime/internal/domain"
	"github.com/bft-labs/escapetime/internal/render"
	"github.com/bft-labs/escapetime/pkg/fractal"
	"github.com/bft-labs/escapetime/pkg/log"
)

type computeResponse struct {
	Data   fractal.IterationGrid `json:"data"`
	Status string                `json:"status"`
}

func (h *handler) compute(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r.Body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	view, dims, err := h.params(req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	grid, err := h.run(r.Context(), view, dims)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, computeResponse{Data: grid, Status: "success"})
}

func (h *handler) image(w http.ResponseWriter, r *http.Request) {
	req, err := requestFromQuery(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	view, dims, err := h.params(req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	grid, err := h.run(r.Context(), view, dims)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := render.EncodePNG(&buf, grid, view.MaxIterations); err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// params validates req and applies the current resource limits.
func (h *handler) params(req Request) (fractal.ViewParameters, fractal.GridDimensions, error) {
	view, dims, err := req.Params()
	if err != nil {
		return view, dims, err
	}
	if err := h.limits().Check(view, dims); err != nil {
		return view, dims, err
	}
	return view, dims, nil
}

func (h *handler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.timeout)
}

func (h *handler) run(ctx context.Context, view fractal.ViewParameters, dims fractal.GridDimensions) (fractal.IterationGrid, error) {
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	grid, err := h.kernel.ComputeContext(ctx, view, dims)
	return grid, computeError(err, h.timeout)
}

// computeError maps a deadline expiry to domain.ErrComputeTimeout.
func computeError(err error, timeout time.Duration) error {
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", domain.ErrComputeTimeout, timeout)
	}
	return err
}

// fail writes the error response for err.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, body := problemFor(err)

	fields := []log.Field{
		log.String("path", r.URL.Path),
		log.Int("status", status),
		log.String("request_id", requestID(r)),
		log.Err(err),
	}
	switch {
	case errors.Is(err, context.Canceled):
		h.logger.Debug("request canceled by client", fields...)
		return
	case status >= 500:
		h.logger.Error("request failed", fields...)
	default:
		h.logger.Debug("request rejected", fields...)
	}
	writeJSON(w, status, body)
}
