package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/bft-labs/escapetime/pkg/fractal"
	"github.com/bft-labs/escapetime/pkg/log"
)

type streamDone struct {
	Status string `json:"status"`
	Rows   int    `json:"rows"`
}

// stream serves one computation over a websocket. The client sends a single
// request object; the server answers with one {"row":r,"data":[...]} text
// message per row in row order, then a completion message.
func (h *handler) stream(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originHosts(h.origins),
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", log.String("request_id", requestID(r)), log.Err(err))
		return
	}
	defer c.CloseNow()
	c.SetReadLimit(h.maxBody)

	ctx := r.Context()
	typ, data, err := c.Read(ctx)
	if err != nil {
		return
	}
	if typ != websocket.MessageText {
		h.reject(ctx, c, r, &RequestError{Fields: []fractal.FieldError{{Field: "body", Reason: "must be a JSON request object"}}})
		return
	}
	req, err := decodeRequest(bytes.NewReader(data))
	if errors.Is(err, errMalformed) {
		err = &RequestError{Fields: []fractal.FieldError{{Field: "body", Reason: "must be a JSON request object"}}}
	}
	if err != nil {
		h.reject(ctx, c, r, err)
		return
	}

	view, dims, err := h.params(req)
	if err != nil {
		h.reject(ctx, c, r, err)
		return
	}

	runCtx, cancel := h.withTimeout(ctx)
	defer cancel()

	buf := make([]byte, 0, 16+dims.Width*4)
	err = h.kernel.Stream(runCtx, view, dims, func(row int, counts []int) error {
		buf = append(buf[:0], `{"row":`...)
		buf = strconv.AppendInt(buf, int64(row), 10)
		buf = append(buf, `,"data":`...)
		buf = fractal.AppendRowJSON(buf, counts)
		buf = append(buf, '}')
		return c.Write(runCtx, websocket.MessageText, buf)
	})
	if err != nil {
		err = computeError(err, h.timeout)
		status, body := problemFor(err)
		if status == http.StatusServiceUnavailable {
			_ = wsjson.Write(ctx, c, body)
			c.Close(websocket.StatusTryAgainLater, "computation timed out")
			return
		}
		h.logger.Debug("websocket stream aborted", log.String("request_id", requestID(r)), log.Err(err))
		return
	}

	if err := wsjson.Write(ctx, c, streamDone{Status: "success", Rows: dims.Height}); err != nil {
		return
	}
	c.Close(websocket.StatusNormalClosure, "")
}

// reject reports an invalid request and closes with a policy violation.
func (h *handler) reject(ctx context.Context, c *websocket.Conn, r *http.Request, err error) {
	h.logger.Debug("websocket request rejected", log.String("request_id", requestID(r)), log.Err(err))
	_, body := problemFor(err)
	_ = wsjson.Write(ctx, c, body)
	c.Close(websocket.StatusPolicyViolation, "invalid request")
}

// originHosts turns allowed origins into the host patterns websocket.Accept
// matches against. The request's own host is always accepted.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			hosts = append(hosts, "*")
			continue
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		hosts = append(hosts, u.Host)
	}
	return hosts
}
