package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/bft-labs/escapetime/pkg/fractal"
)

// Request is the wire form of one computation. Pointer fields distinguish
// a missing value from a zero one.
type Request struct {
	CenterX       *float64 `json:"center_x"`
	CenterY       *float64 `json:"center_y"`
	Zoom          *float64 `json:"zoom"`
	MaxIterations *int     `json:"max_iterations"`
	Width         *int     `json:"width"`
	Height        *int     `json:"height"`
}

// errMalformed marks a body that is not a JSON object.
var errMalformed = errors.New("malformed request body")

// RequestError lists fields that are missing or of the wrong type.
type RequestError struct {
	Fields []fractal.FieldError
}

func (e *RequestError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

// fieldsOf extracts the per-field details of a validation failure.
func fieldsOf(err error) ([]fractal.FieldError, bool) {
	var rerr *RequestError
	if errors.As(err, &rerr) {
		return rerr.Fields, true
	}
	var verr *fractal.ValidationError
	if errors.As(err, &verr) {
		return verr.Fields, true
	}
	return nil, false
}

// wireRequest is Request as it arrives on the wire. Integer fields are
// kept raw so whole-number floats like 800.0 can be accepted.
type wireRequest struct {
	CenterX       *float64        `json:"center_x"`
	CenterY       *float64        `json:"center_y"`
	Zoom          *float64        `json:"zoom"`
	MaxIterations json.RawMessage `json:"max_iterations"`
	Width         json.RawMessage `json:"width"`
	Height        json.RawMessage `json:"height"`
}

// decodeRequest reads one JSON request object. Unknown fields are ignored.
func decodeRequest(r io.Reader) (Request, error) {
	var wire wireRequest
	err := json.NewDecoder(r).Decode(&wire)

	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError
	switch {
	case err == nil:
		return wire.request()
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return Request{}, &RequestError{Fields: []fractal.FieldError{{
			Field:  typeErr.Field,
			Value:  typeErr.Value,
			Reason: "must be " + typeName(typeErr.Type.String()),
		}}}
	case errors.As(err, &maxErr):
		return Request{}, err
	case errors.Is(err, io.EOF):
		return Request{}, fmt.Errorf("%w: empty body", errMalformed)
	default:
		return Request{}, fmt.Errorf("%w: %v", errMalformed, err)
	}
}

func (w wireRequest) request() (Request, error) {
	req := Request{CenterX: w.CenterX, CenterY: w.CenterY, Zoom: w.Zoom}
	var fields []fractal.FieldError
	integer := func(name string, raw json.RawMessage) *int {
		n, ok := wholeNumber(raw)
		if !ok {
			fields = append(fields, fractal.FieldError{Field: name, Value: string(raw), Reason: "must be an integer"})
		}
		return n
	}
	req.MaxIterations = integer("max_iterations", w.MaxIterations)
	req.Width = integer("width", w.Width)
	req.Height = integer("height", w.Height)

	if len(fields) > 0 {
		return Request{}, &RequestError{Fields: fields}
	}
	return req, nil
}

// maxIntFloat is 2^63 on 64-bit platforms; every smaller whole float fits an int.
const maxIntFloat = float64(math.MaxInt)

// wholeNumber parses an integer field. Absent and null values are nil.
// Floats are accepted when they have no fractional part.
func wholeNumber(raw json.RawMessage) (*int, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, true
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return &n, true
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, false
	}
	if f != math.Trunc(f) || f >= maxIntFloat || f <= -maxIntFloat {
		return nil, false
	}
	n = int(f)
	return &n, true
}

func typeName(goType string) string {
	switch strings.TrimPrefix(goType, "*") {
	case "float64":
		return "a number"
	case "int":
		return "an integer"
	default:
		return "a valid value"
	}
}

// requestFromQuery builds a Request from URL query parameters.
func requestFromQuery(q url.Values) (Request, error) {
	var req Request
	var fields []fractal.FieldError

	floatParam := func(name string) *float64 {
		s := q.Get(name)
		if s == "" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			fields = append(fields, fractal.FieldError{Field: name, Value: s, Reason: "must be a number"})
			return nil
		}
		return &f
	}
	intParam := func(name string) *int {
		s := q.Get(name)
		if s == "" {
			return nil
		}
		i, err := strconv.Atoi(s)
		if err != nil {
			fields = append(fields, fractal.FieldError{Field: name, Value: s, Reason: "must be an integer"})
			return nil
		}
		return &i
	}

	req.CenterX = floatParam("center_x")
	req.CenterY = floatParam("center_y")
	req.Zoom = floatParam("zoom")
	req.MaxIterations = intParam("max_iterations")
	req.Width = intParam("width")
	req.Height = intParam("height")

	if len(fields) > 0 {
		return Request{}, &RequestError{Fields: fields}
	}
	return req, nil
}

// Params converts req into validated kernel inputs. Width and height
// default to 800x600.
func (req Request) Params() (fractal.ViewParameters, fractal.GridDimensions, error) {
	var missing []fractal.FieldError
	required := func(present bool, name string) {
		if !present {
			missing = append(missing, fractal.FieldError{Field: name, Reason: "field required"})
		}
	}
	required(req.CenterX != nil, "center_x")
	required(req.CenterY != nil, "center_y")
	required(req.Zoom != nil, "zoom")
	required(req.MaxIterations != nil, "max_iterations")
	if len(missing) > 0 {
		return fractal.ViewParameters{}, fractal.GridDimensions{}, &RequestError{Fields: missing}
	}

	view := fractal.ViewParameters{
		CenterX:       *req.CenterX,
		CenterY:       *req.CenterY,
		Zoom:          *req.Zoom,
		MaxIterations: *req.MaxIterations,
	}
	dims := fractal.GridDimensions{Width: fractal.DefaultWidth, Height: fractal.DefaultHeight}
	if req.Width != nil {
		dims.Width = *req.Width
	}
	if req.Height != nil {
		dims.Height = *req.Height
	}

	if err := fractal.Validate(view, dims); err != nil {
		return fractal.ViewParameters{}, fractal.GridDimensions{}, err
	}
	return view, dims, nil
}
