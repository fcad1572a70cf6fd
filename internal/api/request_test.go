package api

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/bft-labs/escapetime/pkg/fractal"
)

func TestRequest_Params(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	i := func(v int) *int { return &v }

	t.Run("applies default dimensions", func(t *testing.T) {
		req := Request{CenterX: f(-0.5), CenterY: f(0), Zoom: f(1), MaxIterations: i(50)}
		view, dims, err := req.Params()
		if err != nil {
			t.Fatalf("Params() error = %v", err)
		}
		if dims.Width != 800 || dims.Height != 600 {
			t.Errorf("dims = %v, want 800x600", dims)
		}
		if view.CenterX != -0.5 || view.MaxIterations != 50 {
			t.Errorf("view = %+v", view)
		}
	})

	t.Run("explicit zero iterations is not missing", func(t *testing.T) {
		req := Request{CenterX: f(0), CenterY: f(0), Zoom: f(1), MaxIterations: i(0), Width: i(2), Height: i(3)}
		_, dims, err := req.Params()
		if err != nil {
			t.Fatalf("Params() error = %v", err)
		}
		if dims != (fractal.GridDimensions{Width: 2, Height: 3}) {
			t.Errorf("dims = %v, want 2x3", dims)
		}
	})

	t.Run("reports missing fields", func(t *testing.T) {
		_, _, err := Request{Zoom: f(1)}.Params()
		var rerr *RequestError
		if !errors.As(err, &rerr) {
			t.Fatalf("Params() error = %v, want *RequestError", err)
		}
		if len(rerr.Fields) != 3 {
			t.Errorf("fields = %+v, want center_x, center_y and max_iterations", rerr.Fields)
		}
		if !strings.Contains(err.Error(), "center_x=: field required") {
			t.Errorf("Error() = %q", err)
		}
	})

	t.Run("validates values", func(t *testing.T) {
		req := Request{CenterX: f(0), CenterY: f(0), Zoom: f(-1), MaxIterations: i(10)}
		_, _, err := req.Params()
		if !errors.Is(err, fractal.ErrInvalidParameters) {
			t.Fatalf("Params() error = %v, want ErrInvalidParameters", err)
		}
	})
}

func TestRequestFromQuery(t *testing.T) {
	q := url.Values{}
	q.Set("center_x", "-0.75")
	q.Set("center_y", "0.1")
	q.Set("zoom", "2")
	q.Set("max_iterations", "300")
	q.Set("width", "64")

	req, err := requestFromQuery(q)
	if err != nil {
		t.Fatalf("requestFromQuery() error = %v", err)
	}
	view, dims, err := req.Params()
	if err != nil {
		t.Fatalf("Params() error = %v", err)
	}
	want := fractal.ViewParameters{CenterX: -0.75, CenterY: 0.1, Zoom: 2, MaxIterations: 300}
	if view != want {
		t.Errorf("view = %+v, want %+v", view, want)
	}
	if dims.Width != 64 || dims.Height != fractal.DefaultHeight {
		t.Errorf("dims = %v", dims)
	}
}

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"valid", `{"center_x":1,"center_y":2,"zoom":3,"max_iterations":4}`, nil},
		{"unknown fields ignored", `{"center_x":1,"colour":"red"}`, nil},
		{"not an object", `[1,2,3]`, errMalformed},
		{"truncated", `{"zoom":`, errMalformed},
		{"empty", ``, errMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeRequest(strings.NewReader(tt.body))
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("decodeRequest() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("decodeRequest() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecodeRequest_Integers(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		want      int
		wantField string
	}{
		{"plain integer", `{"max_iterations":150}`, 150, ""},
		{"whole float", `{"max_iterations":150.0}`, 150, ""},
		{"exponent", `{"max_iterations":1.5e2}`, 150, ""},
		{"negative whole float", `{"max_iterations":-3.0}`, -3, ""},
		{"fraction", `{"max_iterations":150.5}`, 0, "max_iterations"},
		{"string", `{"max_iterations":"150"}`, 0, "max_iterations"},
		{"bool", `{"max_iterations":true}`, 0, "max_iterations"},
		{"beyond int range", `{"max_iterations":1e19}`, 0, "max_iterations"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := decodeRequest(strings.NewReader(tt.body))
			if tt.wantField != "" {
				var rerr *RequestError
				if !errors.As(err, &rerr) {
					t.Fatalf("decodeRequest() error = %v, want *RequestError", err)
				}
				if len(rerr.Fields) != 1 || rerr.Fields[0].Field != tt.wantField {
					t.Errorf("fields = %+v, want %s", rerr.Fields, tt.wantField)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeRequest() error = %v", err)
			}
			if req.MaxIterations == nil || *req.MaxIterations != tt.want {
				t.Errorf("MaxIterations = %v, want %d", req.MaxIterations, tt.want)
			}
		})
	}
}

func TestDecodeRequest_NullIntegerIsMissing(t *testing.T) {
	req, err := decodeRequest(strings.NewReader(`{"width":null}`))
	if err != nil {
		t.Fatalf("decodeRequest() error = %v", err)
	}
	if req.Width != nil || req.Height != nil {
		t.Errorf("dims = %v x %v, want both unset", req.Width, req.Height)
	}
}
