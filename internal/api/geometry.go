package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Danveyd/NewCatroid/internal/collision"
	"github.com/Danveyd/NewCatroid/internal/geom"
)

// GeometryHandler serves the stateless engine operations. It needs no
// account: every request carries all of its input.
type GeometryHandler struct {
	engine *collision.Engine
}

func NewGeometryHandler(engine *collision.Engine) *GeometryHandler {
	return &GeometryHandler{engine: engine}
}

type transformRequest struct {
	Vertices  []float32       `json:"vertices"`
	Transform *geom.Transform `json:"transform"`
}

type boundsRequest struct {
	Transform geom.Transform `json:"transform"`
	Width     float32        `json:"width"`
	Height    float32        `json:"height"`
}

type collideRequest struct {
	A collision.Shape `json:"a"`
	B collision.Shape `json:"b"`
}

type pairsRequest struct {
	Shapes []collision.Shape `json:"shapes"`
}

type pairsResponse struct {
	Pairs [][2]int `json:"pairs"`
	Flat  []int32  `json:"flat"`
}

func (h *GeometryHandler) Transform(w http.ResponseWriter, r *http.Request) {
	var req transformRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Vertices)%2 != 0 {
		writeError(w, http.StatusBadRequest, "vertices must have an even number of coordinates")
		return
	}

	t := geom.IdentityTransform()
	if req.Transform != nil {
		t = *req.Transform
	}

	writeJSON(w, http.StatusOK, map[string][]float32{
		"vertices": geom.TransformVertices(req.Vertices, t),
	})
}

func (h *GeometryHandler) Bounds(w http.ResponseWriter, r *http.Request) {
	var req boundsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rect, err := geom.ComputeBoundingBox(req.Transform, req.Width, req.Height)
	if err != nil {
		if errors.Is(err, geom.ErrZeroScale) {
			writeError(w, http.StatusBadRequest, "scale must not be zero")
			return
		}
		slog.Error("compute bounds failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, rect)
}

func (h *GeometryHandler) Collide(w http.ResponseWriter, r *http.Request) {
	var req collideRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := checkShapes(req.A, req.B); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{
		"collides": h.engine.Collides(req.A, req.B),
	})
}

func (h *GeometryHandler) CollidePairs(w http.ResponseWriter, r *http.Request) {
	var req pairsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := checkShapes(req.Shapes...); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	pairs, err := h.engine.CollidePairsContext(r.Context(), req.Shapes)
	if err != nil {
		// The client went away.
		slog.Debug("collide pairs cancelled", "error", err)
		return
	}

	resp := pairsResponse{Pairs: make([][2]int, len(pairs)), Flat: collision.FlattenPairs(pairs)}
	for i, p := range pairs {
		resp.Pairs[i] = [2]int{p.I, p.J}
	}
	writeJSON(w, http.StatusOK, resp)
}

// checkShapes rejects polygons with a dangling coordinate. The engine would
// drop it silently; at the API boundary it is a client bug worth reporting.
func checkShapes(shapes ...collision.Shape) error {
	for s, shape := range shapes {
		for p, poly := range shape {
			if len(poly)%2 != 0 {
				return fmt.Errorf("shape %d polygon %d has an odd number of coordinates", s, p)
			}
		}
	}
	return nil
}
