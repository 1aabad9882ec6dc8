//go:build js && wasm

package main

import (
	"syscall/js"

	"github.com/Danveyd/NewCatroid/internal/engine"
)

var eng *engine.Engine

func main() {
	eng = engine.NewEngine()

	collisionEngine := js.Global().Get("Object").New()

	// --- Stateless geometry ---
	collisionEngine.Set("transformVertices", js.FuncOf(transformVertices))
	collisionEngine.Set("computeBoundingBox", js.FuncOf(computeBoundingBox))
	collisionEngine.Set("collides", js.FuncOf(collides))
	collisionEngine.Set("collidePairs", js.FuncOf(collidePairs))

	// --- Commands (host → engine) ---
	collisionEngine.Set("loadScene", js.FuncOf(loadScene))
	collisionEngine.Set("loadSampleScene", js.FuncOf(loadSampleScene))
	collisionEngine.Set("applyOperation", js.FuncOf(applyOperation))

	// --- Queries (host ← engine) ---
	collisionEngine.Set("findCollisions", js.FuncOf(findCollisions))
	collisionEngine.Set("collidesWith", js.FuncOf(collidesWith))
	collisionEngine.Set("hitTest", js.FuncOf(hitTest))
	collisionEngine.Set("touchesEdge", js.FuncOf(touchesEdge))
	collisionEngine.Set("touchesFinger", js.FuncOf(touchesFinger))
	collisionEngine.Set("getScene", js.FuncOf(getScene))
	collisionEngine.Set("getCacheStats", js.FuncOf(getCacheStats))

	js.Global().Set("collisionEngine", collisionEngine)
	js.Global().Set("collisionWasmReady", js.ValueOf(true))

	select {}
}

func errorResult(msg string) interface{} {
	return js.ValueOf(map[string]interface{}{"error": msg})
}

// float32s reads a JS array or typed array of numbers.
func float32s(v js.Value) []float32 {
	n := v.Length()
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = float32(v.Index(i).Float())
	}
	return out
}

func optionalString(args []js.Value, i int) string {
	if len(args) <= i || args[i].IsUndefined() || args[i].IsNull() {
		return ""
	}
	return args[i].String()
}

// --- Stateless geometry ---

func transformVertices(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("missing vertices")
	}
	out, err := eng.TransformVertices(float32s(args[0]), optionalString(args, 1))
	if err != nil {
		return errorResult(err.Error())
	}

	result := make([]interface{}, len(out))
	for i, v := range out {
		result[i] = v
	}
	return js.ValueOf(result)
}

func computeBoundingBox(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return errorResult("expected transform, width, height")
	}
	box, err := eng.ComputeBoundingBox(optionalString(args, 0), float32(args[1].Float()), float32(args[2].Float()))
	if err != nil {
		return errorResult(err.Error())
	}
	return js.ValueOf(box)
}

func collides(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("expected two shapes")
	}
	hit, err := eng.Collides(args[0].String(), args[1].String())
	if err != nil {
		return errorResult(err.Error())
	}
	return js.ValueOf(hit)
}

func collidePairs(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("missing shapes JSON")
	}
	flat, err := eng.CollidePairs(args[0].String())
	if err != nil {
		return errorResult(err.Error())
	}

	result := make([]interface{}, len(flat))
	for i, v := range flat {
		result[i] = int(v)
	}
	return js.ValueOf(result)
}

// --- Commands ---

func loadScene(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("missing scene JSON")
	}
	if err := eng.LoadScene(args[0].String()); err != nil {
		return errorResult(err.Error())
	}
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func loadSampleScene(this js.Value, args []js.Value) interface{} {
	eng.LoadSampleScene()
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func applyOperation(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("missing operation JSON")
	}
	rev, err := eng.ApplyOperation(args[0].String())
	if err != nil {
		return errorResult(err.Error())
	}
	return js.ValueOf(map[string]interface{}{"ok": true, "revision": float64(rev)})
}

// --- Queries ---

func findCollisions(this js.Value, args []js.Value) interface{} {
	pairs, err := eng.FindCollisions()
	if err != nil {
		return errorResult(err.Error())
	}
	return js.ValueOf(pairs)
}

func collidesWith(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("expected two sprite ids")
	}
	hit, err := eng.CollidesWith(args[0].String(), args[1].String())
	if err != nil {
		return errorResult(err.Error())
	}
	return js.ValueOf(hit)
}

func hitTest(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("")
	}
	return js.ValueOf(eng.HitTest(float32(args[0].Float()), float32(args[1].Float())))
}

func touchesEdge(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("missing sprite id")
	}
	hit, err := eng.TouchesEdge(args[0].String())
	if err != nil {
		return errorResult(err.Error())
	}
	return js.ValueOf(hit)
}

func touchesFinger(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("expected sprite id and touches JSON")
	}
	var radius float32
	if len(args) > 2 {
		radius = float32(args[2].Float())
	}
	hit, err := eng.TouchesFinger(args[0].String(), args[1].String(), radius)
	if err != nil {
		return errorResult(err.Error())
	}
	return js.ValueOf(hit)
}

func getScene(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetScene())
}

func getCacheStats(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetCacheStats())
}
