//go:build js && wasm
// +build js,wasm

package main

import (
	"errors"
	"fmt"
	"syscall/js"

	"github.com/himanishpuri/AutoChord/pkg/autochord/chroma"
	"github.com/himanishpuri/AutoChord/pkg/autochord/tempo"
	"github.com/himanishpuri/AutoChord/pkg/tonal"
)

// Error codes returned to JavaScript
const (
	ErrorNone = iota
	ErrorInvalidArgs
	ErrorProcessing
	ErrorDegenerate
)

// estimateKey scores a 12-bin pitch-class profile.
// Returns: {error: number, data: {key, tonic, mode, correlation} | string}
func estimateKey(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return makeErrorResponse(ErrorInvalidArgs, "Expected 1 argument: profile")
	}

	profile, err := readFloats(args[0], "profile")
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}

	result, err := tonal.Analyze(profile)
	if err != nil {
		return keyError(err)
	}
	return makeDataResponse(keyObject(result))
}

// analyzeSamples runs chroma, key and tempo estimation over mono samples.
// Returns: {error: number, data: {key, tonic, mode, correlation, bpm, tempoDetected, duration} | string}
func analyzeSamples(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return makeErrorResponse(ErrorInvalidArgs, "Expected 2 arguments: audioArray, sampleRate")
	}
	if args[1].Type() != js.TypeNumber {
		return makeErrorResponse(ErrorInvalidArgs, "sampleRate must be a number")
	}

	sampleRate := args[1].Int()
	if sampleRate <= 0 {
		return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("Invalid sample rate: %d", sampleRate))
	}

	samples, err := readFloats(args[0], "audioArray")
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}
	if len(samples) == 0 {
		return makeErrorResponse(ErrorInvalidArgs, "audioArray is empty")
	}

	chromagram, err := chroma.Extract(samples, sampleRate, chroma.DefaultConfig())
	if err != nil {
		return makeErrorResponse(ErrorProcessing, fmt.Sprintf("Failed to compute chroma: %v", err))
	}
	result, err := tonal.Analyze(chromagram.Mean())
	if err != nil {
		return keyError(err)
	}

	beat := tempo.Estimate(samples, sampleRate, tempo.DefaultConfig())

	obj := keyObject(result)
	obj.Set("bpm", beat.BPM)
	obj.Set("tempoDetected", beat.Detected)
	obj.Set("duration", float64(len(samples))/float64(sampleRate))
	return makeDataResponse(obj)
}

func readFloats(v js.Value, name string) ([]float64, error) {
	if v.Type() != js.TypeObject {
		return nil, fmt.Errorf("%s must be an Array or Float64Array", name)
	}
	out := make([]float64, v.Length())
	for i := range out {
		el := v.Index(i)
		if el.Type() != js.TypeNumber {
			return nil, fmt.Errorf("%s element %d is not a number", name, i)
		}
		out[i] = el.Float()
	}
	return out, nil
}

func keyObject(a tonal.KeyAnalysis) js.Value {
	obj := js.Global().Get("Object").New()
	obj.Set("key", a.Key.String())
	obj.Set("tonic", a.Key.Tonic.String())
	obj.Set("mode", a.Key.Mode.String())
	obj.Set("correlation", a.Correlation)
	return obj
}

func keyError(err error) js.Value {
	if errors.Is(err, tonal.ErrDegenerateInput) {
		return makeErrorResponse(ErrorDegenerate, err.Error())
	}
	return makeErrorResponse(ErrorInvalidArgs, err.Error())
}

func makeDataResponse(data js.Value) js.Value {
	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", data)
	return result
}

func makeErrorResponse(errorCode int, message string) js.Value {
	result := js.Global().Get("Object").New()
	result.Set("error", errorCode)
	result.Set("data", message)
	return result
}

func main() {
	console := js.Global().Get("console")
	if !console.IsUndefined() {
		console.Call("log", "🔧 AutoChord WASM module initializing...")
	}

	done := make(chan struct{})

	js.Global().Set("estimateKey", js.FuncOf(estimateKey))
	js.Global().Set("analyzeSamples", js.FuncOf(analyzeSamples))

	window := js.Global().Get("window")
	if !window.IsUndefined() {
		eventInit := js.Global().Get("Object").New()
		event := js.Global().Get("CustomEvent").New("wasmReady", eventInit)
		window.Call("dispatchEvent", event)
	} else if !console.IsUndefined() {
		console.Call("error", "❌ window object is undefined!")
	}

	if !console.IsUndefined() {
		console.Call("log", "✅ AutoChord WASM module loaded and ready")
	}

	<-done
}
