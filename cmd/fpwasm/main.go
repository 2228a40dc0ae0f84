//go:build js && wasm
// +build js,wasm

package main

import (
	"fmt"
	"syscall/js"

	"github.com/landmarkfp/fpengine/pkg/fpcore"
)

// Error codes returned to JavaScript.
const (
	ErrorNone = iota
	ErrorInvalidArgs
	ErrorPeakExtraction
	ErrorHashGeneration
)

// generateFingerprint mirrors pkg/fpengine.Ingest's Preprocess/Spectrogram/
// ExtractPeaks/Fingerprints pipeline for callers that need fingerprints
// without a full server round trip, e.g. a browser-side preview before
// upload. Returns: {error: number, data: array | string}
func generateFingerprint(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return makeErrorResponse(ErrorInvalidArgs, "expected 3 arguments: audioArray, sampleRate, channels")
	}

	audioDataJS := args[0]
	sampleRateJS := args[1]
	channelsJS := args[2]

	if audioDataJS.Type() != js.TypeObject {
		return makeErrorResponse(ErrorInvalidArgs, "audioArray must be an Array or Float64Array")
	}
	if sampleRateJS.Type() != js.TypeNumber {
		return makeErrorResponse(ErrorInvalidArgs, "sampleRate must be a number")
	}
	if channelsJS.Type() != js.TypeNumber {
		return makeErrorResponse(ErrorInvalidArgs, "channels must be a number")
	}

	sampleRate := sampleRateJS.Int()
	channels := channelsJS.Int()

	if sampleRate <= 0 {
		return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("invalid sample rate: %d", sampleRate))
	}
	if channels < 1 || channels > 2 {
		return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("channels must be 1 (mono) or 2 (stereo), got: %d", channels))
	}

	length := audioDataJS.Length()
	if length == 0 {
		return makeErrorResponse(ErrorInvalidArgs, "audioArray is empty")
	}

	pcm := make([]float64, length)
	for i := 0; i < length; i++ {
		val := audioDataJS.Index(i)
		if val.Type() != js.TypeNumber {
			return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("audioArray element %d is not a number", i))
		}
		pcm[i] = val.Float()
	}

	samples, err := fpcore.Preprocess(pcm, sampleRate, channels)
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}

	spec := fpcore.Spectrogram(samples)
	peaks := fpcore.ExtractPeaks(spec)
	if len(peaks) == 0 {
		return makeErrorResponse(ErrorPeakExtraction, "no peaks found in audio (audio may be silent or too short)")
	}

	fingerprints := fpcore.Fingerprints(peaks)
	if len(fingerprints) == 0 {
		return makeErrorResponse(ErrorHashGeneration, "no fingerprint hashes generated")
	}

	hashArray := js.Global().Get("Array").New()
	for i, fp := range fingerprints {
		hashObj := js.Global().Get("Object").New()
		hashObj.Set("hash", fp.Hash)
		hashObj.Set("anchorTimeIdx", fp.AnchorTIdx)
		hashArray.SetIndex(i, hashObj)
	}

	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", hashArray)
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
		console.Call("log", "fpengine wasm module initializing...")
	}

	done := make(chan struct{})

	js.Global().Set("generateFingerprint", js.FuncOf(generateFingerprint))

	if !console.IsUndefined() {
		console.Call("log", "generateFingerprint function registered")
	}

	window := js.Global().Get("window")
	if !window.IsUndefined() {
		eventInit := js.Global().Get("Object").New()
		event := js.Global().Get("CustomEvent").New("wasmReady", eventInit)
		window.Call("dispatchEvent", event)
	} else if !console.IsUndefined() {
		console.Call("error", "window object is undefined")
	}

	if !console.IsUndefined() {
		console.Call("log", "fpengine wasm module loaded and ready")
	}

	<-done
}
