package main

import (
	"errors"

	"shortsmith/config"
)

type runMode string

const (
	modeHeadless runMode = "headless"
	modeServe    runMode = "serve"
	modeWorker   runMode = "worker"
	modeService  runMode = "serve+worker"
)

// ResolveModel resolves a model flag to a Gemini model id
// If the input is a preset name, returns the corresponding model
// Otherwise, returns the input as-is (assuming it's a literal model id)
func ResolveModel(input string) string {
	if model, exists := config.ModelPresets[input]; exists {
		return model
	}
	return input
}

// selectMode picks how the process runs from its flags. With no flags a
// headless run resumes the saved session.
func selectMode(sourceURL string, serve, worker bool) (runMode, error) {
	if sourceURL != "" && (serve || worker) {
		return "", errors.New("-url cannot be combined with -serve or -kafka")
	}
	switch {
	case serve && worker:
		return modeService, nil
	case serve:
		return modeServe, nil
	case worker:
		return modeWorker, nil
	}
	return modeHeadless, nil
}
