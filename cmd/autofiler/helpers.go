package main

import (
	"fmt"

	"github.com/Veraticus/autofiler/internal/classify"
	"github.com/Veraticus/autofiler/internal/config"
	"github.com/Veraticus/autofiler/internal/guard"
	"github.com/Veraticus/autofiler/internal/learn"
	"github.com/Veraticus/autofiler/internal/pipeline"
	"github.com/Veraticus/autofiler/internal/resolve"
	"github.com/Veraticus/autofiler/internal/review"
	"github.com/Veraticus/autofiler/internal/route"
	"github.com/Veraticus/autofiler/internal/staging"
	"github.com/Veraticus/autofiler/internal/textextract"
)

// app bundles the wired components most commands need.
type app struct {
	settings config.Settings
	store    *config.Store
	queue    *review.Store
	pipeline *pipeline.Pipeline
	session  *review.Session
}

// initApp wires the full component graph from settings.
func initApp() (*app, error) {
	settings := config.LoadSettings()

	store := config.NewStore(settings.ConfigRoot)
	queue, err := review.NewStore(settings.QueueDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open review queue: %w", err)
	}

	classifier := classify.NewEngine(store, textextract.NewService())
	router := route.NewRouter(settings.ReviewPath, settings.ConfidenceThreshold)
	resolver := resolve.NewResolver(store, settings.FuzzyMatchThreshold)
	stager := staging.NewStager(settings.StagingPath, settings.VaultPath)
	learner := learn.NewService(store)

	return &app{
		settings: settings,
		store:    store,
		queue:    queue,
		pipeline: pipeline.New(store, classifier, router, resolver, stager, queue, guard.Check),
		session:  review.NewSession(store, queue, classifier, resolver, learner, stager, settings.ReviewPath),
	}, nil
}

// close releases the app's resources.
func (a *app) close() {
	_ = a.queue.Close()
}
