package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"newsbacktest/src/model"
	"newsbacktest/src/repository"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type runLister interface {
	List(ctx context.Context, limit int) ([]model.BacktestRun, error)
	GetByID(ctx context.Context, id string) (*model.BacktestRun, error)
}

type pnlLister interface {
	ListByRun(ctx context.Context, runID string) ([]model.PnLRecord, error)
}

type positionLister interface {
	ListByRun(ctx context.Context, runID string) ([]model.PositionRecord, error)
}

// ListRunsHandler returns a handler that lists persisted backtest runs,
// most recent first. Supports a "limit" query parameter.
func ListRunsHandler(repo runLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
			parsed, err := strconv.Atoi(limitParam)
			if err != nil || parsed <= 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = parsed
		}

		runs, err := repo.List(r.Context(), limit)
		if err != nil {
			logger.WithError(err).Error("failed to list backtest runs")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, runs)
	}
}

// GetRunHandler returns one run by its id.
func GetRunHandler(repo runLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		run, err := repo.GetByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				http.Error(w, "run not found", http.StatusNotFound)
				return
			}
			logger.WithError(err).Error("failed to load backtest run")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, run)
	}
}

// RunPnLHandler lists the daily pnl records of one run.
func RunPnLHandler(runs runLister, pnl pnlLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if _, err := runs.GetByID(r.Context(), id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				http.Error(w, "run not found", http.StatusNotFound)
				return
			}
			logger.WithError(err).Error("failed to load backtest run")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		records, err := pnl.ListByRun(r.Context(), id)
		if err != nil {
			logger.WithError(err).Error("failed to list pnl records")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, records)
	}
}

// RunPositionsHandler lists the position records of one run.
func RunPositionsHandler(runs runLister, positions positionLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if _, err := runs.GetByID(r.Context(), id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				http.Error(w, "run not found", http.StatusNotFound)
				return
			}
			logger.WithError(err).Error("failed to load backtest run")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		records, err := positions.ListByRun(r.Context(), id)
		if err != nil {
			logger.WithError(err).Error("failed to list position records")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, records)
	}
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.WithError(err).Error("failed to encode response")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// DefaultListRunsHandler wires the handler to the production repository implementation.
func DefaultListRunsHandler() http.HandlerFunc {
	return ListRunsHandler(repository.NewRunRepository())
}

// DefaultGetRunHandler wires the handler to the production repository implementation.
func DefaultGetRunHandler() http.HandlerFunc {
	return GetRunHandler(repository.NewRunRepository())
}

// DefaultRunPnLHandler wires the handler to the production repository implementation.
func DefaultRunPnLHandler() http.HandlerFunc {
	return RunPnLHandler(repository.NewRunRepository(), repository.NewPnLRepository())
}

// DefaultRunPositionsHandler wires the handler to the production repository implementation.
func DefaultRunPositionsHandler() http.HandlerFunc {
	return RunPositionsHandler(repository.NewRunRepository(), repository.NewPositionRepository())
}
