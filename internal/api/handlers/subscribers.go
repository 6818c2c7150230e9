package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/aion-timer/backend/internal/api/middleware"
	"github.com/aion-timer/backend/internal/storage"
	"github.com/aion-timer/backend/internal/storage/models"
	"github.com/aion-timer/backend/internal/subscriber"
)

// SubscribeResponse is returned after a successful subscription.
type SubscribeResponse struct {
	OperationResponse
	Subscriber *models.SubscriberWithWatches `json:"subscriber,omitempty"`
}

// SubscribersResponse lists subscribers.
type SubscribersResponse struct {
	Success     bool                           `json:"success"`
	Subscribers []models.SubscriberWithWatches `json:"subscribers"`
}

// UpdateSubscriberRequest toggles reminders for a subscriber.
type UpdateSubscriberRequest struct {
	Active *bool `json:"active"`
}

// ListSubscribers returns all subscribers with their watched events.
func ListSubscribers(svc Subscribers, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subs, err := svc.List(r.Context())
		if err != nil {
			logger.Error("listing subscribers", "error", err)
			writeJSON(w, http.StatusInternalServerError, SubscribersResponse{Subscribers: []models.SubscriberWithWatches{}})
			return
		}
		if subs == nil {
			subs = []models.SubscriberWithWatches{}
		}
		writeJSON(w, http.StatusOK, SubscribersResponse{Success: true, Subscribers: subs})
	}
}

// Subscribe registers a phone number for reminders of the selected events.
func Subscribe(svc Subscribers, notifier SubscriberNotifier, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req subscriber.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeFailure(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		sub, err := svc.Subscribe(r.Context(), req)
		if err != nil {
			if subscriber.IsValidation(err) {
				writeFailure(w, http.StatusBadRequest, err.Error())
				return
			}
			logger.Error("saving subscription", "error", err)
			writeFailure(w, http.StatusInternalServerError, "Failed to save subscription")
			return
		}

		if notifier != nil {
			notifier.BroadcastSubscribersChanged(sub.ID, "subscribed")
		}
		writeJSON(w, http.StatusCreated, SubscribeResponse{
			OperationResponse: OperationResponse{Success: true, Message: "Subscription saved"},
			Subscriber:        sub,
		})
	}
}

// UpdateSubscriber pauses or resumes a subscriber.
func UpdateSubscriber(svc Subscribers, notifier SubscriberNotifier, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		var req UpdateSubscriberRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Active == nil {
			writeFailure(w, http.StatusBadRequest, "Body must be {\"active\": true|false}")
			return
		}

		if err := svc.SetActive(r.Context(), id, *req.Active); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Subscriber not found")
				return
			}
			logger.Error("updating subscriber", "subscriber_id", id, "error", err)
			writeFailure(w, http.StatusInternalServerError, "Failed to update subscriber")
			return
		}

		action, msg := "paused", "Subscriber paused"
		if *req.Active {
			action, msg = "resumed", "Subscriber resumed"
		}
		if notifier != nil {
			notifier.BroadcastSubscribersChanged(id, action)
		}
		writeJSON(w, http.StatusOK, OperationResponse{Success: true, Message: msg})
	}
}

// DeleteSubscriber removes a subscriber.
func DeleteSubscriber(svc Subscribers, notifier SubscriberNotifier, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		if err := svc.Remove(r.Context(), id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Subscriber not found")
				return
			}
			logger.Error("removing subscriber", "subscriber_id", id, "error", err)
			writeFailure(w, http.StatusInternalServerError, "Failed to remove subscriber")
			return
		}

		if notifier != nil {
			notifier.BroadcastSubscribersChanged(id, "removed")
		}
		writeJSON(w, http.StatusOK, OperationResponse{Success: true, Message: "Subscriber removed"})
	}
}
