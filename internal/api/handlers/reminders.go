package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aion-timer/backend/internal/config"
	"github.com/aion-timer/backend/internal/notify"
	"github.com/aion-timer/backend/internal/subscriber"
)

// CheckEvents runs one reminder scan and returns its report. Safe to call
// repeatedly; every call is an independent scan.
func CheckEvents(trigger ScanTrigger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := trigger.RunNow(r.Context())
		code := http.StatusOK
		if !report.Success {
			code = http.StatusInternalServerError
		}
		writeJSON(w, code, report)
	}
}

// SendTestRequest carries the destination of a test message.
type SendTestRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	// Accepted for parity with the subscribe body.
	PhoneNumberAlt string `json:"phone_number"`
}

// SendTestResponse reports the outcome of a test message.
type SendTestResponse struct {
	OperationResponse
	MessageID string `json:"messageId,omitempty"`
	TestMode  bool   `json:"testMode,omitempty"`
}

// SendTest sends a configuration test message to the given phone.
func SendTest(sender TestSender, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SendTestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeFailure(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.PhoneNumber == "" {
			req.PhoneNumber = req.PhoneNumberAlt
		}
		if req.PhoneNumber == "" {
			writeFailure(w, http.StatusBadRequest, "Phone number is required")
			return
		}

		delivery, err := sender.SendTest(r.Context(), req.PhoneNumber)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, SendTestResponse{
				OperationResponse: OperationResponse{Success: true, Message: "Test message sent"},
				MessageID:         delivery.MessageID,
				TestMode:          delivery.Simulated,
			})
		case subscriber.IsValidation(err):
			writeFailure(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, notify.ErrNotConfigured):
			writeFailure(w, http.StatusServiceUnavailable, err.Error())
		default:
			logger.Warn("test message failed", "error", err)
			writeFailure(w, http.StatusBadGateway, err.Error())
		}
	}
}

// EnvStatus reports which notification credentials are present. Secrets are
// never echoed back.
type EnvStatus struct {
	Success  bool   `json:"success"`
	Provider string `json:"provider"`
	Status   struct {
		HasTwilioAccountSID  bool `json:"hasTwilioAccountSid"`
		HasTwilioAuthToken   bool `json:"hasTwilioAuthToken"`
		HasTwilioPhoneNumber bool `json:"hasTwilioPhoneNumber"`
		IsConfigComplete     bool `json:"isConfigComplete"`
	} `json:"status"`
}

// DebugEnv returns credential presence for the notification provider.
func DebugEnv(cfg config.NotifyConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var resp EnvStatus
		resp.Success = true
		resp.Provider = cfg.Provider
		resp.Status.HasTwilioAccountSID = cfg.TwilioAccountSID != ""
		resp.Status.HasTwilioAuthToken = cfg.TwilioAuthToken != ""
		resp.Status.HasTwilioPhoneNumber = cfg.TwilioPhoneNumber != ""
		resp.Status.IsConfigComplete = notify.Configured(cfg)
		writeJSON(w, http.StatusOK, resp)
	}
}
