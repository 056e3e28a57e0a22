package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"learnsprout/internal/service"
	"learnsprout/internal/validation"
)

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
	Skills []string          `json:"skills,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		errorLog.Warn("failed to encode response", "error", err)
	}
}

func respondJSONError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	logFailure(status, userMsg, logMsg, err)
	respondJSON(w, status, errorBody{Error: userMsg})
}

// respondServiceError maps a service error onto a JSON error response
func respondServiceError(w http.ResponseWriter, err error) {
	var (
		verr  validation.ValidationError
		vErrs validator.ValidationErrors
		rerr  *service.RegressionError
	)

	switch {
	case errors.As(err, &vErrs):
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "Validation failed", Fields: translateErrors(vErrs)})
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, errorBody{
			Error:  verr.Message,
			Fields: map[string]string{verr.Field: verr.Message},
		})
	case errors.As(err, &rerr):
		respondJSON(w, http.StatusConflict, errorBody{Error: "Skill status cannot move backwards", Skills: rerr.SkillIDs})
	default:
		status, msg := statusFor(err)
		respondJSONError(w, status, msg, "", err)
	}
}

func statusFor(err error) (int, string) {
	var verr validation.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Message
	case errors.Is(err, service.ErrChildNotFound),
		errors.Is(err, service.ErrPlanNotFound),
		errors.Is(err, service.ErrPlanEntryNotFound),
		errors.Is(err, service.ErrActivityNotFound),
		errors.Is(err, service.ErrMaterialNotFound),
		errors.Is(err, service.ErrFamilyNotFound),
		errors.Is(err, service.ErrClassroomNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrNoActiveChildren):
		return http.StatusNotFound, userMessage(err)
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, ErrForbiddenMsg
	case errors.Is(err, service.ErrEmailTaken), errors.Is(err, service.ErrRecordIDConflict):
		return http.StatusConflict, userMessage(err)
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrSessionExpired):
		return http.StatusUnauthorized, userMessage(err)
	case errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrUnknownSkill),
		errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrInvitationInvalid),
		errors.Is(err, service.ErrInvitationMismatch),
		errors.Is(err, service.ErrStatusRegression):
		return http.StatusBadRequest, userMessage(err)
	default:
		return http.StatusInternalServerError, ErrInternalServerError
	}
}

// userMessage turns a known service error into a sentence safe to show a user
func userMessage(err error) string {
	var verr validation.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}

	switch {
	case errors.Is(err, service.ErrEmailTaken):
		return "Email already in use"
	case errors.Is(err, service.ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrSessionExpired):
		return "Your session has expired, please log in again"
	case errors.Is(err, service.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, service.ErrInvalidRole):
		return "Role must be parent, educator, admin or specialist"
	case errors.Is(err, service.ErrChildNotFound):
		return "Child not found"
	case errors.Is(err, service.ErrPlanNotFound):
		return "Plan not found"
	case errors.Is(err, service.ErrPlanEntryNotFound):
		return "Plan activity not found"
	case errors.Is(err, service.ErrActivityNotFound):
		return "Activity not found"
	case errors.Is(err, service.ErrMaterialNotFound):
		return "Material not found"
	case errors.Is(err, service.ErrRecordIDConflict):
		return "This observation id was already used for a different child"
	case errors.Is(err, service.ErrFamilyNotFound):
		return "Family not found"
	case errors.Is(err, service.ErrClassroomNotFound):
		return "Classroom not found"
	case errors.Is(err, service.ErrNoActiveChildren):
		return "No active children found for this user"
	case errors.Is(err, service.ErrInvitationInvalid):
		return "This invitation is invalid or has expired"
	case errors.Is(err, service.ErrInvitationMismatch):
		return "This invitation was sent to a different email address"
	case errors.Is(err, service.ErrInvalidStatus):
		return "Invalid status"
	case errors.Is(err, service.ErrUnknownSkill):
		return "Unknown skill"
	case errors.Is(err, service.ErrStatusRegression):
		return "Skill status cannot move backwards"
	case errors.Is(err, service.ErrForbidden):
		return "You do not have access to this resource"
	default:
		return "Something went wrong, please try again"
	}
}
