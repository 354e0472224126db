package http

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"strings"

	"github.com/lexorahq/provision/internal/provision/domain"
	"github.com/lexorahq/provision/internal/provision/service"
	"github.com/lexorahq/provision/pkg/httpx"
	"github.com/lexorahq/provision/pkg/idx"
	"github.com/lexorahq/provision/pkg/provsdk"
)

// RegistrationsHandler serves the /v1/registrations endpoints.
type RegistrationsHandler struct {
	Registry *service.RegistrationRegistry
}

// HandleSubmit godoc
//
//	@Summary		Submit Registration
//	@Description	Creates a registration instance and starts the sign-up flow against the identity provider.
//	@Description	The response is an immediate snapshot; poll GET /v1/registrations/{id} until the phase is terminal.
//	@Tags			Registrations
//	@Accept			json
//	@Produce		json
//	@Param			request	body		provsdk.SubmitRegistrationRequest	true	"Registration details"
//	@Success		202		{object}	provsdk.RegistrationResponse		"id, phase, attempt_id"
//	@Failure		400		{object}	provsdk.ErrorResponse				"code, message"
//	@Failure		422		{object}	provsdk.ErrorResponse				"code, message, details"
//	@Failure		429		{object}	provsdk.ErrorResponse				"code, message"
//	@Router			/v1/registrations [post].
func (h *RegistrationsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req provsdk.SubmitRegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		provsdk.ErrInvalidJSONBody.WriteError(w)
		return
	}

	if details := validateSubmit(req); len(details) > 0 {
		httpx.WriteJSON(w, http.StatusUnprocessableEntity, provsdk.ErrorResponse{
			Code:    provsdk.ErrorCodeValidation,
			Message: "the registration details failed validation",
			Details: details,
		})
		return
	}

	reg := h.Registry.Create()
	state := reg.Submit(domain.RegistrationPayload{
		CompanyName:  req.CompanyName,
		CompanyEmail: req.CompanyEmail,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Password:     req.Password,
	})

	httpx.WriteJSON(w, http.StatusAccepted, toRegistrationResponse(reg.ID, state))
}

// HandleGet godoc
//
//	@Summary		Registration State
//	@Description	Returns the current snapshot of a registration instance.
//	@Tags			Registrations
//	@Produce		json
//	@Param			id	path		string							true	"Registration id"
//	@Success		200	{object}	provsdk.RegistrationResponse	"id, phase, attempt_id, error, result"
//	@Failure		404	{object}	provsdk.ErrorResponse			"code, message"
//	@Router			/v1/registrations/{id} [get].
func (h *RegistrationsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.lookup(r)
	if !ok {
		provsdk.ErrRegistrationNotFound.WriteError(w)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toRegistrationResponse(reg.ID, reg.State()))
}

// HandleConfirm godoc
//
//	@Summary		Confirm Verification
//	@Description	Requests an immediate email-verification re-check while the registration awaits confirmation.
//	@Description	Calls are throttled per instance; absorbed calls return the unchanged snapshot.
//	@Tags			Registrations
//	@Produce		json
//	@Param			id	path		string							true	"Registration id"
//	@Success		200	{object}	provsdk.RegistrationResponse	"id, phase, attempt_id"
//	@Failure		404	{object}	provsdk.ErrorResponse			"code, message"
//	@Router			/v1/registrations/{id}/confirm [post].
func (h *RegistrationsHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.lookup(r)
	if !ok {
		provsdk.ErrRegistrationNotFound.WriteError(w)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toRegistrationResponse(reg.ID, reg.ConfirmVerification()))
}

// HandleReset godoc
//
//	@Summary		Reset Registration
//	@Description	Returns the instance to idle so it can be resubmitted. Refused while an attempt is actively executing.
//	@Tags			Registrations
//	@Produce		json
//	@Param			id	path		string							true	"Registration id"
//	@Success		200	{object}	provsdk.RegistrationResponse	"id, phase"
//	@Failure		404	{object}	provsdk.ErrorResponse			"code, message"
//	@Router			/v1/registrations/{id}/reset [post].
func (h *RegistrationsHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.lookup(r)
	if !ok {
		provsdk.ErrRegistrationNotFound.WriteError(w)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toRegistrationResponse(reg.ID, reg.Reset()))
}

func (h *RegistrationsHandler) lookup(r *http.Request) (*service.Registration, bool) {
	id, err := idx.Parse(r.PathValue("id"))
	if err != nil {
		return nil, false
	}
	return h.Registry.Get(id)
}

func validateSubmit(req provsdk.SubmitRegistrationRequest) map[string]string {
	details := make(map[string]string)

	required := map[string]string{
		"company_name": req.CompanyName,
		"first_name":   req.FirstName,
		"last_name":    req.LastName,
		"password":     req.Password,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			details[field] = "is required"
		}
	}
	for field, value := range map[string]string{
		"email":         req.Email,
		"company_email": req.CompanyEmail,
	} {
		if strings.TrimSpace(value) == "" {
			details[field] = "is required"
		} else if _, err := mail.ParseAddress(value); err != nil {
			details[field] = "is not a valid email address"
		}
	}
	if len(details) == 0 && !strings.EqualFold(strings.TrimSpace(req.Email), strings.TrimSpace(req.CompanyEmail)) {
		details["company_email"] = "must match the administrator email"
	}
	return details
}

func toRegistrationResponse(id idx.ID, s domain.RegistrationState) provsdk.RegistrationResponse {
	resp := provsdk.RegistrationResponse{
		ID:        id.String(),
		Phase:     string(s.Phase),
		AttemptID: s.AttemptID.String(),
	}
	if s.AttemptID.IsZero() {
		resp.AttemptID = ""
	}
	if s.Error != nil {
		resp.Error = &provsdk.RegistrationError{
			Code:    string(s.Error.Code),
			Message: s.Error.Message,
		}
	}
	if s.Result != nil {
		resp.Result = &provsdk.ProvisionResult{
			AccountID:      s.Result.AccountID,
			UserID:         s.Result.UserID,
			SubscriptionID: s.Result.SubscriptionID,
		}
	}
	return resp
}
