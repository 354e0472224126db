package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/lexorahq/provision/internal/provision/identity"
	"github.com/lexorahq/provision/internal/provision/service"
	"github.com/lexorahq/provision/pkg/httpx"
	"github.com/lexorahq/provision/pkg/idx"
	"github.com/lexorahq/provision/pkg/provsdk"
	"github.com/lexorahq/provision/pkg/slogx"
)

// LoginCheckHandler serves POST /v1/login/check.
// Callers present a provider access token; the handler decides whether the
// identity behind it still has a valid account linkage.
type LoginCheckHandler struct {
	Detection *service.DetectionService
	Cleanup   *service.CleanupService
	Verifier  *identity.TokenVerifier
}

// ServeHTTP godoc
//
//	@Summary		Login Orphan Check
//	@Description	Verifies that the identity behind the bearer access token has a valid, non-deleted account linkage.
//	@Description	Orphaned identities get the recovery workflow initiated in the background. A 503 means the check
//	@Description	could not complete and the login must be denied.
//	@Tags			Login
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	provsdk.LoginCheckResponse	"status, account_id, role or orphan_type"
//	@Failure		401	{object}	provsdk.ErrorResponse		"code, message"
//	@Failure		503	{object}	provsdk.ErrorResponse		"code, message"
//	@Router			/v1/login/check [post].
func (h *LoginCheckHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	token, ok := bearerToken(r)
	if !ok {
		provsdk.ErrMissingToken.WriteError(w)
		return
	}
	claims, err := h.Verifier.Verify(token)
	if err != nil {
		provsdk.ErrInvalidAccessToken.WriteError(w)
		return
	}

	corrID := slogx.CorrelationID(ctx)
	if corrID.IsZero() {
		corrID = idx.New()
	}

	det, err := h.Detection.Detect(ctx, claims.IdentityID, corrID)
	if err != nil {
		// The body stays generic: a failed check must not reveal whether
		// the account exists. The correlation id is the only specific,
		// enough to find the real cause in the logs.
		provsdk.ErrCheckUnavailable.WithDetail(fmt.Sprintf(
			"account verification is temporarily unavailable, try again shortly (ref %s)", corrID,
		)).WriteError(w)
		return
	}

	if det.Orphaned {
		initiated := false
		if claims.Email != "" {
			h.Cleanup.Initiate(claims.Email, corrID)
			initiated = true
		}
		log.Info("orphaned identity denied login",
			"orphan_type", string(det.OrphanType),
			"email_hash", service.EmailHash(claims.Email),
			"cleanup_initiated", initiated,
		)
		httpx.WriteJSON(w, http.StatusOK, provsdk.LoginCheckResponse{
			Status:           "orphaned",
			OrphanType:       string(det.OrphanType),
			CleanupInitiated: initiated,
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, provsdk.LoginCheckResponse{
		Status:    "ok",
		AccountID: det.AccountID,
		Role:      string(det.Role),
	})
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", false
	}
	token := strings.TrimSpace(auth[len(prefix):])
	return token, token != ""
}
