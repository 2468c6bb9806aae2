package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bakehouse-backend/api/middleware"
	"github.com/angelmondragon/bakehouse-backend/api/responses"
	"github.com/angelmondragon/bakehouse-backend/internal/sessions"
	pkgAuth "github.com/angelmondragon/bakehouse-backend/pkg/auth"
	"github.com/angelmondragon/bakehouse-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/bakehouse-backend/pkg/errors"
	"github.com/angelmondragon/bakehouse-backend/pkg/logger"
)

// SessionProvider hands out the per-session cart and checkout.
type SessionProvider interface {
	Get(ctx context.Context, sessionID string) (*sessions.Session, error)
}

type sessionResponse struct {
	Token     string    `json:"token"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionCreate mints a guest session token for a new shopper.
func SessionCreate(cfg config.SessionConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := pkgAuth.MintSessionToken(cfg, time.Now().UTC(), uuid.Nil)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint session token"))
			return
		}

		if logg != nil {
			logg.Info(logg.WithSessionID(r.Context(), claims.SessionID.String()), "session.created")
		}
		w.Header().Set(middleware.SessionTokenHeader, token)
		responses.WriteSuccessStatus(w, http.StatusCreated, sessionResponse{
			Token:     token,
			SessionID: claims.SessionID.String(),
			ExpiresAt: claims.ExpiresAt.Time,
		})
	}
}

func sessionFromRequest(r *http.Request, provider SessionProvider) (*sessions.Session, error) {
	if provider == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session registry unavailable")
	}
	sessionID := middleware.SessionIDFromContext(r.Context())
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session context missing")
	}
	s, err := provider.Get(r.Context(), sessionID)
	if err != nil {
		if pkgerrors.As(err) == nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load session")
		}
		return nil, err
	}
	return s, nil
}
