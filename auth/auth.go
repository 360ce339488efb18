package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/a-h/respond"
)

// Anonymous owns every request when no API keys are configured.
const Anonymous = "anonymous"

// New creates the auth middleware. With no API keys, authentication is
// disabled and every request runs as Anonymous.
func New(log *slog.Logger, apiKeyToUserName map[string]string, next http.Handler) *Auth {
	return &Auth{
		Log:              log,
		Next:             next,
		APIKeyToUserName: apiKeyToUserName,
	}
}

type Auth struct {
	Log              *slog.Logger
	Next             http.Handler
	APIKeyToUserName map[string]string
}

func (a *Auth) Enabled() bool {
	return len(a.APIKeyToUserName) > 0
}

func LoadFromFile(name string) (apiKeyToUserName map[string]string, err error) {
	f, err := os.OpenFile(name, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m := make(map[string]string)
	if err = json.NewDecoder(f).Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

type userContextKey int

const userKey userContextKey = 0

func GetUser(r *http.Request) (user string, ok bool) {
	user, ok = r.Context().Value(userKey).(string)
	return
}

// WithUser returns a copy of ctx that carries the user.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func (a *Auth) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !a.Enabled() {
		a.Next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), Anonymous)))
		return
	}
	user, ok := a.APIKeyToUserName[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
	if !ok {
		a.Log.Warn("unauthorized request", slog.String("path", r.URL.Path), slog.String("remoteAddr", r.RemoteAddr))
		respond.WithError(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	a.Next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
}
