// Package server is the stub remote service the forms submit to. It answers
// email availability lookups, validates submissions against an OpenAPI
// document and the form schemas, and keeps users in a bbolt file.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/untillpro/goutils/logger"

	"github.com/goliatone/go-formflow/internal/userstore"
	"github.com/goliatone/go-formflow/pkg/forms"
	"github.com/goliatone/go-formflow/pkg/schema"
)

const (
	pathCheckEmail = "/check-email/"
	pathUsers      = "/users/"
	pathPrivacy    = "/privacy-settings/"

	maxBodyBytes = 1 << 20
)

// Store is the persistence the server needs.
type Store interface {
	EmailTaken(email string) (bool, error)
	Create(u userstore.User) (userstore.User, error)
	List() ([]userstore.User, error)
	SavePrivacy(p userstore.PrivacySettings) (userstore.PrivacySettings, error)
}

// Option customises a Server.
type Option func(*Server)

// WithClock replaces the clock used by the minimum age check.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// Server serves the stub API.
type Server struct {
	store     Store
	validator *requestValidator
	now       func() time.Time
	router    *mux.Router
}

// New builds a server over store.
func New(ctx context.Context, store Store, opts ...Option) (*Server, error) {
	if store == nil {
		return nil, errors.New("server: store is required")
	}
	validator, err := newRequestValidator(ctx, openAPIDocument)
	if err != nil {
		return nil, err
	}
	s := &Server{
		store:     store,
		validator: validator,
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(logRequests)
	r.HandleFunc(pathCheckEmail, s.handleCheckEmail).Methods(http.MethodGet)
	r.HandleFunc(pathUsers, s.handleListUsers).Methods(http.MethodGet)
	r.HandleFunc(pathUsers, s.handleCreateUser).Methods(http.MethodPost)
	r.HandleFunc(pathPrivacy, s.handleSavePrivacy).Methods(http.MethodPost)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("formflow stub service listening on", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	logger.Info("formflow stub service stopped")
	return nil
}

func (s *Server) handleCheckEmail(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"errors": fieldErrors{"/email": {"Email is required"}},
		})
		return
	}
	taken, err := s.store.EmailTaken(email)
	if err != nil {
		logger.Error("check email:", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"isAvailable": !taken})
}

func (s *Server) handleListUsers(w http.ResponseWriter, _ *http.Request) {
	users, err := s.store.List()
	if err != nil {
		logger.Error("list users:", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	if users == nil {
		users = []userstore.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	record, ok := s.validateSubmission(w, r, pathUsers, forms.Registration(s.now).Schema)
	if !ok {
		return
	}

	user := userstore.User{
		Name:                  record.String(forms.FieldName),
		Email:                 record.String(forms.FieldEmail),
		DateOfBirth:           record.String(forms.FieldDateOfBirth),
		Gender:                record.String(forms.FieldGender),
		TermsAccepted:         record[forms.FieldTermsAccepted] == true,
		PrivacyPolicyAccepted: record[forms.FieldPrivacyPolicyAccepted] == true,
		PrivacySetting:        record.String(forms.FieldPrivacySetting),
	}
	if age, ok := record[forms.FieldAge].(int); ok {
		user.Age = &age
	}

	created, err := s.store.Create(user)
	switch {
	case errors.Is(err, userstore.ErrEmailTaken):
		writeJSON(w, http.StatusConflict, map[string]any{
			"errors": fieldErrors{"/" + forms.FieldEmail: {"Email is already registered"}},
		})
		return
	case err != nil:
		logger.Error("create user:", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	logger.Verbose("created user", created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleSavePrivacy(w http.ResponseWriter, r *http.Request) {
	record, ok := s.validateSubmission(w, r, pathPrivacy, forms.Privacy().Schema)
	if !ok {
		return
	}
	saved, err := s.store.SavePrivacy(userstore.PrivacySettings{
		PrivacySetting:        record.String(forms.FieldPrivacySetting),
		PrivacyPolicyAccepted: record[forms.FieldPrivacyPolicyAccepted] == true,
	})
	if err != nil {
		logger.Error("save privacy settings:", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// validateSubmission runs the OpenAPI check and then the form schema. On
// failure it writes the 400 response and reports false.
func (s *Server) validateSubmission(w http.ResponseWriter, r *http.Request, path string, sch *schema.Schema) (schema.Values, bool) {
	problems, err := s.validator.validate(r, path)
	if err != nil {
		logger.Error("openapi validation:", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return nil, false
	}
	if len(problems) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": problems})
		return nil, false
	}

	values := schema.Values{}
	if err := decodeJSON(r, &values); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return nil, false
	}
	result := sch.Validate(values)
	if !result.IsValid() {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": issuesToErrors(result.Issues())})
		return nil, false
	}
	return result.Record(), true
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		if logger.IsVerbose() {
			logger.Verbose(r.Method, r.URL.Path, time.Since(start))
		}
	})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("multiple JSON values")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
