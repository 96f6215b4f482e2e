// Package service: authentication business logic.
//
// AuthService sits between the HTTP handlers and the repository/auth utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ PasswordService (bcrypt)
//	                   ↘ session.Manager (who is signed in where)
//	                   ↘ TokenService (JWT naming the session)
//
// KEY RESPONSIBILITIES:
//   - Register actors with a unique username and a bcrypt-hashed password
//   - Check credentials on login
//   - Put the actor into the caller's session (or a new one) and issue a token
//   - Keep HTTP concerns (cookies, status codes) out of the rules
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sakif/trashwatch/internal/apperror"
	"github.com/sakif/trashwatch/internal/auth"
	"github.com/sakif/trashwatch/internal/model"
	"github.com/sakif/trashwatch/internal/repository"
	"github.com/sakif/trashwatch/internal/session"
)

// Sessions is the part of session.Manager the auth flow needs.
type Sessions interface {
	Create(ctx context.Context) (*session.Session, error)
	Get(id string) (*session.Session, bool)
}

// AuthService handles registration, login and logout.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository  → read/write actor records
//   - passwords  *auth.PasswordService      → bcrypt hashing
//   - sessions   Sessions                   → per-client state
//   - tokens     *auth.TokenService         → JWTs naming a session
//   - logger     *slog.Logger               → structured logging
type AuthService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	sessions  Sessions
	tokens    *auth.TokenService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	passwords *auth.PasswordService,
	sessions Sessions,
	tokens *auth.TokenService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		passwords: passwords,
		sessions:  sessions,
		tokens:    tokens,
		logger:    logger,
	}
}

// AuthResult bundles the signed-in actor, the session it now lives in and
// the token naming that session, so the handler can respond in one step.
type AuthResult struct {
	User    *model.User
	Session *session.Session
	Token   string
}

// Register creates a new actor and signs it in.
//
// The username must not exist yet; a duplicate yields apperror.UsernameTaken
// and leaves the users table untouched. The lookup-then-insert pair is not
// atomic, so the UNIQUE constraint is the final arbiter: a concurrent
// registration that wins the race still surfaces as UsernameTaken here.
//
// sessionID is the caller's current session, or "" for none.
func (s *AuthService) Register(ctx context.Context, sessionID, username, password string, role model.Role) (*AuthResult, error) {
	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}
	if _, err := model.ParseRole(string(role)); err != nil {
		return nil, apperror.ValidationFailed("role", "role must be User or Admin")
	}

	_, err := s.users.GetUserByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, apperror.UsernameTaken(username)
	case !errors.Is(err, apperror.ErrNotFound):
		s.logger.Error("register: looking up username",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return nil, apperror.PersistenceFailure("register", err)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
	}

	user := &model.User{Username: username, PasswordHash: hash, Role: role}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		s.logger.Error("register: creating user",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return nil, apperror.PersistenceFailure("register", err)
	}

	s.logger.Info("user registered",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
		slog.String("role", string(user.Role)),
	)

	return s.signIn(ctx, sessionID, user)
}

// Login checks username and password and signs the actor in.
//
// An unknown username and a wrong password are indistinguishable to the
// caller: both yield apperror.InvalidCredentials.
func (s *AuthService) Login(ctx context.Context, sessionID, username, password string) (*AuthResult, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.passwords.Burn(password)
			return nil, apperror.InvalidCredentials()
		}
		s.logger.Error("login: looking up username",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return nil, apperror.PersistenceFailure("login", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Error("login: stored password hash unusable",
				slog.Int64("userID", user.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, apperror.InvalidCredentials()
	}

	s.logger.Info("user logged in",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
	)

	return s.signIn(ctx, sessionID, user)
}

// Logout clears the actor and any unsaved draft from the session. The session
// itself stays open so the client can log in again with the same token.
func (s *AuthService) Logout(sessionID string) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	if prev := sess.Holder.Current(); prev != nil {
		s.logger.Info("user logged out",
			slog.Int64("userID", prev.ID),
			slog.String("username", prev.Username),
		)
	}
	sess.Holder.Clear()
	sess.Draft.Discard()
}

// Current returns the session and its signed-in actor.
//
// Returns apperror.ErrUnauthorized if the session is gone (expired, server
// restarted) or nobody is signed in to it.
func (s *AuthService) Current(sessionID string) (*session.Session, *model.User, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, &apperror.AppError{Err: apperror.ErrUnauthorized, Message: "session expired, please log in again"}
	}
	actor := sess.Holder.Current()
	if actor == nil {
		return nil, nil, &apperror.AppError{Err: apperror.ErrUnauthorized, Message: "not logged in"}
	}
	return sess, actor, nil
}

// signIn places user into the caller's session, creating one if the caller
// has none (or it has been reaped), and issues a token naming it.
func (s *AuthService) signIn(ctx context.Context, sessionID string, user *model.User) (*AuthResult, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		var err error
		sess, err = s.sessions.Create(ctx)
		if err != nil {
			s.logger.Error("sign in: opening session",
				slog.Int64("userID", user.ID),
				slog.String("error", err.Error()),
			)
			return nil, apperror.PersistenceFailure("sign in", err)
		}
	}

	// A different actor must not inherit the previous one's draft.
	if sess.Holder.Set(user) {
		sess.Draft.Discard()
	}

	token, err := s.tokens.Generate(sess.ID)
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: user, Session: sess, Token: token}, nil
}
