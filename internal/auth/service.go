package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayush/exam-bank/backend/internal/metrics"
	"github.com/ayush/exam-bank/backend/internal/models"
	"github.com/ayush/exam-bank/backend/internal/store"
	"github.com/ayush/exam-bank/backend/internal/validate"
)

// UserStore defines the interface for user persistence.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	RecordLogin(ctx context.Context, id int64, at time.Time, ip string) error
}

// AuditSink receives auth events. Recording is best effort.
type AuditSink interface {
	Record(ctx context.Context, ev models.AuthEvent) error
}

// ClientInfo describes the caller of an auth operation.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// Service implements register, login, me and logout on top of a user
// store, the in-memory session store and a password hasher.
type Service struct {
	users    UserStore
	sessions *SessionStore
	hasher   *Hasher
	audit    AuditSink
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
	now      func() time.Time
}

type Option func(*Service)

func WithAudit(a AuditSink) Option { return func(s *Service) { s.audit = a } }

func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

func WithLogger(l logrus.FieldLogger) Option { return func(s *Service) { s.log = l } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(users UserStore, sessions *SessionStore, hasher *Hasher, opts ...Option) *Service {
	s := &Service{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		log:      logrus.StandardLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a new user. No session is created.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest, client ClientInfo) error {
	if fields := validate.Struct(&req); len(fields) > 0 {
		s.metrics.Registration(metrics.ResultInvalid)
		return &ValidationError{Fields: fields}
	}

	_, err := s.users.GetUserByUsername(ctx, req.Username)
	switch {
	case err == nil:
		s.metrics.Registration(metrics.ResultConflict)
		return ErrConflict
	case !errors.Is(err, store.ErrNotFound):
		s.metrics.Registration(metrics.ResultError)
		return fmt.Errorf("lookup username: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.metrics.Registration(metrics.ResultError)
		return fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{
		Username:     req.Username,
		PasswordHash: hash,
		RealName:     req.RealName,
		Role:         req.Role,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		// the unique constraint wins any race with a concurrent register
		if errors.Is(err, store.ErrDuplicate) {
			s.metrics.Registration(metrics.ResultConflict)
			return ErrConflict
		}
		s.metrics.Registration(metrics.ResultError)
		return fmt.Errorf("create user: %w", err)
	}

	s.metrics.Registration(metrics.ResultSuccess)
	s.log.WithFields(logrus.Fields{"user_id": u.ID, "username": u.Username, "role": u.Role}).Info("user registered")
	s.record(ctx, models.AuthEvent{Type: models.EventRegister, UserID: u.ID, Username: u.Username, IP: client.IP, UserAgent: client.UserAgent})
	return nil
}

// Login checks the credentials, stamps the last-login fields, opens a
// session and caches the profile. It returns the session token and the
// profile.
func (s *Service) Login(ctx context.Context, req models.LoginRequest, client ClientInfo) (string, models.Profile, error) {
	u, err := s.users.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.denied(ctx, req.Username, client)
			return "", models.Profile{}, ErrUnauthorized
		}
		s.metrics.Login(metrics.ResultError)
		return "", models.Profile{}, fmt.Errorf("lookup user: %w", err)
	}

	if !s.hasher.Verify(req.Password, u.PasswordHash) {
		s.denied(ctx, req.Username, client)
		return "", models.Profile{}, ErrUnauthorized
	}

	now := s.now()
	if err := s.users.RecordLogin(ctx, u.ID, now, client.IP); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.denied(ctx, req.Username, client)
			return "", models.Profile{}, ErrUnauthorized
		}
		s.metrics.Login(metrics.ResultError)
		return "", models.Profile{}, fmt.Errorf("record login: %w", err)
	}
	ip := client.IP
	u.LastLogin = &now
	u.LastLoginIP = &ip

	token := s.sessions.Create(u.ID)
	profile := u.Profile()
	s.sessions.SetProfile(profile)

	s.metrics.Login(metrics.ResultSuccess)
	s.log.WithFields(logrus.Fields{"user_id": u.ID, "username": u.Username, "ip": client.IP}).Info("user logged in")
	s.record(ctx, models.AuthEvent{Type: models.EventLoginSuccess, UserID: u.ID, Username: u.Username, IP: client.IP, UserAgent: client.UserAgent})
	return token, profile, nil
}

// Me returns the profile of an authenticated user. A cache miss is filled
// from the user store; if the user no longer exists all of its sessions
// are dropped.
func (s *Service) Me(ctx context.Context, userID int64) (models.Profile, error) {
	if p, ok := s.sessions.Profile(userID); ok {
		return p, nil
	}

	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			n := s.sessions.DropUser(userID)
			s.log.WithFields(logrus.Fields{"user_id": userID, "sessions": n}).Warn("sessions refer to missing user, dropped")
			return models.Profile{}, ErrUnauthorized
		}
		return models.Profile{}, fmt.Errorf("load profile: %w", err)
	}
	p := u.Profile()
	s.sessions.SetProfile(p)
	return p, nil
}

// Logout drops the session if it exists. It never fails.
func (s *Service) Logout(ctx context.Context, token string, client ClientInfo) {
	userID, ok := s.sessions.Get(token)
	s.sessions.Delete(token)
	if !ok {
		return
	}

	s.metrics.Logout()
	s.log.WithField("user_id", userID).Info("user logged out")
	s.record(ctx, models.AuthEvent{Type: models.EventLogout, UserID: userID, IP: client.IP, UserAgent: client.UserAgent})
}

func (s *Service) denied(ctx context.Context, username string, client ClientInfo) {
	s.metrics.Login(metrics.ResultDenied)
	s.log.WithFields(logrus.Fields{"username": username, "ip": client.IP}).Warn("login rejected")
	s.record(ctx, models.AuthEvent{Type: models.EventLoginFailure, Username: username, IP: client.IP, UserAgent: client.UserAgent})
}

func (s *Service) record(ctx context.Context, ev models.AuthEvent) {
	if s.audit == nil {
		return
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = s.now()
	}
	if err := s.audit.Record(ctx, ev); err != nil {
		s.log.WithError(err).WithField("event", ev.Type).Warn("audit record failed")
	}
}
