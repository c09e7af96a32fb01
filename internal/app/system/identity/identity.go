// Package identity keeps the local users collection in step with the external
// auth provider. The provider owns credentials; the local record owns profile
// data, activation and staff status.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	userstore "github.com/dalemusser/soar/internal/app/store/users"
	"github.com/dalemusser/soar/internal/app/system/authprovider"
	"github.com/dalemusser/soar/internal/app/system/inputval"
	"github.com/dalemusser/soar/internal/app/system/metrics"
	"github.com/dalemusser/soar/internal/app/system/normalize"
	"github.com/dalemusser/soar/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var (
	ErrEmailUnconfirmed   = errors.New("please confirm your email address before signing in")
	ErrStudentIDTaken     = errors.New("a user with this student ID already exists")
	ErrUsernameTaken      = errors.New("a user with this username already exists")
	ErrEmailTaken         = errors.New("a user with this email address already exists")
	ErrMissingCredentials = errors.New("email and password are required")
)

// UserStore is the subset of the user directory the reconciler uses.
// *userstore.Store satisfies it.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	StudentIDExists(ctx context.Context, studentID string) (bool, error)
	Create(ctx context.Context, u models.User) (models.User, error)
	UpsertProfile(ctx context.Context, u models.User) (models.User, error)
	MarkLogin(ctx context.Context, id string, at time.Time) error
}

// Reconciler registers and signs in users against a Provider.
type Reconciler struct {
	Provider    authprovider.Provider
	Users       UserStore
	EmailDomain string // institutional domain; empty accepts any
	Log         *zap.Logger
	Now         func() time.Time
}

func (r *Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

func (r *Reconciler) log() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}

// RegistrationForm is the sign-up form as submitted.
type RegistrationForm struct {
	Username  string `validate:"required,max=150,username" label:"Username"`
	Email     string `validate:"required,max=254,bareemail" label:"Email"`
	StudentID string `validate:"required,studentid" label:"Student ID"`
	FirstName string `validate:"max=150" label:"First name"`
	LastName  string `validate:"max=150" label:"Last name"`
	Course    string `validate:"max=100" label:"Course"`
	YearLevel string `validate:"omitempty,posint" label:"Year level"`
	Password1 string
	Password2 string
}

// Check validates the form without touching the provider or the database.
func (f RegistrationForm) Check(emailDomain string) *inputval.Result {
	res := inputval.Validate(f)

	email := normalize.Email(f.Email)
	if email != "" && inputval.IsValidEmail(email) && !inputval.HasEmailDomain(email, emailDomain) {
		res.Add("Email", fmt.Sprintf("Use your @%s email address.", strings.TrimPrefix(emailDomain, "@")))
	}

	inputval.CheckPassword(res, inputval.PasswordInput{
		Password1: f.Password1,
		Password2: f.Password2,
		Username:  strings.TrimSpace(f.Username),
		Email:     email,
		StudentID: strings.TrimSpace(f.StudentID),
	})
	return res
}

func (f RegistrationForm) yearLevel() int {
	n, _ := strconv.Atoi(strings.TrimSpace(f.YearLevel))
	return n
}

// Register validates form, creates the identity at the provider and mirrors
// it locally as an inactive user. Validation failures are returned as
// *inputval.Result before the provider is contacted.
func (r *Reconciler) Register(ctx context.Context, form RegistrationForm) (*models.User, error) {
	u, err := r.register(ctx, form)
	outcome := metrics.OutcomeSuccess
	var res *inputval.Result
	switch {
	case err == nil:
	case errors.As(err, &res), errors.Is(err, ErrStudentIDTaken), errors.Is(err, ErrUsernameTaken),
		errors.Is(err, ErrEmailTaken), authprovider.IsKind(err, authprovider.KindRejected):
		outcome = metrics.OutcomeRejected
	default:
		outcome = metrics.OutcomeError
	}
	metrics.Registrations.WithLabelValues(outcome).Inc()
	return u, err
}

func (r *Reconciler) register(ctx context.Context, form RegistrationForm) (*models.User, error) {
	if res := form.Check(r.EmailDomain); res.HasErrors() {
		return nil, res
	}

	email := normalize.Email(form.Email)
	username := normalize.Username(form.Username)
	studentID := strings.TrimSpace(form.StudentID)

	taken, err := r.Users.StudentIDExists(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("check student id: %w", err)
	}
	if taken {
		return nil, ErrStudentIDTaken
	}
	taken, err = r.Users.UsernameExists(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	metadata := map[string]any{
		"username":   username,
		"student_id": studentID,
		"course":     normalize.Name(form.Course),
	}
	if yl := form.yearLevel(); yl > 0 {
		metadata["year_level"] = yl
	}

	id, err := r.Provider.SignUp(ctx, email, form.Password1, metadata)
	if err != nil {
		return nil, err
	}

	u, err := r.Users.UpsertProfile(ctx, models.User{
		ID:        id.ID,
		Username:  username,
		Email:     email,
		StudentID: &studentID,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Course:    form.Course,
		YearLevel: form.yearLevel(),
		IsActive:  false,
	})
	if err != nil {
		r.log().Error("provider identity created but local user not saved",
			zap.String("identity_id", id.ID),
			zap.String("email", email),
			zap.Error(err))
		return nil, mapDup(err)
	}

	r.log().Info("user registered",
		zap.String("user_id", u.ID),
		zap.String("username", u.Username),
		zap.Bool("confirmed", id.Confirmed()))
	return &u, nil
}

func mapDup(err error) error {
	switch {
	case errors.Is(err, userstore.ErrDuplicateStudentID):
		return ErrStudentIDTaken
	case errors.Is(err, userstore.ErrDuplicateUsername):
		return ErrUsernameTaken
	case errors.Is(err, userstore.ErrDuplicateEmail):
		return ErrEmailTaken
	}
	return err
}

// Login signs in at the provider and returns the active local user, creating
// it on first sign-in. An unconfirmed email fails with ErrEmailUnconfirmed.
func (r *Reconciler) Login(ctx context.Context, email, password string) (*models.User, error) {
	u, err := r.login(ctx, email, password)
	outcome := metrics.OutcomeSuccess
	switch {
	case err == nil:
	case errors.Is(err, ErrEmailUnconfirmed), errors.Is(err, ErrMissingCredentials),
		authprovider.IsKind(err, authprovider.KindRejected):
		outcome = metrics.OutcomeRejected
	default:
		outcome = metrics.OutcomeError
	}
	metrics.Logins.WithLabelValues(outcome).Inc()
	return u, err
}

func (r *Reconciler) login(ctx context.Context, email, password string) (*models.User, error) {
	email = normalize.Email(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	sess, err := r.Provider.SignIn(ctx, email, password)
	if err != nil {
		if authprovider.IsEmailNotConfirmed(err) {
			return nil, ErrEmailUnconfirmed
		}
		return nil, err
	}
	if !sess.User.Confirmed() {
		return nil, ErrEmailUnconfirmed
	}

	u, err := r.Users.GetByID(ctx, sess.User.ID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		u, err = r.createFromIdentity(ctx, sess.User, email)
	}
	if err != nil {
		return nil, err
	}

	at := r.now()
	if err := r.Users.MarkLogin(ctx, u.ID, at); err != nil {
		return nil, fmt.Errorf("mark login: %w", err)
	}
	u.IsActive = true
	u.LastLogin = &at
	return u, nil
}

// createFromIdentity mirrors an identity that has no local record yet, for
// accounts created at the provider directly.
func (r *Reconciler) createFromIdentity(ctx context.Context, id authprovider.Identity, fallbackEmail string) (*models.User, error) {
	email := normalize.Email(id.Email)
	if email == "" {
		email = fallbackEmail
	}

	username := metaString(id.Metadata, "username")
	if username == "" {
		username = normalize.UsernameFromEmail(email)
	}
	taken, err := r.Users.UsernameExists(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if taken {
		username = username + "-" + shortID(id.ID)
	}

	nu := models.User{
		ID:       id.ID,
		Username: username,
		Email:    email,
		Course:   metaString(id.Metadata, "course"),
	}
	if sid := metaString(id.Metadata, "student_id"); inputval.IsValidStudentID(sid) {
		if exists, err := r.Users.StudentIDExists(ctx, sid); err == nil && !exists {
			nu.StudentID = &sid
		}
	}

	created, err := r.Users.Create(ctx, nu)
	if err != nil {
		return nil, mapDup(err)
	}
	r.log().Info("user created from provider identity",
		zap.String("user_id", created.ID),
		zap.String("username", created.Username))
	return &created, nil
}

func metaString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 6 {
		return id[:6]
	}
	return id
}

// Message returns the text to show for an error from Register or Login.
func Message(err error) string {
	var res *inputval.Result
	var pe *authprovider.Error
	switch {
	case err == nil:
		return ""
	case errors.As(err, &res):
		return res.First()
	case errors.Is(err, ErrEmailUnconfirmed), errors.Is(err, ErrStudentIDTaken),
		errors.Is(err, ErrUsernameTaken), errors.Is(err, ErrEmailTaken),
		errors.Is(err, ErrMissingCredentials):
		return capitalize(err.Error()) + "."
	case errors.As(err, &pe):
		return pe.UserMessage()
	default:
		return "Something went wrong. Please try again."
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
