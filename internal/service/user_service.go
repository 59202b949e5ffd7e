package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"nvrgate/internal/errs"
	"nvrgate/internal/models"
	"nvrgate/internal/repository"
	"nvrgate/internal/security"
)

// UserView is the client-visible projection of a user. Secrets never appear in it.
type UserView struct {
	Username    string             `json:"username"`
	Preferences models.Preferences `json:"preferences"`
	Permissions models.Permissions `json:"permissions"`
	Disabled    bool               `json:"disabled"`
}

type UserWithID struct {
	ID   int32    `json:"id"`
	User UserView `json:"user"`
}

func NewUserView(u models.User) UserView {
	prefs := u.Preferences
	if prefs == nil {
		prefs = models.Preferences{}
	}
	return UserView{
		Username:    u.Username,
		Preferences: prefs,
		Permissions: u.Permissions,
		Disabled:    u.Disabled,
	}
}

type PostUsersRequest struct {
	CSRF *string           `json:"csrf"`
	User models.UserSubset `json:"user"`
}

type DeleteUserRequest struct {
	CSRF *string `json:"csrf"`
}

type PatchUserRequest struct {
	CSRF         *string            `json:"csrf"`
	Precondition *models.UserSubset `json:"precondition"`
	Update       *models.UserSubset `json:"update"`
}

type PasswordHasher func(password string) ([]byte, error)

type PasswordVerifier func(password string, hash []byte) (bool, error)

// UserService applies account reads and mutations on behalf of a resolved caller.
type UserService struct {
	users  UserStore
	tasks  TaskPublisher
	log    zerolog.Logger
	hash   PasswordHasher
	verify PasswordVerifier
	now    func() time.Time
}

// NewUserService builds the service. tasks may be nil, in which case account events are
// not published.
func NewUserService(users UserStore, tasks TaskPublisher, log zerolog.Logger) *UserService {
	return &UserService{
		users:  users,
		tasks:  tasks,
		log:    log,
		hash:   security.HashPassword,
		verify: security.VerifyPassword,
		now:    time.Now,
	}
}

func (s *UserService) WithPasswordFuncs(hash PasswordHasher, verify PasswordVerifier) *UserService {
	s.hash = hash
	s.verify = verify
	return s
}

func (s *UserService) List(ctx context.Context, caller models.Caller) ([]UserWithID, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, errs.Wrap(err, errs.Internal, "list users")
	}
	out := make([]UserWithID, 0, len(users))
	for _, u := range users {
		out = append(out, UserWithID{ID: u.ID, User: NewUserView(u)})
	}
	return out, nil
}

func (s *UserService) Create(ctx context.Context, caller models.Caller, req PostUsersRequest) (int32, error) {
	if err := requireAdmin(caller); err != nil {
		return 0, err
	}
	if err := requireCSRFIfSession(caller, req.CSRF); err != nil {
		return 0, err
	}

	fields := req.User
	if fields.Username == nil {
		return 0, errs.New(errs.InvalidArgument, "username must be specified")
	}
	if *fields.Username == "" {
		return 0, errs.New(errs.InvalidArgument, "username must not be empty")
	}
	change := models.AddUser(*fields.Username)
	fields.Username = nil

	var password *string
	if fields.Password != nil {
		password = fields.Password.Value
		fields.Password = nil
	}
	if fields.Preferences != nil {
		change.Preferences = *fields.Preferences
		fields.Preferences = nil
	}
	if fields.Permissions != nil {
		change.Permissions = *fields.Permissions
		fields.Permissions = nil
	}
	if !fields.IsEmpty() {
		return 0, errs.New(errs.Unimplemented, "unsupported user fields: %s", strings.Join(fields.Remaining(), ", "))
	}

	if password != nil {
		hash, err := s.hash(*password)
		if err != nil {
			return 0, errs.Wrap(err, errs.Internal, "hash password")
		}
		change.SetPasswordHash(hash)
	}

	user, err := s.users.AddUser(ctx, change)
	if err != nil {
		return 0, fmt.Errorf("add user %q: %w", change.Username, err)
	}

	s.log.Info().Int32("user_id", user.ID).Str("username", user.Username).Msg("user created")
	s.publish(ctx, models.TaskUserCreated, user.ID)
	return user.ID, nil
}

func (s *UserService) Get(ctx context.Context, caller models.Caller, id int32) (UserView, error) {
	if err := requireSameOrAdmin(caller, id); err != nil {
		return UserView{}, err
	}
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		return UserView{}, userNotFound(err, "can't find requested user")
	}
	return NewUserView(user), nil
}

func (s *UserService) Delete(ctx context.Context, caller models.Caller, id int32, req DeleteUserRequest) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if err := requireCSRFIfSession(caller, req.CSRF); err != nil {
		return err
	}
	if err := s.users.DeleteUser(ctx, id); err != nil {
		return userNotFound(err, "can't find requested user")
	}

	s.log.Info().Int32("user_id", id).Msg("user deleted")
	s.publish(ctx, models.TaskUserDeleted, id)
	return nil
}

// Patch checks the preconditions against the current record and applies the update, both
// inside one store transaction. Any failure leaves the record untouched.
func (s *UserService) Patch(ctx context.Context, caller models.Caller, id int32, req PatchUserRequest) error {
	if err := requireSameOrAdmin(caller, id); err != nil {
		return err
	}
	if err := requireCSRFIfSession(caller, req.CSRF); err != nil {
		return err
	}

	changesPassword := req.Update != nil && req.Update.Password != nil
	provesPassword := req.Precondition != nil && req.Precondition.Password != nil
	if changesPassword && !provesPassword && !caller.Permissions.AdminUsers() {
		return errs.New(errs.Unauthenticated,
			"to change password, must supply previous password or have admin_users permission")
	}

	var newHash []byte
	if changesPassword && req.Update.Password.Value != nil {
		hash, err := s.hash(*req.Update.Password.Value)
		if err != nil {
			return errs.Wrap(err, errs.Internal, "hash password")
		}
		newHash = hash
	}

	err := s.users.UpdateUser(ctx, id, func(user models.User) (*models.UserChange, error) {
		if req.Precondition != nil {
			if err := s.checkPreconditions(user, *req.Precondition); err != nil {
				return nil, err
			}
		}
		if req.Update == nil {
			return nil, nil
		}
		return buildChange(user, *req.Update, newHash, caller)
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return errs.New(errs.NotFound, "can't find requested user")
		}
		var apiErr *errs.Error
		if errors.As(err, &apiErr) {
			return err
		}
		return fmt.Errorf("update user %d: %w", id, err)
	}

	if req.Update != nil {
		s.publish(ctx, models.TaskUserUpdated, id)
	}
	return nil
}

func (s *UserService) checkPreconditions(user models.User, pre models.UserSubset) error {
	if pre.Disabled != nil {
		if *pre.Disabled != user.Disabled {
			return errs.New(errs.FailedPrecondition, "disabled mismatch")
		}
		pre.Disabled = nil
	}
	if pre.Username != nil {
		if *pre.Username != user.Username {
			return errs.New(errs.FailedPrecondition, "username mismatch")
		}
		pre.Username = nil
	}
	if pre.Preferences != nil {
		if !pre.Preferences.Equal(user.Preferences) {
			return errs.New(errs.FailedPrecondition, "preferences mismatch")
		}
		pre.Preferences = nil
	}
	if pre.Password != nil {
		ok, err := s.passwordMatches(user, pre.Password)
		if err != nil {
			return errs.Wrap(err, errs.Internal, "check password")
		}
		if !ok {
			return errs.New(errs.FailedPrecondition, "password mismatch")
		}
		pre.Password = nil
	}
	if pre.Permissions != nil {
		if *pre.Permissions != user.Permissions {
			return errs.New(errs.FailedPrecondition, "permissions mismatch")
		}
		pre.Permissions = nil
	}

	if !pre.IsEmpty() {
		return errs.New(errs.Unimplemented, "preconditions not supported: %s", strings.Join(pre.Remaining(), ", "))
	}
	return nil
}

// passwordMatches treats a null expected password as "the user has no password".
func (s *UserService) passwordMatches(user models.User, expected *models.PasswordValue) (bool, error) {
	if expected.Value == nil {
		return !user.HasPassword(), nil
	}
	return s.verify(*expected.Value, user.PasswordHash)
}

func buildChange(user models.User, upd models.UserSubset, newHash []byte, caller models.Caller) (*models.UserChange, error) {
	change := user.Change()

	// Self-service fields first.
	if upd.Preferences != nil {
		change.Preferences = *upd.Preferences
		upd.Preferences = nil
	}
	if upd.Password != nil {
		if upd.Password.Value == nil {
			change.ClearPassword()
		} else {
			change.SetPasswordHash(newHash)
		}
		upd.Password = nil
	}

	if !upd.IsEmpty() && !caller.Permissions.AdminUsers() {
		return nil, errs.New(errs.Unauthenticated, "must have admin_users permission")
	}
	if upd.Disabled != nil {
		change.Disabled = *upd.Disabled
		upd.Disabled = nil
	}
	if upd.Username != nil {
		if *upd.Username == "" {
			return nil, errs.New(errs.InvalidArgument, "username must not be empty")
		}
		change.Username = *upd.Username
		upd.Username = nil
	}
	if upd.Permissions != nil {
		change.Permissions = *upd.Permissions
		upd.Permissions = nil
	}

	if !upd.IsEmpty() {
		return nil, errs.New(errs.Unimplemented, "updates not supported: %s", strings.Join(upd.Remaining(), ", "))
	}
	return &change, nil
}

func (s *UserService) publish(ctx context.Context, typ models.TaskType, userID int32) {
	if s.tasks == nil {
		return
	}
	task := models.Task{Type: typ, UserID: userID, CreatedAt: s.now()}
	if _, err := s.tasks.Enqueue(ctx, task); err != nil {
		s.log.Warn().Err(err).Str("type", string(typ)).Int32("user_id", userID).Msg("publish account event failed")
	}
}

func requireAdmin(caller models.Caller) error {
	if !caller.Permissions.AdminUsers() {
		return errs.New(errs.Unauthenticated, "must have admin_users permission")
	}
	return nil
}

func requireSameOrAdmin(caller models.Caller, id int32) error {
	if uid, ok := caller.UserID(); ok && uid == id {
		return nil
	}
	if caller.Permissions.AdminUsers() {
		return nil
	}
	return errs.New(errs.Unauthenticated, "must be authenticated as supplied user or have admin_users permission")
}

func requireCSRFIfSession(caller models.Caller, csrf *string) error {
	if !caller.ViaSession {
		return nil
	}
	if csrf == nil {
		return errs.New(errs.Unauthenticated, "csrf must be supplied")
	}
	if !security.CheckCSRF(caller.CSRF, *csrf) {
		return errs.New(errs.Unauthenticated, "incorrect csrf")
	}
	return nil
}
