package project

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/access"
	"github.com/trezcool/kazi/core/notification"
	"github.com/trezcool/kazi/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("project not found")

	errNotCreator      = "only the project creator may do this"
	errAlreadyMember   = "user is already a member of this project"
	errCreatorRemoval  = "the project creator cannot be removed from members"
	errMemberNotListed = "user is not a member of this project"
)

type (
	Repository interface {
		CreateProject(ctx context.Context, prj Project, exec ...core.DBExecutor) (Project, error)
		GetProject(ctx context.Context, id string, exec ...core.DBExecutor) (Project, error)
		// QueryUserProjects returns projects the user is a member of.
		QueryUserProjects(ctx context.Context, memberID string, exec ...core.DBExecutor) ([]Project, error)
		UpdateProject(ctx context.Context, prj Project, exec ...core.DBExecutor) (Project, error)
		AddProjectMember(ctx context.Context, projectID, userID string, exec ...core.DBExecutor) error
		RemoveProjectMember(ctx context.Context, projectID, userID string, exec ...core.DBExecutor) error
		// DeleteProject deletes the project, its tasks and their
		// notifications in one transaction.
		DeleteProject(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	// Notifier is the sink lifecycle events are pushed to.
	Notifier interface {
		Notify(ctx context.Context, nn notification.NewNotification, exec ...core.DBExecutor) (notification.Notification, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, actor user.User, np NewProject) (Project, error)
		Get(ctx context.Context, actor user.User, id string) (Project, error)
		QueryForUser(ctx context.Context, actor user.User) ([]Project, error)
		Update(ctx context.Context, actor user.User, id string, up UpdateProject) (Project, error)
		Delete(ctx context.Context, actor user.User, id string) error
		AddMember(ctx context.Context, actor user.User, projectID, userID string) (Project, error)
		RemoveMember(ctx context.Context, actor user.User, projectID, userID string) (Project, error)
	}

	service struct {
		repo     Repository
		users    user.Repository
		notifier Notifier
		atomic   core.AtomicRunner
		clock    core.Clock
		log      core.Logger
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(
	repo Repository,
	users user.Repository,
	notifier Notifier,
	atomic core.AtomicRunner,
	clock core.Clock,
	log core.Logger,
) *service {
	return &service{repo: repo, users: users, notifier: notifier, atomic: atomic, clock: clock, log: log}
}

func (svc *service) Create(ctx context.Context, actor user.User, np NewProject) (Project, error) {
	now := svc.clock.Now()
	prj := Project{
		Title:       np.Title,
		Description: np.Description,
		CreatorID:   actor.ID,
		MemberIDs:   []string{actor.ID}, // creator is always a member
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateProject(ctx, prj)
}

// get loads a project and applies the read gate: actors outside the roster
// get ErrNotFound, masking the project's existence.
func (svc *service) get(ctx context.Context, actor user.User, id string) (Project, error) {
	prj, err := svc.repo.GetProject(ctx, id)
	if err != nil {
		return Project{}, err
	}
	if !access.CanReadProject(actor.ID, prj.MemberIDs) {
		return Project{}, ErrNotFound
	}
	return prj, nil
}

func (svc *service) Get(ctx context.Context, actor user.User, id string) (Project, error) {
	return svc.get(ctx, actor, id)
}

func (svc *service) QueryForUser(ctx context.Context, actor user.User) ([]Project, error) {
	return svc.repo.QueryUserProjects(ctx, actor.ID)
}

func (svc *service) Update(ctx context.Context, actor user.User, id string, up UpdateProject) (Project, error) {
	prj, err := svc.get(ctx, actor, id)
	if err != nil {
		return Project{}, err
	}
	if !access.CanWriteProject(actor.ID, prj.CreatorID) {
		return Project{}, core.NewPermissionError(errNotCreator)
	}
	if err = up.Validate(prj); err != nil {
		return Project{}, err
	}

	prj.Title = up.Title
	prj.Description = up.Description
	prj.UpdatedAt = svc.clock.Now()
	return svc.repo.UpdateProject(ctx, prj)
}

// Delete removes the project along with its tasks and their notifications.
func (svc *service) Delete(ctx context.Context, actor user.User, id string) error {
	prj, err := svc.get(ctx, actor, id)
	if err != nil {
		return err
	}
	if !access.CanWriteProject(actor.ID, prj.CreatorID) {
		return core.NewPermissionError(errNotCreator)
	}
	return svc.repo.DeleteProject(ctx, prj.ID)
}

// AddMember adds a user to the roster and notifies them. Adding an existing
// member is rejected, not silently ignored.
func (svc *service) AddMember(ctx context.Context, actor user.User, projectID, userID string) (Project, error) {
	prj, err := svc.get(ctx, actor, projectID)
	if err != nil {
		return Project{}, err
	}
	if !access.CanWriteProject(actor.ID, prj.CreatorID) {
		return Project{}, core.NewPermissionError(errNotCreator)
	}
	member, err := svc.users.GetUser(ctx, user.GetFilter{ID: userID})
	if err != nil {
		return Project{}, err
	}
	if prj.HasMember(member.ID) {
		return Project{}, core.NewValidationError(nil, core.FieldError{Field: "user_id", Error: errAlreadyMember})
	}

	err = svc.atomic.Atomic(ctx, func(exec core.DBExecutor) error {
		if err := svc.repo.AddProjectMember(ctx, prj.ID, member.ID, exec); err != nil {
			return errors.Wrap(err, "adding project member")
		}
		_, err := svc.notifier.Notify(ctx, notification.NewNotification{
			UserID:           member.ID,
			Type:             notification.TypeProjectInvitation,
			Title:            "Project invitation",
			Message:          fmt.Sprintf("You have been added to the project %q.", prj.Title),
			RelatedProjectID: prj.ID,
		}, exec)
		return err
	})
	if err != nil {
		return Project{}, err
	}

	prj.MemberIDs = append(prj.MemberIDs, member.ID)
	return prj, nil
}

// RemoveMember drops a user from the roster. Removing the creator always
// fails, for any caller.
func (svc *service) RemoveMember(ctx context.Context, actor user.User, projectID, userID string) (Project, error) {
	prj, err := svc.get(ctx, actor, projectID)
	if err != nil {
		return Project{}, err
	}
	if !access.CanWriteProject(actor.ID, prj.CreatorID) {
		return Project{}, core.NewPermissionError(errNotCreator)
	}
	if prj.IsCreator(userID) {
		return Project{}, core.NewValidationError(nil, core.FieldError{Field: "user_id", Error: errCreatorRemoval})
	}
	if !prj.HasMember(userID) {
		return Project{}, core.NewValidationError(nil, core.FieldError{Field: "user_id", Error: errMemberNotListed})
	}

	if err = svc.repo.RemoveProjectMember(ctx, prj.ID, userID); err != nil {
		return Project{}, errors.Wrap(err, "removing project member")
	}

	members := make([]string, 0, len(prj.MemberIDs)-1)
	for _, id := range prj.MemberIDs {
		if id != userID {
			members = append(members, id)
		}
	}
	prj.MemberIDs = members
	return prj, nil
}
