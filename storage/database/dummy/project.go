package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/project"
)

type projectRepository struct {
	db *DB
}

var _ project.Repository = (*projectRepository)(nil) // interface compliance check

func NewProjectRepository(db *DB) *projectRepository {
	return &projectRepository{db: db}
}

func (repo *projectRepository) query() []project.Project {
	projects := make([]project.Project, 0, len(repo.db.projects))
	for _, p := range repo.db.projects {
		projects = append(projects, *p)
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].CreatedAt.Before(projects[j].CreatedAt) })
	return projects
}

func (repo *projectRepository) CreateProject(ctx context.Context, prj project.Project, exec ...core.DBExecutor) (project.Project, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	prj.ID = uuid.New().String()
	repo.db.projects[prj.ID] = &prj
	return prj, nil
}

func (repo *projectRepository) GetProject(ctx context.Context, id string, exec ...core.DBExecutor) (project.Project, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if prj, ok := repo.db.projects[id]; ok {
		return *prj, nil
	}
	return project.Project{}, project.ErrNotFound
}

func (repo *projectRepository) QueryUserProjects(ctx context.Context, memberID string, exec ...core.DBExecutor) ([]project.Project, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	res := make([]project.Project, 0)
	for _, prj := range repo.query() {
		if prj.HasMember(memberID) {
			res = append(res, prj)
		}
	}
	return res, nil
}

func (repo *projectRepository) UpdateProject(ctx context.Context, prj project.Project, exec ...core.DBExecutor) (project.Project, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.projects[prj.ID]
	if !ok {
		return project.Project{}, project.ErrNotFound
	}
	if prj.MemberIDs == nil {
		prj.MemberIDs = orig.MemberIDs
	}
	if prj.CreatedAt.IsZero() {
		prj.CreatedAt = orig.CreatedAt
	}
	repo.db.projects[prj.ID] = &prj
	return prj, nil
}

func (repo *projectRepository) AddProjectMember(ctx context.Context, projectID, userID string, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	prj, ok := repo.db.projects[projectID]
	if !ok {
		return project.ErrNotFound
	}
	prj.MemberIDs = append(prj.MemberIDs, userID)
	return nil
}

func (repo *projectRepository) RemoveProjectMember(ctx context.Context, projectID, userID string, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	prj, ok := repo.db.projects[projectID]
	if !ok {
		return project.ErrNotFound
	}
	members := make([]string, 0, len(prj.MemberIDs))
	for _, id := range prj.MemberIDs {
		if id != userID {
			members = append(members, id)
		}
	}
	prj.MemberIDs = members
	return nil
}

// DeleteProject cascades: the project's tasks go with it, and so do the
// notifications referencing the project or any of those tasks.
func (repo *projectRepository) DeleteProject(ctx context.Context, id string, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.projects[id]; !ok {
		return project.ErrNotFound
	}

	taskIDs := make(map[string]bool)
	for tid, t := range repo.db.tasks {
		if t.ProjectID == id {
			taskIDs[tid] = true
			delete(repo.db.tasks, tid)
		}
	}
	for nid, n := range repo.db.notifications {
		if n.RelatedProjectID == id || taskIDs[n.RelatedTaskID] {
			delete(repo.db.notifications, nid)
		}
	}
	delete(repo.db.projects, id)
	return nil
}
