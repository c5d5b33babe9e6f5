package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/project"
)

type projectRepository struct {
	db *sqlx.DB
}

var _ project.Repository = (*projectRepository)(nil) // interface compliance check

func NewProjectRepository(db *sqlx.DB) *projectRepository {
	return &projectRepository{db: db}
}

type projectRow struct {
	ID          string      `db:"id"`
	Title       string      `db:"title"`
	Description null.String `db:"description"`
	CreatorID   string      `db:"creator_id"`
	CreatedAt   null.Time   `db:"created_at"`
	UpdatedAt   null.Time   `db:"updated_at"`
}

type memberRow struct {
	ProjectID string `db:"project_id"`
	UserID    string `db:"user_id"`
}

func (repo projectRepository) pack(prj project.Project) projectRow {
	return projectRow{
		ID:          prj.ID,
		Title:       prj.Title,
		Description: null.NewString(prj.Description, prj.Description != ""),
		CreatorID:   prj.CreatorID,
		CreatedAt:   null.NewTime(prj.CreatedAt.UTC(), !prj.CreatedAt.IsZero()),
		UpdatedAt:   null.NewTime(prj.UpdatedAt.UTC(), !prj.UpdatedAt.IsZero()),
	}
}

func (repo projectRepository) unpack(row projectRow, memberIDs []string) project.Project {
	return project.Project{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description.String,
		CreatorID:   row.CreatorID,
		MemberIDs:   memberIDs,
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
	}
}

// trapNoRowsErr maps psql "no rows" err to project.ErrNotFound
func (repo projectRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return project.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// queryMembers loads rosters for the given projects in one shot, keyed by
// project, in insertion order (creator first).
func (repo projectRepository) queryMembers(ctx context.Context, exe executor, projectIDs []string) (map[string][]string, error) {
	var rows []memberRow
	q := `SELECT project_id, user_id FROM project_member WHERE project_id = ANY ($1) ORDER BY id`
	if err := exe.SelectContext(ctx, &rows, q, pq.Array(projectIDs)); err != nil {
		return nil, errors.Wrap(err, "querying project members")
	}
	members := make(map[string][]string, len(projectIDs))
	for _, row := range rows {
		members[row.ProjectID] = append(members[row.ProjectID], row.UserID)
	}
	return members, nil
}

func (repo projectRepository) CreateProject(ctx context.Context, prj project.Project, exec ...core.DBExecutor) (project.Project, error) {
	prj.ID = uuid.New().String()
	row := repo.pack(prj)
	exe := getExec(repo.db, exec)

	q := `
INSERT INTO project (id, title, description, creator_id, created_at, updated_at)
VALUES (:id, :title, :description, :creator_id, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exe, q, row); err != nil {
		return project.Project{}, errors.Wrap(err, "inserting project")
	}
	for _, memberID := range prj.MemberIDs {
		if err := repo.addMember(ctx, exe, prj.ID, memberID); err != nil {
			return project.Project{}, err
		}
	}
	return prj, nil
}

func (repo projectRepository) GetProject(ctx context.Context, id string, exec ...core.DBExecutor) (project.Project, error) {
	if _, err := uuid.Parse(id); err != nil {
		return project.Project{}, project.ErrNotFound
	}
	exe := getExec(repo.db, exec)

	var row projectRow
	if err := exe.GetContext(ctx, &row, `SELECT * FROM project WHERE id = $1`, id); err != nil {
		return project.Project{}, repo.trapNoRowsErr(err, "finding project")
	}
	members, err := repo.queryMembers(ctx, exe, []string{row.ID})
	if err != nil {
		return project.Project{}, err
	}
	return repo.unpack(row, members[row.ID]), nil
}

func (repo projectRepository) QueryUserProjects(ctx context.Context, memberID string, exec ...core.DBExecutor) ([]project.Project, error) {
	exe := getExec(repo.db, exec)

	var rows []projectRow
	q := `
SELECT p.*
FROM project p
         JOIN project_member pm ON pm.project_id = p.id
WHERE pm.user_id = $1
ORDER BY p.created_at`
	if err := exe.SelectContext(ctx, &rows, q, memberID); err != nil {
		return nil, errors.Wrap(err, "querying projects")
	}
	if len(rows) == 0 {
		return []project.Project{}, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	members, err := repo.queryMembers(ctx, exe, ids)
	if err != nil {
		return nil, err
	}

	projects := make([]project.Project, 0, len(rows))
	for _, row := range rows {
		projects = append(projects, repo.unpack(row, members[row.ID]))
	}
	return projects, nil
}

func (repo projectRepository) UpdateProject(ctx context.Context, prj project.Project, exec ...core.DBExecutor) (project.Project, error) {
	row := repo.pack(prj)

	q := `
UPDATE project
SET title       = :title,
    description = :description,
    updated_at  = :updated_at
WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, getExec(repo.db, exec), q, row)
	if err != nil {
		return project.Project{}, errors.Wrap(err, "updating project")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return project.Project{}, project.ErrNotFound
	}
	return prj, nil
}

func (repo projectRepository) addMember(ctx context.Context, exe executor, projectID, userID string) error {
	q := `INSERT INTO project_member (project_id, user_id) VALUES ($1, $2)`
	if _, err := exe.ExecContext(ctx, q, projectID, userID); err != nil {
		return errors.Wrap(err, "inserting project member")
	}
	return nil
}

func (repo projectRepository) AddProjectMember(ctx context.Context, projectID, userID string, exec ...core.DBExecutor) error {
	return repo.addMember(ctx, getExec(repo.db, exec), projectID, userID)
}

func (repo projectRepository) RemoveProjectMember(ctx context.Context, projectID, userID string, exec ...core.DBExecutor) error {
	q := `DELETE FROM project_member WHERE project_id = $1 AND user_id = $2`
	if _, err := getExec(repo.db, exec).ExecContext(ctx, q, projectID, userID); err != nil {
		return errors.Wrap(err, "deleting project member")
	}
	return nil
}

// DeleteProject cascades: the project's tasks go with it, and so do the
// notifications referencing the project or any of those tasks (FKs).
func (repo projectRepository) DeleteProject(ctx context.Context, id string, exec ...core.DBExecutor) error {
	res, err := getExec(repo.db, exec).ExecContext(ctx, `DELETE FROM project WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting project")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return project.ErrNotFound
	}
	return nil
}
