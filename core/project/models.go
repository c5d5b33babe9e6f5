package project

import (
	"time"

	"github.com/trezcool/kazi/core"
)

// Project groups tasks and carries the member roster. The creator is
// immutable and is always part of the roster.
type Project struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatorID   string    `json:"creator_id"`
	MemberIDs   []string  `json:"member_ids"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

func (p *Project) IsCreator(userID string) bool { return p.CreatorID == userID }

func (p *Project) HasMember(userID string) bool {
	for _, id := range p.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// NewProject contains information needed to create a new Project.
type NewProject struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

func (np *NewProject) Validate() error {
	np.Title = core.CleanString(np.Title)
	np.Description = core.CleanString(np.Description)
	return core.Validate.Struct(np)
}

// UpdateProject defines what information may be provided to modify an
// existing Project. The creator and roster are managed by dedicated
// operations.
type UpdateProject struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (up *UpdateProject) Validate(orig Project) error {
	title := core.CleanString(up.Title)
	if title != "" {
		up.Title = title
	} else {
		up.Title = orig.Title
	}

	desc := core.CleanString(up.Description)
	if desc != "" {
		up.Description = desc
	} else {
		up.Description = orig.Description
	}
	return core.Validate.Struct(up)
}
