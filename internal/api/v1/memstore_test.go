package v1

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"taskboard/internal/apperror"
	"taskboard/internal/models"
	"taskboard/internal/repository"
)

// memStore mirrors the PostgreSQL store's contracts in memory.
type memStore struct {
	mu       sync.Mutex
	nextID   int
	users    map[int]models.User
	projects map[int]models.Project
	tasks    map[int]models.Task
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[int]models.User{},
		projects: map[int]models.Project{},
		tasks:    map[int]models.Task{},
	}
}

func (s *memStore) id() int {
	s.nextID++
	return s.nextID
}

func (s *memStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.users {
		if other.Username == u.Username {
			return &apperror.ConflictError{Field: "username"}
		}
	}
	if u.Role == "" {
		u.Role = models.DefaultRole
	}
	u.ID = s.id()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	s.users[u.ID] = *u
	return nil
}

func (s *memStore) GetUser(_ context.Context, id int) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, &apperror.NotFoundError{Entity: "user", ID: id}
	}
	return &u, nil
}

func (s *memStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, &apperror.NotFoundError{Entity: "user"}
}

func (s *memStore) ListUsers(context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.User{}
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) UpdateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.users[u.ID]
	if !ok {
		return &apperror.NotFoundError{Entity: "user", ID: u.ID}
	}
	u.Role = cur.Role
	u.UpdatedAt = time.Now()
	s.users[u.ID] = *u
	return nil
}

func (s *memStore) SetUserRole(_ context.Context, id int, role models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return &apperror.NotFoundError{Entity: "user", ID: id}
	}
	u.Role = role
	s.users[id] = u
	return nil
}

func (s *memStore) DeleteUser(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return &apperror.NotFoundError{Entity: "user", ID: id}
	}
	for tid, t := range s.tasks {
		if t.AssigneeID != nil && *t.AssigneeID == id {
			t.AssigneeID = nil
			s.tasks[tid] = t
		}
	}
	for pid, p := range s.projects {
		p.Team = slices.DeleteFunc(slices.Clone(p.Team), func(m int) bool { return m == id })
		s.projects[pid] = p
	}
	delete(s.users, id)
	return nil
}

func (s *memStore) withRelations(p models.Project) *models.Project {
	p.Team = slices.Clone(p.Team)
	slices.Sort(p.Team)
	p.TaskIDs = []int{}
	for _, t := range s.tasks {
		if t.ProjectID == p.ID {
			p.TaskIDs = append(p.TaskIDs, t.ID)
		}
	}
	slices.Sort(p.TaskIDs)
	return &p
}

func (s *memStore) checkTeam(team []int) error {
	for _, uid := range team {
		if _, ok := s.users[uid]; !ok {
			return &apperror.ReferenceError{Field: "team", ID: uid}
		}
	}
	return nil
}

func (s *memStore) CreateProject(_ context.Context, p *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkTeam(p.Team); err != nil {
		return err
	}
	p.ID = s.id()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	s.projects[p.ID] = *p
	*p = *s.withRelations(*p)
	return nil
}

func (s *memStore) GetProject(_ context.Context, id int) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, &apperror.NotFoundError{Entity: "project", ID: id}
	}
	return s.withRelations(p), nil
}

func (s *memStore) ListProjects(_ context.Context, f repository.ProjectFilter) ([]models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Project{}
	for _, p := range s.projects {
		if f.MemberID != nil && !slices.Contains(p.Team, *f.MemberID) {
			continue
		}
		out = append(out, *s.withRelations(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) UpdateProject(_ context.Context, p *models.Project, replaceTeam bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.projects[p.ID]
	if !ok {
		return &apperror.NotFoundError{Entity: "project", ID: p.ID}
	}
	if replaceTeam {
		if err := s.checkTeam(p.Team); err != nil {
			return err
		}
		cur.Team = slices.Clone(p.Team)
	}
	cur.Title = p.Title
	cur.Description = p.Description
	cur.UpdatedAt = time.Now()
	s.projects[p.ID] = cur
	*p = *s.withRelations(cur)
	return nil
}

func (s *memStore) DeleteProject(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return &apperror.NotFoundError{Entity: "project", ID: id}
	}
	for tid, t := range s.tasks {
		if t.ProjectID == id {
			delete(s.tasks, tid)
		}
	}
	delete(s.projects, id)
	return nil
}

func (s *memStore) AddTeamMember(_ context.Context, projectID, userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[projectID]
	if !ok {
		return &apperror.NotFoundError{Entity: "project", ID: projectID}
	}
	if _, ok := s.users[userID]; !ok {
		return &apperror.ReferenceError{Field: "user_id", ID: userID}
	}
	if !slices.Contains(p.Team, userID) {
		p.Team = append(slices.Clone(p.Team), userID)
	}
	p.UpdatedAt = time.Now()
	s.projects[projectID] = p
	return nil
}

func (s *memStore) RemoveTeamMember(_ context.Context, projectID, userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[projectID]
	if !ok {
		return &apperror.NotFoundError{Entity: "project", ID: projectID}
	}
	if !slices.Contains(p.Team, userID) {
		return &apperror.NotFoundError{Entity: "team member", ID: userID}
	}
	p.Team = slices.DeleteFunc(slices.Clone(p.Team), func(m int) bool { return m == userID })
	p.UpdatedAt = time.Now()
	s.projects[projectID] = p
	return nil
}

func (s *memStore) IsTeamMember(_ context.Context, projectID, userID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[projectID]
	return ok && slices.Contains(p.Team, userID), nil
}

func (s *memStore) CreateTask(_ context.Context, t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[t.ProjectID]; !ok {
		return &apperror.ReferenceError{Field: "project", ID: t.ProjectID}
	}
	if t.AssigneeID != nil {
		if _, ok := s.users[*t.AssigneeID]; !ok {
			return &apperror.ReferenceError{Field: "assignee", ID: *t.AssigneeID}
		}
	}
	if t.Status == "" {
		t.Status = models.DefaultStatus
	}
	t.ID = s.id()
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	s.tasks[t.ID] = *t
	return nil
}

func (s *memStore) GetTask(_ context.Context, id int) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, &apperror.NotFoundError{Entity: "task", ID: id}
	}
	return &t, nil
}

func (s *memStore) ListTasks(_ context.Context, f repository.TaskFilter) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Task{}
	for _, t := range s.tasks {
		if f.ProjectID != nil && t.ProjectID != *f.ProjectID {
			continue
		}
		if f.AssigneeID != nil && (t.AssigneeID == nil || *t.AssigneeID != *f.AssigneeID) {
			continue
		}
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) UpdateTask(_ context.Context, t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.tasks[t.ID]
	if !ok {
		return &apperror.NotFoundError{Entity: "task", ID: t.ID}
	}
	if t.AssigneeID != nil {
		if _, ok := s.users[*t.AssigneeID]; !ok {
			return &apperror.ReferenceError{Field: "assignee", ID: *t.AssigneeID}
		}
	}
	t.ProjectID = cur.ProjectID
	t.CreatedAt = cur.CreatedAt
	t.UpdatedAt = time.Now()
	s.tasks[t.ID] = *t
	return nil
}

func (s *memStore) DeleteTask(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return &apperror.NotFoundError{Entity: "task", ID: id}
	}
	delete(s.tasks, id)
	return nil
}
