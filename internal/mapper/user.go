package mapper

import (
	"strings"

	"taskboard/internal/apperror"
	"taskboard/internal/models"
)

// UserView is the only outward shape of a user. The password hash has no
// field here, whoever is asking.
type UserView struct {
	ID        int         `json:"id"`
	Username  string      `json:"username"`
	Role      models.Role `json:"role"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Email     string      `json:"email"`
}

func ToUserView(u *models.User) UserView {
	return UserView{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
	}
}

func ToUserViews(users []models.User) []UserView {
	out := make([]UserView, 0, len(users))
	for i := range users {
		out = append(out, ToUserView(&users[i]))
	}
	return out
}

type UserCreate struct {
	Username  string `json:"username" validate:"required,max=150"`
	Password  string `json:"password" validate:"required,min=6"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
	Email     string `json:"email" validate:"omitempty,email"`
	Role      string `json:"role" validate:"omitempty,oneof=ADMIN MANAGER DEVELOPER"`
}

func (in *UserCreate) normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
}

func DecodeUserCreate(body []byte) (*UserCreate, error) {
	var in UserCreate
	if err := decode(body, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

// User builds the entity to store; passwordHash is the already hashed
// credential. An empty role stays empty so the store applies the default.
func (in *UserCreate) User(passwordHash string) *models.User {
	return &models.User{
		Username:     in.Username,
		PasswordHash: passwordHash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		Role:         models.Role(in.Role),
	}
}

// UserUpdate is a partial update; nil fields are left unchanged.
type UserUpdate struct {
	Username  *string `json:"username" validate:"omitnil,min=1,max=150"`
	Password  *string `json:"password" validate:"omitnil,min=6"`
	FirstName *string `json:"first_name" validate:"omitnil,max=150"`
	LastName  *string `json:"last_name" validate:"omitnil,max=150"`
	Email     *string `json:"email"`
}

func (in *UserUpdate) normalize() {
	if in.Username != nil {
		s := strings.TrimSpace(*in.Username)
		in.Username = &s
	}
	if in.Email != nil {
		s := strings.TrimSpace(*in.Email)
		in.Email = &s
	}
}

func (in *UserUpdate) check(verr *apperror.ValidationError) {
	if in.Email != nil && *in.Email != "" && validate.Var(*in.Email, "email") != nil {
		verr.Add("email", "enter a valid email address")
	}
}

func DecodeUserUpdate(body []byte) (*UserUpdate, error) {
	var in UserUpdate
	if err := decode(body, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

// Apply copies the present fields onto u. A new password must already be
// hashed by the caller and is passed as newHash.
func (in *UserUpdate) Apply(u *models.User, newHash string) {
	if in.Username != nil {
		u.Username = *in.Username
	}
	if in.FirstName != nil {
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		u.LastName = *in.LastName
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if newHash != "" {
		u.PasswordHash = newHash
	}
}

type RoleInput struct {
	Role string `json:"role" validate:"required,oneof=ADMIN MANAGER DEVELOPER"`
}

func DecodeRole(body []byte) (models.Role, error) {
	var in RoleInput
	if err := decode(body, &in); err != nil {
		return "", err
	}
	return models.Role(in.Role), nil
}
