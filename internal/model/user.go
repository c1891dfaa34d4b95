package model

import "time"

// Role замкнутый набор ролей. В БД хранится булевым is_professor.
type Role int

const (
	RoleStudent Role = iota
	RoleProfessor
)

func (r Role) String() string {
	if r == RoleProfessor {
		return "professor"
	}
	return "student"
}

type User struct {
	ID          int64     `json:"id"`
	TelegramID  *int64    `json:"telegram_id"` // nil если пользователь не связан с ботом
	DisplayName string    `json:"display_name"`
	IsProfessor bool      `json:"is_professor"`
	CreatedAt   time.Time `json:"created_at"`
}

// Role возвращает роль пользователя
func (u *User) Role() Role {
	if u.IsProfessor {
		return RoleProfessor
	}
	return RoleStudent
}
