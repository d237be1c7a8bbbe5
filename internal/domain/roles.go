package domain

// Role — уровень доступа к команде.
type Role int

const (
	// RoleEveryone — команда доступна всем.
	RoleEveryone Role = 0
	// RoleBotAdmin — команда доступна только администратору бота.
	RoleBotAdmin Role = 2
	// RoleGroupAdmin — команда доступна администраторам группы
	// и администратору бота.
	RoleGroupAdmin Role = 3
)

// Allows сообщает, достаточно ли фактической роли r для требования required.
// Администратор бота проходит любую проверку.
func (r Role) Allows(required Role) bool {
	switch required {
	case RoleEveryone:
		return true
	case RoleBotAdmin:
		return r == RoleBotAdmin
	case RoleGroupAdmin:
		return r == RoleGroupAdmin || r == RoleBotAdmin
	default:
		return r == RoleBotAdmin
	}
}

func (r Role) String() string {
	switch r {
	case RoleEveryone:
		return "everyone"
	case RoleBotAdmin:
		return "bot_admin"
	case RoleGroupAdmin:
		return "group_admin"
	default:
		return "unknown"
	}
}
