package repositories

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"weel-backend/internal/models"
)

type UserRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{DB: db}
}

const userColumns = `
	u.id, u.phone_number, u.username, COALESCE(u.password_hash, ''), u.created_at,
	COALESCE(array_agg(r.name) FILTER (WHERE r.name IS NOT NULL), '{}')
`

const userJoin = `
	FROM users u
	LEFT JOIN user_roles ur ON ur.user_id = u.id
	LEFT JOIN roles r ON r.id = ur.role_id
`

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var roles pq.StringArray
	err := row.Scan(&u.ID, &u.PhoneNumber, &u.Username, &u.PasswordHash, &u.CreatedAt, &roles)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.Roles = roles
	return &u, nil
}

func (r *UserRepository) GetByID(id uuid.UUID) (*models.User, error) {
	q := `SELECT ` + userColumns + userJoin + ` WHERE u.id = $1 GROUP BY u.id`
	u, err := scanUser(r.DB.QueryRow(q, id))
	if err != nil {
		return nil, fmt.Errorf("user by id: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByPhone(phone string) (*models.User, error) {
	q := `SELECT ` + userColumns + userJoin + ` WHERE u.phone_number = $1 GROUP BY u.id`
	u, err := scanUser(r.DB.QueryRow(q, phone))
	if err != nil {
		return nil, fmt.Errorf("user by phone: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByUsername(username string) (*models.User, error) {
	q := `SELECT ` + userColumns + userJoin + ` WHERE u.username = $1 GROUP BY u.id`
	u, err := scanUser(r.DB.QueryRow(q, username))
	if err != nil {
		return nil, fmt.Errorf("user by username: %w", err)
	}
	return u, nil
}

// CreateWithRole — пользователь и его роль создаются одной транзакцией;
// несуществующая роль откатывает всё.
func (r *UserRepository) CreateWithRole(user *models.User, roleName string) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return fmt.Errorf("user create: %w", err)
	}
	defer tx.Rollback()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	const insertUser = `
		INSERT INTO users (id, phone_number, username, password_hash, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING created_at
	`
	if err := tx.QueryRow(insertUser, user.ID, user.PhoneNumber, user.Username, user.PasswordHash).Scan(&user.CreatedAt); err != nil {
		return fmt.Errorf("user create: %w", err)
	}

	const insertRole = `
		INSERT INTO user_roles (user_id, role_id)
		SELECT $1, id FROM roles WHERE name = $2
	`
	res, err := tx.Exec(insertRole, user.ID, roleName)
	if err != nil {
		return fmt.Errorf("user role assign: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("role %s not found", roleName)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("user create: %w", err)
	}
	user.Roles = []string{roleName}
	return nil
}

// ListByRole — все пользователи с заданной ролью (список суперпользователей).
func (r *UserRepository) ListByRole(roleName string) ([]*models.User, error) {
	q := `SELECT ` + userColumns + userJoin + `
		WHERE u.id IN (
			SELECT ur2.user_id FROM user_roles ur2
			JOIN roles r2 ON r2.id = ur2.role_id
			WHERE r2.name = $1
		)
		GROUP BY u.id
		ORDER BY u.created_at`
	rows, err := r.DB.Query(q, roleName)
	if err != nil {
		return nil, fmt.Errorf("users by role: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var u models.User
		var roles pq.StringArray
		if err := rows.Scan(&u.ID, &u.PhoneNumber, &u.Username, &u.PasswordHash, &u.CreatedAt, &roles); err != nil {
			return nil, fmt.Errorf("users by role: %w", err)
		}
		u.Roles = roles
		users = append(users, &u)
	}
	return users, rows.Err()
}
