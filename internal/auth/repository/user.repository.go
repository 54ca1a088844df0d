package repository

import (
	"database/sql"

	"inkpad/pkg/logger"
	"inkpad/store"
)

type UserRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(id, email, passwordHash string) error {
	_, err := r.DB.Exec(`INSERT INTO users (id, email, password) VALUES ($1, $2, $3)`,
		id, email, passwordHash)
	if err != nil {
		logger.Sugar.Errorf("Failed to create user %s: %v", email, err)
	}
	return err
}

func (r *UserRepository) GetByEmail(email string) (store.User, error) {
	var u store.User
	err := r.DB.QueryRow(`SELECT id, email, password FROM users WHERE email = $1`, email).
		Scan(&u.ID, &u.Email, &u.Password)
	if err != nil && err != sql.ErrNoRows {
		logger.Sugar.Errorf("Failed to get user by email %s: %v", email, err)
	}
	return u, err
}

func (r *UserRepository) List() ([]store.User, error) {
	rows, err := r.DB.Query(`SELECT id, email FROM users ORDER BY email ASC`)
	if err != nil {
		logger.Sugar.Errorf("Failed to list users: %v", err)
		return nil, err
	}
	defer rows.Close()

	var users []store.User
	for rows.Next() {
		var u store.User
		if err := rows.Scan(&u.ID, &u.Email); err != nil {
			continue
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
