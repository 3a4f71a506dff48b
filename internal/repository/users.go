package repository

import (
	"context"

	"github.com/google/uuid"
)

const insertUser = `
INSERT INTO users (id, email, username, password, first_name, last_name, phone_number)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, email, username, password, first_name, last_name, phone_number, is_active, created_at, updated_at
`

type InsertUserParams struct {
	ID          uuid.UUID
	Email       string
	Username    string
	Password    string
	FirstName   string
	LastName    string
	PhoneNumber string
}

func (q *Queries) InsertUser(c context.Context, arg InsertUserParams) (User, error) {
	row := q.db.QueryRow(
		c,
		insertUser,
		arg.ID,
		arg.Email,
		arg.Username,
		arg.Password,
		arg.FirstName,
		arg.LastName,
		arg.PhoneNumber,
	)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.Username,
		&i.Password,
		&i.FirstName,
		&i.LastName,
		&i.PhoneNumber,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const findUserByEmail = `
SELECT id, email, username, password, first_name, last_name, phone_number, is_active, created_at, updated_at
FROM users
WHERE email = $1
`

func (q *Queries) FindUserByEmail(c context.Context, email string) (User, error) {
	row := q.db.QueryRow(c, findUserByEmail, email)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.Username,
		&i.Password,
		&i.FirstName,
		&i.LastName,
		&i.PhoneNumber,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
