package repository

import (
	"context"

	"parking/internal/models"

	sq "github.com/Masterminds/squirrel"
)

func (r *queries) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user := &models.User{}
	found, err := r.queryRow(ctx,
		psql.Select("id", "email", "name", "phone", "created_at").
			From("users").
			Where(sq.Eq{"id": id}),
		"GetUser",
		func(row scanner) error {
			return row.Scan(&user.ID, &user.Email, &user.Name, &user.Phone, &user.CreatedAt)
		})
	if err != nil || !found {
		return nil, err
	}
	return user, nil
}

func (r *queries) GetVehicle(ctx context.Context, id int64) (*models.Vehicle, error) {
	v := &models.Vehicle{}
	found, err := r.queryRow(ctx,
		psql.Select("id", "user_id", "plate", "type", "created_at").
			From("vehicles").
			Where(sq.Eq{"id": id}),
		"GetVehicle",
		func(row scanner) error {
			return row.Scan(&v.ID, &v.UserID, &v.Plate, &v.Type, &v.CreatedAt)
		})
	if err != nil || !found {
		return nil, err
	}
	return v, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.queryRow(ctx,
		psql.Insert("users").
			Columns("email", "name", "phone").
			Values(user.Email, user.Name, user.Phone).
			Suffix("RETURNING id, created_at"),
		"CreateUser",
		func(row scanner) error { return row.Scan(&user.ID, &user.CreatedAt) })
	return err
}

func (s *PostgresStore) CreateVehicle(ctx context.Context, v *models.Vehicle) error {
	if v.Type == "" {
		v.Type = "car"
	}
	_, err := s.queryRow(ctx,
		psql.Insert("vehicles").
			Columns("user_id", "plate", "type").
			Values(v.UserID, v.Plate, v.Type).
			Suffix("RETURNING id, created_at"),
		"CreateVehicle",
		func(row scanner) error { return row.Scan(&v.ID, &v.CreatedAt) })
	return err
}
