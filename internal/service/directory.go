package service

import (
	"context"
	"fmt"

	apperrors "parking/internal/errors"
	"parking/internal/models"
	"parking/internal/repository"
)

// Directory resolves the users and vehicles a reservation refers to.
type Directory struct {
	store repository.Reader
}

func NewDirectory(store repository.Reader) *Directory {
	return &Directory{store: store}
}

func (d *Directory) ResolveUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := d.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", userID, apperrors.ErrUnauthorized)
	}
	return user, nil
}

// ResolveVehicle returns the vehicle if it exists and belongs to userID.
func (d *Directory) ResolveVehicle(ctx context.Context, userID, vehicleID int64) (*models.Vehicle, error) {
	v, err := d.store.GetVehicle(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicle: %w", err)
	}
	if v == nil {
		return nil, apperrors.NotFound("vehicle", vehicleID)
	}
	if v.UserID != userID {
		return nil, fmt.Errorf("vehicle %d: %w", vehicleID, apperrors.ErrForbidden)
	}
	return v, nil
}
