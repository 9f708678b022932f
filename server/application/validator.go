package application

import (
	"errors"
	"fmt"

	"dogfight/server/domain"
	"dogfight/utils"
)

// Validator はIntentがワールドを変更する前に入力を検証します。
type Validator interface {
	UpdatePosition(in domain.UpdatePositionIntent) error
	FireBullet(in domain.FireBulletIntent) error
}

// SimpleValidator は最低限の入力検証を提供するデフォルト実装。
type SimpleValidator struct{}

func (SimpleValidator) UpdatePosition(in domain.UpdatePositionIntent) error {
	if in.SessionID.IsEmpty() {
		return errors.New("sender id is required")
	}
	if !utils.FiniteVec(in.Position) {
		return fmt.Errorf("%w: position %+v", ErrInvalidPayload, in.Position)
	}
	if !utils.FiniteVec(in.Rotation) {
		return fmt.Errorf("%w: rotation %+v", ErrInvalidPayload, in.Rotation)
	}
	if !utils.FiniteVec(in.Velocity) {
		return fmt.Errorf("%w: velocity %+v", ErrInvalidPayload, in.Velocity)
	}
	return nil
}

func (SimpleValidator) FireBullet(in domain.FireBulletIntent) error {
	if in.SessionID.IsEmpty() {
		return errors.New("sender id is required")
	}
	if !utils.FiniteVec(in.Position) {
		return fmt.Errorf("%w: position %+v", ErrInvalidPayload, in.Position)
	}
	if !utils.FiniteVec(in.Velocity) {
		return fmt.Errorf("%w: velocity %+v", ErrInvalidPayload, in.Velocity)
	}
	return nil
}
